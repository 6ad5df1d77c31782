package scan

import (
	"errors"
	"net/http"

	"ProjectDebris/pkg/response"
)

var (
	ErrInternalServerError = response.NewError(http.StatusInternalServerError, "internal server error")
	ErrBadRequest          = response.NewError(http.StatusBadRequest, "bad request")

	ErrScanNotFound     = errors.New("scan not found")
	ErrEmptyReport      = errors.New("cannot export a report with zero results")
	ErrNoImages         = errors.New("at least one image is required")
	ErrInvalidImageFile = errors.New("invalid image file")
)
