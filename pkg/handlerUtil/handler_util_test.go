package handlerUtil

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"ProjectDebris/internal/api/scan"
	"ProjectDebris/internal/entity"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newErrorApp(err error) *fiber.App {
	app := fiber.New()
	h := New(newTestLogger())
	app.Get("/", func(c *fiber.Ctx) error {
		return h.Handle(c, "test-request", err, c.Path(), "test_operation")
	})
	return app
}

func TestHandleMapsErrorsToStatus(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"bad request response error", scan.ErrBadRequest, http.StatusBadRequest},
		{"internal response error", scan.ErrInternalServerError, http.StatusInternalServerError},
		{"scan not found", scan.ErrScanNotFound, http.StatusNotFound},
		{"empty report", scan.ErrEmptyReport, http.StatusConflict},
		{"no images", scan.ErrNoImages, http.StatusBadRequest},
		{"invalid image file", fmt.Errorf("%w: not an image", scan.ErrInvalidImageFile), http.StatusBadRequest},
		{"invalid detection count", entity.ErrInvalidDetectionCount, http.StatusInternalServerError},
		{"unexpected error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			app := newErrorApp(c.err)

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
			require.NoError(t, err)
			require.Equal(t, c.status, resp.StatusCode)
		})
	}
}

func TestHandleSuccessWithoutBody(t *testing.T) {
	app := fiber.New()
	h := New(newTestLogger())
	app.Get("/", func(c *fiber.Ctx) error {
		return h.HandleSuccess(c, fiber.StatusNoContent, nil)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}
