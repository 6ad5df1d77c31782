package handlerUtil

import (
	"errors"

	"ProjectDebris/internal/api/scan"
	"ProjectDebris/internal/entity"
	"ProjectDebris/pkg/log"
	"ProjectDebris/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

type ErrorHandler struct {
	logger *logrus.Logger
}

func New(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
	}
}

func (h *ErrorHandler) Handle(c *fiber.Ctx, requestID string, err error, path string, operation string) error {
	var respErr *response.Error
	if errors.As(err, &respErr) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"code":       respErr.Code,
			"path":       path,
			"operation":  operation,
		}).Warn("Operation failed with error response")
		return c.Status(respErr.Code).JSON(fiber.Map{"error": err.Error()})
	}

	// Scan domain errors
	if errors.Is(err, scan.ErrScanNotFound) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Scan not found")
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Scan not found",
			"code":    "SCAN_NOT_FOUND",
		})
	}

	if errors.Is(err, scan.ErrEmptyReport) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Report export requested without results")
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message": "Cannot export a report with zero results",
			"code":    "EMPTY_REPORT",
		})
	}

	if errors.Is(err, scan.ErrNoImages) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("No images uploaded")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "At least one image is required",
			"code":    "NO_IMAGES",
		})
	}

	if errors.Is(err, scan.ErrInvalidImageFile) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Invalid image file")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid image file. Only images up to 5MB are allowed.",
			"code":    "INVALID_IMAGE_FILE",
		})
	}

	if errors.Is(err, entity.ErrInvalidDetectionCount) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Error("Invalid detection count")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Detection count cannot be negative",
			"code":    "INVALID_DETECTION_COUNT",
		})
	}

	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
		"operation":  operation,
	}).Error("Unexpected error")

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "An unexpected error occurred",
	})
}

func (h *ErrorHandler) HandleValidationError(c *fiber.Ctx, requestID string, err error, path string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
	}).Warn("Validation failed")

	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "Validation failed: " + err.Error(),
		"code":  "VALIDATION_ERROR",
	})
}

func (h *ErrorHandler) HandleRequestTimeout(c *fiber.Ctx) error {
	return c.Status(fiber.StatusRequestTimeout).JSON(utils.StatusMessage(fiber.StatusRequestTimeout))
}

func (h *ErrorHandler) HandleSuccess(c *fiber.Ctx, statusCode int, data interface{}) error {
	if data == nil {
		return c.SendStatus(statusCode)
	}
	return c.Status(statusCode).JSON(data)
}
