package scanHandler

import (
	"fmt"
	"time"

	"ProjectDebris/internal/api/scan"
	"ProjectDebris/internal/entity"
	contextPkg "ProjectDebris/pkg/context"
	"ProjectDebris/pkg/handlerUtil"
	"ProjectDebris/pkg/log"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
)

func (h *ScanHandler) CreateScan(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 30*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing scan creation request")

	form, err := ctx.MultipartForm()
	if err != nil {
		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"path":       ctx.Path(),
			"error":      err.Error(),
		}).Warn("Failed to parse multipart form")
		return errHandler.Handle(ctx, requestID, scan.ErrBadRequest, ctx.Path(), "parse_multipart_form")
	}

	files := form.File["images"]
	if len(files) == 0 {
		return errHandler.Handle(ctx, requestID, scan.ErrNoImages, ctx.Path(), "check_uploaded_images")
	}

	req := scan.CreateScanRequest{
		Mode: ctx.FormValue("mode"),
	}
	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	images := make([]entity.ImageInput, 0, len(files))
	for _, file := range files {
		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"path":       ctx.Path(),
			"file_name":  file.Filename,
			"file_size":  file.Size,
		}).Debug("Processing file upload")

		if err := h.utils.ValidateImageFile(file); err != nil {
			return errHandler.Handle(ctx, requestID, fmt.Errorf("%w: %s", scan.ErrInvalidImageFile, err.Error()), ctx.Path(), "validate_image_file")
		}

		data, err := h.utils.ReadMultipartFile(file)
		if err != nil {
			h.log.WithFields(log.Fields{
				"request_id": requestID,
				"path":       ctx.Path(),
				"file_name":  file.Filename,
				"error":      err.Error(),
			}).Error("Failed to read uploaded file")
			return errHandler.Handle(ctx, requestID, scan.ErrInternalServerError, ctx.Path(), "read_uploaded_file")
		}

		images = append(images, entity.ImageInput{
			SourceRef: file.Filename,
			Data:      data,
		})
	}

	sc, err := h.scanService.CreateScan(c, images, req.Mode)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "create_scan")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		h.log.WithFields(log.Fields{
			"request_id":   requestID,
			"path":         ctx.Path(),
			"scan_id":      sc.ID,
			"total_images": sc.TotalImages,
		}).Info("Scan created successfully")
		return errHandler.HandleSuccess(ctx, fiber.StatusAccepted, scan.CreateScanResponse{
			ScanID:      sc.ID,
			Status:      string(sc.Status),
			TotalImages: sc.TotalImages,
		})
	}
}

func (h *ScanHandler) GetScan(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	id := ctx.Params("id")

	sc, err := h.scanService.GetScan(c, id)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_scan")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, scan.NewScanResponse(sc))
	}
}

func (h *ScanHandler) GetAllScans(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	limit := ctx.QueryInt("limit", 20)
	offset := ctx.QueryInt("offset", 0)

	scans, total, err := h.scanService.GetAllScans(c, limit, offset)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_all_scans")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, scan.NewScanListResponse(scans, total, limit, offset))
	}
}
