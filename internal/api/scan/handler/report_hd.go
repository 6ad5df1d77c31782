package scanHandler

import (
	"fmt"
	"time"

	contextPkg "ProjectDebris/pkg/context"
	"ProjectDebris/pkg/handlerUtil"
	"ProjectDebris/pkg/log"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
)

func (h *ScanHandler) ExportReport(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	id := ctx.Params("id")

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
		"scan_id":    id,
	}).Debug("Processing report export request")

	report, err := h.scanService.ExportReport(c, id)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "export_report")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		h.log.WithFields(log.Fields{
			"request_id":   requestID,
			"path":         ctx.Path(),
			"scan_id":      id,
			"total_images": report.TotalImages,
		}).Info("Report exported successfully")

		filename := fmt.Sprintf("debris-report-%s.json", report.Timestamp.Format("2006-01-02"))
		ctx.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s", filename))
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, report)
	}
}
