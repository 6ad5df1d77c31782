package scanHandler

import (
	"errors"
	"time"

	"ProjectDebris/internal/api/scan"
	contextPkg "ProjectDebris/pkg/context"
	"ProjectDebris/pkg/handlerUtil"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"golang.org/x/net/context"
)

func (h *ScanHandler) GetProgress(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	id := ctx.Params("id")

	snapshot, err := h.scanService.GetProgress(c, id)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_progress")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, snapshot)
	}
}

func (h *ScanHandler) handleProgressWebSocket(c *websocket.Conn) {
	h.log.Info("Scan progress WebSocket client connected")
	defer h.log.Info("Scan progress WebSocket client disconnected")

	c.SetPingHandler(func(data string) error {
		h.log.Debug("Received ping, sending pong")
		if err := c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second)); err != nil {
			h.log.Errorf("Error sending pong: %v", err)
		}
		return nil
	})

	id := c.Params("id")
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		sc, err := h.scanService.GetScan(context.Background(), id)
		if err != nil {
			if errors.Is(err, scan.ErrScanNotFound) {
				if writeErr := c.WriteJSON(map[string]string{"error": "Scan not found"}); writeErr != nil {
					h.log.Errorf("Error sending error response: %v", writeErr)
				}
				return
			}
			h.log.Errorf("Error fetching scan progress: %v", err)
			return
		}

		if err := c.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
			h.log.Errorf("Error setting write deadline: %v", err)
			return
		}

		if err := c.WriteJSON(scan.NewScanResponse(sc)); err != nil {
			h.log.Errorf("Error writing JSON response: %v", err)
			return
		}

		if sc.Status.Terminal() {
			return
		}

		<-ticker.C
	}
}
