package scanHandler

import (
	scanService "ProjectDebris/internal/api/scan/service"
	"ProjectDebris/internal/middleware"
	"ProjectDebris/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type ScanHandler struct {
	log         *logrus.Logger
	validator   *validator.Validate
	middleware  middleware.Middleware
	scanService scanService.IScanService
	utils       utils.IUtils
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	ss scanService.IScanService,
	utils utils.IUtils,
) *ScanHandler {
	return &ScanHandler{
		scanService: ss,
		log:         log,
		validator:   validator,
		middleware:  middleware,
		utils:       utils,
	}
}

func (h *ScanHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	srv.Post("/scans", h.CreateScan)
	srv.Get("/scans", h.GetAllScans)

	scans := srv.Group("/scans")
	scans.Use("/:id/ws", wsMiddleware)
	scans.Get("/:id/ws", websocket.New(h.handleProgressWebSocket))
	scans.Get("/:id/progress", h.GetProgress)
	scans.Get("/:id/report", h.ExportReport)
	scans.Get("/:id", h.GetScan)
}
