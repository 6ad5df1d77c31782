package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"ProjectDebris/database/postgres"
	scanHandler "ProjectDebris/internal/api/scan/handler"
	scanRepository "ProjectDebris/internal/api/scan/repository"
	scanService "ProjectDebris/internal/api/scan/service"
	"ProjectDebris/internal/middleware"
	"ProjectDebris/pkg/detector"
	"ProjectDebris/pkg/redis"
	"ProjectDebris/pkg/s3"
	"ProjectDebris/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type ServerOption func(*Server) error

type Server struct {
	engine            *fiber.App
	db                *sqlx.DB
	log               *logrus.Logger
	middleware        middleware.Middleware
	validator         *validator.Validate
	utils             utils.IUtils
	handlers          []handler
	redisServer       redis.IRedis
	s3Client          s3.ItfS3
	remoteDetector    detector.IDetector
	simulatedDetector detector.IDetector
	scanMode          string
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithDatabase() ServerOption {
	return func(s *Server) error {
		db, err := postgres.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to connect to database: %v", err)
			}
			return fmt.Errorf("failed to create database connection: %w", err)
		}
		s.db = db
		return nil
	}
}

func WithRedisServer(redisServer redis.IRedis) ServerOption {
	return func(s *Server) error {
		s.redisServer = redisServer
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log)
		return nil
	}
}

// WithS3Client is a no-op when no bucket is configured. Annotated
// renderings then stay as inline data instead of being uploaded.
func WithS3Client() ServerOption {
	return func(s *Server) error {
		if os.Getenv("AWS_BUCKET_NAME") == "" {
			if s.log != nil {
				s.log.Warn("AWS_BUCKET_NAME not set, annotated image upload disabled")
			}
			return nil
		}

		client, err := s3.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize S3 client: %v", err)
			}
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		s.s3Client = client
		return nil
	}
}

func WithDetectors() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before detectors")
		}

		baseURL := os.Getenv("DETECTION_API_URL")
		if baseURL == "" {
			baseURL = "http://localhost:8000"
		}

		seed := time.Now().UnixNano()
		if raw := os.Getenv("SIMULATED_SEED"); raw != "" {
			parsed, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid SIMULATED_SEED: %w", err)
			}
			seed = parsed
		}

		delay := 500 * time.Millisecond
		if raw := os.Getenv("SIMULATED_DELAY_MS"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				return fmt.Errorf("invalid SIMULATED_DELAY_MS: %w", err)
			}
			delay = time.Duration(parsed) * time.Millisecond
		}

		s.remoteDetector = detector.NewRemoteDetector(baseURL, 30*time.Second, s.log)
		s.simulatedDetector = detector.NewSimulatedDetector(seed, delay)
		s.scanMode = os.Getenv("SCAN_MODE")
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func (s *Server) RegisterHandler() {
	// Scan Domain
	scanRepo := scanRepository.New(s.db, s.log)
	scanServices := scanService.New(s.log, scanRepo, s.remoteDetector, s.simulatedDetector, s.s3Client, s.redisServer, s.utils, s.scanMode)
	scanHandlers := scanHandler.New(s.log, s.validator, s.middleware, scanServices, s.utils)

	s.setupHealthCheck()
	s.handlers = append(s.handlers, scanHandlers)
}

func (s *Server) Run() error {
	router := s.engine.Group("/api/v1")
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(middleware.LoggerConfig())
	s.engine.Use(s.middleware.NewRateLimiter)

	for _, h := range s.handlers {
		h.Start(router)
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "3000"
	}

	return s.engine.Listen(fmt.Sprintf(":%s", port))
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message": "Server is Healthy!",
		})
	})
}
