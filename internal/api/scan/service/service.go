package scanService

import (
	"ProjectDebris/internal/api/scan"
	scanRepository "ProjectDebris/internal/api/scan/repository"
	"ProjectDebris/internal/entity"
	"ProjectDebris/pkg/detector"
	redisPkg "ProjectDebris/pkg/redis"
	"ProjectDebris/pkg/s3"
	"ProjectDebris/pkg/utils"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const (
	ModeRemote    = "remote"
	ModeSimulated = "simulated"
)

type IScanService interface {
	CreateScan(ctx context.Context, images []entity.ImageInput, mode string) (*entity.Scan, error)
	GetScan(ctx context.Context, id string) (*entity.Scan, error)
	GetProgress(ctx context.Context, id string) (*scan.ProgressSnapshot, error)
	GetAllScans(ctx context.Context, limit, offset int) ([]entity.Scan, int, error)
	ExportReport(ctx context.Context, id string) (*entity.Report, error)
}

type scanService struct {
	log         *logrus.Logger
	scanRepo    scanRepository.Repository
	remote      detector.IDetector
	simulated   detector.IDetector
	s3Client    s3.ItfS3
	redisServer redisPkg.IRedis
	utils       utils.IUtils
	defaultMode string
}

func New(
	log *logrus.Logger,
	scanRepo scanRepository.Repository,
	remote detector.IDetector,
	simulated detector.IDetector,
	s3Client s3.ItfS3,
	redisServer redisPkg.IRedis,
	utils utils.IUtils,
	defaultMode string,
) IScanService {
	if defaultMode != ModeSimulated {
		defaultMode = ModeRemote
	}

	return &scanService{
		log:         log,
		scanRepo:    scanRepo,
		remote:      remote,
		simulated:   simulated,
		s3Client:    s3Client,
		redisServer: redisServer,
		utils:       utils,
		defaultMode: defaultMode,
	}
}
