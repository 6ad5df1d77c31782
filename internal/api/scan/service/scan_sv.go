package scanService

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"ProjectDebris/internal/api/scan"
	"ProjectDebris/internal/entity"
	contextPkg "ProjectDebris/pkg/context"
	"ProjectDebris/pkg/detector"
	redisPkg "ProjectDebris/pkg/redis"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const progressCacheTTL = time.Hour

// CreateScan persists a new scan in the idle state and starts the batch run
// in the background. Each run owns its own state; nothing is shared between
// two concurrent scans except the stateless detection backends.
func (s *scanService) CreateScan(ctx context.Context, images []entity.ImageInput, mode string) (*entity.Scan, error) {
	if len(images) == 0 {
		return nil, scan.ErrNoImages
	}

	if mode == "" {
		mode = s.defaultMode
	}

	id, err := s.utils.NewULIDFromTimestamp(time.Now())
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sc := entity.Scan{
		ID:          id,
		Status:      entity.ScanStatusIdle,
		Progress:    0,
		TotalImages: len(images),
		Simulated:   mode == ModeSimulated,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	repo, err := s.scanRepo.NewClient(false)
	if err != nil {
		return nil, err
	}

	if err := repo.Scans.CreateScan(ctx, sc); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"request_id":   contextPkg.GetRequestID(ctx),
		"scan_id":      id,
		"total_images": len(images),
		"mode":         mode,
	}).Info("Scan created, starting batch run")

	// The run outlives the HTTP request; the scan ID doubles as the
	// request ID in the background logs.
	go s.runBatch(contextPkg.WithRequestID(context.Background(), id), sc, images, mode)

	return &sc, nil
}

// runBatch drives the whole batch to a terminal state. A remote failure
// switches the entire batch to the simulated backend and restarts from the
// first image, so one run never mixes remote and simulated results.
func (s *scanService) runBatch(ctx context.Context, sc entity.Scan, images []entity.ImageInput, mode string) {
	simulated := mode == ModeSimulated

	for {
		err := s.runPass(ctx, sc, images, simulated)
		if err == nil {
			return
		}

		if !simulated && errors.Is(err, detector.ErrDetectionFailed) {
			s.log.WithFields(logrus.Fields{
				"scan_id": sc.ID,
				"error":   err.Error(),
			}).Warn("Remote detection failed, restarting batch with simulated backend")
			simulated = true
			continue
		}

		s.log.WithFields(logrus.Fields{
			"scan_id": sc.ID,
			"error":   err.Error(),
		}).Error("Batch run failed")
		s.markFailed(ctx, sc.ID, simulated)
		return
	}
}

// runPass processes every image strictly in order with the selected backend.
// Progress is persisted before each detection so observers see it move ahead
// of the result append, and each result append is a single insert.
func (s *scanService) runPass(ctx context.Context, sc entity.Scan, images []entity.ImageInput, simulated bool) error {
	backend := s.remote
	if simulated {
		backend = s.simulated
	}

	repo, err := s.scanRepo.NewClient(false)
	if err != nil {
		return err
	}

	if err := repo.Scans.DeleteResultsByScanID(ctx, sc.ID); err != nil {
		return err
	}

	total := len(images)

	for i, img := range images {
		progress := float64(i) / float64(total) * 100

		if err := repo.Scans.UpdateScan(ctx, sc.ID, entity.ScanStatusRunning, progress, simulated); err != nil {
			return err
		}
		s.cacheProgress(ctx, sc.ID, entity.ScanStatusRunning, progress, i, total)

		out, err := backend.Detect(ctx, img.Data, img.SourceRef)
		if err != nil {
			return err
		}

		severity, err := entity.ClassifySeverity(out.DetectionCount)
		if err != nil {
			return err
		}

		result := entity.ClassificationResult{
			Position:        i,
			SourceRef:       img.SourceRef,
			DetectionCount:  out.DetectionCount,
			SeverityLevel:   severity,
			DetectedObjects: makeDetectedObjects(out.Detections),
			AnnotatedRef:    s.resolveAnnotatedRef(sc.ID, i, img.SourceRef, out.AnnotatedImage),
		}

		if err := repo.Scans.InsertResult(ctx, sc.ID, result); err != nil {
			return err
		}

		s.log.WithFields(logrus.Fields{
			"scan_id":         sc.ID,
			"position":        i,
			"detection_count": out.DetectionCount,
			"severity_level":  severity.String(),
			"simulated":       simulated,
		}).Debug("Image classified")
	}

	if err := repo.Scans.UpdateScan(ctx, sc.ID, entity.ScanStatusComplete, 100, simulated); err != nil {
		return err
	}
	s.clearProgress(ctx, sc.ID)

	s.log.WithFields(logrus.Fields{
		"scan_id":      sc.ID,
		"total_images": total,
		"simulated":    simulated,
	}).Info("Batch run complete")

	return nil
}

func (s *scanService) markFailed(ctx context.Context, scanID string, simulated bool) {
	repo, err := s.scanRepo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"scan_id": scanID,
			"error":   err.Error(),
		}).Error("Failed to open repository client for markFailed")
		return
	}

	sc, err := repo.Scans.GetScanByID(ctx, scanID)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"scan_id": scanID,
			"error":   err.Error(),
		}).Error("Failed to load scan for markFailed")
		return
	}

	if err := repo.Scans.UpdateScan(ctx, scanID, entity.ScanStatusFailed, sc.Progress, simulated); err != nil {
		s.log.WithFields(logrus.Fields{
			"scan_id": scanID,
			"error":   err.Error(),
		}).Error("Failed to mark scan as failed")
		return
	}

	s.clearProgress(ctx, scanID)
}

func makeDetectedObjects(detections []detector.Detection) []entity.DetectedObject {
	objects := make([]entity.DetectedObject, 0, len(detections))
	for _, det := range detections {
		obj := entity.DetectedObject{
			Class:      det.Class,
			Confidence: det.Confidence,
		}
		if len(det.BBox) == 4 {
			obj.X = det.BBox[0]
			obj.Y = det.BBox[1]
			obj.W = det.BBox[2]
			obj.H = det.BBox[3]
		}
		objects = append(objects, obj)
	}
	return objects
}

// resolveAnnotatedRef uploads an annotated rendering to S3 when one exists
// and a bucket is configured. Without either, the source ref stands in.
func (s *scanService) resolveAnnotatedRef(scanID string, position int, sourceRef, annotated string) string {
	if annotated == "" {
		return sourceRef
	}

	if s.s3Client == nil {
		return annotated
	}

	data, contentType, err := decodeDataURI(annotated)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"scan_id":  scanID,
			"position": position,
			"error":    err.Error(),
		}).Warn("Could not decode annotated image")
		return sourceRef
	}

	key := fmt.Sprintf("annotated/%s-%d.jpg", scanID, position)
	location, err := s.s3Client.UploadBytes(key, data, contentType)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"scan_id":  scanID,
			"position": position,
			"error":    err.Error(),
		}).Warn("Could not upload annotated image")
		return sourceRef
	}

	return location
}

func decodeDataURI(uri string) ([]byte, string, error) {
	if !strings.HasPrefix(uri, "data:") {
		return nil, "", errors.New("not a data URI")
	}

	rest := strings.TrimPrefix(uri, "data:")
	parts := strings.SplitN(rest, ";base64,", 2)
	if len(parts) != 2 {
		return nil, "", errors.New("data URI is not base64 encoded")
	}

	data, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, "", err
	}

	return data, parts[0], nil
}

func (s *scanService) cacheProgress(ctx context.Context, scanID string, status entity.ScanStatus, progress float64, completed, total int) {
	if s.redisServer == nil {
		return
	}

	snapshot := scan.ProgressSnapshot{
		ScanID:    scanID,
		Status:    string(status),
		Progress:  progress,
		Completed: completed,
		Total:     total,
	}

	payload, err := jsoniter.MarshalToString(snapshot)
	if err != nil {
		return
	}

	if err := s.redisServer.SetScanProgress(ctx, scanID, payload, progressCacheTTL); err != nil {
		s.log.WithFields(logrus.Fields{
			"scan_id": scanID,
			"error":   err.Error(),
		}).Warn("Could not cache progress snapshot")
	}
}

// clearProgress drops the live snapshot once a scan is terminal; readers
// then get the durable state from Postgres instead of a stale cache entry.
func (s *scanService) clearProgress(ctx context.Context, scanID string) {
	if s.redisServer == nil {
		return
	}

	if err := s.redisServer.DeleteScanProgress(ctx, scanID); err != nil {
		s.log.WithFields(logrus.Fields{
			"scan_id": scanID,
			"error":   err.Error(),
		}).Warn("Could not drop progress snapshot")
	}
}

func (s *scanService) GetScan(ctx context.Context, id string) (*entity.Scan, error) {
	repo, err := s.scanRepo.NewClient(false)
	if err != nil {
		return nil, err
	}

	sc, err := repo.Scans.GetScanByID(ctx, id)
	if err != nil {
		return nil, err
	}

	results, err := repo.Scans.GetResultsByScanID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.presignAnnotatedRefs(results)
	sc.Results = results

	return &sc, nil
}

// presignAnnotatedRefs swaps S3-hosted annotation locations for short-lived
// presigned URLs. Inline data URIs and source refs pass through untouched.
func (s *scanService) presignAnnotatedRefs(results []entity.ClassificationResult) {
	if s.s3Client == nil {
		return
	}

	for i := range results {
		ref := results[i].AnnotatedRef
		if !strings.Contains(ref, ".amazonaws.com/") {
			continue
		}

		signed, err := s.s3Client.PresignUrl(ref)
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"annotated_ref": ref,
				"error":         err.Error(),
			}).Warn("Could not presign annotated image")
			continue
		}
		results[i].AnnotatedRef = signed
	}
}

func (s *scanService) GetProgress(ctx context.Context, id string) (*scan.ProgressSnapshot, error) {
	if s.redisServer != nil {
		payload, err := s.redisServer.GetScanProgress(ctx, id)
		if err == nil {
			var snapshot scan.ProgressSnapshot
			if err := jsoniter.UnmarshalFromString(payload, &snapshot); err == nil {
				return &snapshot, nil
			}
		} else if !errors.Is(err, redisPkg.ErrNotFound) {
			s.log.WithFields(logrus.Fields{
				"scan_id": id,
				"error":   err.Error(),
			}).Warn("Progress cache read failed, falling back to database")
		}
	}

	sc, err := s.GetScan(ctx, id)
	if err != nil {
		return nil, err
	}

	return &scan.ProgressSnapshot{
		ScanID:    sc.ID,
		Status:    string(sc.Status),
		Progress:  sc.Progress,
		Completed: len(sc.Results),
		Total:     sc.TotalImages,
	}, nil
}

func (s *scanService) GetAllScans(ctx context.Context, limit, offset int) ([]entity.Scan, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	repo, err := s.scanRepo.NewClient(false)
	if err != nil {
		return nil, 0, err
	}

	return repo.Scans.GetAllScans(ctx, limit, offset)
}
