package scanRepository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"ProjectDebris/internal/api/scan"
	"ProjectDebris/internal/entity"
	contextPkg "ProjectDebris/pkg/context"

	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

type ScanDB struct {
	ID          sql.NullString  `db:"id"`
	Status      sql.NullString  `db:"status"`
	Progress    sql.NullFloat64 `db:"progress"`
	TotalImages sql.NullInt64   `db:"total_images"`
	Simulated   sql.NullBool    `db:"simulated"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

type ScanResultDB struct {
	ScanID          sql.NullString `db:"scan_id"`
	Position        sql.NullInt64  `db:"position"`
	SourceRef       sql.NullString `db:"source_ref"`
	DetectionCount  sql.NullInt64  `db:"detection_count"`
	SeverityLevel   sql.NullString `db:"severity_level"`
	AnnotatedRef    sql.NullString `db:"annotated_ref"`
	DetectedObjects sql.NullString `db:"detected_objects"`
	CreatedAt       time.Time      `db:"created_at"`
}

func (r *scansRepository) CreateScan(ctx context.Context, sc entity.Scan) error {
	requestID := contextPkg.GetRequestID(ctx)
	argsKV := map[string]interface{}{
		"id":           sc.ID,
		"status":       string(sc.Status),
		"progress":     sc.Progress,
		"total_images": sc.TotalImages,
		"simulated":    sc.Simulated,
		"created_at":   sc.CreatedAt,
		"updated_at":   sc.UpdatedAt,
	}

	query, args, err := sqlx.Named(queryCreateScan, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for CreateScan")
		return err
	}
	query = r.q.Rebind(query)

	_, err = r.q.ExecContext(ctx, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when creating scan")
		return err
	}

	return nil
}

func (r *scansRepository) UpdateScan(ctx context.Context, id string, status entity.ScanStatus, progress float64, simulated bool) error {
	requestID := contextPkg.GetRequestID(ctx)
	argsKV := map[string]interface{}{
		"id":         id,
		"status":     string(status),
		"progress":   progress,
		"simulated":  simulated,
		"updated_at": time.Now(),
	}

	query, args, err := sqlx.Named(queryUpdateScan, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("UpdateScan named query preparation err")
		return err
	}

	query = r.q.Rebind(query)

	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("UpdateScan execution err")
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("UpdateScan rows affected err")
		return err
	}

	if rowsAffected == 0 {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"id":         id,
		}).Warn("UpdateScan no rows affected")
		return scan.ErrScanNotFound
	}

	return nil
}

func (r *scansRepository) GetScanByID(ctx context.Context, id string) (entity.Scan, error) {
	requestID := contextPkg.GetRequestID(ctx)
	var scanDB ScanDB

	argsKV := map[string]interface{}{
		"id": id,
	}

	query, args, err := sqlx.Named(queryGetScanByID, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetScanByID named query preparation err")
		return entity.Scan{}, err
	}

	query = r.q.Rebind(query)

	if err := r.q.QueryRowxContext(ctx, query, args...).StructScan(&scanDB); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"id":         id,
			}).Warn("GetScanByID no rows found")
			return entity.Scan{}, scan.ErrScanNotFound
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetScanByID execution err")
		return entity.Scan{}, err
	}

	return r.makeScan(scanDB), nil
}

func (r *scansRepository) GetAllScans(ctx context.Context, limit, offset int) ([]entity.Scan, int, error) {
	requestID := contextPkg.GetRequestID(ctx)
	var scansList []ScanDB
	var total int

	countQuery, countArgs, err := sqlx.Named(queryCountAllScans, map[string]interface{}{})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("CountAllScans named query preparation err")
		return nil, 0, err
	}

	countQuery = r.q.Rebind(countQuery)

	if err := r.q.QueryRowxContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("CountAllScans execution err")
		return nil, 0, err
	}

	argsKV := map[string]interface{}{
		"limit":  limit,
		"offset": offset,
	}

	query, args, err := sqlx.Named(queryGetAllScans, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetAllScans named query preparation err")
		return nil, 0, err
	}

	query = r.q.Rebind(query)

	if err := r.q.SelectContext(ctx, &scansList, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetAllScans execution err")
		return nil, 0, err
	}

	var scans []entity.Scan
	for _, scanDB := range scansList {
		scans = append(scans, r.makeScan(scanDB))
	}

	return scans, total, nil
}

func (r *scansRepository) InsertResult(ctx context.Context, scanID string, result entity.ClassificationResult) error {
	requestID := contextPkg.GetRequestID(ctx)

	objectsJSON, err := jsoniter.MarshalToString(result.DetectedObjects)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("InsertResult detected objects marshal err")
		return err
	}

	argsKV := map[string]interface{}{
		"scan_id":          scanID,
		"position":         result.Position,
		"source_ref":       result.SourceRef,
		"detection_count":  result.DetectionCount,
		"severity_level":   string(result.SeverityLevel),
		"annotated_ref":    result.AnnotatedRef,
		"detected_objects": objectsJSON,
		"created_at":       time.Now(),
	}

	query, args, err := sqlx.Named(queryInsertResult, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("InsertResult named query preparation err")
		return err
	}

	query = r.q.Rebind(query)

	_, err = r.q.ExecContext(ctx, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("InsertResult execution err")
		return err
	}

	return nil
}

func (r *scansRepository) GetResultsByScanID(ctx context.Context, scanID string) ([]entity.ClassificationResult, error) {
	requestID := contextPkg.GetRequestID(ctx)
	var resultsList []ScanResultDB

	argsKV := map[string]interface{}{
		"scan_id": scanID,
	}

	query, args, err := sqlx.Named(queryGetResultsByScanID, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetResultsByScanID named query preparation err")
		return nil, err
	}

	query = r.q.Rebind(query)

	if err := r.q.SelectContext(ctx, &resultsList, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetResultsByScanID execution err")
		return nil, err
	}

	results := make([]entity.ClassificationResult, 0, len(resultsList))
	for _, resultDB := range resultsList {
		results = append(results, r.makeResult(resultDB))
	}

	return results, nil
}

func (r *scansRepository) DeleteResultsByScanID(ctx context.Context, scanID string) error {
	requestID := contextPkg.GetRequestID(ctx)
	argsKV := map[string]interface{}{
		"scan_id": scanID,
	}

	query, args, err := sqlx.Named(queryDeleteResultsByScanID, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("DeleteResultsByScanID named query preparation err")
		return err
	}

	query = r.q.Rebind(query)

	_, err = r.q.ExecContext(ctx, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("DeleteResultsByScanID execution err")
		return err
	}

	return nil
}

func (r *scansRepository) makeScan(scanDB ScanDB) entity.Scan {
	return entity.Scan{
		ID:          scanDB.ID.String,
		Status:      entity.ScanStatus(scanDB.Status.String),
		Progress:    scanDB.Progress.Float64,
		TotalImages: int(scanDB.TotalImages.Int64),
		Simulated:   scanDB.Simulated.Bool,
		CreatedAt:   scanDB.CreatedAt,
		UpdatedAt:   scanDB.UpdatedAt,
	}
}

func (r *scansRepository) makeResult(resultDB ScanResultDB) entity.ClassificationResult {
	var objects []entity.DetectedObject
	if resultDB.DetectedObjects.Valid && resultDB.DetectedObjects.String != "" {
		if err := jsoniter.UnmarshalFromString(resultDB.DetectedObjects.String, &objects); err != nil {
			r.log.WithFields(logrus.Fields{
				"scan_id": resultDB.ScanID.String,
				"error":   err.Error(),
			}).Error("makeResult detected objects unmarshal err")
		}
	}

	return entity.ClassificationResult{
		Position:        int(resultDB.Position.Int64),
		SourceRef:       resultDB.SourceRef.String,
		DetectionCount:  int(resultDB.DetectionCount.Int64),
		SeverityLevel:   entity.Severity(resultDB.SeverityLevel.String),
		DetectedObjects: objects,
		AnnotatedRef:    resultDB.AnnotatedRef.String,
	}
}
