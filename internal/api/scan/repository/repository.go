package scanRepository

import (
	"ProjectDebris/internal/entity"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type SQLExecutor interface {
	sqlx.ExtContext
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
	Rebind(query string) string
}

func New(db *sqlx.DB, log *logrus.Logger) Repository {
	return &repository{
		DB:  db,
		log: log,
	}
}

type repository struct {
	DB  *sqlx.DB
	log *logrus.Logger
}

type Repository interface {
	NewClient(tx bool) (Client, error)
}

func (r *repository) NewClient(tx bool) (Client, error) {
	var sqlExecutor SQLExecutor
	var commitFunc, rollbackFunc func() error

	sqlExecutor = r.DB

	if tx {
		var err error
		txx, err := r.DB.Beginx()
		if err != nil {
			return Client{}, err
		}

		sqlExecutor = txx
		commitFunc = txx.Commit
		rollbackFunc = txx.Rollback
	} else {
		commitFunc = func() error { return nil }
		rollbackFunc = func() error { return nil }
	}

	return Client{
		Scans:    &scansRepository{q: sqlExecutor, log: r.log},
		Commit:   commitFunc,
		Rollback: rollbackFunc,
	}, nil
}

type Client struct {
	Scans interface {
		CreateScan(ctx context.Context, scan entity.Scan) error
		UpdateScan(ctx context.Context, id string, status entity.ScanStatus, progress float64, simulated bool) error
		GetScanByID(ctx context.Context, id string) (entity.Scan, error)
		GetAllScans(ctx context.Context, limit, offset int) ([]entity.Scan, int, error)
		InsertResult(ctx context.Context, scanID string, result entity.ClassificationResult) error
		GetResultsByScanID(ctx context.Context, scanID string) ([]entity.ClassificationResult, error)
		DeleteResultsByScanID(ctx context.Context, scanID string) error
	}

	Commit   func() error
	Rollback func() error
}

type scansRepository struct {
	q   SQLExecutor
	log *logrus.Logger
}
