package entity

import "time"

type ScanStatus string

const (
	ScanStatusIdle     ScanStatus = "idle"
	ScanStatusRunning  ScanStatus = "running"
	ScanStatusComplete ScanStatus = "complete"
	ScanStatusFailed   ScanStatus = "failed"
)

func (s ScanStatus) Terminal() bool {
	return s == ScanStatusComplete || s == ScanStatusFailed
}

// ImageInput is one uploaded image: raw bytes plus a display-only origin handle.
// The pipeline never keeps the bytes beyond the scan run that consumes them.
type ImageInput struct {
	SourceRef string
	Data      []byte
}

// Scan is the working state of one batch run. It is mutated only by the
// goroutine that owns the run and becomes immutable once Status is terminal.
type Scan struct {
	ID          string
	Status      ScanStatus
	Progress    float64
	TotalImages int
	Simulated   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Results     []ClassificationResult
}
