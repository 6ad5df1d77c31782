package detector

import (
	"context"
	"errors"
)

// ErrDetectionFailed marks any transport, status or payload failure of the
// remote backend. The scan service reacts to it with the whole-batch
// fallback policy; the backend itself never retries.
var ErrDetectionFailed = errors.New("detection request failed")

type Detection struct {
	Class      string    `json:"class"`
	Confidence float64   `json:"confidence"`
	BBox       []float64 `json:"bbox"`
}

type Result struct {
	DetectionCount int
	Detections     []Detection
	AnnotatedImage string
}

// IDetector turns one image into a detection count and object list. A single
// instance may be shared by concurrent scan runs.
type IDetector interface {
	Detect(ctx context.Context, image []byte, filename string) (*Result, error)
}
