package scan

import (
	"time"

	"ProjectDebris/internal/entity"
)

type CreateScanRequest struct {
	Mode string `form:"mode" validate:"omitempty,oneof=remote simulated"`
}

type CreateScanResponse struct {
	ScanID      string `json:"scan_id"`
	Status      string `json:"status"`
	TotalImages int    `json:"total_images"`
}

type DetectedObjectItem struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	W          float64 `json:"w"`
	H          float64 `json:"h"`
}

type ScanResultItem struct {
	Position        int                  `json:"position"`
	SourceRef       string               `json:"source_ref"`
	DetectionCount  int                  `json:"detection_count"`
	SeverityLevel   string               `json:"severity_level"`
	SeverityMessage string               `json:"severity_message"`
	AnnotatedRef    string               `json:"annotated_ref"`
	DetectedObjects []DetectedObjectItem `json:"detected_objects"`
}

type ScanResponse struct {
	ID          string           `json:"id"`
	Status      string           `json:"status"`
	Progress    float64          `json:"progress"`
	Simulated   bool             `json:"simulated"`
	TotalImages int              `json:"total_images"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	Results     []ScanResultItem `json:"results"`
}

type ScanListItem struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	Progress    float64   `json:"progress"`
	Simulated   bool      `json:"simulated"`
	TotalImages int       `json:"total_images"`
	CreatedAt   time.Time `json:"created_at"`
}

type ScanListResponse struct {
	Scans  []ScanListItem `json:"scans"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

type ProgressSnapshot struct {
	ScanID    string  `json:"scan_id"`
	Status    string  `json:"status"`
	Progress  float64 `json:"progress"`
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
}

func NewScanResponse(sc *entity.Scan) ScanResponse {
	results := make([]ScanResultItem, 0, len(sc.Results))
	for _, r := range sc.Results {
		objects := make([]DetectedObjectItem, 0, len(r.DetectedObjects))
		for _, obj := range r.DetectedObjects {
			objects = append(objects, DetectedObjectItem{
				Class:      obj.Class,
				Confidence: obj.Confidence,
				X:          obj.X,
				Y:          obj.Y,
				W:          obj.W,
				H:          obj.H,
			})
		}

		results = append(results, ScanResultItem{
			Position:        r.Position,
			SourceRef:       r.SourceRef,
			DetectionCount:  r.DetectionCount,
			SeverityLevel:   r.SeverityLevel.String(),
			SeverityMessage: r.SeverityLevel.Message(),
			AnnotatedRef:    r.AnnotatedRef,
			DetectedObjects: objects,
		})
	}

	return ScanResponse{
		ID:          sc.ID,
		Status:      string(sc.Status),
		Progress:    sc.Progress,
		Simulated:   sc.Simulated,
		TotalImages: sc.TotalImages,
		CreatedAt:   sc.CreatedAt,
		UpdatedAt:   sc.UpdatedAt,
		Results:     results,
	}
}

func NewScanListResponse(scans []entity.Scan, total, limit, offset int) ScanListResponse {
	items := make([]ScanListItem, 0, len(scans))
	for _, sc := range scans {
		items = append(items, ScanListItem{
			ID:          sc.ID,
			Status:      string(sc.Status),
			Progress:    sc.Progress,
			Simulated:   sc.Simulated,
			TotalImages: sc.TotalImages,
			CreatedAt:   sc.CreatedAt,
		})
	}

	return ScanListResponse{
		Scans:  items,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}
}
