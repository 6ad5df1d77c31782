package entity

import "time"

type ReportSummary struct {
	Green  int `json:"green"`
	Yellow int `json:"yellow"`
	Red    int `json:"red"`
}

type ReportEntry struct {
	DetectionCount int      `json:"detection_count"`
	SeverityLevel  Severity `json:"severity_level"`
	Classes        []string `json:"classes"`
}

type Report struct {
	Timestamp          time.Time     `json:"timestamp"`
	TotalImages        int           `json:"total_images"`
	Summary            ReportSummary `json:"summary"`
	AverageDebrisCount float64       `json:"average_debris_count"`
	Results            []ReportEntry `json:"results"`
}
