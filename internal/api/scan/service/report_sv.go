package scanService

import (
	"time"

	"ProjectDebris/internal/api/scan"
	"ProjectDebris/internal/entity"
	contextPkg "ProjectDebris/pkg/context"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

// ExportReport builds a report from the scan's persisted results. Exporting
// does not mutate the scan, so repeated exports of the same scan yield the
// same content apart from the timestamp.
func (s *scanService) ExportReport(ctx context.Context, id string) (*entity.Report, error) {
	sc, err := s.GetScan(ctx, id)
	if err != nil {
		return nil, err
	}

	if len(sc.Results) == 0 {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"scan_id":    id,
		}).Warn("Report export requested for scan without results")
		return nil, scan.ErrEmptyReport
	}

	return buildReport(sc.Results, time.Now()), nil
}

func buildReport(results []entity.ClassificationResult, now time.Time) *entity.Report {
	var summary entity.ReportSummary
	var totalDetections int

	entries := make([]entity.ReportEntry, 0, len(results))
	for _, result := range results {
		switch result.SeverityLevel {
		case entity.SeverityGreen:
			summary.Green++
		case entity.SeverityYellow:
			summary.Yellow++
		case entity.SeverityRed:
			summary.Red++
		}

		totalDetections += result.DetectionCount

		entries = append(entries, entity.ReportEntry{
			DetectionCount: result.DetectionCount,
			SeverityLevel:  result.SeverityLevel,
			Classes:        result.DistinctClasses(),
		})
	}

	return &entity.Report{
		Timestamp:          now,
		TotalImages:        len(results),
		Summary:            summary,
		AverageDebrisCount: float64(totalDetections) / float64(len(results)),
		Results:            entries,
	}
}
