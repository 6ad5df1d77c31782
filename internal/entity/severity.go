package entity

import "errors"

var ErrInvalidDetectionCount = errors.New("detection count cannot be negative")

type Severity string

const (
	SeverityGreen  Severity = "green"
	SeverityYellow Severity = "yellow"
	SeverityRed    Severity = "red"
)

var SeverityMessageMap = map[Severity]string{
	SeverityGreen:  "Low pollution detected",
	SeverityYellow: "Moderate pollution detected",
	SeverityRed:    "Critical pollution detected",
}

func (s Severity) String() string {
	return string(s)
}

func (s Severity) Message() string {
	return SeverityMessageMap[s]
}

// ClassifySeverity maps a detection count to a severity level.
// The intervals [0,5], [6,15] and [16,inf) partition the valid inputs.
func ClassifySeverity(count int) (Severity, error) {
	if count < 0 {
		return "", ErrInvalidDetectionCount
	}

	switch {
	case count > 15:
		return SeverityRed, nil
	case count >= 6:
		return SeverityYellow, nil
	default:
		return SeverityGreen, nil
	}
}
