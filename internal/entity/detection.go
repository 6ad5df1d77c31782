package entity

type DetectedObject struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	W          float64 `json:"w"`
	H          float64 `json:"h"`
}

type ClassificationResult struct {
	Position        int
	SourceRef       string
	DetectionCount  int
	SeverityLevel   Severity
	DetectedObjects []DetectedObject
	AnnotatedRef    string
}

// DistinctClasses returns the set of detected class names, duplicates collapsed.
func (r ClassificationResult) DistinctClasses() []string {
	seen := make(map[string]struct{}, len(r.DetectedObjects))
	classes := make([]string, 0, len(r.DetectedObjects))

	for _, obj := range r.DetectedObjects {
		if _, ok := seen[obj.Class]; ok {
			continue
		}
		seen[obj.Class] = struct{}{}
		classes = append(classes, obj.Class)
	}

	return classes
}
