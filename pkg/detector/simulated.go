package detector

import (
	"math/rand"
	"sync"
	"time"

	"golang.org/x/net/context"
)

var debrisClasses = []string{
	"plastic_bottle",
	"plastic_bag",
	"fishing_net",
	"bottle_cap",
	"food_wrapper",
	"rope_fragment",
	"styrofoam",
	"metal_can",
}

// SimulatedDetector synthesizes detections from a seeded random source so
// runs are reproducible. It never fails; the only way out early is the
// caller's context.
type SimulatedDetector struct {
	mu    sync.Mutex
	rng   *rand.Rand
	delay time.Duration
}

func NewSimulatedDetector(seed int64, delay time.Duration) *SimulatedDetector {
	return &SimulatedDetector{
		rng:   rand.New(rand.NewSource(seed)),
		delay: delay,
	}
}

func (d *SimulatedDetector) Detect(ctx context.Context, image []byte, filename string) (*Result, error) {
	_ = image
	_ = filename

	if d.delay > 0 {
		timer := time.NewTimer(d.delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	// rand.Rand is not safe for concurrent use; one shared instance must
	// stay re-entrant across scan runs.
	d.mu.Lock()
	defer d.mu.Unlock()

	count := d.rng.Intn(25) + 1
	detections := make([]Detection, 0, count)

	for i := 0; i < count; i++ {
		w := 0.05 + d.rng.Float64()*0.2
		h := 0.05 + d.rng.Float64()*0.2
		x := d.rng.Float64() * (1 - w)
		y := d.rng.Float64() * (1 - h)

		detections = append(detections, Detection{
			Class:      debrisClasses[d.rng.Intn(len(debrisClasses))],
			Confidence: 0.5 + d.rng.Float64()*0.5,
			BBox:       []float64{x, y, w, h},
		})
	}

	return &Result{
		DetectionCount: count,
		Detections:     detections,
	}, nil
}

var _ IDetector = (*SimulatedDetector)(nil)
