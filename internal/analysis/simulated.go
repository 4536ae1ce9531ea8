package analysis

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/kdimtricp/deepguard/internal/apperrors"
	"github.com/kdimtricp/deepguard/internal/media"
	"github.com/kdimtricp/deepguard/internal/models"
)

const DefaultLatency = 3 * time.Second

// SimulatedRegion is attached to every simulated image result.
var SimulatedRegion = models.Region{X: 100, Y: 100, Width: 50, Height: 50}

// Simulated stands in for the detection service: it waits, then returns a
// random verdict.
type Simulated struct {
	Latency time.Duration
	// Float64 returns values in [0,1). Defaults to math/rand/v2.
	Float64 func() float64
	// Sleep waits d or until ctx is done. Defaults to a timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

func NewSimulated(latency time.Duration) *Simulated {
	if latency < 0 {
		latency = 0
	}
	return &Simulated{
		Latency: latency,
		Float64: rand.Float64,
		Sleep:   sleepContext,
	}
}

func (s *Simulated) Analyze(ctx context.Context, asset *media.Asset) (models.DetectionResult, error) {
	if asset == nil {
		return models.DetectionResult{}, apperrors.Unknown(errNilAsset)
	}
	return s.detect(ctx, asset.IsImage())
}

func (s *Simulated) detect(ctx context.Context, withRegion bool) (models.DetectionResult, error) {
	sleep := s.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	if err := sleep(ctx, s.Latency); err != nil {
		return models.DetectionResult{}, apperrors.Transport(err)
	}

	float := s.Float64
	if float == nil {
		float = rand.Float64
	}

	var regions []models.Region
	if withRegion {
		regions = []models.Region{SimulatedRegion}
	}
	return models.NewDetectionResult(float() > 0.5, float()*100, regions), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
