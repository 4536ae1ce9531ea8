package analysis

import (
	"context"
	"errors"
	"time"

	"github.com/kdimtricp/deepguard/internal/apperrors"
	"github.com/kdimtricp/deepguard/internal/media"
	"github.com/kdimtricp/deepguard/internal/models"
)

type timeoutClient struct {
	next    Client
	timeout time.Duration
}

// WithTimeout bounds every call to next. When the bound fires the call
// fails with a transport error.
func WithTimeout(next Client, d time.Duration) Client {
	if d <= 0 {
		return next
	}
	return &timeoutClient{next: next, timeout: d}
}

func (c *timeoutClient) Analyze(ctx context.Context, asset *media.Asset) (models.DetectionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.next.Analyze(ctx, asset)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return models.DetectionResult{}, apperrors.New(apperrors.KindTransport,
			"Analysis timed out. Please try again.", context.DeadlineExceeded)
	}
	return res, err
}
