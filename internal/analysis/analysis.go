package analysis

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kdimtricp/deepguard/internal/media"
	"github.com/kdimtricp/deepguard/internal/models"
)

// Client is the boundary to the detection service. Implementations fail
// with apperrors transport errors when the service cannot be reached and
// unknown errors for anything else.
type Client interface {
	Analyze(ctx context.Context, asset *media.Asset) (models.DetectionResult, error)
}

const (
	ModeSimulated = "simulated"
	ModeHTTP      = "http"
	ModeMessaging = "messaging"
)

type Options struct {
	Mode     string
	Endpoint string
	// Timeout bounds each call. Zero disables the bound.
	Timeout time.Duration
	// Latency is the simulated service delay for the simulated and
	// background strategies.
	Latency time.Duration

	HTTPClient *http.Client
	// Messenger is the channel used by the messaging strategy. When nil an
	// in-process background context is started.
	Messenger Messenger
}

// New builds the strategy selected by opts.Mode.
func New(opts Options) (Client, error) {
	var client Client

	switch strings.ToLower(strings.TrimSpace(opts.Mode)) {
	case "", ModeSimulated:
		client = NewSimulated(opts.Latency)
	case ModeHTTP:
		c, err := NewHTTP(opts.Endpoint, opts.HTTPClient)
		if err != nil {
			return nil, err
		}
		client = c
	case ModeMessaging:
		messenger := opts.Messenger
		if messenger == nil {
			bg := NewBackground()
			bg.Handle(ActionAnalyzeMedia, AnalyzeMediaHandler(NewSimulated(opts.Latency)))
			messenger = bg
		}
		c, err := NewMessaging(messenger)
		if err != nil {
			return nil, err
		}
		client = c
	default:
		return nil, fmt.Errorf("unsupported analysis mode: %s", opts.Mode)
	}

	return WithTimeout(client, opts.Timeout), nil
}
