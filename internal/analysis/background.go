package analysis

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/kdimtricp/deepguard/internal/logger"
)

// ErrPortClosed is reported when the receiving side never answers.
var ErrPortClosed = errors.New("The message port closed before a response was received.")

// Handler answers one message. It returns true when it will call respond
// later, after returning.
type Handler func(ctx context.Context, req MessageRequest, respond func(MessageResponse)) bool

// Background is an in-process extension background context. Messages are
// delivered asynchronously to the handler registered for their action.
type Background struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	inflight sync.WaitGroup
}

func NewBackground() *Background {
	logger.Info("DeepGuard extension installed")
	return &Background{handlers: make(map[string]Handler)}
}

func (b *Background) Handle(action string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[action] = h
}

func (b *Background) handler(action string) (Handler, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	h, ok := b.handlers[action]
	return h, ok
}

func (b *Background) SendMessage(ctx context.Context, req MessageRequest, callback func(MessageResponse, error)) {
	b.inflight.Add(1)
	go func() {
		defer b.inflight.Done()
		b.dispatch(ctx, req, callback)
	}()
}

// Wait blocks until every dispatched message has been answered or dropped.
func (b *Background) Wait() {
	b.inflight.Wait()
}

func (b *Background) dispatch(ctx context.Context, req MessageRequest, callback func(MessageResponse, error)) {
	var once sync.Once
	reply := func(resp MessageResponse, err error) {
		once.Do(func() { callback(resp, err) })
	}

	h, ok := b.handler(req.Action)
	if !ok {
		reply(MessageResponse{}, ErrPortClosed)
		return
	}

	responded := make(chan struct{})
	var respondOnce sync.Once
	respond := func(resp MessageResponse) {
		respondOnce.Do(func() {
			reply(resp, nil)
			close(responded)
		})
	}

	if async := h(ctx, req, respond); !async {
		select {
		case <-responded:
		default:
			// A synchronous handler that did not answer closes the port; any
			// later respond call is ignored.
			respondOnce.Do(func() { close(responded) })
			reply(MessageResponse{}, ErrPortClosed)
		}
		return
	}

	select {
	case <-responded:
	case <-ctx.Done():
		reply(MessageResponse{}, ctx.Err())
	}
}

// AnalyzeMediaHandler answers analyzeMedia requests with a simulated
// verdict. Responses carry no regions.
func AnalyzeMediaHandler(sim *Simulated) Handler {
	return func(ctx context.Context, req MessageRequest, respond func(MessageResponse)) bool {
		contentType, data, err := DecodeDataURL(req.File)
		if err != nil || len(data) == 0 {
			logger.Warn("background rejected payload", "filename", req.Filename, "error", err)
			return false
		}
		if t := strings.TrimSpace(req.Type); t != "" {
			contentType = t
		}
		logger.Debug("background analyzing media", "filename", req.Filename, "type", contentType, "size", len(data))

		go func() {
			res, err := sim.detect(ctx, false)
			if err != nil {
				return
			}
			respond(MessageResponse{IsDeepfake: res.IsSynthetic, Confidence: res.Confidence})
		}()
		return true
	}
}
