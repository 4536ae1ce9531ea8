package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kdimtricp/deepguard/internal/analysis"
	"github.com/kdimtricp/deepguard/internal/apperrors"
	"github.com/kdimtricp/deepguard/internal/logger"
	"github.com/kdimtricp/deepguard/internal/media"
	"github.com/kdimtricp/deepguard/internal/models"
	"github.com/kdimtricp/deepguard/internal/storage"
)

var (
	// ErrBusy is returned when a file is selected while an analysis is in flight.
	ErrBusy = errors.New("analysis in progress")
	// ErrInvalidTransition is returned for commands the current state does not accept.
	ErrInvalidTransition = errors.New("invalid workflow transition")
	ErrClosed            = errors.New("workflow closed")
)

type Options struct {
	Policy media.Policy
	Store  storage.PreviewStore
	Client analysis.Client
	// Timeout bounds each analysis call. Zero leaves the call unbounded.
	Timeout time.Duration
	Logger  *slog.Logger
	Now     func() time.Time
}

// Controller owns one detection workflow session. All transitions are
// serialized; the analysis call is the only work done off the lock.
type Controller struct {
	id      string
	policy  media.Policy
	store   storage.PreviewStore
	client  analysis.Client
	log     *slog.Logger
	now     func() time.Time
	calls   sync.WaitGroup

	mu      sync.Mutex
	state   State
	asset   *media.Asset
	result  *models.DetectionResult
	err     *Error
	notice  *Error
	attempt int
	token   string
	cancel  context.CancelFunc
	version uint64
	updated time.Time
	closed  bool
	subs    map[int]chan Snapshot
	nextSub int
}

func New(opts Options) (*Controller, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("workflow requires a preview store")
	}
	if opts.Client == nil {
		return nil, fmt.Errorf("workflow requires an analysis client")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	id := uuid.New().String()
	log := opts.Logger
	if log == nil {
		log = logger.L()
	}

	return &Controller{
		id:      id,
		policy:  opts.Policy,
		store:   opts.Store,
		client:  analysis.WithTimeout(opts.Client, opts.Timeout),
		log:     log.With("session", id),
		now:     opts.Now,
		updated: opts.Now(),
		subs:    make(map[int]chan Snapshot),
	}, nil
}

func (c *Controller) ID() string {
	return c.id
}

func (c *Controller) Policy() media.Policy {
	return c.policy
}

// SelectFile validates f and makes it the active asset. A rejected file
// leaves the state unchanged and sets a notice.
func (c *Controller) SelectFile(f media.File) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	switch c.state {
	case Analyzing:
		c.log.Debug("file selection ignored while analyzing", "filename", f.Name)
		return ErrBusy
	case Succeeded, Failed:
		return fmt.Errorf("%w: select file in %s", ErrInvalidTransition, c.state)
	}

	cat, err := c.policy.Validate(f)
	if err != nil {
		c.log.Info("file rejected", "filename", f.Name, "size", f.Len(), "reason", err.Error())
		c.notice = &Error{Message: apperrors.PublicMessage(err), Kind: apperrors.KindValidation}
		c.publishLocked()
		return err
	}

	asset, err := media.NewAsset(c.store, f, cat)
	if err != nil {
		c.log.Warn("preview creation failed", "filename", f.Name, "error", err)
		c.notice = &Error{Message: "Error reading file", Kind: apperrors.KindUnknown}
		c.publishLocked()
		return apperrors.New(apperrors.KindUnknown, "Error reading file", err)
	}

	c.releaseAssetLocked()
	from := c.state
	c.asset = asset
	c.notice = nil
	c.state = Ready
	c.log.Debug("workflow transition", "from", from, "to", c.state, "filename", asset.Name, "category", asset.Category)
	c.publishLocked()
	return nil
}

// StartAnalysis submits the active asset. Valid only from Ready.
func (c *Controller) StartAnalysis() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	switch c.state {
	case Idle:
		err := apperrors.Validation("Please upload a file first")
		c.notice = &Error{Message: err.Error(), Kind: apperrors.KindValidation}
		c.publishLocked()
		return err
	case Ready:
		c.beginLocked()
		return nil
	default:
		return fmt.Errorf("%w: start analysis in %s", ErrInvalidTransition, c.state)
	}
}

// Retry re-submits the same asset after a failure.
func (c *Controller) Retry() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.state != Failed {
		return fmt.Errorf("%w: retry in %s", ErrInvalidTransition, c.state)
	}
	c.beginLocked()
	return nil
}

// Reset returns to Idle from any state. An in-flight call is cancelled and
// its response, if it still arrives, is dropped.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

func (c *Controller) resetLocked() {
	from := c.state
	c.abortLocked()
	c.releaseAssetLocked()
	c.result = nil
	c.err = nil
	c.notice = nil
	c.state = Idle
	if from != Idle {
		c.log.Debug("workflow transition", "from", from, "to", c.state)
	}
	c.publishLocked()
}

func (c *Controller) beginLocked() {
	from := c.state
	c.state = Analyzing
	c.result = nil
	c.err = nil
	c.notice = nil
	c.attempt++

	token := uuid.New().String()
	ctx, cancel := context.WithCancel(context.Background())
	c.token = token
	c.cancel = cancel

	asset := c.asset
	attempt := c.attempt
	c.log.Info("analysis started", "from", from, "filename", asset.Name, "attempt", attempt)
	c.publishLocked()

	c.calls.Add(1)
	go func() {
		defer c.calls.Done()
		started := c.now()
		res, err := c.client.Analyze(ctx, asset)
		c.finish(token, asset, res, err, c.now().Sub(started))
	}()
}

func (c *Controller) finish(token string, asset *media.Asset, res models.DetectionResult, err error, took time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if token != c.token {
		c.log.Debug("late analysis response dropped", "filename", asset.Name, "took", took)
		return
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel = nil
	c.token = ""

	if err != nil {
		c.err = toError(err)
		c.state = Failed
		c.log.Warn("analysis failed", "filename", asset.Name, "kind", c.err.Kind, "error", err, "took", took)
	} else {
		r := res.Clone()
		c.result = &r
		c.state = Succeeded
		c.log.Info("analysis finished", "filename", asset.Name, "synthetic", r.IsSynthetic,
			"confidence", r.ConfidenceText(), "took", took)
	}
	c.publishLocked()
}

func (c *Controller) abortLocked() {
	if c.cancel != nil {
		c.cancel()
		c.log.Debug("in-flight analysis cancelled")
	}
	c.cancel = nil
	c.token = ""
}

func (c *Controller) releaseAssetLocked() {
	if c.asset == nil {
		return
	}
	if err := c.asset.Release(); err != nil {
		c.log.Warn("preview release failed", "filename", c.asset.Name, "error", err)
	}
	c.asset = nil
}

// toError classifies a client failure. Clients fail with transport or
// unknown only, so any other kind is folded into unknown.
func toError(err error) *Error {
	kind, ok := apperrors.KindOf(err)
	if !ok || (kind != apperrors.KindTransport && kind != apperrors.KindUnknown) {
		kind = apperrors.KindUnknown
		err = apperrors.Unknown(err)
	}
	return &Error{Message: apperrors.PublicMessage(err), Kind: kind}
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// LastUpdated returns when the state last changed.
func (c *Controller) LastUpdated() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updated
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		Session:   c.id,
		State:     c.state,
		Attempt:   c.attempt,
		Version:   c.version,
		UpdatedAt: c.updated,
	}
	if c.asset != nil {
		s.Asset = &AssetView{
			ID:          c.asset.ID,
			Name:        c.asset.Name,
			ContentType: c.asset.ContentType,
			Category:    c.asset.Category,
			Size:        c.asset.Size,
			Preview:     c.asset.Preview(),
		}
	}
	if c.result != nil {
		r := c.result.Clone()
		s.Result = &r
	}
	if c.err != nil {
		e := *c.err
		s.Error = &e
	}
	if c.notice != nil {
		n := *c.notice
		s.Notice = &n
	}
	return s
}

// Subscribe returns a channel that receives the current snapshot and every
// later one. A slow subscriber only sees the most recent snapshot.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan Snapshot, 1)
	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.snapshotLocked()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
}

func (c *Controller) publishLocked() {
	c.version++
	c.updated = c.now()
	snap := c.snapshotLocked()
	for _, ch := range c.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

// Close resets the workflow and closes all subscriptions.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.resetLocked()
	c.closed = true
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}

// Wait blocks until every analysis goroutine started so far has returned.
func (c *Controller) Wait() {
	c.calls.Wait()
}
