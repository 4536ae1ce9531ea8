package workflow

import (
	"time"

	"github.com/kdimtricp/deepguard/internal/apperrors"
	"github.com/kdimtricp/deepguard/internal/media"
	"github.com/kdimtricp/deepguard/internal/models"
)

type State int

const (
	Idle State = iota
	Ready
	Analyzing
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Ready:
		return "ready"
	case Analyzing:
		return "analyzing"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Error is a user-facing failure attached to a snapshot.
type Error struct {
	Message string         `json:"message"`
	Kind    apperrors.Kind `json:"kind"`
}

// AssetView is the read-only part of the active asset a shell may render.
type AssetView struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	ContentType string         `json:"contentType"`
	Category    media.Category `json:"category"`
	Size        int64          `json:"size"`
	Preview     string         `json:"preview"`
}

func (a AssetView) IsImage() bool {
	return a.Category == media.CategoryImage
}

func (a AssetView) FormattedSize() string {
	return media.FormatFileSize(a.Size)
}

// Snapshot is a copy of the controller state at one point in time. Shells
// render exclusively from snapshots.
type Snapshot struct {
	Session string                  `json:"session"`
	State   State                   `json:"state"`
	Asset   *AssetView              `json:"asset,omitempty"`
	Result  *models.DetectionResult `json:"result,omitempty"`
	Error   *Error                  `json:"error,omitempty"`
	// Notice holds a transient validation message. It never changes State.
	Notice    *Error    `json:"notice,omitempty"`
	Attempt   int       `json:"attempt"`
	Version   uint64    `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s Snapshot) CanSelect() bool  { return s.State == Idle || s.State == Ready }
func (s Snapshot) CanAnalyze() bool { return s.State == Ready }
func (s Snapshot) CanRetry() bool   { return s.State == Failed }
func (s Snapshot) Busy() bool       { return s.State == Analyzing }
