package analysis

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/kdimtricp/deepguard/internal/apperrors"
	"github.com/kdimtricp/deepguard/internal/media"
	"github.com/kdimtricp/deepguard/internal/models"
)

const ActionAnalyzeMedia = "analyzeMedia"

// MessageRequest is the payload sent from the popup to the background context.
type MessageRequest struct {
	Action   string `json:"action"`
	File     string `json:"file"`
	Filename string `json:"filename"`
	Type     string `json:"type"`
}

type MessageResponse struct {
	IsDeepfake bool            `json:"isDeepfake"`
	Confidence float64         `json:"confidence"`
	Areas      []models.Region `json:"areas,omitempty"`
}

// Messenger delivers a request to another context. The callback is invoked
// once, with a non-nil error when the channel failed.
type Messenger interface {
	SendMessage(ctx context.Context, req MessageRequest, callback func(MessageResponse, error))
}

// Messaging sends the file through a Messenger and waits for its callback.
type Messaging struct {
	messenger Messenger
}

func NewMessaging(m Messenger) (*Messaging, error) {
	if m == nil {
		return nil, fmt.Errorf("messaging mode requires a messenger")
	}
	return &Messaging{messenger: m}, nil
}

type messageOutcome struct {
	resp MessageResponse
	err  error
}

func (c *Messaging) Analyze(ctx context.Context, asset *media.Asset) (models.DetectionResult, error) {
	if asset == nil {
		return models.DetectionResult{}, apperrors.Unknown(errNilAsset)
	}

	req := MessageRequest{
		Action:   ActionAnalyzeMedia,
		File:     EncodeDataURL(asset.ContentType, asset.Data()),
		Filename: asset.Name,
		Type:     asset.ContentType,
	}

	done := make(chan messageOutcome, 1)
	c.messenger.SendMessage(ctx, req, func(resp MessageResponse, err error) {
		select {
		case done <- messageOutcome{resp: resp, err: err}:
		default:
		}
	})

	select {
	case <-ctx.Done():
		return models.DetectionResult{}, apperrors.Transport(ctx.Err())
	case out := <-done:
		if errors.Is(out.err, ErrPortClosed) {
			return models.DetectionResult{}, apperrors.New(apperrors.KindTransport,
				"Error communicating with the extension: "+ErrPortClosed.Error(), out.err)
		}
		if out.err != nil {
			return models.DetectionResult{}, apperrors.Transport(out.err)
		}
		if out.resp.Confidence < 0 || out.resp.Confidence > 100 {
			return models.DetectionResult{}, apperrors.Unknown(fmt.Errorf("confidence %v out of range", out.resp.Confidence))
		}
		return models.NewDetectionResult(out.resp.IsDeepfake, out.resp.Confidence, out.resp.Areas), nil
	}
}

// EncodeDataURL renders data the way a file reader produces a data URL.
func EncodeDataURL(contentType string, data []byte) string {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

var errNotDataURL = errors.New("not a base64 data URL")

// DecodeDataURL reverses EncodeDataURL.
func DecodeDataURL(s string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", nil, errNotDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, errNotDataURL
	}
	contentType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, errNotDataURL
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode data URL: %w", err)
	}
	return contentType, data, nil
}
