package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/kdimtricp/deepguard/internal/apperrors"
	"github.com/kdimtricp/deepguard/internal/media"
	"github.com/kdimtricp/deepguard/internal/models"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	maxResponseBytes   = 1 << 20
)

var errNilAsset = errors.New("nil asset")

// HTTP posts the file as multipart form data and decodes the JSON verdict.
type HTTP struct {
	endpoint   string
	httpClient *http.Client
}

func NewHTTP(endpoint string, httpClient *http.Client) (*HTTP, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("analysis endpoint is required for http mode")
	}
	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid analysis endpoint %q", endpoint)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &HTTP{endpoint: u.String(), httpClient: httpClient}, nil
}

type detectResponse struct {
	IsDeepfake *bool           `json:"isDeepfake"`
	Confidence *float64        `json:"confidence"`
	Areas      []models.Region `json:"areas"`
}

func (c *HTTP) Analyze(ctx context.Context, asset *media.Asset) (models.DetectionResult, error) {
	if asset == nil {
		return models.DetectionResult{}, apperrors.Unknown(errNilAsset)
	}

	body, contentType, err := multipartBody(asset)
	if err != nil {
		return models.DetectionResult{}, apperrors.Unknown(fmt.Errorf("failed to build request body: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return models.DetectionResult{}, apperrors.Unknown(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.DetectionResult{}, apperrors.Transport(fmt.Errorf("failed to make request: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return models.DetectionResult{}, apperrors.Transport(fmt.Errorf("failed to read response: %w", err))
	}
	if int64(len(raw)) > maxResponseBytes {
		return models.DetectionResult{}, apperrors.Transport(fmt.Errorf("response body too large (limit %d bytes)", maxResponseBytes))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.DetectionResult{}, apperrors.Transport(fmt.Errorf("detection service returned status %d", resp.StatusCode))
	}

	var payload detectResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return models.DetectionResult{}, apperrors.Unknown(fmt.Errorf("failed to unmarshal response: %w", err))
	}
	if payload.IsDeepfake == nil || payload.Confidence == nil {
		return models.DetectionResult{}, apperrors.Unknown(fmt.Errorf("response is missing isDeepfake or confidence"))
	}
	if *payload.Confidence < 0 || *payload.Confidence > 100 {
		return models.DetectionResult{}, apperrors.Unknown(fmt.Errorf("confidence %v out of range", *payload.Confidence))
	}

	return models.NewDetectionResult(*payload.IsDeepfake, *payload.Confidence, payload.Areas), nil
}

func multipartBody(asset *media.Asset) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(asset.Name)))
	h.Set("Content-Type", asset.ContentType)

	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(asset.Data()); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
