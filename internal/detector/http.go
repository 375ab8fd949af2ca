// Package detector provides clients for the opaque facial-expression model.
// The model is an external capability: given an encoded video frame it
// returns labelled confidence scores.
package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout   = 5 * time.Second
	maxErrorBodySize = 4096
)

// ErrUnavailable indicates the detector sidecar rejected or failed the
// detection request.
var ErrUnavailable = errors.New("expression detector unavailable")

// HTTPDetector calls an expression-model sidecar over HTTP.
type HTTPDetector struct {
	baseURL string
	client  *http.Client
}

// NewHTTP constructs an HTTPDetector for the sidecar at baseURL.
func NewHTTP(baseURL string, client *http.Client) (*HTTPDetector, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return nil, errors.New("detector base url required")
	}
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	} else if client.Timeout == 0 {
		client.Timeout = defaultTimeout
	}
	return &HTTPDetector{
		baseURL: strings.TrimRight(trimmed, "/"),
		client:  client,
	}, nil
}

// Detect submits one frame and returns the model's labelled confidence
// scores. An empty map is a valid outcome (no face in frame).
func (d *HTTPDetector) Detect(ctx context.Context, frame []byte) (map[string]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/detect", bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("build detect request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send detect request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		summary, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(summary)))
	}
	var decoded struct {
		Expressions map[string]float64 `json:"expressions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode detect response: %w", err)
	}
	return decoded.Expressions, nil
}
