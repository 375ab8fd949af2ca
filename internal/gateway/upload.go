package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/jsukup/facial-sentiment-analysis-sub002/internal/domain"
	"github.com/jsukup/facial-sentiment-analysis-sub002/internal/duration"
)

const maxEchoBytes = 1 << 20

// Upload is the consolidated record of one capture session.
type Upload struct {
	ParticipantID string
	Duration      duration.Result
	Video         []byte
	VideoMime     string
	Samples       []domain.SentimentSample
	Diagnostics   json.RawMessage
}

// UploadRecording sends the consolidated record as a multipart payload and
// returns the ingest service's validation echo.
func (g *Gateway) UploadRecording(ctx context.Context, up Upload) (*domain.RecordingEcho, error) {
	if strings.TrimSpace(up.ParticipantID) == "" {
		return nil, fmt.Errorf("upload requires a participant id")
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	if err := form.WriteField("duration", up.Duration.DecimalString()); err != nil {
		return nil, fmt.Errorf("write duration field: %w", err)
	}
	if err := form.WriteField("durationSource", string(up.Duration.Source)); err != nil {
		return nil, fmt.Errorf("write duration source field: %w", err)
	}
	if err := form.WriteField("userId", up.ParticipantID); err != nil {
		return nil, fmt.Errorf("write userId field: %w", err)
	}

	samples, err := json.Marshal(up.Samples)
	if err != nil {
		return nil, fmt.Errorf("encode samples: %w", err)
	}
	if err := form.WriteField("samples", string(samples)); err != nil {
		return nil, fmt.Errorf("write samples field: %w", err)
	}
	if len(up.Diagnostics) > 0 {
		if err := form.WriteField("diagnostics", string(up.Diagnostics)); err != nil {
			return nil, fmt.Errorf("write diagnostics field: %w", err)
		}
	}

	part, err := form.CreateFormFile("video", "recording.webm")
	if err != nil {
		return nil, fmt.Errorf("create video part: %w", err)
	}
	if _, err := part.Write(up.Video); err != nil {
		return nil, fmt.Errorf("write video part: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("finalise multipart payload: %w", err)
	}

	headers := http.Header{}
	headers.Set("Content-Type", form.FormDataContentType())

	resp, err := g.Call(ctx, http.MethodPost, "/recordings", &buf, headers)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		summary, _ := io.ReadAll(io.LimitReader(resp.Body, maxEchoBytes))
		return nil, fmt.Errorf("upload rejected with status %d: %s", resp.StatusCode, strings.TrimSpace(string(summary)))
	}
	var echo domain.RecordingEcho
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxEchoBytes)).Decode(&echo); err != nil {
		return nil, fmt.Errorf("decode upload echo: %w", err)
	}
	return &echo, nil
}
