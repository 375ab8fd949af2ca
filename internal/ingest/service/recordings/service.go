package recordings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jsukup/facial-sentiment-analysis-sub002/internal/domain"
	"github.com/jsukup/facial-sentiment-analysis-sub002/internal/duration"
	"github.com/jsukup/facial-sentiment-analysis-sub002/internal/ingest/repository"
	"github.com/jsukup/facial-sentiment-analysis-sub002/internal/ws"
)

// ErrInvalidUpload marks a rejected upload payload.
var ErrInvalidUpload = errors.New("invalid upload")

// Service stores consolidated capture records: video to disk, metadata and
// samples to the repository, and a live event to monitor subscribers.
type Service struct {
	repo       repository.RecordingRepository
	hub        *ws.Hub
	logger     *slog.Logger
	reconciler *duration.Reconciler
	videoDir   string
	now        func() time.Time
}

// New constructs a recordings Service.
func New(repo repository.RecordingRepository, hub *ws.Hub, logger *slog.Logger, reconciler *duration.Reconciler, videoDir string) Service {
	if logger != nil {
		logger = logger.With("component", "recordings")
	}
	return Service{
		repo:       repo,
		hub:        hub,
		logger:     logger,
		reconciler: reconciler,
		videoDir:   videoDir,
		now:        time.Now,
	}
}

// Upload is one parsed multipart submission from the capture agent.
type Upload struct {
	ParticipantID  string
	DurationField  string
	DurationSource string
	Samples        []domain.SentimentSample
	Diagnostics    json.RawMessage
	Video          []byte
}

// Ingest validates and persists an upload, returning the validation echo.
// The submitted duration is re-validated with the same clamping rules the
// agent applies, so a tampered or corrupted value is stored clamped and the
// echo reports the verdict.
func (s Service) Ingest(ctx context.Context, up Upload) (*domain.RecordingEcho, error) {
	participantID := strings.TrimSpace(up.ParticipantID)
	if participantID == "" {
		return nil, fmt.Errorf("%w: userId required", ErrInvalidUpload)
	}
	if len(up.Video) == 0 {
		return nil, fmt.Errorf("%w: video payload required", ErrInvalidUpload)
	}

	verdict := s.validateDuration(up.DurationField)
	source := strings.TrimSpace(up.DurationSource)
	if source == "" {
		source = string(duration.SourceRecording)
	}

	id := uuid.NewString()
	videoPath, err := s.writeVideo(id, up.Video)
	if err != nil {
		return nil, fmt.Errorf("store video: %w", err)
	}

	rec := &domain.Recording{
		ID:              id,
		ParticipantID:   participantID,
		DurationSeconds: verdict.Seconds,
		DurationSource:  source,
		DurationValid:   verdict.Valid,
		VideoPath:       videoPath,
		VideoBytes:      int64(len(up.Video)),
		SampleCount:     len(up.Samples),
		CreatedAt:       s.now().UTC(),
	}
	if err := s.repo.InsertRecording(ctx, rec, up.Samples); err != nil {
		// Leave no orphaned payload behind a failed insert.
		_ = os.Remove(videoPath)
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("recording ingested",
			"recording_id", rec.ID,
			"participant_id", rec.ParticipantID,
			"duration_seconds", rec.DurationSeconds,
			"duration_valid", rec.DurationValid,
			"samples", rec.SampleCount,
		)
	}

	echo := &domain.RecordingEcho{
		ID:              rec.ID,
		ParticipantID:   rec.ParticipantID,
		DurationSeconds: rec.DurationSeconds,
		DurationValid:   rec.DurationValid,
		DurationError:   verdict.Err,
		SampleCount:     rec.SampleCount,
	}
	s.broadcast(rec)
	return echo, nil
}

// Get returns one stored recording.
func (s Service) Get(ctx context.Context, id string) (*domain.Recording, error) {
	return s.repo.GetRecordingByID(ctx, strings.TrimSpace(id))
}

// List returns recent recordings, optionally filtered by participant.
func (s Service) List(ctx context.Context, participantID string, limit, offset int) ([]domain.Recording, error) {
	return s.repo.ListRecordings(ctx, participantID, limit, offset)
}

// Samples returns a recording's sentiment samples.
func (s Service) Samples(ctx context.Context, recordingID string, limit int) ([]domain.SentimentSample, error) {
	return s.repo.ListSamples(ctx, strings.TrimSpace(recordingID), limit)
}

func (s Service) validateDuration(field string) duration.Validated {
	field = strings.TrimSpace(field)
	if field == "" {
		return s.reconciler.Validate(nil)
	}
	parsed, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return s.reconciler.Validate(nil)
	}
	return s.reconciler.Validate(&parsed)
}

func (s Service) writeVideo(id string, payload []byte) (string, error) {
	if err := os.MkdirAll(s.videoDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(s.videoDir, id+".webm")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (s Service) broadcast(rec *domain.Recording) {
	if s.hub == nil {
		return
	}
	payload, err := MarshalEvent(rec)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("failed to marshal recording event", "error", err)
		}
		return
	}
	s.hub.Broadcast(rec.ParticipantID, payload)
}

// MarshalEvent encodes a recording for monitor stream clients.
func MarshalEvent(rec *domain.Recording) ([]byte, error) {
	payload := map[string]any{
		"id":               rec.ID,
		"participant_id":   rec.ParticipantID,
		"duration_seconds": rec.DurationSeconds,
		"duration_source":  rec.DurationSource,
		"duration_valid":   rec.DurationValid,
		"video_bytes":      rec.VideoBytes,
		"sample_count":     rec.SampleCount,
		"created_at":       rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	return json.Marshal(payload)
}
