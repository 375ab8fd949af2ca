package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jsukup/facial-sentiment-analysis-sub002/internal/domain"
	"github.com/jsukup/facial-sentiment-analysis-sub002/internal/ingest/repository"
)

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ensure Repository satisfies interfaces.
var (
	_ repository.AdminRepository     = (*Repository)(nil)
	_ repository.RecordingRepository = (*Repository)(nil)
)

// CreateAdmin inserts a researcher account.
func (r *Repository) CreateAdmin(ctx context.Context, admin *domain.Admin) error {
	const query = `INSERT INTO admins (id, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)`
	_, err := r.pool.Exec(ctx, query, admin.ID, admin.Email, admin.PasswordHash, admin.CreatedAt)
	return err
}

// GetAdminByEmail fetches a researcher account by email.
func (r *Repository) GetAdminByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	const query = `SELECT id, email, password_hash, created_at FROM admins WHERE email = $1`
	row := r.pool.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(email)))
	var a domain.Admin
	if err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// GetAdminByID retrieves a researcher account by identifier.
func (r *Repository) GetAdminByID(ctx context.Context, id string) (*domain.Admin, error) {
	const query = `SELECT id, email, password_hash, created_at FROM admins WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	var a domain.Admin
	if err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// InsertRecording stores a recording and its samples in one transaction.
func (r *Repository) InsertRecording(ctx context.Context, rec *domain.Recording, samples []domain.SentimentSample) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const insertRecording = `INSERT INTO recordings
		(id, participant_id, duration_seconds, duration_source, duration_valid, video_path, video_bytes, sample_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := tx.Exec(ctx, insertRecording,
		rec.ID, rec.ParticipantID, rec.DurationSeconds, rec.DurationSource, rec.DurationValid,
		rec.VideoPath, rec.VideoBytes, rec.SampleCount, rec.CreatedAt); err != nil {
		return err
	}

	const insertSample = `INSERT INTO sentiment_samples (recording_id, timestamp_ms, expressions)
		VALUES ($1, $2, $3)`
	for _, sample := range samples {
		if _, err := tx.Exec(ctx, insertSample, rec.ID, sample.TimestampMs, sample.Expressions); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// GetRecordingByID retrieves one recording.
func (r *Repository) GetRecordingByID(ctx context.Context, id string) (*domain.Recording, error) {
	const query = `SELECT id, participant_id, duration_seconds, duration_source, duration_valid,
		video_path, video_bytes, sample_count, created_at
		FROM recordings WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	var rec domain.Recording
	if err := row.Scan(&rec.ID, &rec.ParticipantID, &rec.DurationSeconds, &rec.DurationSource,
		&rec.DurationValid, &rec.VideoPath, &rec.VideoBytes, &rec.SampleCount, &rec.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// ListRecordings returns recent recordings, optionally filtered by
// participant.
func (r *Repository) ListRecordings(ctx context.Context, participantID string, limit, offset int) ([]domain.Recording, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const base = `SELECT id, participant_id, duration_seconds, duration_source, duration_valid,
		video_path, video_bytes, sample_count, created_at
		FROM recordings`

	var (
		rows pgx.Rows
		err  error
	)
	if participantID = strings.TrimSpace(participantID); participantID != "" {
		rows, err = r.pool.Query(ctx, base+` WHERE participant_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
			participantID, limit, offset)
	} else {
		rows, err = r.pool.Query(ctx, base+` ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Recording
	for rows.Next() {
		var rec domain.Recording
		if err := rows.Scan(&rec.ID, &rec.ParticipantID, &rec.DurationSeconds, &rec.DurationSource,
			&rec.DurationValid, &rec.VideoPath, &rec.VideoBytes, &rec.SampleCount, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListSamples returns a recording's samples in chronological order.
func (r *Repository) ListSamples(ctx context.Context, recordingID string, limit int) ([]domain.SentimentSample, error) {
	if limit <= 0 || limit > 10000 {
		limit = 1000
	}
	const query = `SELECT timestamp_ms, expressions FROM sentiment_samples
		WHERE recording_id = $1 ORDER BY timestamp_ms ASC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, recordingID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SentimentSample
	for rows.Next() {
		var sample domain.SentimentSample
		if err := rows.Scan(&sample.TimestampMs, &sample.Expressions); err != nil {
			return nil, err
		}
		out = append(out, sample)
	}
	return out, rows.Err()
}
