package repository

import (
	"context"

	"github.com/jsukup/facial-sentiment-analysis-sub002/internal/domain"
)

// AdminRepository persists researcher accounts.
type AdminRepository interface {
	CreateAdmin(ctx context.Context, admin *domain.Admin) error
	GetAdminByEmail(ctx context.Context, email string) (*domain.Admin, error)
	GetAdminByID(ctx context.Context, id string) (*domain.Admin, error)
}

// RecordingRepository persists consolidated capture records and their
// sentiment samples.
type RecordingRepository interface {
	InsertRecording(ctx context.Context, rec *domain.Recording, samples []domain.SentimentSample) error
	GetRecordingByID(ctx context.Context, id string) (*domain.Recording, error)
	ListRecordings(ctx context.Context, participantID string, limit, offset int) ([]domain.Recording, error)
	ListSamples(ctx context.Context, recordingID string, limit int) ([]domain.SentimentSample, error)
}
