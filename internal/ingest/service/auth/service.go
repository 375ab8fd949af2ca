package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jsukup/facial-sentiment-analysis-sub002/internal/domain"
	"github.com/jsukup/facial-sentiment-analysis-sub002/internal/ingest/repository"
	"github.com/jsukup/facial-sentiment-analysis-sub002/pkg/config"
	"github.com/jsukup/facial-sentiment-analysis-sub002/pkg/crypto"
	jwtpkg "github.com/jsukup/facial-sentiment-analysis-sub002/pkg/jwt"
)

// ErrInvalidCredentials is returned for a wrong email/password pair.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service handles researcher authentication.
type Service struct {
	admins repository.AdminRepository
	logger *slog.Logger
	cfg    config.APIConfig
	now    func() time.Time
}

// New constructs a Service.
func New(admins repository.AdminRepository, logger *slog.Logger, cfg config.APIConfig) Service {
	return Service{admins: admins, logger: logger, cfg: cfg, now: time.Now}
}

// Session is an issued admin session: the bearer credential plus its
// absolute expiry in epoch milliseconds, which the capture agent's token
// store uses for its expiry bookkeeping.
type Session struct {
	Token       string `json:"token"`
	ExpiresAtMs int64  `json:"expiresAtMs"`
}

// Register creates a researcher account.
func (s Service) Register(ctx context.Context, email, password string) (*domain.Admin, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || len(password) < 8 {
		return nil, errors.New("email and a password of at least 8 characters are required")
	}
	hash, err := crypto.HashPassword(password)
	if err != nil {
		return nil, err
	}
	admin := &domain.Admin{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.admins.CreateAdmin(ctx, admin); err != nil {
		return nil, err
	}
	s.logger.Info("admin registered", "admin_id", admin.ID)
	return admin, nil
}

// Login verifies credentials and issues a session.
func (s Service) Login(ctx context.Context, email, password string) (Session, error) {
	admin, err := s.admins.GetAdminByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if err := crypto.ComparePassword(admin.PasswordHash, password); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	token, err := jwtpkg.GenerateToken(admin.ID, admin.Email, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return Session{}, err
	}
	s.logger.Info("admin logged in", "admin_id", admin.ID)
	return Session{
		Token:       token,
		ExpiresAtMs: s.now().Add(s.cfg.AccessTokenTTL).UnixMilli(),
	}, nil
}

// Authorize validates a bearer token and loads the account it names.
func (s Service) Authorize(ctx context.Context, token string) (*domain.Admin, *jwtpkg.Claims, error) {
	claims, err := jwtpkg.Parse(token, s.cfg.JWTSecret)
	if err != nil {
		return nil, nil, err
	}
	admin, err := s.admins.GetAdminByID(ctx, claims.AdminID)
	if err != nil {
		return nil, nil, err
	}
	return admin, claims, nil
}
