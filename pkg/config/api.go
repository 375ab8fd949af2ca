package config

import "time"

// APIConfig holds runtime configuration for the ingest API service.
type APIConfig struct {
	Environment         string
	Addr                string
	DatabaseURL         string
	MigrationsDir       string
	JWTSecret           string
	AccessTokenTTL      time.Duration
	VideoDir            string
	MaxUploadBytes      int64
	RateLimitRedisAddr  string
	RateLimitRedisPass  string
	RateLimitRedisDB    int
	MonitorBuffer       int
	LogLevel            string
	DurationMinSeconds  float64
	DurationMaxSeconds  float64
}

// LoadAPIConfig constructs an APIConfig from environment variables.
func LoadAPIConfig() APIConfig {
	return APIConfig{
		Environment:        GetString("APP_ENV", "development"),
		Addr:               GetString("API_ADDR", ":4000"),
		DatabaseURL:        GetString("DATABASE_URL", "postgres://sentiment:sentiment@db:5432/sentiment?sslmode=disable"),
		MigrationsDir:      GetString("DB_MIGRATIONS_DIR", "db/migrations"),
		JWTSecret:          GetString("JWT_SECRET", "supersecuresecret"),
		AccessTokenTTL:     time.Duration(GetInt("ACCESS_TOKEN_TTL_MIN", 60)) * time.Minute,
		VideoDir:           GetString("VIDEO_DIR", "data/videos"),
		MaxUploadBytes:     int64(GetInt("MAX_UPLOAD_MB", 256)) * 1024 * 1024,
		RateLimitRedisAddr: GetString("RATE_LIMIT_REDIS_ADDR", ""),
		RateLimitRedisPass: GetString("RATE_LIMIT_REDIS_PASSWORD", ""),
		RateLimitRedisDB:   GetInt("RATE_LIMIT_REDIS_DB", 0),
		MonitorBuffer:      GetInt("WS_MONITOR_BUFFER", 100),
		LogLevel:           GetString("LOG_LEVEL", "info"),
		DurationMinSeconds: GetFloat("DURATION_MIN_SECONDS", 0.1),
		DurationMaxSeconds: GetFloat("DURATION_MAX_SECONDS", 3600),
	}
}
