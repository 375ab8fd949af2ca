package config

import "time"

// AgentConfig holds runtime configuration for the capture agent.
type AgentConfig struct {
	Environment       string
	ParticipantID     string
	APIBaseURL        string
	AdminEmail        string
	AdminPassword     string
	DetectorURL       string
	StatePath         string
	StateSecret       string
	RecordingDuration time.Duration
	SampleInterval    time.Duration
	SampleCapacity    int
	MinResolutionW    int
	MinResolutionH    int
	RequestTimeout    time.Duration
	LogLevel          string
}

// LoadAgentConfig constructs an AgentConfig from environment variables.
func LoadAgentConfig() AgentConfig {
	return AgentConfig{
		Environment:       GetString("APP_ENV", "development"),
		ParticipantID:     GetString("PARTICIPANT_ID", ""),
		APIBaseURL:        GetString("API_BASE_URL", "http://localhost:4000"),
		AdminEmail:        GetString("ADMIN_EMAIL", ""),
		AdminPassword:     GetString("ADMIN_PASSWORD", ""),
		DetectorURL:       GetString("DETECTOR_URL", ""),
		StatePath:         GetString("AGENT_STATE_PATH", "agent-state.db"),
		StateSecret:       GetString("AGENT_STATE_SECRET", ""),
		RecordingDuration: time.Duration(GetInt("RECORDING_DURATION_SECONDS", 60)) * time.Second,
		SampleInterval:    time.Duration(GetInt("SAMPLE_INTERVAL_MS", 100)) * time.Millisecond,
		SampleCapacity:    GetInt("SAMPLE_CAPACITY", 1000),
		MinResolutionW:    GetInt("CAPTURE_MIN_WIDTH", 640),
		MinResolutionH:    GetInt("CAPTURE_MIN_HEIGHT", 480),
		RequestTimeout:    time.Duration(GetInt("REQUEST_TIMEOUT_SECONDS", 30)) * time.Second,
		LogLevel:          GetString("LOG_LEVEL", "info"),
	}
}
