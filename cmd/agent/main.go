package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"log/slog"

	"github.com/jsukup/facial-sentiment-analysis-sub002/internal/capture"
	"github.com/jsukup/facial-sentiment-analysis-sub002/internal/detector"
	"github.com/jsukup/facial-sentiment-analysis-sub002/internal/diaglog"
	"github.com/jsukup/facial-sentiment-analysis-sub002/internal/duration"
	"github.com/jsukup/facial-sentiment-analysis-sub002/internal/gateway"
	"github.com/jsukup/facial-sentiment-analysis-sub002/internal/kv"
	"github.com/jsukup/facial-sentiment-analysis-sub002/internal/sampler"
	"github.com/jsukup/facial-sentiment-analysis-sub002/internal/token"
	"github.com/jsukup/facial-sentiment-analysis-sub002/pkg/config"
	"github.com/jsukup/facial-sentiment-analysis-sub002/pkg/logger"
)

func main() {
	cfg := config.LoadAgentConfig()
	log := logger.New("agent", logger.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("capture session failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.AgentConfig, log *slog.Logger) error {
	if strings.TrimSpace(cfg.ParticipantID) == "" {
		return errors.New("PARTICIPANT_ID is required")
	}

	logOpts := []diaglog.Option{}
	if cfg.Environment == "development" {
		logOpts = append(logOpts, diaglog.WithMirror(log))
	}
	logs := diaglog.NewStore(logOpts...)

	state, err := kv.OpenSQLite(ctx, cfg.StatePath)
	if err != nil {
		return err
	}
	defer state.Close()

	var backing kv.Store = state
	if secret := strings.TrimSpace(cfg.StateSecret); secret != "" {
		backing = kv.NewSealedStore(state, secret)
	}
	tokens := token.NewStore(backing, nil)
	gw := gateway.New(cfg.APIBaseURL, tokens, log,
		gateway.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}))

	if !tokens.IsAuthenticated(ctx) {
		if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
			return errors.New("no stored session and ADMIN_EMAIL/ADMIN_PASSWORD not set")
		}
		if err := gw.Login(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return err
		}
		log.Info("session established", "api", cfg.APIBaseURL)
	}

	var det sampler.Detector
	if url := strings.TrimSpace(cfg.DetectorURL); url != "" {
		httpDet, err := detector.NewHTTP(url, &http.Client{Timeout: cfg.RequestTimeout})
		if err != nil {
			return err
		}
		det = httpDet
		log.Info("using remote expression detector", "url", url)
	} else {
		det = detector.NewSynthetic()
		log.Info("using synthetic expression detector")
	}

	smp := sampler.New(det, logs, nil)
	reconciler := duration.NewReconciler(duration.Options{}, nil)
	controller := capture.NewController(
		capture.NewSyntheticDevice(),
		capture.NewSyntheticRecorder(),
		smp, reconciler, logs, nil,
	)

	opts := capture.SessionOptions{
		Constraints: capture.Constraints{
			MinWidth:  cfg.MinResolutionW,
			MinHeight: cfg.MinResolutionH,
		},
		SampleInterval: cfg.SampleInterval,
		SampleCapacity: cfg.SampleCapacity,
	}
	if err := controller.Start(ctx, opts); err != nil {
		return err
	}
	log.Info("recording started",
		"participant_id", cfg.ParticipantID,
		"duration", cfg.RecordingDuration,
	)

	timer := time.NewTimer(cfg.RecordingDuration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		controller.Abort("interrupted by signal")
		return ctx.Err()
	case <-timer.C:
	}
	controller.SetElementTime(cfg.RecordingDuration.Seconds())

	outcome, err := controller.Stop(ctx)
	if err != nil {
		// The outcome still carries a best-effort duration; report and
		// continue to the upload so the session is not lost.
		logs.Error("recording stop reported an error", err, nil)
		log.Warn("recording stop reported an error", "error", err)
	}
	log.Info("recording stopped",
		"duration_seconds", outcome.Duration.Seconds,
		"duration_source", outcome.Duration.Source,
		"duration_valid", outcome.Duration.Valid,
		"samples", len(outcome.Samples),
		"video_bytes", len(outcome.Video),
	)

	echo, err := gw.UploadRecording(ctx, gateway.Upload{
		ParticipantID: cfg.ParticipantID,
		Duration:      outcome.Duration,
		Video:         outcome.Video,
		VideoMime:     "video/webm",
		Samples:       outcome.Samples,
		Diagnostics:   controller.DiagnosticsJSON(),
	})
	if err != nil {
		return err
	}
	log.Info("recording uploaded",
		"recording_id", echo.ID,
		"duration_echo", echo.DurationSeconds,
		"duration_valid", echo.DurationValid,
		"samples_stored", echo.SampleCount,
	)
	return nil
}
