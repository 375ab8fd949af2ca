package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jsukup/facial-sentiment-analysis-sub002/internal/domain"
	"github.com/jsukup/facial-sentiment-analysis-sub002/internal/duration"
	"github.com/jsukup/facial-sentiment-analysis-sub002/internal/kv"
	"github.com/jsukup/facial-sentiment-analysis-sub002/internal/token"
)

var testNow = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

func authedTokens(t *testing.T) *token.Store {
	t.Helper()
	tokens := token.NewStore(kv.NewMemoryStore(), func() time.Time { return testNow })
	if err := tokens.SetToken(context.Background(), "credential", testNow.Add(time.Hour).UnixMilli()); err != nil {
		t.Fatalf("seed token: %v", err)
	}
	return tokens
}

func TestCallWhileUnauthenticatedSkipsTransport(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	tokens := token.NewStore(kv.NewMemoryStore(), func() time.Time { return testNow })
	g := New(srv.URL, tokens, nil)

	_, err := g.Call(context.Background(), http.MethodGet, "/recordings", nil, nil)
	if !errors.Is(err, ErrAuthRequired) {
		t.Fatalf("expected ErrAuthRequired, got %v", err)
	}
	if hits != 0 {
		t.Fatalf("expected no transport invocation, got %d", hits)
	}
}

func TestCallSetsBearerAndMergesHeaders(t *testing.T) {
	var gotAuth, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
	}))
	defer srv.Close()

	g := New(srv.URL, authedTokens(t), nil)
	headers := http.Header{}
	headers.Set("Accept", "application/json")
	headers.Set("Authorization", "Bearer forged")

	resp, err := g.Call(context.Background(), http.MethodGet, "/recordings", nil, headers)
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	resp.Body.Close()

	if gotAuth != "Bearer credential" {
		t.Fatalf("expected gateway-owned Authorization header, got %q", gotAuth)
	}
	if gotAccept != "application/json" {
		t.Fatalf("expected caller header preserved, got %q", gotAccept)
	}
}

func TestCall401ClearsTokenBeforeReturning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	tokens := authedTokens(t)
	g := New(srv.URL, tokens, nil)

	_, err := g.Call(context.Background(), http.MethodGet, "/recordings", nil, nil)
	if !errors.Is(err, ErrAuthExpired) {
		t.Fatalf("expected ErrAuthExpired, got %v", err)
	}
	if tokens.IsAuthenticated(context.Background()) {
		t.Fatalf("expected token store cleared after 401")
	}
}

func TestCallReturnsOtherResponsesUnmodified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		io.WriteString(w, "nope")
	}))
	defer srv.Close()

	g := New(srv.URL, authedTokens(t), nil)
	resp, err := g.Call(context.Background(), http.MethodGet, "/recordings", nil, nil)
	if err != nil {
		t.Fatalf("expected non-401 response to pass through, got %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "nope" {
		t.Fatalf("expected body passed through, got %q", body)
	}
}

func TestCallPropagatesTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	tokens := authedTokens(t)
	g := New(srv.URL, tokens, nil)
	_, err := g.Call(context.Background(), http.MethodGet, "/recordings", nil, nil)
	if err == nil {
		t.Fatalf("expected transport error")
	}
	if errors.Is(err, ErrAuthRequired) || errors.Is(err, ErrAuthExpired) {
		t.Fatalf("transport failure must not masquerade as an auth error: %v", err)
	}
	if !tokens.IsAuthenticated(context.Background()) {
		t.Fatalf("transport failure must not invalidate the session")
	}
}

func TestLoginStoresCredential(t *testing.T) {
	expiry := testNow.Add(time.Hour).UnixMilli()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/login" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{"token": "issued", "expiresAtMs": expiry})
	}))
	defer srv.Close()

	tokens := token.NewStore(kv.NewMemoryStore(), func() time.Time { return testNow })
	g := New(srv.URL, tokens, nil)
	if err := g.Login(context.Background(), "admin@lab.test", "secret"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	value, err := tokens.Token(context.Background())
	if err != nil || value != "issued" {
		t.Fatalf("expected issued credential stored, got %q err=%v", value, err)
	}
}

func TestUploadRecordingSendsMultipart(t *testing.T) {
	var echoed domain.RecordingEcho
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		if got := r.FormValue("duration"); got != "22.5" {
			t.Errorf("expected duration 22.5, got %q", got)
		}
		if got := r.FormValue("userId"); got != "sub002" {
			t.Errorf("expected userId sub002, got %q", got)
		}
		var samples []domain.SentimentSample
		if err := json.Unmarshal([]byte(r.FormValue("samples")), &samples); err != nil || len(samples) != 1 {
			t.Errorf("expected one sample, got %v err=%v", samples, err)
		}
		file, _, err := r.FormFile("video")
		if err != nil {
			t.Errorf("missing video part: %v", err)
			return
		}
		defer file.Close()
		payload, _ := io.ReadAll(file)
		if string(payload) != "webm-bytes" {
			t.Errorf("unexpected video payload %q", payload)
		}
		echoed = domain.RecordingEcho{ID: "rec-1", ParticipantID: "sub002", DurationSeconds: 22.5, DurationValid: true, SampleCount: 1}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(echoed)
	}))
	defer srv.Close()

	g := New(srv.URL, authedTokens(t), nil)
	echo, err := g.UploadRecording(context.Background(), Upload{
		ParticipantID: "sub002",
		Duration:      duration.Result{Seconds: 22.5, Valid: true, Source: duration.SourceElement},
		Video:         []byte("webm-bytes"),
		Samples: []domain.SentimentSample{
			{TimestampMs: 1000, Expressions: map[string]float64{"happy": 0.92}},
		},
	})
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if echo.ID != "rec-1" || echo.SampleCount != 1 {
		t.Fatalf("unexpected echo %+v", echo)
	}
}

func TestUploadRequiresParticipant(t *testing.T) {
	g := New("", authedTokens(t), nil)
	_, err := g.UploadRecording(context.Background(), Upload{ParticipantID: "  "})
	if err == nil || !strings.Contains(err.Error(), "participant") {
		t.Fatalf("expected participant validation error, got %v", err)
	}
}
