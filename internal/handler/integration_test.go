package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/lynixity/lynix-go/internal/domain"
	"github.com/lynixity/lynix-go/internal/handler"
	"github.com/lynixity/lynix-go/internal/infra/cache"
	"github.com/lynixity/lynix-go/internal/infra/gemini"
	"github.com/lynixity/lynix-go/internal/infra/memstore"
	"github.com/lynixity/lynix-go/internal/infra/observability"
	"github.com/lynixity/lynix-go/internal/infra/resilience"
	"github.com/lynixity/lynix-go/internal/service"
)

// newGeminiRouter wires the router to a real Gemini client talking to upstream.
func newGeminiRouter(t *testing.T, upstream *httptest.Server) http.Handler {
	t.Helper()
	logger := zap.NewNop()
	store := memstore.New()
	metrics := observability.NewMetrics()
	auth := service.NewAuthService(store, service.AuthConfig{JWTSecret: "it", AccessTTL: time.Hour}, logger)
	usersCache := cache.New[[]domain.User](time.Minute)
	t.Cleanup(usersCache.Close)

	gen := gemini.NewClient(
		&http.Client{Timeout: 5 * time.Second},
		upstream.URL, "integration-key", "gemini-2.5-flash",
		resilience.NewCircuitBreaker("gemini-integration"),
		resilience.Config{MaxRetries: 1, InitialBackoff: time.Millisecond},
	)
	textGen := service.NewTextGenService(gen, metrics, logger).WithBulkhead(resilience.NewBulkhead(2))

	return handler.NewRouter(handler.Services{
		Auth:      auth,
		Directory: service.NewDirectoryService(store, auth, usersCache, metrics, logger),
		Notes:     service.NewNotesService(store, logger),
		Contacts:  service.NewContactsService(store, logger),
		Chat:      service.NewChatService(store, logger),
		Mail:      service.NewMailService(store),
		TextGen:   textGen,
		Health:    service.NewHealthService(store, textGen),
	}, metrics, logger)
}

func postPrompt(t *testing.T, router http.Handler, prompt string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"prompt": prompt})
	req := httptest.NewRequest(http.MethodPost, "/api/generate-text", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// TestIntegration_GenerateText runs a prompt through the router, the text
// generation service and the Gemini client against a mock upstream.
func TestIntegration_GenerateText(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "integration-key" {
			t.Error("api key not forwarded")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates":[{"content":{"parts":[{"text":"Hi from the model"}]}}],
			"usageMetadata":{"promptTokenCount":3,"candidatesTokenCount":4}
		}`))
	}))
	defer upstream.Close()

	router := newGeminiRouter(t, upstream)

	rec := postPrompt(t, router, "say hi")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var out domain.Generation
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Text != "Hi from the model" {
		t.Errorf("unexpected text %q", out.Text)
	}

	stats := httptest.NewRecorder()
	router.ServeHTTP(stats, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	var usage domain.UsageStats
	if err := json.NewDecoder(stats.Body).Decode(&usage); err != nil {
		t.Fatal(err)
	}
	if usage.PromptTokens != 3 || usage.CompletionTokens != 4 {
		t.Errorf("token usage not recorded: %+v", usage)
	}

	health := httptest.NewRecorder()
	router.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	var status domain.HealthStatus
	if err := json.NewDecoder(health.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status.Status != "healthy" {
		t.Errorf("expected healthy with a generator wired, got %q", status.Status)
	}
}

func TestIntegration_UpstreamFailure(t *testing.T) {
	var calls int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer upstream.Close()

	router := newGeminiRouter(t, upstream)

	rec := postPrompt(t, router, "anyone there?")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var body map[string]string
	_ = json.NewDecoder(rec.Body).Decode(&body)
	if body["error"] != service.MsgGenerationFailed {
		t.Errorf("expected apology, got %q", body["error"])
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("expected one retry on 503, got %d calls", got)
	}
}
