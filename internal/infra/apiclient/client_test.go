package apiclient_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/lynixity/lynix-go/internal/domain"
	"github.com/lynixity/lynix-go/internal/handler"
	"github.com/lynixity/lynix-go/internal/infra/apiclient"
	"github.com/lynixity/lynix-go/internal/infra/cache"
	"github.com/lynixity/lynix-go/internal/infra/memstore"
	"github.com/lynixity/lynix-go/internal/infra/observability"
	"github.com/lynixity/lynix-go/internal/infra/resilience"
	"github.com/lynixity/lynix-go/internal/service"
)

var retryCfg = resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond}

func newClient(t *testing.T, url string) *apiclient.Client {
	t.Helper()
	return apiclient.New(http.DefaultClient, url, resilience.NewCircuitBreaker(t.Name()), retryCfg, zap.NewNop())
}

// newLynixServer runs the real router over a seeded in-memory store.
func newLynixServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := zap.NewNop()
	store := memstore.New()
	metrics := observability.NewMetrics()
	auth := service.NewAuthService(store, service.AuthConfig{
		JWTSecret: "client-secret", AccessTTL: time.Hour, BcryptCost: bcrypt.MinCost,
	}, logger)
	if err := service.SeedDemoData(context.Background(), store, auth, logger); err != nil {
		t.Fatalf("seed: %v", err)
	}
	usersCache := cache.New[[]domain.User](time.Minute)
	t.Cleanup(usersCache.Close)

	textGen := service.NewTextGenService(nil, metrics, logger)
	router := handler.NewRouter(handler.Services{
		Auth:      auth,
		Directory: service.NewDirectoryService(store, auth, usersCache, metrics, logger),
		Notes:     service.NewNotesService(store, logger),
		Contacts:  service.NewContactsService(store, logger),
		Chat:      service.NewChatService(store, logger),
		Mail:      service.NewMailService(store),
		TextGen:   textGen,
		Health:    service.NewHealthService(store, textGen),
	}, metrics, logger)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

type staticToken string

func (s staticToken) Token() string { return string(s) }

func TestClient_AgainstServer(t *testing.T) {
	srv := newLynixServer(t)
	c := newClient(t, srv.URL)
	ctx := context.Background()

	login, err := c.Login(ctx, "admin", "password")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if login.Role != domain.RoleAdmin || login.Token == "" {
		t.Fatalf("unexpected login %+v", login)
	}
	c.SetTokenSource(staticToken(login.Token))

	_, err = c.Login(ctx, "admin", "nope")
	var unauthorized *domain.ErrUnauthorized
	if !errors.As(err, &unauthorized) || unauthorized.Message != service.MsgInvalidCredentials {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	note, err := c.CreateNote(ctx, login.ID, domain.Note{Title: "From client"})
	if err != nil {
		t.Fatalf("create note: %v", err)
	}
	notes, err := c.ListNotes(ctx, login.ID)
	if err != nil || len(notes) != 2 || notes[0].ID != note.ID {
		t.Fatalf("list notes: %v %+v", err, notes)
	}

	// Note 2 belongs to standard_user.
	_, err = c.UpdateNote(ctx, login.ID, domain.Note{ID: 2, Title: "hijack"})
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	msgs, err := c.ListMessages(ctx, login.ID)
	if err != nil || len(msgs) != 4 {
		t.Fatalf("list messages: %v (%d)", err, len(msgs))
	}
	for _, m := range msgs {
		if m.ReceiverID == 0 {
			t.Errorf("receiver not reconstructed: %+v", m)
		}
	}

	sent, err := c.SendMessage(ctx, login.ID, domain.ChatMessage{
		SenderID: login.ID, ReceiverID: 2, Text: "hello", Timestamp: time.Now().UnixMilli(),
	})
	if err != nil || sent.ID == 0 || sent.ReceiverID != 2 {
		t.Fatalf("send message: %v %+v", err, sent)
	}

	mails, err := c.ListMails(ctx, login.ID)
	if err != nil || len(mails) != 3 {
		t.Fatalf("list mails: %v (%d)", err, len(mails))
	}

	// No generator configured on this server: the message comes through.
	_, err = c.GenerateText(ctx, "hi")
	var se *apiclient.StatusError
	if !errors.As(err, &se) || se.Message != service.ErrTextGenNotConfigured.Error() {
		t.Fatalf("expected server message, got %v", err)
	}
}

func TestClient_TokenMismatchIsForbidden(t *testing.T) {
	srv := newLynixServer(t)
	c := newClient(t, srv.URL)
	ctx := context.Background()

	login, err := c.Login(ctx, "standard_user", "password")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	c.SetTokenSource(staticToken(login.Token))

	_, err = c.ListNotes(ctx, 1)
	var forbidden *domain.ErrForbidden
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

type droppableToken struct {
	token   string
	dropped int
}

func (d *droppableToken) Token() string { return d.token }

func (d *droppableToken) DropToken(context.Context) {
	d.dropped++
	d.token = ""
}

// rejectBearer answers 401 to any request carrying a bearer and an empty
// list otherwise.
func rejectBearer(calls *int32) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") != "" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Invalid or expired token"}`))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	})
}

func TestClient_RejectedTokenIsDropped(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(rejectBearer(&calls))
	defer srv.Close()

	c := newClient(t, srv.URL)
	tokens := &droppableToken{token: "expired"}
	c.SetTokenSource(tokens)

	notes, err := c.ListNotes(context.Background(), 1)
	if err != nil {
		t.Fatalf("expected success without the token, got %v", err)
	}
	if len(notes) != 0 {
		t.Errorf("expected empty list, got %d", len(notes))
	}
	if tokens.dropped != 1 {
		t.Errorf("expected token dropped once, got %d", tokens.dropped)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("expected 2 calls, got %d", got)
	}

	if _, err := c.ListNotes(context.Background(), 1); err != nil {
		t.Fatalf("follow-up call: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("follow-up should go straight through, got %d calls", got)
	}
}

func TestClient_RejectedStaticTokenSurfaces(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(rejectBearer(&calls))
	defer srv.Close()

	c := newClient(t, srv.URL)
	c.SetTokenSource(staticToken("expired"))

	_, err := c.ListNotes(context.Background(), 1)
	var unauthorized *domain.ErrUnauthorized
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected 1 call, got %d", got)
	}
}

func TestClient_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		check  func(error) bool
	}{
		{http.StatusBadRequest, func(err error) bool { var e *domain.ErrValidation; return errors.As(err, &e) }},
		{http.StatusUnauthorized, func(err error) bool { var e *domain.ErrUnauthorized; return errors.As(err, &e) }},
		{http.StatusForbidden, func(err error) bool { var e *domain.ErrForbidden; return errors.As(err, &e) }},
		{http.StatusNotFound, func(err error) bool { var e *domain.ErrNotFound; return errors.As(err, &e) }},
		{http.StatusConflict, func(err error) bool { var e *domain.ErrConflict; return errors.As(err, &e) }},
		{http.StatusTooManyRequests, func(err error) bool { var e *domain.ErrQuotaExceeded; return errors.As(err, &e) }},
		{http.StatusBadGateway, func(err error) bool { var e *domain.ErrExternalService; return errors.As(err, &e) }},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"message":"boom"}`))
			}))
			defer srv.Close()

			_, err := newClient(t, srv.URL).ListNotes(context.Background(), 1)
			if !tt.check(err) {
				t.Errorf("status %d mapped to %T: %v", tt.status, err, err)
			}
		})
	}
}

func TestClient_ClientErrorsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_ = newClient(t, srv.URL).DeleteNote(context.Background(), 1, 9)
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected 1 call, got %d", got)
	}
}

func TestClient_ServerErrorsRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	contacts, err := newClient(t, srv.URL).ListContacts(context.Background(), 1)
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if len(contacts) != 0 {
		t.Errorf("expected empty list, got %d", len(contacts))
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("expected 3 calls, got %d", got)
	}
}

func TestClient_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newClient(t, url).GenerateText(context.Background(), "hi")
	var ext *domain.ErrExternalService
	if !errors.As(err, &ext) {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}
	var se *apiclient.StatusError
	if errors.As(err, &se) {
		t.Error("network failures carry no status")
	}
}
