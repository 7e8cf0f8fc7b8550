package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/lynixity/lynix-go/internal/domain"
	"github.com/lynixity/lynix-go/internal/infra/cache"
	"github.com/lynixity/lynix-go/internal/infra/memstore"
	"github.com/lynixity/lynix-go/internal/infra/observability"
	"github.com/lynixity/lynix-go/internal/infra/resilience"
	"github.com/lynixity/lynix-go/internal/service"
)

// --- Fixtures ---

type fixture struct {
	store     *memstore.Store
	auth      *service.AuthService
	directory *service.DirectoryService
	metrics   *observability.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()
	store := memstore.New()
	metrics := observability.NewMetrics()
	auth := service.NewAuthService(store, service.AuthConfig{
		JWTSecret:  "test-secret",
		AccessTTL:  time.Hour,
		BcryptCost: bcrypt.MinCost,
	}, logger)
	usersCache := cache.New[[]domain.User](time.Minute)
	t.Cleanup(usersCache.Close)

	if err := service.SeedDemoData(context.Background(), store, auth, logger); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return &fixture{
		store:     store,
		auth:      auth,
		directory: service.NewDirectoryService(store, auth, usersCache, metrics, logger),
		metrics:   metrics,
	}
}

// --- Mocks ---

type mockGenerator struct {
	gen   *domain.Generation
	err   error
	calls int
}

func (m *mockGenerator) Generate(_ context.Context, _ string) (*domain.Generation, error) {
	m.calls++
	return m.gen, m.err
}

// --- Auth ---

func TestLogin_AcceptsAnyIdentifier(t *testing.T) {
	f := newFixture(t)

	for _, ident := range []string{"admin", "admin@lynixity.x10.bz", "0470000001"} {
		resp, err := f.auth.Login(context.Background(), &domain.LoginRequest{Identifier: ident, Password: "password"})
		if err != nil {
			t.Fatalf("%s: expected login, got %v", ident, err)
		}
		if resp.Role != domain.RoleAdmin {
			t.Errorf("%s: expected Admin, got %s", ident, resp.Role)
		}
		if resp.Password != "" {
			t.Error("password must not be returned")
		}

		claims, err := f.auth.ValidateAccessToken(resp.Token)
		if err != nil {
			t.Fatalf("expected valid token, got %v", err)
		}
		if id, _ := claims.UserID(); id != resp.ID {
			t.Errorf("expected subject %d, got %d", resp.ID, id)
		}
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	f := newFixture(t)

	cases := []domain.LoginRequest{
		{Identifier: "admin", Password: "wrong"},
		{Identifier: "nobody", Password: "password"},
		{Identifier: "", Password: "password"},
	}
	for _, req := range cases {
		_, err := f.auth.Login(context.Background(), &req)
		var unauth *domain.ErrUnauthorized
		if !errors.As(err, &unauth) {
			t.Fatalf("expected ErrUnauthorized for %+v, got %v", req, err)
		}
		if unauth.Message != service.MsgInvalidCredentials {
			t.Errorf("unexpected message %q", unauth.Message)
		}
	}
}

func TestValidateAccessToken_RejectsForeignSecret(t *testing.T) {
	f := newFixture(t)
	resp, err := f.auth.Login(context.Background(), &domain.LoginRequest{Identifier: "admin", Password: "password"})
	if err != nil {
		t.Fatal(err)
	}

	other := service.NewAuthService(f.store, service.AuthConfig{JWTSecret: "other", AccessTTL: time.Hour}, zap.NewNop())
	if _, err := other.ValidateAccessToken(resp.Token); err == nil {
		t.Fatal("expected token signed with another secret to be rejected")
	}
}

// --- Directory ---

func TestDirectory_ListIsCachedAndInvalidated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	users, err := f.directory.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 6 {
		t.Fatalf("expected 6 seeded users, got %d", len(users))
	}
	if _, err := f.directory.List(ctx); err != nil {
		t.Fatal(err)
	}
	if rate := f.metrics.GetUsageSnapshot().UsersCacheHitRate; rate != 0.5 {
		t.Errorf("expected hit rate 0.5, got %v", rate)
	}

	if _, err := f.directory.Create(ctx, 1, &domain.User{
		Username:      "new_user",
		Role:          domain.RoleStandard,
		BillingStatus: domain.BillingOnTime,
	}); err != nil {
		t.Fatal(err)
	}
	users, _ = f.directory.List(ctx)
	if len(users) != 7 {
		t.Fatalf("expected cache invalidated after create, got %d users", len(users))
	}
}

func TestDirectory_CreateDefaultsPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.directory.Create(ctx, 1, &domain.User{
		Username:      "fresh",
		Email:         domain.StringPtr(""),
		Role:          domain.RoleTrial,
		BillingStatus: domain.BillingOnTime,
	}); err != nil {
		t.Fatal(err)
	}
	resp, err := f.auth.Login(ctx, &domain.LoginRequest{Identifier: "fresh", Password: "password"})
	if err != nil {
		t.Fatalf("expected default password to work, got %v", err)
	}
	if resp.Email != nil {
		t.Errorf("expected blank email stored as null, got %q", *resp.Email)
	}
}

func TestDirectory_UpdateKeepsPasswordWhenBlank(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.directory.Update(ctx, 1, &domain.User{
		ID:            3,
		Username:      "trial_user",
		Role:          domain.RoleStandard,
		BillingStatus: domain.BillingOnTime,
		Features:      domain.UserFeatures{AI: true},
	})
	if err != nil {
		t.Fatal(err)
	}
	resp, err := f.auth.Login(ctx, &domain.LoginRequest{Identifier: "trial_user", Password: "password"})
	if err != nil {
		t.Fatalf("expected old password to survive, got %v", err)
	}
	if resp.Role != domain.RoleStandard || !resp.Features.AI {
		t.Errorf("update not applied: %+v", resp.User)
	}
}

func TestDirectory_RejectsNonAdminAndGuestRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	newUser := &domain.User{Username: "x", Role: domain.RoleStandard, BillingStatus: domain.BillingOnTime}

	var forbidden *domain.ErrForbidden
	if _, err := f.directory.Create(ctx, 2, newUser); !errors.As(err, &forbidden) {
		t.Errorf("expected ErrForbidden for standard actor, got %v", err)
	}
	if err := f.directory.Delete(ctx, 999, 2); !errors.As(err, &forbidden) {
		t.Errorf("expected ErrForbidden for unknown actor, got %v", err)
	}

	guest := &domain.User{Username: "g", Role: domain.RoleGuest, BillingStatus: domain.BillingOnTime}
	var validation *domain.ErrValidation
	if _, err := f.directory.Create(ctx, 1, guest); !errors.As(err, &validation) {
		t.Errorf("expected ErrValidation for Guest role, got %v", err)
	}

	var nf *domain.ErrNotFound
	if err := f.directory.Delete(ctx, 1, 999); !errors.As(err, &nf) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// --- Notes & contacts ---

func TestNotes_CreateDefaultsAndOwnerScope(t *testing.T) {
	f := newFixture(t)
	notes := service.NewNotesService(f.store, zap.NewNop())
	ctx := context.Background()

	n, err := notes.Create(ctx, 2, &domain.Note{Title: "  "})
	if err != nil {
		t.Fatal(err)
	}
	if n.Title != "New Note" || n.UserID != 2 || n.LastModified == 0 {
		t.Errorf("unexpected note %+v", n)
	}

	list, _ := notes.List(ctx, 2)
	if list[0].ID != n.ID {
		t.Errorf("expected newest note first, got %+v", list[0])
	}

	_, err = notes.Update(ctx, 1, &domain.Note{ID: n.ID, Title: "hijack"})
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Errorf("expected ErrNotFound for cross-owner update, got %v", err)
	}
}

func TestContacts_NameRequired(t *testing.T) {
	f := newFixture(t)
	contacts := service.NewContactsService(f.store, zap.NewNop())

	_, err := contacts.Create(context.Background(), 1, &domain.Contact{Name: " "})
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) || validation.Field != "name" {
		t.Fatalf("expected name validation error, got %v", err)
	}

	c, err := contacts.Create(context.Background(), 1, &domain.Contact{Name: "Ada", Phone: domain.StringPtr("")})
	if err != nil {
		t.Fatal(err)
	}
	if c.Phone != nil {
		t.Error("expected blank phone stored as null")
	}
}

// --- Chats ---

func TestChat_ConversationsGroupedByCounterpart(t *testing.T) {
	f := newFixture(t)
	chat := service.NewChatService(f.store, zap.NewNop())

	convs, err := chat.Conversations(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(convs))
	}
	byContact := map[int64]domain.Conversation{}
	for _, c := range convs {
		byContact[c.ContactID] = c
	}
	std := byContact[2].Messages
	if len(std) != 3 {
		t.Fatalf("expected 3 messages with standard_user, got %d", len(std))
	}
	for i := 1; i < len(std); i++ {
		if std[i].Timestamp < std[i-1].Timestamp {
			t.Error("messages must be chronological")
		}
	}
	if std[0].ReceiverID != 0 {
		t.Error("receiver id must be stripped from conversation messages")
	}
}

func TestChat_SendValidation(t *testing.T) {
	f := newFixture(t)
	chat := service.NewChatService(f.store, zap.NewNop())
	ctx := context.Background()

	var validation *domain.ErrValidation
	if _, err := chat.Send(ctx, 1, &domain.SendMessageRequest{ContactID: 2}); !errors.As(err, &validation) {
		t.Errorf("expected invalid payload, got %v", err)
	}

	var forbidden *domain.ErrForbidden
	_, err := chat.Send(ctx, 1, &domain.SendMessageRequest{
		ContactID: 2,
		Message:   &domain.ChatMessage{SenderID: 3, Text: "spoof", Timestamp: 1},
	})
	if !errors.As(err, &forbidden) {
		t.Errorf("expected ErrForbidden for spoofed sender, got %v", err)
	}

	msg, err := chat.Send(ctx, 1, &domain.SendMessageRequest{
		ContactID: 2,
		Message:   &domain.ChatMessage{SenderID: 1, Text: "hi", Timestamp: time.Now().UnixMilli()},
	})
	if err != nil {
		t.Fatal(err)
	}
	if msg.ID == 0 || msg.Text != "hi" {
		t.Errorf("unexpected stored message %+v", msg)
	}
}

// --- Text generation ---

func TestTextGen(t *testing.T) {
	logger := zap.NewNop()

	t.Run("not configured", func(t *testing.T) {
		svc := service.NewTextGenService(nil, nil, logger)
		if _, err := svc.Generate(context.Background(), "hi"); !errors.Is(err, service.ErrTextGenNotConfigured) {
			t.Fatalf("expected not configured, got %v", err)
		}
	})

	t.Run("blank prompt", func(t *testing.T) {
		gen := &mockGenerator{}
		svc := service.NewTextGenService(gen, nil, logger)
		_, err := svc.Generate(context.Background(), "   ")
		var validation *domain.ErrValidation
		if !errors.As(err, &validation) || validation.Message != service.MsgPromptRequired {
			t.Fatalf("expected prompt required, got %v", err)
		}
		if gen.calls != 0 {
			t.Error("generator must not be called for a blank prompt")
		}
	})

	t.Run("upstream failure", func(t *testing.T) {
		gen := &mockGenerator{err: errors.New("boom")}
		svc := service.NewTextGenService(gen, observability.NewMetrics(), logger)
		_, err := svc.Generate(context.Background(), "hi")
		var ext *domain.ErrExternalService
		if !errors.As(err, &ext) {
			t.Fatalf("expected ErrExternalService, got %v", err)
		}
	})

	t.Run("bulkhead full", func(t *testing.T) {
		gen := &mockGenerator{gen: &domain.Generation{Text: "hello"}}
		bulkhead := resilience.NewBulkhead(1)
		if err := bulkhead.Acquire(context.Background()); err != nil {
			t.Fatal(err)
		}
		defer bulkhead.Release()

		svc := service.NewTextGenService(gen, nil, logger).WithBulkhead(bulkhead)
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := svc.Generate(ctx, "hi")
		var timeout *domain.ErrTimeout
		if !errors.As(err, &timeout) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}
		if gen.calls != 0 {
			t.Error("generator must not be called without a slot")
		}
	})

	t.Run("success records tokens", func(t *testing.T) {
		metrics := observability.NewMetrics()
		gen := &mockGenerator{gen: &domain.Generation{Text: "hello", PromptTokens: 3, CompletionTokens: 5}}
		svc := service.NewTextGenService(gen, metrics, logger)
		out, err := svc.Generate(context.Background(), "hi")
		if err != nil {
			t.Fatal(err)
		}
		if out.Text != "hello" {
			t.Errorf("unexpected text %q", out.Text)
		}
		snap := metrics.GetUsageSnapshot()
		if snap.PromptTokens != 3 || snap.CompletionTokens != 5 {
			t.Errorf("unexpected token snapshot %+v", snap)
		}
	})
}

// --- Seed & health ---

func TestSeedDemoData_Idempotent(t *testing.T) {
	f := newFixture(t)
	if err := service.SeedDemoData(context.Background(), f.store, f.auth, zap.NewNop()); err != nil {
		t.Fatal(err)
	}
	users, _ := f.store.ListUsers(context.Background())
	if len(users) != 6 {
		t.Errorf("expected seeding twice to keep 6 users, got %d", len(users))
	}
	mails, _ := f.store.ListMails(context.Background())
	if len(mails) != 3 || mails[0].Subject != "Welcome to LocalMail!" {
		t.Errorf("unexpected mailbox %+v", mails)
	}
}

func TestHealthService_Check(t *testing.T) {
	f := newFixture(t)

	h := service.NewHealthService(f.store, service.NewTextGenService(nil, nil, zap.NewNop())).Check(context.Background())
	if h.Status != "degraded" {
		t.Errorf("expected degraded without text generation, got %s", h.Status)
	}

	h = service.NewHealthService(f.store, service.NewTextGenService(&mockGenerator{}, nil, zap.NewNop())).Check(context.Background())
	if h.Status != "healthy" {
		t.Errorf("expected healthy, got %s", h.Status)
	}
}
