// Package app wires the client core: one session, one gate, the entity
// collections, the dialer and the AI conversation, all bound to the
// current identity.
package app

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lynixity/lynix-go/internal/assistant"
	"github.com/lynixity/lynix-go/internal/datasync"
	"github.com/lynixity/lynix-go/internal/dialer"
	"github.com/lynixity/lynix-go/internal/domain"
	"github.com/lynixity/lynix-go/internal/gate"
	"github.com/lynixity/lynix-go/internal/infra/apiclient"
	"github.com/lynixity/lynix-go/internal/infra/cache"
	"github.com/lynixity/lynix-go/internal/infra/localstore"
	"github.com/lynixity/lynix-go/internal/infra/observability"
	"github.com/lynixity/lynix-go/internal/infra/resilience"
	"github.com/lynixity/lynix-go/internal/port"
	"github.com/lynixity/lynix-go/internal/session"
)

// Config holds the client settings.
type Config struct {
	Server         string
	StatePath      string
	RedisURL       string
	GuestQuota     int
	CallDelay      time.Duration
	HTTPTimeout    time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
}

// Deps are the collaborators New needs. Clock defaults to the real one.
type Deps struct {
	API     *apiclient.Client
	Local   port.LocalStore
	Clock   dialer.Clock
	Metrics *observability.Metrics
	Logger  *zap.Logger

	GuestQuota int
	CallDelay  time.Duration
}

// App is the client core.
type App struct {
	Session   *session.Store
	Gate      *gate.Gate
	API       *apiclient.Client
	Notes     *datasync.Collection[domain.Note]
	Contacts  *datasync.Collection[domain.Contact]
	Messages  *datasync.Collection[domain.ChatMessage]
	Mails     *datasync.Collection[domain.Mail]
	Users     *datasync.Collection[domain.User]
	Dialer    *dialer.Machine
	Calls     *dialer.History
	Assistant *assistant.Conversation

	logger  *zap.Logger
	usage   *cache.InMemory[assistant.Usage]
	closers []func()

	mu   sync.Mutex
	page domain.Page
}

// Open builds the stores and the API client from cfg and returns the app.
func Open(ctx context.Context, cfg Config, metrics *observability.Metrics, logger *zap.Logger) (*App, error) {
	var (
		local   port.LocalStore
		closers []func()
	)
	if cfg.RedisURL != "" {
		client, err := localstore.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		local = localstore.NewRedis(client, "")
		closers = append(closers, func() { client.Close() })
	} else {
		local = localstore.NewFile(cfg.StatePath)
	}

	api := apiclient.New(
		&http.Client{Timeout: cfg.HTTPTimeout},
		cfg.Server,
		resilience.NewCircuitBreaker("lynix-api"),
		resilience.Config{MaxRetries: cfg.MaxRetries, InitialBackoff: cfg.InitialBackoff},
		logger,
	)

	a := New(ctx, Deps{
		API:        api,
		Local:      local,
		Metrics:    metrics,
		Logger:     logger,
		GuestQuota: cfg.GuestQuota,
		CallDelay:  cfg.CallDelay,
	})
	a.closers = append(a.closers, closers...)
	return a, nil
}

// New wires the client core over deps and restores the stored session.
func New(ctx context.Context, deps Deps) *App {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = dialer.RealClock{}
	}
	api := deps.API

	a := &App{API: api, logger: logger, page: domain.PageHome}
	a.Session = session.New(ctx, deps.Local, api, logger.Named("session"))
	a.Session.SetNavigator(a)
	api.SetTokenSource(a.Session)
	a.Gate = gate.New(a, deps.Metrics, logger.Named("gate"))

	a.Notes = datasync.NewCollection(datasync.Notes, datasync.Remote[domain.Note]{
		List: api.ListNotes, Create: api.CreateNote, Update: api.UpdateNote, Remove: api.DeleteNote,
	}, datasync.Optimistic, deps.Metrics, logger)
	a.Contacts = datasync.NewCollection(datasync.Contacts, datasync.Remote[domain.Contact]{
		List: api.ListContacts, Create: api.CreateContact, Update: api.UpdateContact, Remove: api.DeleteContact,
	}, datasync.Refetch, deps.Metrics, logger)
	a.Messages = datasync.NewCollection(datasync.Messages, datasync.Remote[domain.ChatMessage]{
		List: api.ListMessages, Create: api.SendMessage,
	}, datasync.Optimistic, deps.Metrics, logger)
	a.Mails = datasync.NewCollection(datasync.Mails, datasync.Remote[domain.Mail]{
		List: api.ListMails,
	}, datasync.Optimistic, deps.Metrics, logger)
	a.Users = datasync.NewCollection(datasync.Users, datasync.Remote[domain.User]{
		List: api.ListUsers, Create: api.CreateUser, Update: api.UpdateUser, Remove: api.DeleteUser,
	}, datasync.Refetch, deps.Metrics, logger)

	a.Calls = dialer.NewHistory(deps.Local, logger.Named("dialer"))
	var dialOpts []dialer.Option
	if deps.CallDelay > 0 {
		dialOpts = append(dialOpts, dialer.WithDelay(deps.CallDelay))
	}
	a.Dialer = dialer.New(clock, a.Calls, deps.Metrics, logger.Named("dialer"), dialOpts...)

	a.usage = cache.New[assistant.Usage](assistant.QuotaWindow)
	var askOpts []assistant.Option
	if deps.GuestQuota > 0 {
		askOpts = append(askOpts, assistant.WithQuota(deps.GuestQuota))
	}
	a.Assistant = assistant.New(api, a.Session, a.usage, deps.Metrics, logger.Named("assistant"), askOpts...)

	a.bind(a.Session.Identity())
	a.closers = append(a.closers, a.Session.Subscribe(a.onIdentity), a.usage.Close)
	return a
}

// Close releases background resources.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Navigate implements port.Navigator: it moves to page and lets the gate
// redirect when the page is off limits.
func (a *App) Navigate(page domain.Page) {
	a.Open(page)
}

// Open moves to page and returns where the app landed and the decision for
// the requested page.
func (a *App) Open(page domain.Page) (domain.Page, gate.Decision) {
	a.mu.Lock()
	a.page = page
	a.mu.Unlock()

	d := a.Gate.Evaluate(page, a.Session.Identity())
	return a.Page(), d
}

// Page returns the current page.
func (a *App) Page() domain.Page {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.page
}

// onIdentity rebinds every collection and re-checks the current page.
func (a *App) onIdentity(u *domain.User) {
	a.Assistant.Reset()
	a.bind(u)
	a.Gate.Evaluate(a.Page(), u)
}

func (a *App) bind(u *domain.User) {
	var owner int64
	if u != nil {
		owner = u.ID
	}
	a.Notes.Bind(owner)
	a.Contacts.Bind(owner)
	a.Messages.Bind(owner)
	a.Mails.Bind(owner)
	a.Users.Bind(owner)
}

// Preload fetches, concurrently, every collection the identity can use.
func (a *App) Preload(ctx context.Context) error {
	u := a.Session.Identity()
	if u == nil || u.IsGuest() {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	load := func(name string, fn func(context.Context) error) {
		g.Go(func() error {
			if err := fn(ctx); err != nil {
				return fmt.Errorf("preload %s: %w", name, err)
			}
			return nil
		})
	}
	load("notes", a.Notes.Load)
	load("contacts", a.Contacts.Load)
	if u.Features.Chat {
		load("messages", a.Messages.Load)
	}
	if u.Features.Mail {
		load("mails", a.Mails.Load)
	}
	if u.Role == domain.RoleAdmin {
		load("users", a.Users.Load)
	}
	if err := g.Wait(); err != nil {
		a.logger.Warn("app: preload incomplete", zap.Error(err))
		return err
	}
	return nil
}
