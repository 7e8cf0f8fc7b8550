package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/lynixity/lynix-go/internal/infra/observability"
	"github.com/lynixity/lynix-go/internal/service"
)

var tracer = otel.Tracer("handler")

// Services bundles everything the router serves.
type Services struct {
	Auth      *service.AuthService
	Directory *service.DirectoryService
	Notes     *service.NotesService
	Contacts  *service.ContactsService
	Chat      *service.ChatService
	Mail      *service.MailService
	TextGen   *service.TextGenService
	Health    *service.HealthService
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc Services, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger, metrics))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svc.Health))
	r.Get("/readyz", readyzHandler(svc.Health))
	if metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	}

	owner := OwnerMiddleware(svc.Auth, logger)

	r.Route("/api", func(r chi.Router) {
		// Users: login is public, mutations need an admin owner.
		r.Route("/users", func(r chi.Router) {
			r.Get("/", listUsersHandler(svc.Directory, logger))
			r.Post("/", postUsersHandler(svc.Auth, svc.Directory, logger))
			r.With(owner).Put("/", updateUserHandler(svc.Directory, logger))
			r.With(owner).Delete("/", deleteUserHandler(svc.Directory, logger))
		})

		r.Route("/notes", func(r chi.Router) {
			r.Use(owner)
			r.Get("/", listNotesHandler(svc.Notes, logger))
			r.Post("/", createNoteHandler(svc.Notes, logger))
			r.Put("/", updateNoteHandler(svc.Notes, logger))
			r.Delete("/", deleteNoteHandler(svc.Notes, logger))
		})

		r.Route("/contacts", func(r chi.Router) {
			r.Use(owner)
			r.Get("/", listContactsHandler(svc.Contacts, logger))
			r.Post("/", createContactHandler(svc.Contacts, logger))
			r.Put("/", updateContactHandler(svc.Contacts, logger))
			r.Delete("/", deleteContactHandler(svc.Contacts, logger))
		})

		r.Route("/chats", func(r chi.Router) {
			r.Use(owner)
			r.Get("/", listChatsHandler(svc.Chat, logger))
			r.Post("/", sendChatHandler(svc.Chat, logger))
		})

		r.Get("/mails", listMailsHandler(svc.Mail, logger))
		r.Post("/generate-text", generateTextHandler(svc.TextGen, logger))
		r.Get("/stats", statsHandler(metrics))
	})

	return r
}
