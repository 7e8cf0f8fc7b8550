// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer and the client core from concrete implementations.
package port

import (
	"context"

	"github.com/lynixity/lynix-go/internal/domain"
)

// ============================================================
// Server side: data store
// ============================================================

// UserRecord is a stored user together with its password hash.
type UserRecord struct {
	User         domain.User
	PasswordHash string
}

// UserStore persists the user directory.
type UserStore interface {
	// FindByIdentifier returns every user whose username, email or SIP talk
	// id equals identifier.
	FindByIdentifier(ctx context.Context, identifier string) ([]UserRecord, error)
	GetUser(ctx context.Context, id int64) (*UserRecord, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	CreateUser(ctx context.Context, u *domain.User, passwordHash string) (*domain.User, error)
	// UpdateUser overwrites the user; an empty passwordHash keeps the stored one.
	UpdateUser(ctx context.Context, u *domain.User, passwordHash string) (*domain.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

// NoteStore persists notes. Update and delete match on (id, owner).
type NoteStore interface {
	ListNotes(ctx context.Context, ownerID int64) ([]domain.Note, error)
	CreateNote(ctx context.Context, n *domain.Note) (*domain.Note, error)
	UpdateNote(ctx context.Context, n *domain.Note) (*domain.Note, error)
	DeleteNote(ctx context.Context, ownerID, id int64) error
}

// ContactStore persists contacts. Update and delete match on (id, owner).
type ContactStore interface {
	ListContacts(ctx context.Context, ownerID int64) ([]domain.Contact, error)
	CreateContact(ctx context.Context, c *domain.Contact) (*domain.Contact, error)
	UpdateContact(ctx context.Context, c *domain.Contact) (*domain.Contact, error)
	DeleteContact(ctx context.Context, ownerID, id int64) error
}

// ChatStore persists chat messages.
type ChatStore interface {
	// ListMessages returns every message sent or received by userID, oldest first.
	ListMessages(ctx context.Context, userID int64) ([]domain.ChatMessage, error)
	CreateMessage(ctx context.Context, m *domain.ChatMessage) (*domain.ChatMessage, error)
}

// MailStore serves the mailbox. Mail is read-only over the API; CreateMail
// exists for seeding.
type MailStore interface {
	// ListMails returns every mail, newest first.
	ListMails(ctx context.Context) ([]domain.Mail, error)
	CreateMail(ctx context.Context, m *domain.Mail) (*domain.Mail, error)
}

// Store bundles every entity store plus a liveness probe.
type Store interface {
	UserStore
	NoteStore
	ContactStore
	ChatStore
	MailStore
	Ping(ctx context.Context) error
}

// TextGenerator invokes the third-party text-generation model.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (*domain.Generation, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// ============================================================
// Client side: collaborators of the client core
// ============================================================

// Directory checks credentials against the user directory.
type Directory interface {
	Login(ctx context.Context, identifier, secret string) (*domain.LoginResponse, error)
}

// LocalStore is durable key/value storage that survives process restarts.
type LocalStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Navigator moves the application to a page.
type Navigator interface {
	Navigate(page domain.Page)
}

// Prompter answers a free-text prompt (the remote text-generation endpoint).
type Prompter interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}
