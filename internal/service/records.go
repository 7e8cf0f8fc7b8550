package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/lynixity/lynix-go/internal/domain"
	"github.com/lynixity/lynix-go/internal/port"
)

var tracer = otel.Tracer("service/lynix")

const defaultNoteTitle = "New Note"

// nowMillis is replaced in tests.
var nowMillis = func() int64 { return time.Now().UnixMilli() }

// ============================================================
// Notes: /api/notes
// ============================================================

// NotesService serves a user's notepad.
type NotesService struct {
	store  port.NoteStore
	logger *zap.Logger
}

func NewNotesService(store port.NoteStore, logger *zap.Logger) *NotesService {
	return &NotesService{store: store, logger: logger}
}

func (s *NotesService) List(ctx context.Context, ownerID int64) ([]domain.Note, error) {
	ctx, span := tracer.Start(ctx, "NotesService.List")
	defer span.End()
	return s.store.ListNotes(ctx, ownerID)
}

// Create stores a note, defaulting the title and stamping lastModified.
func (s *NotesService) Create(ctx context.Context, ownerID int64, n *domain.Note) (*domain.Note, error) {
	ctx, span := tracer.Start(ctx, "NotesService.Create")
	defer span.End()

	note := domain.Note{
		UserID:       ownerID,
		Title:        n.Title,
		Content:      n.Content,
		LastModified: nowMillis(),
	}
	if strings.TrimSpace(note.Title) == "" {
		note.Title = defaultNoteTitle
	}
	return s.store.CreateNote(ctx, &note)
}

// Update rewrites title and content of a note the owner holds.
func (s *NotesService) Update(ctx context.Context, ownerID int64, n *domain.Note) (*domain.Note, error) {
	ctx, span := tracer.Start(ctx, "NotesService.Update")
	defer span.End()

	if n.ID <= 0 {
		return nil, &domain.ErrValidation{Field: "id", Message: "id is required"}
	}
	note := domain.Note{
		ID:           n.ID,
		UserID:       ownerID,
		Title:        n.Title,
		Content:      n.Content,
		LastModified: nowMillis(),
	}
	return s.store.UpdateNote(ctx, &note)
}

func (s *NotesService) Delete(ctx context.Context, ownerID, id int64) error {
	ctx, span := tracer.Start(ctx, "NotesService.Delete")
	defer span.End()
	return s.store.DeleteNote(ctx, ownerID, id)
}

// ============================================================
// Contacts: /api/contacts
// ============================================================

// ContactsService serves a user's address book.
type ContactsService struct {
	store  port.ContactStore
	logger *zap.Logger
}

func NewContactsService(store port.ContactStore, logger *zap.Logger) *ContactsService {
	return &ContactsService{store: store, logger: logger}
}

func (s *ContactsService) List(ctx context.Context, ownerID int64) ([]domain.Contact, error) {
	ctx, span := tracer.Start(ctx, "ContactsService.List")
	defer span.End()
	return s.store.ListContacts(ctx, ownerID)
}

func (s *ContactsService) Create(ctx context.Context, ownerID int64, c *domain.Contact) (*domain.Contact, error) {
	ctx, span := tracer.Start(ctx, "ContactsService.Create")
	defer span.End()

	contact, err := normalizeContact(ownerID, c)
	if err != nil {
		return nil, err
	}
	return s.store.CreateContact(ctx, contact)
}

func (s *ContactsService) Update(ctx context.Context, ownerID int64, c *domain.Contact) (*domain.Contact, error) {
	ctx, span := tracer.Start(ctx, "ContactsService.Update")
	defer span.End()

	if c.ID <= 0 {
		return nil, &domain.ErrValidation{Field: "id", Message: "id is required"}
	}
	contact, err := normalizeContact(ownerID, c)
	if err != nil {
		return nil, err
	}
	return s.store.UpdateContact(ctx, contact)
}

func (s *ContactsService) Delete(ctx context.Context, ownerID, id int64) error {
	ctx, span := tracer.Start(ctx, "ContactsService.Delete")
	defer span.End()
	return s.store.DeleteContact(ctx, ownerID, id)
}

func normalizeContact(ownerID int64, c *domain.Contact) (*domain.Contact, error) {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "name is required"}
	}
	out := &domain.Contact{ID: c.ID, UserID: ownerID, Name: name}
	if c.Email != nil {
		out.Email = domain.StringPtr(*c.Email)
	}
	if c.Phone != nil {
		out.Phone = domain.StringPtr(*c.Phone)
	}
	return out, nil
}

// ============================================================
// Chats: /api/chats
// ============================================================

// MsgInvalidMessage is the 400 message for a malformed chat payload.
const MsgInvalidMessage = "Invalid message payload"

// ChatService groups messages into conversations and stores new ones.
type ChatService struct {
	store  port.ChatStore
	logger *zap.Logger
}

func NewChatService(store port.ChatStore, logger *zap.Logger) *ChatService {
	return &ChatService{store: store, logger: logger}
}

// Conversations returns one conversation per counterpart, ordered by the
// first message exchanged; messages inside are chronological and carry no
// receiver id.
func (s *ChatService) Conversations(ctx context.Context, ownerID int64) ([]domain.Conversation, error) {
	ctx, span := tracer.Start(ctx, "ChatService.Conversations")
	defer span.End()

	msgs, err := s.store.ListMessages(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	index := make(map[int64]int)
	out := []domain.Conversation{}
	for _, m := range msgs {
		contactID := m.Counterpart(ownerID)
		i, ok := index[contactID]
		if !ok {
			i = len(out)
			index[contactID] = i
			out = append(out, domain.Conversation{ContactID: contactID})
		}
		m.ReceiverID = 0
		out[i].Messages = append(out[i].Messages, m)
	}
	return out, nil
}

// Send stores a message from ownerID to req.ContactID.
func (s *ChatService) Send(ctx context.Context, ownerID int64, req *domain.SendMessageRequest) (*domain.ChatMessage, error) {
	ctx, span := tracer.Start(ctx, "ChatService.Send")
	defer span.End()

	m := req.Message
	if req.ContactID == 0 || m == nil || m.SenderID == 0 || strings.TrimSpace(m.Text) == "" || m.Timestamp == 0 {
		return nil, &domain.ErrValidation{Field: "message", Message: MsgInvalidMessage}
	}
	if m.SenderID != ownerID {
		s.logger.Warn("chat: sender does not match owner",
			zap.Int64("owner_id", ownerID),
			zap.Int64("sender_id", m.SenderID),
		)
		return nil, &domain.ErrForbidden{Action: "send message as another user"}
	}

	stored, err := s.store.CreateMessage(ctx, &domain.ChatMessage{
		SenderID:   m.SenderID,
		ReceiverID: req.ContactID,
		Text:       m.Text,
		Timestamp:  m.Timestamp,
	})
	if err != nil {
		return nil, err
	}
	stored.ReceiverID = 0
	return stored, nil
}

// ============================================================
// Mail: /api/mails
// ============================================================

// MailService serves the read-only mailbox.
type MailService struct {
	store port.MailStore
}

func NewMailService(store port.MailStore) *MailService {
	return &MailService{store: store}
}

func (s *MailService) List(ctx context.Context) ([]domain.Mail, error) {
	ctx, span := tracer.Start(ctx, "MailService.List")
	defer span.End()
	return s.store.ListMails(ctx)
}
