// Package memstore is an in-process implementation of port.Store used when
// no database is configured. Data lives for the life of the process.
package memstore

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/lynixity/lynix-go/internal/domain"
	"github.com/lynixity/lynix-go/internal/port"
)

// Store keeps every entity in maps guarded by one RWMutex.
type Store struct {
	mu sync.RWMutex

	users    map[int64]port.UserRecord
	notes    map[int64]domain.Note
	contacts map[int64]domain.Contact
	messages []domain.ChatMessage
	mails    []domain.Mail

	nextUser, nextNote, nextContact, nextMessage, nextMail int64
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:    make(map[int64]port.UserRecord),
		notes:    make(map[int64]domain.Note),
		contacts: make(map[int64]domain.Contact),
	}
}

func (s *Store) Ping(context.Context) error { return nil }

// --- Users ---

func (s *Store) FindByIdentifier(_ context.Context, identifier string) ([]port.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []port.UserRecord
	for _, rec := range s.users {
		u := rec.User
		if u.Username == identifier ||
			(u.Email != nil && *u.Email == identifier) ||
			(u.SipTalkID != nil && *u.SipTalkID == identifier) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].User.ID < out[j].User.ID })
	return out, nil
}

func (s *Store) GetUser(_ context.Context, id int64) (*port.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.users[id]
	if !ok {
		return nil, notFound("user", id)
	}
	return &rec, nil
}

func (s *Store) ListUsers(context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.User, 0, len(s.users))
	for _, rec := range s.users {
		out = append(out, rec.User)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CreateUser(_ context.Context, u *domain.User, passwordHash string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUnique(u, 0); err != nil {
		return nil, err
	}
	s.nextUser++
	stored := u.Public()
	stored.ID = s.nextUser
	s.users[stored.ID] = port.UserRecord{User: stored, PasswordHash: passwordHash}
	return &stored, nil
}

func (s *Store) UpdateUser(_ context.Context, u *domain.User, passwordHash string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[u.ID]
	if !ok {
		return nil, notFound("user", u.ID)
	}
	if err := s.checkUnique(u, u.ID); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		passwordHash = existing.PasswordHash
	}
	stored := u.Public()
	s.users[u.ID] = port.UserRecord{User: stored, PasswordHash: passwordHash}
	return &stored, nil
}

func (s *Store) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return notFound("user", id)
	}
	delete(s.users, id)
	return nil
}

// checkUnique mirrors the UNIQUE constraints on username and email.
func (s *Store) checkUnique(u *domain.User, self int64) error {
	for id, rec := range s.users {
		if id == self {
			continue
		}
		if strings.EqualFold(rec.User.Username, u.Username) ||
			(u.Email != nil && rec.User.Email != nil && *rec.User.Email == *u.Email) {
			return &domain.ErrConflict{Message: "username or email already in use"}
		}
	}
	return nil
}

// --- Notes ---

func (s *Store) ListNotes(_ context.Context, ownerID int64) ([]domain.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Note{}
	for _, n := range s.notes {
		if n.UserID == ownerID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastModified > out[j].LastModified })
	return out, nil
}

func (s *Store) CreateNote(_ context.Context, n *domain.Note) (*domain.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextNote++
	stored := *n
	stored.ID = s.nextNote
	s.notes[stored.ID] = stored
	return &stored, nil
}

func (s *Store) UpdateNote(_ context.Context, n *domain.Note) (*domain.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.notes[n.ID]
	if !ok || existing.UserID != n.UserID {
		return nil, notFound("note", n.ID)
	}
	stored := *n
	s.notes[n.ID] = stored
	return &stored, nil
}

func (s *Store) DeleteNote(_ context.Context, ownerID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.notes[id]
	if !ok || existing.UserID != ownerID {
		return notFound("note", id)
	}
	delete(s.notes, id)
	return nil
}

// --- Contacts ---

func (s *Store) ListContacts(_ context.Context, ownerID int64) ([]domain.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Contact{}
	for _, c := range s.contacts {
		if c.UserID == ownerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	return out, nil
}

func (s *Store) CreateContact(_ context.Context, c *domain.Contact) (*domain.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextContact++
	stored := *c
	stored.ID = s.nextContact
	s.contacts[stored.ID] = stored
	return &stored, nil
}

func (s *Store) UpdateContact(_ context.Context, c *domain.Contact) (*domain.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.contacts[c.ID]
	if !ok || existing.UserID != c.UserID {
		return nil, notFound("contact", c.ID)
	}
	stored := *c
	s.contacts[c.ID] = stored
	return &stored, nil
}

func (s *Store) DeleteContact(_ context.Context, ownerID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.contacts[id]
	if !ok || existing.UserID != ownerID {
		return notFound("contact", id)
	}
	delete(s.contacts, id)
	return nil
}

// --- Chat ---

func (s *Store) ListMessages(_ context.Context, userID int64) ([]domain.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.ChatMessage{}
	for _, m := range s.messages {
		if m.SenderID == userID || m.ReceiverID == userID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

func (s *Store) CreateMessage(_ context.Context, m *domain.ChatMessage) (*domain.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextMessage++
	stored := *m
	stored.ID = s.nextMessage
	s.messages = append(s.messages, stored)
	return &stored, nil
}

// --- Mail ---

func (s *Store) ListMails(context.Context) ([]domain.Mail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Mail, len(s.mails))
	copy(out, s.mails)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out, nil
}

func (s *Store) CreateMail(_ context.Context, m *domain.Mail) (*domain.Mail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextMail++
	stored := *m
	stored.ID = s.nextMail
	s.mails = append(s.mails, stored)
	return &stored, nil
}

func notFound(resource string, id int64) error {
	return &domain.ErrNotFound{Resource: resource, ID: strconv.FormatInt(id, 10)}
}
