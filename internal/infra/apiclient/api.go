package apiclient

import (
	"context"
	"net/http"

	"github.com/lynixity/lynix-go/internal/domain"
)

// ============================================================
// Users: /api/users
// ============================================================

// Login implements port.Directory.
func (c *Client) Login(ctx context.Context, identifier, secret string) (*domain.LoginResponse, error) {
	var resp domain.LoginResponse
	req := domain.LoginRequest{Action: domain.ActionLogin, Identifier: identifier, Password: secret}
	if err := c.call(ctx, http.MethodPost, "/api/users", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ListUsers(ctx context.Context, _ int64) ([]domain.User, error) {
	var users []domain.User
	if err := c.call(ctx, http.MethodGet, "/api/users", nil, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) CreateUser(ctx context.Context, actorID int64, u domain.User) (domain.User, error) {
	var out domain.User
	err := c.call(ctx, http.MethodPost, "/api/users", ownerQuery(actorID), u, &out)
	return out, err
}

func (c *Client) UpdateUser(ctx context.Context, actorID int64, u domain.User) (domain.User, error) {
	var out domain.User
	err := c.call(ctx, http.MethodPut, "/api/users", ownerQuery(actorID), u, &out)
	return out, err
}

func (c *Client) DeleteUser(ctx context.Context, actorID, id int64) error {
	return c.call(ctx, http.MethodDelete, "/api/users", ownerQuery(actorID), domain.DeleteRequest{ID: id}, nil)
}

// ============================================================
// Notes: /api/notes
// ============================================================

func (c *Client) ListNotes(ctx context.Context, ownerID int64) ([]domain.Note, error) {
	var notes []domain.Note
	if err := c.call(ctx, http.MethodGet, "/api/notes", ownerQuery(ownerID), nil, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

func (c *Client) CreateNote(ctx context.Context, ownerID int64, n domain.Note) (domain.Note, error) {
	var out domain.Note
	err := c.call(ctx, http.MethodPost, "/api/notes", ownerQuery(ownerID), n, &out)
	return out, err
}

func (c *Client) UpdateNote(ctx context.Context, ownerID int64, n domain.Note) (domain.Note, error) {
	var out domain.Note
	err := c.call(ctx, http.MethodPut, "/api/notes", ownerQuery(ownerID), n, &out)
	return out, err
}

func (c *Client) DeleteNote(ctx context.Context, ownerID, id int64) error {
	return c.call(ctx, http.MethodDelete, "/api/notes", ownerQuery(ownerID), domain.DeleteRequest{ID: id}, nil)
}

// ============================================================
// Contacts: /api/contacts
// ============================================================

func (c *Client) ListContacts(ctx context.Context, ownerID int64) ([]domain.Contact, error) {
	var contacts []domain.Contact
	if err := c.call(ctx, http.MethodGet, "/api/contacts", ownerQuery(ownerID), nil, &contacts); err != nil {
		return nil, err
	}
	return contacts, nil
}

func (c *Client) CreateContact(ctx context.Context, ownerID int64, ct domain.Contact) (domain.Contact, error) {
	var out domain.Contact
	err := c.call(ctx, http.MethodPost, "/api/contacts", ownerQuery(ownerID), ct, &out)
	return out, err
}

func (c *Client) UpdateContact(ctx context.Context, ownerID int64, ct domain.Contact) (domain.Contact, error) {
	var out domain.Contact
	err := c.call(ctx, http.MethodPut, "/api/contacts", ownerQuery(ownerID), ct, &out)
	return out, err
}

func (c *Client) DeleteContact(ctx context.Context, ownerID, id int64) error {
	return c.call(ctx, http.MethodDelete, "/api/contacts", ownerQuery(ownerID), domain.DeleteRequest{ID: id}, nil)
}

// ============================================================
// Chats: /api/chats
// ============================================================

// ListMessages flattens the owner's conversations into one list and fills
// in the receiver the server leaves out.
func (c *Client) ListMessages(ctx context.Context, ownerID int64) ([]domain.ChatMessage, error) {
	var convs []domain.Conversation
	if err := c.call(ctx, http.MethodGet, "/api/chats", ownerQuery(ownerID), nil, &convs); err != nil {
		return nil, err
	}
	var out []domain.ChatMessage
	for _, conv := range convs {
		for _, m := range conv.Messages {
			if m.SenderID == ownerID {
				m.ReceiverID = conv.ContactID
			} else {
				m.ReceiverID = ownerID
			}
			out = append(out, m)
		}
	}
	return out, nil
}

// SendMessage posts m to m.ReceiverID.
func (c *Client) SendMessage(ctx context.Context, ownerID int64, m domain.ChatMessage) (domain.ChatMessage, error) {
	req := domain.SendMessageRequest{
		ContactID: m.ReceiverID,
		Message:   &domain.ChatMessage{SenderID: m.SenderID, Text: m.Text, Timestamp: m.Timestamp},
	}
	var out domain.ChatMessage
	if err := c.call(ctx, http.MethodPost, "/api/chats", ownerQuery(ownerID), req, &out); err != nil {
		return out, err
	}
	out.ReceiverID = m.ReceiverID
	return out, nil
}

// ============================================================
// Mail and text generation
// ============================================================

func (c *Client) ListMails(ctx context.Context, _ int64) ([]domain.Mail, error) {
	var mails []domain.Mail
	if err := c.call(ctx, http.MethodGet, "/api/mails", nil, nil, &mails); err != nil {
		return nil, err
	}
	return mails, nil
}

type generateTextRequest struct {
	Prompt string `json:"prompt"`
}

type generateTextResponse struct {
	Text string `json:"text"`
}

// GenerateText implements port.Prompter.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	var resp generateTextResponse
	if err := c.call(ctx, http.MethodPost, "/api/generate-text", nil, generateTextRequest{Prompt: prompt}, &resp); err != nil {
		return "", err
	}
	return resp.Text, nil
}
