package domain

// ============================================================
// Owner-scoped records served by the data store
// ============================================================

// Note is a user's notepad entry. LastModified is Unix milliseconds.
type Note struct {
	ID           int64  `json:"id"`
	UserID       int64  `json:"userId"`
	Title        string `json:"title"`
	Content      string `json:"content"`
	LastModified int64  `json:"lastModified"`
}

// Contact is an address book entry.
type Contact struct {
	ID     int64   `json:"id"`
	UserID int64   `json:"userId"`
	Name   string  `json:"name"`
	Email  *string `json:"email"`
	Phone  *string `json:"phone"`
}

// ChatMessage is one message between two users. Timestamp is Unix milliseconds.
type ChatMessage struct {
	ID         int64  `json:"id"`
	SenderID   int64  `json:"senderId"`
	ReceiverID int64  `json:"receiverId,omitempty"`
	Text       string `json:"text"`
	Timestamp  int64  `json:"timestamp"`
}

// Counterpart returns the other participant from ownerID's point of view.
func (m ChatMessage) Counterpart(ownerID int64) int64 {
	if m.SenderID == ownerID {
		return m.ReceiverID
	}
	return m.SenderID
}

// Conversation groups the messages exchanged with one contact.
type Conversation struct {
	ContactID int64         `json:"contactId"`
	Messages  []ChatMessage `json:"messages"`
}

// SendMessageRequest is the body for POST /api/chats.
type SendMessageRequest struct {
	ContactID int64        `json:"contactId"`
	Message   *ChatMessage `json:"message"`
}

// MailAddress is a display name plus address.
type MailAddress struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Mail is a read-only LocalMail message.
type Mail struct {
	ID        int64       `json:"id"`
	From      MailAddress `json:"from"`
	To        string      `json:"to"`
	Subject   string      `json:"subject"`
	Body      string      `json:"body"`
	Timestamp int64       `json:"timestamp"`
	Read      bool        `json:"read"`
}
