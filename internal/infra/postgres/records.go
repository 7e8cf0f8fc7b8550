package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/lynixity/lynix-go/internal/domain"
)

// ============================================================
// Notes
// ============================================================

const noteReturning = "RETURNING id, user_id, title, content, last_modified"

type noteRow struct {
	ID           int64  `db:"id"`
	UserID       int64  `db:"user_id"`
	Title        string `db:"title"`
	Content      string `db:"content"`
	LastModified int64  `db:"last_modified"`
}

func (r noteRow) note() domain.Note {
	return domain.Note{ID: r.ID, UserID: r.UserID, Title: r.Title, Content: r.Content, LastModified: r.LastModified}
}

func (s *Store) ListNotes(ctx context.Context, ownerID int64) ([]domain.Note, error) {
	ctx, span := tracer.Start(ctx, "Postgres.ListNotes")
	defer span.End()

	query, args, err := psql.Select("id", "user_id", "title", "content", "last_modified").
		From("notes").
		Where(squirrel.Eq{"user_id": ownerID}).
		OrderBy("last_modified DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select query: %w", err)
	}
	var rows []noteRow
	if err := pgxscan.Select(ctx, s.db, &rows, query, args...); err != nil {
		return nil, mapError(err, "list notes")
	}
	notes := make([]domain.Note, len(rows))
	for i, r := range rows {
		notes[i] = r.note()
	}
	return notes, nil
}

func (s *Store) CreateNote(ctx context.Context, n *domain.Note) (*domain.Note, error) {
	ctx, span := tracer.Start(ctx, "Postgres.CreateNote")
	defer span.End()

	query, args, err := psql.Insert("notes").
		Columns("user_id", "title", "content", "last_modified").
		Values(n.UserID, n.Title, n.Content, n.LastModified).
		Suffix(noteReturning).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building insert query: %w", err)
	}
	var row noteRow
	if err := pgxscan.Get(ctx, s.db, &row, query, args...); err != nil {
		return nil, mapError(err, "insert note")
	}
	out := row.note()
	return &out, nil
}

func (s *Store) UpdateNote(ctx context.Context, n *domain.Note) (*domain.Note, error) {
	ctx, span := tracer.Start(ctx, "Postgres.UpdateNote")
	defer span.End()

	query, args, err := psql.Update("notes").
		Set("title", n.Title).
		Set("content", n.Content).
		Set("last_modified", n.LastModified).
		Where(squirrel.Eq{"id": n.ID, "user_id": n.UserID}).
		Suffix(noteReturning).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building update query: %w", err)
	}
	var row noteRow
	if err := pgxscan.Get(ctx, s.db, &row, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, &domain.ErrNotFound{Resource: "note", ID: strconv.FormatInt(n.ID, 10)}
		}
		return nil, mapError(err, "update note")
	}
	out := row.note()
	return &out, nil
}

func (s *Store) DeleteNote(ctx context.Context, ownerID, id int64) error {
	ctx, span := tracer.Start(ctx, "Postgres.DeleteNote")
	defer span.End()
	return s.deleteOwned(ctx, "notes", "note", ownerID, id)
}

// ============================================================
// Contacts
// ============================================================

const contactReturning = "RETURNING id, user_id, name, email, phone"

type contactRow struct {
	ID     int64   `db:"id"`
	UserID int64   `db:"user_id"`
	Name   string  `db:"name"`
	Email  *string `db:"email"`
	Phone  *string `db:"phone"`
}

func (r contactRow) contact() domain.Contact {
	return domain.Contact{ID: r.ID, UserID: r.UserID, Name: r.Name, Email: r.Email, Phone: r.Phone}
}

func (s *Store) ListContacts(ctx context.Context, ownerID int64) ([]domain.Contact, error) {
	ctx, span := tracer.Start(ctx, "Postgres.ListContacts")
	defer span.End()

	query, args, err := psql.Select("id", "user_id", "name", "email", "phone").
		From("contacts").
		Where(squirrel.Eq{"user_id": ownerID}).
		OrderBy("LOWER(name) ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select query: %w", err)
	}
	var rows []contactRow
	if err := pgxscan.Select(ctx, s.db, &rows, query, args...); err != nil {
		return nil, mapError(err, "list contacts")
	}
	contacts := make([]domain.Contact, len(rows))
	for i, r := range rows {
		contacts[i] = r.contact()
	}
	return contacts, nil
}

func (s *Store) CreateContact(ctx context.Context, c *domain.Contact) (*domain.Contact, error) {
	ctx, span := tracer.Start(ctx, "Postgres.CreateContact")
	defer span.End()

	query, args, err := psql.Insert("contacts").
		Columns("user_id", "name", "email", "phone").
		Values(c.UserID, c.Name, c.Email, c.Phone).
		Suffix(contactReturning).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building insert query: %w", err)
	}
	var row contactRow
	if err := pgxscan.Get(ctx, s.db, &row, query, args...); err != nil {
		return nil, mapError(err, "insert contact")
	}
	out := row.contact()
	return &out, nil
}

func (s *Store) UpdateContact(ctx context.Context, c *domain.Contact) (*domain.Contact, error) {
	ctx, span := tracer.Start(ctx, "Postgres.UpdateContact")
	defer span.End()

	query, args, err := psql.Update("contacts").
		Set("name", c.Name).
		Set("email", c.Email).
		Set("phone", c.Phone).
		Where(squirrel.Eq{"id": c.ID, "user_id": c.UserID}).
		Suffix(contactReturning).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building update query: %w", err)
	}
	var row contactRow
	if err := pgxscan.Get(ctx, s.db, &row, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, &domain.ErrNotFound{Resource: "contact", ID: strconv.FormatInt(c.ID, 10)}
		}
		return nil, mapError(err, "update contact")
	}
	out := row.contact()
	return &out, nil
}

func (s *Store) DeleteContact(ctx context.Context, ownerID, id int64) error {
	ctx, span := tracer.Start(ctx, "Postgres.DeleteContact")
	defer span.End()
	return s.deleteOwned(ctx, "contacts", "contact", ownerID, id)
}

func (s *Store) deleteOwned(ctx context.Context, table, resource string, ownerID, id int64) error {
	query, args, err := psql.Delete(table).
		Where(squirrel.Eq{"id": id, "user_id": ownerID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building delete query: %w", err)
	}
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return mapError(err, "delete "+resource)
	}
	if tag.RowsAffected() == 0 {
		return &domain.ErrNotFound{Resource: resource, ID: strconv.FormatInt(id, 10)}
	}
	return nil
}

// ============================================================
// Chat
// ============================================================

type messageRow struct {
	ID         int64  `db:"id"`
	SenderID   int64  `db:"sender_id"`
	ReceiverID int64  `db:"receiver_id"`
	Text       string `db:"text"`
	SentAt     int64  `db:"sent_at"`
}

func (r messageRow) message() domain.ChatMessage {
	return domain.ChatMessage{ID: r.ID, SenderID: r.SenderID, ReceiverID: r.ReceiverID, Text: r.Text, Timestamp: r.SentAt}
}

func (s *Store) ListMessages(ctx context.Context, userID int64) ([]domain.ChatMessage, error) {
	ctx, span := tracer.Start(ctx, "Postgres.ListMessages")
	defer span.End()

	query, args, err := psql.Select("id", "sender_id", "receiver_id", "text", "sent_at").
		From("chat_messages").
		Where(squirrel.Or{
			squirrel.Eq{"sender_id": userID},
			squirrel.Eq{"receiver_id": userID},
		}).
		OrderBy("sent_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select query: %w", err)
	}
	var rows []messageRow
	if err := pgxscan.Select(ctx, s.db, &rows, query, args...); err != nil {
		return nil, mapError(err, "list messages")
	}
	msgs := make([]domain.ChatMessage, len(rows))
	for i, r := range rows {
		msgs[i] = r.message()
	}
	return msgs, nil
}

func (s *Store) CreateMessage(ctx context.Context, m *domain.ChatMessage) (*domain.ChatMessage, error) {
	ctx, span := tracer.Start(ctx, "Postgres.CreateMessage")
	defer span.End()

	query, args, err := psql.Insert("chat_messages").
		Columns("sender_id", "receiver_id", "text", "sent_at").
		Values(m.SenderID, m.ReceiverID, m.Text, m.Timestamp).
		Suffix("RETURNING id, sender_id, receiver_id, text, sent_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building insert query: %w", err)
	}
	var row messageRow
	if err := pgxscan.Get(ctx, s.db, &row, query, args...); err != nil {
		return nil, mapError(err, "insert message")
	}
	out := row.message()
	return &out, nil
}

// ============================================================
// Mail
// ============================================================

const mailReturning = "RETURNING id, from_name, from_email, to_address, subject, body, sent_at, is_read"

type mailRow struct {
	ID        int64  `db:"id"`
	FromName  string `db:"from_name"`
	FromEmail string `db:"from_email"`
	To        string `db:"to_address"`
	Subject   string `db:"subject"`
	Body      string `db:"body"`
	SentAt    int64  `db:"sent_at"`
	Read      bool   `db:"is_read"`
}

func (r mailRow) mail() domain.Mail {
	return domain.Mail{
		ID:        r.ID,
		From:      domain.MailAddress{Name: r.FromName, Email: r.FromEmail},
		To:        r.To,
		Subject:   r.Subject,
		Body:      r.Body,
		Timestamp: r.SentAt,
		Read:      r.Read,
	}
}

func (s *Store) ListMails(ctx context.Context) ([]domain.Mail, error) {
	ctx, span := tracer.Start(ctx, "Postgres.ListMails")
	defer span.End()

	query, args, err := psql.Select("id", "from_name", "from_email", "to_address", "subject", "body", "sent_at", "is_read").
		From("mails").
		OrderBy("sent_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select query: %w", err)
	}
	var rows []mailRow
	if err := pgxscan.Select(ctx, s.db, &rows, query, args...); err != nil {
		return nil, mapError(err, "list mails")
	}
	mails := make([]domain.Mail, len(rows))
	for i, r := range rows {
		mails[i] = r.mail()
	}
	return mails, nil
}

func (s *Store) CreateMail(ctx context.Context, m *domain.Mail) (*domain.Mail, error) {
	ctx, span := tracer.Start(ctx, "Postgres.CreateMail")
	defer span.End()

	query, args, err := psql.Insert("mails").
		Columns("from_name", "from_email", "to_address", "subject", "body", "sent_at", "is_read").
		Values(m.From.Name, m.From.Email, m.To, m.Subject, m.Body, m.Timestamp, m.Read).
		Suffix(mailReturning).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building insert query: %w", err)
	}
	var row mailRow
	if err := pgxscan.Get(ctx, s.db, &row, query, args...); err != nil {
		return nil, mapError(err, "insert mail")
	}
	out := row.mail()
	return &out, nil
}
