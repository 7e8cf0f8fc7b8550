package memstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lynixity/lynix-go/internal/domain"
	"github.com/lynixity/lynix-go/internal/infra/memstore"
	"github.com/lynixity/lynix-go/internal/port"
)

var _ port.Store = (*memstore.Store)(nil)

func TestStore_UserLifecycle(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	u, err := s.CreateUser(ctx, &domain.User{
		Username:      "admin",
		Email:         domain.StringPtr("admin@lynixity.x10.bz"),
		SipTalkID:     domain.StringPtr("0470000001"),
		Password:      "plain",
		Role:          domain.RoleAdmin,
		BillingStatus: domain.BillingOnTime,
	}, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)
	assert.Empty(t, u.Password, "plain password must never be stored on the user")

	for _, ident := range []string{"admin", "admin@lynixity.x10.bz", "0470000001"} {
		recs, err := s.FindByIdentifier(ctx, ident)
		require.NoError(t, err)
		require.Len(t, recs, 1, ident)
		assert.Equal(t, "hash-1", recs[0].PasswordHash)
	}

	_, err = s.CreateUser(ctx, &domain.User{Username: "ADMIN", Role: domain.RoleStandard, BillingStatus: domain.BillingOnTime}, "x")
	var conflict *domain.ErrConflict
	assert.ErrorAs(t, err, &conflict)

	u.Role = domain.RoleStandard
	_, err = s.UpdateUser(ctx, u, "")
	require.NoError(t, err)
	rec, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash-1", rec.PasswordHash)
	assert.Equal(t, domain.RoleStandard, rec.User.Role)

	require.NoError(t, s.DeleteUser(ctx, u.ID))
	var nf *domain.ErrNotFound
	assert.ErrorAs(t, s.DeleteUser(ctx, u.ID), &nf)
}

func TestStore_NotesAreOwnerScoped(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	older, _ := s.CreateNote(ctx, &domain.Note{UserID: 1, Title: "a", LastModified: 100})
	_, _ = s.CreateNote(ctx, &domain.Note{UserID: 1, Title: "b", LastModified: 200})
	_, _ = s.CreateNote(ctx, &domain.Note{UserID: 2, Title: "c", LastModified: 300})

	notes, err := s.ListNotes(ctx, 1)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "b", notes[0].Title, "newest first")

	_, err = s.UpdateNote(ctx, &domain.Note{ID: older.ID, UserID: 2, Title: "stolen"})
	var nf *domain.ErrNotFound
	assert.ErrorAs(t, err, &nf)
	assert.ErrorAs(t, s.DeleteNote(ctx, 2, older.ID), &nf)
	assert.NoError(t, s.DeleteNote(ctx, 1, older.ID))
}

func TestStore_ContactsSortedByName(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	_, _ = s.CreateContact(ctx, &domain.Contact{UserID: 1, Name: "Zed"})
	_, _ = s.CreateContact(ctx, &domain.Contact{UserID: 1, Name: "bob"})
	_, _ = s.CreateContact(ctx, &domain.Contact{UserID: 1, Name: "Ada"})

	contacts, err := s.ListContacts(ctx, 1)
	require.NoError(t, err)
	names := make([]string, 0, len(contacts))
	for _, c := range contacts {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Ada", "bob", "Zed"}, names)
}

func TestStore_MessagesAndMails(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	_, _ = s.CreateMessage(ctx, &domain.ChatMessage{SenderID: 2, ReceiverID: 1, Text: "late", Timestamp: 20})
	_, _ = s.CreateMessage(ctx, &domain.ChatMessage{SenderID: 1, ReceiverID: 3, Text: "early", Timestamp: 10})
	_, _ = s.CreateMessage(ctx, &domain.ChatMessage{SenderID: 2, ReceiverID: 3, Text: "other", Timestamp: 5})

	msgs, err := s.ListMessages(ctx, 1)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "early", msgs[0].Text)

	_, _ = s.CreateMail(ctx, &domain.Mail{Subject: "old", Timestamp: 1})
	_, _ = s.CreateMail(ctx, &domain.Mail{Subject: "new", Timestamp: 2})
	mails, err := s.ListMails(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", mails[0].Subject)
}
