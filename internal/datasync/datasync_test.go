package datasync_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lynixity/lynix-go/internal/datasync"
	"github.com/lynixity/lynix-go/internal/domain"
	"github.com/lynixity/lynix-go/internal/infra/observability"
)

var errRemote = &domain.ErrExternalService{Service: "lynix-api", Err: errors.New("connection reset")}

// fakeNotes is an owner-scoped note store.
type fakeNotes struct {
	notes  map[int64]domain.Note
	nextID int64
	fail   bool
}

func newFakeNotes(notes ...domain.Note) *fakeNotes {
	f := &fakeNotes{notes: map[int64]domain.Note{}, nextID: 100}
	for _, n := range notes {
		f.notes[n.ID] = n
	}
	return f
}

func (f *fakeNotes) remote() datasync.Remote[domain.Note] {
	return datasync.Remote[domain.Note]{
		List: func(_ context.Context, owner int64) ([]domain.Note, error) {
			if f.fail {
				return nil, errRemote
			}
			var out []domain.Note
			for _, n := range f.notes {
				if n.UserID == owner {
					out = append(out, n)
				}
			}
			return out, nil
		},
		Create: func(_ context.Context, owner int64, n domain.Note) (domain.Note, error) {
			if f.fail {
				return domain.Note{}, errRemote
			}
			f.nextID++
			n.ID, n.UserID, n.LastModified = f.nextID, owner, 9000
			f.notes[n.ID] = n
			return n, nil
		},
		Update: func(_ context.Context, owner int64, n domain.Note) (domain.Note, error) {
			if f.fail {
				return domain.Note{}, errRemote
			}
			cur, ok := f.notes[n.ID]
			if !ok || cur.UserID != owner {
				return domain.Note{}, &domain.ErrNotFound{Resource: "note"}
			}
			n.UserID = owner
			f.notes[n.ID] = n
			return n, nil
		},
		Remove: func(_ context.Context, owner, id int64) error {
			if f.fail {
				return errRemote
			}
			cur, ok := f.notes[id]
			if !ok || cur.UserID != owner {
				return &domain.ErrNotFound{Resource: "note"}
			}
			delete(f.notes, id)
			return nil
		},
	}
}

func seededNotes() *fakeNotes {
	return newFakeNotes(
		domain.Note{ID: 1, UserID: 1, Title: "old", Content: "a", LastModified: 1000},
		domain.Note{ID: 2, UserID: 1, Title: "new", Content: "b", LastModified: 3000},
		domain.Note{ID: 3, UserID: 2, Title: "other owner", LastModified: 2000},
	)
}

func newNotes(t *testing.T, f *fakeNotes, policy datasync.Policy) (*datasync.Collection[domain.Note], *observability.Metrics) {
	t.Helper()
	metrics := observability.NewMetrics()
	c := datasync.NewCollection(datasync.Notes, f.remote(), policy, metrics, zap.NewNop())
	c.Bind(1)
	require.NoError(t, c.Load(context.Background()))
	return c, metrics
}

func titles(notes []domain.Note) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.Title
	}
	return out
}

func TestCollection_LoadOrdersAndScopes(t *testing.T) {
	c, _ := newNotes(t, seededNotes(), datasync.Optimistic)
	assert.Equal(t, []string{"new", "old"}, titles(c.Items()))
	assert.Equal(t, int64(1), c.Owner())
}

func TestCollection_OptimisticUpdate(t *testing.T) {
	t.Run("Should show the edit at once and keep the store's answer", func(t *testing.T) {
		c, _ := newNotes(t, seededNotes(), datasync.Optimistic)
		n, _ := c.Find(1)
		n.Title, n.LastModified = "edited", 5000

		updated, err := c.Update(context.Background(), n)
		require.NoError(t, err)
		assert.Equal(t, "edited", updated.Title)
		assert.Equal(t, []string{"edited", "new"}, titles(c.Items()), "re-sorted by lastModified")
	})

	t.Run("Should restore the exact previous state on remote failure", func(t *testing.T) {
		f := seededNotes()
		c, metrics := newNotes(t, f, datasync.Optimistic)
		before := c.Items()

		n, _ := c.Find(1)
		n.Title, n.Content = "unsaved", "lost"
		f.fail = true

		_, err := c.Update(context.Background(), n)
		var ext *domain.ErrExternalService
		require.ErrorAs(t, err, &ext)
		assert.Equal(t, before, c.Items())

		restored, _ := c.Find(1)
		assert.Equal(t, "old", restored.Title)
		assert.Equal(t, "a", restored.Content)

		mf, _ := metrics.Registry.Gather()
		found := false
		for _, fam := range mf {
			if fam.GetName() == "lynix_sync_rollbacks_total" {
				found = true
				assert.Equal(t, float64(1), fam.GetMetric()[0].GetCounter().GetValue())
			}
		}
		assert.True(t, found)
	})

	t.Run("Should roll back a cross-owner edit with not found", func(t *testing.T) {
		c, _ := newNotes(t, seededNotes(), datasync.Optimistic)
		_, err := c.Update(context.Background(), domain.Note{ID: 3, Title: "steal"})
		var nf *domain.ErrNotFound
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, []string{"new", "old"}, titles(c.Items()))
	})
}

func TestCollection_OptimisticRemove(t *testing.T) {
	f := seededNotes()
	c, _ := newNotes(t, f, datasync.Optimistic)

	f.fail = true
	require.Error(t, c.Remove(context.Background(), 2))
	assert.Equal(t, []string{"new", "old"}, titles(c.Items()))

	f.fail = false
	require.NoError(t, c.Remove(context.Background(), 2))
	assert.Equal(t, []string{"old"}, titles(c.Items()))
}

func TestCollection_Create(t *testing.T) {
	f := seededNotes()
	c, _ := newNotes(t, f, datasync.Optimistic)

	created, err := c.Create(context.Background(), domain.Note{Title: "fresh"})
	require.NoError(t, err)
	assert.Equal(t, int64(101), created.ID)
	assert.Equal(t, []string{"fresh", "new", "old"}, titles(c.Items()))

	f.fail = true
	_, err = c.Create(context.Background(), domain.Note{Title: "nope"})
	require.Error(t, err)
	assert.Len(t, c.Items(), 3)
}

func TestCollection_RefetchPolicy(t *testing.T) {
	f := seededNotes()
	c, _ := newNotes(t, f, datasync.Refetch)

	n, _ := c.Find(1)
	n.Title = "refetched"
	f.fail = true
	_, err := c.Update(context.Background(), n)
	require.Error(t, err)
	assert.Equal(t, []string{"new", "old"}, titles(c.Items()), "nothing applied before confirmation")

	f.fail = false
	_, err = c.Update(context.Background(), n)
	require.NoError(t, err)
	got, _ := c.Find(1)
	assert.Equal(t, "refetched", got.Title)

	require.NoError(t, c.Remove(context.Background(), 1))
	assert.Equal(t, []string{"new"}, titles(c.Items()))
}

func TestCollection_DiscardsStaleResponses(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	remote := datasync.Remote[domain.Note]{
		List: func(ctx context.Context, owner int64) ([]domain.Note, error) {
			if owner == 1 {
				close(started)
				<-release
				return []domain.Note{{ID: 1, UserID: 1, Title: "late"}}, nil
			}
			return []domain.Note{{ID: 9, UserID: 2, Title: "current"}}, nil
		},
	}
	c := datasync.NewCollection(datasync.Notes, remote, datasync.Optimistic, nil, zap.NewNop())
	c.Bind(1)

	errc := make(chan error, 1)
	go func() { errc <- c.Load(context.Background()) }()
	<-started

	c.Bind(2)
	require.NoError(t, c.Load(context.Background()))
	close(release)

	assert.ErrorIs(t, <-errc, datasync.ErrStale)
	assert.Equal(t, []string{"current"}, titles(c.Items()))
}

func TestCollection_Unsupported(t *testing.T) {
	c := datasync.NewCollection(datasync.Mails, datasync.Remote[domain.Mail]{}, datasync.Optimistic, nil, zap.NewNop())
	assert.ErrorIs(t, c.Load(context.Background()), datasync.ErrUnsupported)
	_, err := c.Create(context.Background(), domain.Mail{})
	assert.ErrorIs(t, err, datasync.ErrUnsupported)
	assert.ErrorIs(t, c.Remove(context.Background(), 1), datasync.ErrUnsupported)
}

func TestKinds_Order(t *testing.T) {
	contacts := datasync.NewCollection(datasync.Contacts, datasync.Remote[domain.Contact]{
		List: func(context.Context, int64) ([]domain.Contact, error) {
			return []domain.Contact{{ID: 1, Name: "zed"}, {ID: 2, Name: "Ada"}, {ID: 3, Name: "bob"}}, nil
		},
	}, datasync.Refetch, nil, zap.NewNop())
	require.NoError(t, contacts.Load(context.Background()))
	var names []string
	for _, c := range contacts.Items() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Ada", "bob", "zed"}, names)

	msgs := datasync.NewCollection(datasync.Messages, datasync.Remote[domain.ChatMessage]{
		List: func(context.Context, int64) ([]domain.ChatMessage, error) {
			return []domain.ChatMessage{
				{ID: 3, SenderID: 1, ReceiverID: 2, Timestamp: 300},
				{ID: 1, SenderID: 2, ReceiverID: 1, Timestamp: 100},
				{ID: 2, SenderID: 3, ReceiverID: 1, Timestamp: 200},
			}, nil
		},
	}, datasync.Optimistic, nil, zap.NewNop())
	msgs.Bind(1)
	require.NoError(t, msgs.Load(context.Background()))
	items := msgs.Items()
	assert.Equal(t, int64(100), items[0].Timestamp)
	assert.Equal(t, int64(300), items[2].Timestamp)

	convs := datasync.Conversations(1, items)
	require.Len(t, convs, 2)
	assert.Equal(t, int64(2), convs[0].ContactID)
	assert.Len(t, convs[0].Messages, 2)
	assert.Equal(t, int64(3), convs[1].ContactID)
}
