// Package datasync keeps a local, ordered copy of one owner's entities in
// step with the REST data store.
//
// Mutations follow one of two policies. Optimistic applies the change
// locally first, keeps a snapshot and restores it if the remote call
// fails. Refetch waits for the remote call and then reloads the list.
// Every response is tagged with the generation it was issued under; a
// response that arrives after Bind switched owners is dropped.
package datasync

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/lynixity/lynix-go/internal/domain"
	"github.com/lynixity/lynix-go/internal/infra/observability"
)

// ErrUnsupported is returned for an operation the remote does not offer.
var ErrUnsupported = errors.New("datasync: operation not supported")

// ErrStale is returned when the collection was rebound while a call was in
// flight. The response was discarded.
var ErrStale = errors.New("datasync: response discarded after owner change")

// Policy selects how mutations reach local state.
type Policy int

const (
	Optimistic Policy = iota
	Refetch
)

// Kind describes an entity type: its name, its key and its list order.
type Kind[E any] struct {
	Name string
	Key  func(E) int64
	Less func(a, b E) bool
}

// Remote is the store-side half of a collection. Nil operations are
// unsupported.
type Remote[E any] struct {
	List   func(ctx context.Context, ownerID int64) ([]E, error)
	Create func(ctx context.Context, ownerID int64, e E) (E, error)
	Update func(ctx context.Context, ownerID int64, e E) (E, error)
	Remove func(ctx context.Context, ownerID, id int64) error
}

// Collection is the local copy of one entity list.
type Collection[E any] struct {
	kind    Kind[E]
	remote  Remote[E]
	policy  Policy
	metrics *observability.Metrics
	logger  *zap.Logger

	mu    sync.Mutex
	owner int64
	gen   uint64
	items []E
}

func NewCollection[E any](kind Kind[E], remote Remote[E], policy Policy, metrics *observability.Metrics, logger *zap.Logger) *Collection[E] {
	return &Collection[E]{kind: kind, remote: remote, policy: policy, metrics: metrics, logger: logger}
}

// Bind switches the collection to ownerID and clears it. In-flight calls for
// the previous owner are discarded when they return.
func (c *Collection[E]) Bind(ownerID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.owner = ownerID
	c.gen++
	c.items = nil
}

// Owner returns the bound owner.
func (c *Collection[E]) Owner() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.owner
}

// Items returns the entities in the kind's order.
func (c *Collection[E]) Items() []E {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.items)
}

// Find returns the entity with the given key.
func (c *Collection[E]) Find(id int64) (E, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.index(id); i >= 0 {
		return c.items[i], true
	}
	var zero E
	return zero, false
}

// Load replaces the local list with the remote one.
func (c *Collection[E]) Load(ctx context.Context) error {
	if c.remote.List == nil {
		return ErrUnsupported
	}
	owner, gen := c.ticket()
	items, err := c.remote.List(ctx, owner)
	if err != nil {
		return fmt.Errorf("load %s: %w", c.kind.Name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return ErrStale
	}
	c.items = c.sorted(items)
	return nil
}

// Create stores a new entity. The store assigns the key, so the entity is
// added once the remote answers (Optimistic) or the list is reloaded
// (Refetch).
func (c *Collection[E]) Create(ctx context.Context, e E) (E, error) {
	var zero E
	if c.remote.Create == nil {
		return zero, ErrUnsupported
	}
	owner, gen := c.ticket()
	created, err := c.remote.Create(ctx, owner, e)
	if err != nil {
		return zero, fmt.Errorf("create %s: %w", c.kind.Name, err)
	}
	if c.policy == Refetch {
		return created, c.reload(ctx, gen)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return created, ErrStale
	}
	c.items = c.sorted(append(c.items, created))
	return created, nil
}

// Update replaces an entity. Under Optimistic the new value shows at once
// and the previous list comes back if the store rejects it.
func (c *Collection[E]) Update(ctx context.Context, e E) (E, error) {
	var zero E
	if c.remote.Update == nil {
		return zero, ErrUnsupported
	}
	owner, gen := c.ticket()
	if c.policy == Refetch {
		updated, err := c.remote.Update(ctx, owner, e)
		if err != nil {
			return zero, fmt.Errorf("update %s: %w", c.kind.Name, err)
		}
		return updated, c.reload(ctx, gen)
	}

	snapshot := c.apply(func(items []E) []E {
		if i := indexIn(items, c.kind.Key, c.kind.Key(e)); i >= 0 {
			items[i] = e
		}
		return items
	})

	updated, err := c.remote.Update(ctx, owner, e)
	if err != nil {
		c.rollback(gen, snapshot, "update", err)
		return zero, fmt.Errorf("update %s: %w", c.kind.Name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return updated, ErrStale
	}
	if i := c.index(c.kind.Key(updated)); i >= 0 {
		c.items[i] = updated
	}
	c.items = c.sorted(c.items)
	return updated, nil
}

// Remove deletes an entity. Under Optimistic it disappears at once and
// comes back if the store rejects the delete.
func (c *Collection[E]) Remove(ctx context.Context, id int64) error {
	if c.remote.Remove == nil {
		return ErrUnsupported
	}
	owner, gen := c.ticket()
	if c.policy == Refetch {
		if err := c.remote.Remove(ctx, owner, id); err != nil {
			return fmt.Errorf("remove %s: %w", c.kind.Name, err)
		}
		return c.reload(ctx, gen)
	}

	snapshot := c.apply(func(items []E) []E {
		return slices.DeleteFunc(items, func(x E) bool { return c.kind.Key(x) == id })
	})

	if err := c.remote.Remove(ctx, owner, id); err != nil {
		c.rollback(gen, snapshot, "remove", err)
		return fmt.Errorf("remove %s %d: %w", c.kind.Name, id, err)
	}
	return nil
}

func (c *Collection[E]) ticket() (int64, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.owner, c.gen
}

// apply mutates a copy of the list and returns the previous one.
func (c *Collection[E]) apply(fn func([]E) []E) []E {
	c.mu.Lock()
	defer c.mu.Unlock()
	snapshot := c.items
	c.items = c.sorted(fn(slices.Clone(c.items)))
	return snapshot
}

func (c *Collection[E]) rollback(gen uint64, snapshot []E, op string, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.items = snapshot
	c.metrics.IncrSyncRollback(c.kind.Name)
	c.logger.Warn("datasync: rolled back optimistic change",
		zap.String("entity", c.kind.Name),
		zap.String("op", op),
		zap.Error(cause),
	)
}

func (c *Collection[E]) reload(ctx context.Context, gen uint64) error {
	c.mu.Lock()
	stale := gen != c.gen
	c.mu.Unlock()
	if stale {
		return ErrStale
	}
	return c.Load(ctx)
}

func (c *Collection[E]) index(id int64) int {
	return indexIn(c.items, c.kind.Key, id)
}

func indexIn[E any](items []E, key func(E) int64, id int64) int {
	return slices.IndexFunc(items, func(x E) bool { return key(x) == id })
}

func (c *Collection[E]) sorted(items []E) []E {
	if c.kind.Less == nil {
		return items
	}
	slices.SortStableFunc(items, func(a, b E) int {
		switch {
		case c.kind.Less(a, b):
			return -1
		case c.kind.Less(b, a):
			return 1
		}
		return 0
	})
	return items
}

// ============================================================
// Entity kinds
// ============================================================

var (
	// Notes: most recently modified first.
	Notes = Kind[domain.Note]{
		Name: "notes",
		Key:  func(n domain.Note) int64 { return n.ID },
		Less: func(a, b domain.Note) bool { return a.LastModified > b.LastModified },
	}

	// Contacts: name ascending, case-insensitive.
	Contacts = Kind[domain.Contact]{
		Name: "contacts",
		Key:  func(c domain.Contact) int64 { return c.ID },
		Less: func(a, b domain.Contact) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) },
	}

	// Messages: chronological.
	Messages = Kind[domain.ChatMessage]{
		Name: "messages",
		Key:  func(m domain.ChatMessage) int64 { return m.ID },
		Less: func(a, b domain.ChatMessage) bool {
			if a.Timestamp != b.Timestamp {
				return a.Timestamp < b.Timestamp
			}
			return a.ID < b.ID
		},
	}

	// Users: by id.
	Users = Kind[domain.User]{
		Name: "users",
		Key:  func(u domain.User) int64 { return u.ID },
		Less: func(a, b domain.User) bool { return a.ID < b.ID },
	}

	// Mails: newest first.
	Mails = Kind[domain.Mail]{
		Name: "mails",
		Key:  func(m domain.Mail) int64 { return m.ID },
		Less: func(a, b domain.Mail) bool { return a.Timestamp > b.Timestamp },
	}
)

// Conversations groups messages by counterpart, keeping each group
// chronological and the groups in order of their first message.
func Conversations(ownerID int64, msgs []domain.ChatMessage) []domain.Conversation {
	index := map[int64]int{}
	var out []domain.Conversation
	for _, m := range msgs {
		id := m.Counterpart(ownerID)
		i, ok := index[id]
		if !ok {
			i = len(out)
			index[id] = i
			out = append(out, domain.Conversation{ContactID: id})
		}
		out[i].Messages = append(out[i].Messages, m)
	}
	return out
}
