package assistant_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lynixity/lynix-go/internal/assistant"
	"github.com/lynixity/lynix-go/internal/domain"
	"github.com/lynixity/lynix-go/internal/infra/apiclient"
	"github.com/lynixity/lynix-go/internal/infra/cache"
	"github.com/lynixity/lynix-go/internal/infra/observability"
)

type fakePrompter struct {
	calls int
	err   error
}

func (p *fakePrompter) GenerateText(_ context.Context, prompt string) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return "echo: " + prompt, nil
}

type fakeIdentity struct {
	user    *domain.User
	session string
}

func (f *fakeIdentity) Identity() *domain.User { return f.user }
func (f *fakeIdentity) SessionID() string      { return f.session }

func newConversation(t *testing.T, p *fakePrompter, id *fakeIdentity, opts ...assistant.Option) (*assistant.Conversation, *cache.InMemory[assistant.Usage]) {
	t.Helper()
	usage := cache.New[assistant.Usage](assistant.QuotaWindow)
	t.Cleanup(usage.Close)
	return assistant.New(p, id, usage, observability.NewMetrics(), zap.NewNop(), opts...), usage
}

func TestAsk_ReturnsAnswer(t *testing.T) {
	p := &fakePrompter{}
	c, _ := newConversation(t, p, &fakeIdentity{user: &domain.User{ID: 1, Username: "a", Role: domain.RoleStandard}})

	got, err := c.Ask(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", got)
	assert.Equal(t, []assistant.Entry{
		{Sender: assistant.SenderUser, Text: "hello"},
		{Sender: assistant.SenderAI, Text: "echo: hello"},
	}, c.Transcript())
	assert.Equal(t, -1, c.Remaining())
}

func TestAsk_BlankPrompt(t *testing.T) {
	p := &fakePrompter{}
	c, _ := newConversation(t, p, &fakeIdentity{})
	_, err := c.Ask(context.Background(), "   ")
	var v *domain.ErrValidation
	require.ErrorAs(t, err, &v)
	assert.Zero(t, p.calls)
	assert.Empty(t, c.Transcript())
}

func TestAsk_GuestQuota(t *testing.T) {
	const quota = 3
	p := &fakePrompter{}
	c, _ := newConversation(t, p, &fakeIdentity{user: domain.GuestUser(), session: "s1"}, assistant.WithQuota(quota))

	for i := 0; i < quota; i++ {
		_, err := c.Ask(context.Background(), "q")
		require.NoError(t, err)
	}
	assert.Equal(t, 0, c.Remaining())

	got, err := c.Ask(context.Background(), "one more")
	require.NoError(t, err)
	assert.Equal(t, assistant.MsgLimitReached, got)
	assert.Equal(t, quota, p.calls, "no remote call once exhausted")

	transcript := c.Transcript()
	require.Len(t, transcript, 2*(quota+1))
	assert.Equal(t, assistant.Entry{Sender: assistant.SenderUser, Text: "one more"}, transcript[2*quota])
	assert.Equal(t, assistant.Entry{Sender: assistant.SenderAI, Text: assistant.MsgLimitReached}, transcript[2*quota+1])
}

func TestAsk_DefaultQuotaAppliesToAnonymous(t *testing.T) {
	p := &fakePrompter{}
	c, _ := newConversation(t, p, &fakeIdentity{})
	assert.Equal(t, assistant.DefaultGuestQuota, c.Remaining())
	_, _ = c.Ask(context.Background(), "hi")
	assert.Equal(t, assistant.DefaultGuestQuota-1, c.Remaining())
}

func TestAsk_QuotaSharedPerSessionAndWindowed(t *testing.T) {
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	p := &fakePrompter{}
	id := &fakeIdentity{user: domain.GuestUser(), session: "s1"}

	usage := cache.New[assistant.Usage](assistant.QuotaWindow)
	t.Cleanup(usage.Close)
	first := assistant.New(p, id, usage, nil, zap.NewNop(), assistant.WithQuota(1), assistant.WithClock(clock))
	second := assistant.New(p, id, usage, nil, zap.NewNop(), assistant.WithQuota(1), assistant.WithClock(clock))

	_, _ = first.Ask(context.Background(), "a")
	got, _ := second.Ask(context.Background(), "b")
	assert.Equal(t, assistant.MsgLimitReached, got, "a new page does not reset the session quota")

	id.session = "s2"
	got, _ = second.Ask(context.Background(), "c")
	assert.Equal(t, "echo: c", got, "a new session starts a new quota")

	now = now.Add(assistant.QuotaWindow)
	id.session = "s1"
	got, _ = first.Ask(context.Background(), "d")
	assert.Equal(t, "echo: d", got, "the window rolls over after an hour")
}

func TestAsk_RemoteFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"server message", &domain.ErrExternalService{Service: "lynix-api", Err: &apiclient.StatusError{Status: 500, Message: "API Key not configured on the server."}}, "API Key not configured on the server."},
		{"server without message", &domain.ErrExternalService{Service: "lynix-api", Err: &apiclient.StatusError{Status: 502}}, assistant.MsgServerError},
		{"network", &domain.ErrExternalService{Service: "lynix-api", Err: errors.New("dial tcp: refused")}, assistant.MsgNetworkError},
		{"circuit open", &domain.ErrCircuitOpen{Service: "lynix-api"}, assistant.MsgNetworkError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newConversation(t, &fakePrompter{err: tt.err}, &fakeIdentity{user: &domain.User{Role: domain.RoleAdmin}})
			got, err := c.Ask(context.Background(), "hi")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Len(t, c.Transcript(), 2)
		})
	}
}

func TestReset(t *testing.T) {
	c, _ := newConversation(t, &fakePrompter{}, &fakeIdentity{user: domain.GuestUser(), session: "s"})
	_, _ = c.Ask(context.Background(), "hi")
	c.Reset()
	assert.Empty(t, c.Transcript())
	assert.Equal(t, assistant.DefaultGuestQuota-1, c.Remaining())
}
