package gate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/lynixity/lynix-go/internal/domain"
	"github.com/lynixity/lynix-go/internal/gate"
	"github.com/lynixity/lynix-go/internal/infra/observability"
)

func user(role domain.Role, f domain.UserFeatures) *domain.User {
	return &domain.User{ID: 7, Username: "u", Role: role, BillingStatus: domain.BillingOnTime, Features: f}
}

var (
	all   = domain.UserFeatures{Mail: true, Chat: true, Dialer: true, AI: true}
	admin = user(domain.RoleAdmin, all)
	std   = user(domain.RoleStandard, all)
	trial = user(domain.RoleTrial, domain.UserFeatures{Dialer: true, Mail: true})
	guest = domain.GuestUser()
)

func TestDecide_Table(t *testing.T) {
	denied := func(to domain.Page) gate.Decision { return gate.Decision{Redirect: to} }
	ok := gate.Decision{Accessible: true}

	tests := []struct {
		name string
		page domain.Page
		user *domain.User
		want gate.Decision
	}{
		{"mail anonymous", domain.PageLocalMail, nil, denied(domain.PageSignIn)},
		{"mail guest", domain.PageLocalMail, guest, denied(domain.PageHome)},
		{"mail trial", domain.PageLocalMail, trial, ok},
		{"chat trial", domain.PageChat, trial, denied(domain.PageHome)},
		{"chat standard", domain.PageChat, std, ok},
		{"dialer anonymous", domain.PageDialer, nil, denied(domain.PageSignIn)},
		{"dialer guest", domain.PageDialer, guest, denied(domain.PageHome)},
		{"dialer trial", domain.PageDialer, trial, ok},
		{"profile anonymous", domain.PageProfile, nil, denied(domain.PageSignIn)},
		{"profile guest", domain.PageProfile, guest, ok},
		{"admin anonymous", domain.PageAdminPortal, nil, denied(domain.PageSignIn)},
		{"admin standard", domain.PageAdminPortal, std, denied(domain.PageHome)},
		{"admin admin", domain.PageAdminPortal, admin, ok},
		{"sign-in anonymous", domain.PageSignIn, nil, ok},
		{"sign-in signed in", domain.PageSignIn, std, denied(domain.PageHome)},
		{"ai anonymous", domain.PageAI, nil, ok},
		{"ai guest", domain.PageAI, guest, ok},
		{"home anonymous", domain.PageHome, nil, ok},
		{"notepad anonymous", domain.PageNotepad, nil, ok},
		{"calculator guest", domain.PageCalculator, guest, ok},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, gate.Decide(tt.page, tt.user))
		})
	}
}

func TestDecide_DeterministicForEveryPage(t *testing.T) {
	for _, p := range domain.Pages {
		for _, u := range []*domain.User{nil, guest, trial, std, admin} {
			first := gate.Decide(p, u)
			assert.Equal(t, first, gate.Decide(p, u))
			assert.Equal(t, first.Accessible, first.Redirect == "", "redirect set iff inaccessible")
			assert.Equal(t, !first.Accessible, first.Loading())
			if !first.Accessible {
				assert.True(t, gate.Decide(first.Redirect, u).Accessible, "redirect target must be reachable")
			}
		}
	}
}

func TestDecide_Guest(t *testing.T) {
	assert.True(t, gate.Decide(domain.PageAI, guest).Accessible)
	assert.Equal(t, gate.Decision{Redirect: domain.PageHome}, gate.Decide(domain.PageDialer, guest))
}

type countingNavigator struct {
	pages []domain.Page
}

func (n *countingNavigator) Navigate(p domain.Page) { n.pages = append(n.pages, p) }

func TestGate_RedirectsOncePerChange(t *testing.T) {
	nav := &countingNavigator{}
	metrics := observability.NewMetrics()
	g := gate.New(nav, metrics, zap.NewNop())

	g.Evaluate(domain.PageDialer, guest)
	g.Evaluate(domain.PageDialer, guest)
	assert.Equal(t, []domain.Page{domain.PageHome}, nav.pages, "same page and identity: one redirect")

	g.Evaluate(domain.PageDialer, nil)
	assert.Equal(t, []domain.Page{domain.PageHome, domain.PageSignIn}, nav.pages, "identity change re-redirects")

	d := g.Evaluate(domain.PageDialer, std)
	assert.True(t, d.Accessible)
	assert.Len(t, nav.pages, 2)

	// Coming back after an accessible visit redirects again.
	g.Evaluate(domain.PageDialer, nil)
	assert.Len(t, nav.pages, 3)
}
