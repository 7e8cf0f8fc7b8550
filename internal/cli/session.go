package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lynixity/lynix-go/internal/domain"
	"github.com/lynixity/lynix-go/internal/gate"
)

func (e *env) loginCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login <username|email|sip-id>",
		Short: "Sign in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.enter(domain.PageSignIn); err != nil {
				return err
			}
			password, _ := cmd.Flags().GetString("password")
			if password == "" {
				line, err := e.readLine("Password: ")
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				password = line
			}
			if !e.app.Session.SignIn(ctxOf(cmd), args[0], password) {
				return errors.New("invalid credentials")
			}
			u := e.app.Session.Identity()
			e.ok("Signed in as %s (%s)", u.Username, u.Role)
			return nil
		},
	}
	cmd.Flags().StringP("password", "p", "", "password (prompted when omitted)")
	return cmd
}

func (e *env) guestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "guest",
		Short: "Continue as guest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.enter(domain.PageSignIn); err != nil {
				return err
			}
			e.app.Session.SignInAsGuest(ctxOf(cmd))
			e.ok("Signed in as guest")
			return nil
		},
	}
}

func (e *env) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e.app.Session.SignOut(ctxOf(cmd))
			e.ok("Signed out")
			return nil
		},
	}
}

func (e *env) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in profile",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if e.app.Session.Identity() == nil {
				fmt.Fprintln(e.out, "Not signed in")
				return nil
			}
			if err := e.enter(domain.PageProfile); err != nil {
				return err
			}
			u := e.app.Session.Identity()
			fmt.Fprintf(e.out, "Username: %s\n", u.Username)
			fmt.Fprintf(e.out, "Email:    %s\n", deref(u.Email))
			fmt.Fprintf(e.out, "SIP ID:   %s\n", deref(u.SipTalkID))
			fmt.Fprintf(e.out, "Role:     %s\n", u.Role)
			fmt.Fprintf(e.out, "Billing:  %s\n", u.BillingStatus)
			fmt.Fprintf(e.out, "Features: %s\n", featureList(u.Features))
			fmt.Fprintf(e.out, "Theme:    %s\n", e.app.Session.Theme())
			return nil
		},
	}
}

func (e *env) themeCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "theme [toggle]",
		Short:     "Show or toggle the theme",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"toggle"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				e.ok("Theme is now %s", e.app.Session.ToggleTheme(ctxOf(cmd)))
				return nil
			}
			fmt.Fprintln(e.out, e.app.Session.Theme())
			return nil
		},
	}
}

func (e *env) openCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "open <page>",
		Short: "Navigate to a page and report where the app lands",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			page, ok := domain.ParsePage(args[0])
			if !ok {
				return &domain.ErrValidation{Field: "page", Message: fmt.Sprintf("unknown page %q", args[0])}
			}
			landed, d := e.app.Open(page)
			if d.Accessible {
				e.ok("%s", landed)
				return nil
			}
			fmt.Fprintln(e.out, gate.LoadingText)
			fmt.Fprintf(e.out, "→ %s\n", landed)
			return nil
		},
	}
}

func (e *env) pagesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pages",
		Short: "List every page and whether the current identity may open it",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			u := e.app.Session.Identity()
			t := e.table("Page", "Access")
			for _, p := range domain.Pages {
				d := gate.Decide(p, u)
				access := success.Sprint("yes")
				if !d.Accessible {
					access = failure.Sprintf("→ %s", d.Redirect)
				}
				t.Append([]string{string(p), access})
			}
			t.Render()
			return nil
		},
	}
}

func featureList(f domain.UserFeatures) string {
	var on []string
	for _, feat := range []domain.Feature{domain.FeatureMail, domain.FeatureChat, domain.FeatureDialer, domain.FeatureAI} {
		if f.Enabled(feat) {
			on = append(on, string(feat))
		}
	}
	if len(on) == 0 {
		return "none"
	}
	return strings.Join(on, ",")
}

func parseFeatures(names []string) (domain.UserFeatures, error) {
	var f domain.UserFeatures
	for _, n := range names {
		switch domain.Feature(strings.ToLower(strings.TrimSpace(n))) {
		case domain.FeatureMail:
			f.Mail = true
		case domain.FeatureChat:
			f.Chat = true
		case domain.FeatureDialer:
			f.Dialer = true
		case domain.FeatureAI:
			f.AI = true
		case "", "none":
		default:
			return f, &domain.ErrValidation{Field: "features", Message: fmt.Sprintf("unknown feature %q", n)}
		}
	}
	return f, nil
}
