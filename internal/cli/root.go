// Package cli is the lynixctl command tree. Each command opens the page it
// renders through the navigation gate before touching any data, so an
// identity sees exactly what the web app would show it.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lynixity/lynix-go/internal/app"
	"github.com/lynixity/lynix-go/internal/assistant"
	"github.com/lynixity/lynix-go/internal/dialer"
	"github.com/lynixity/lynix-go/internal/domain"
	"github.com/lynixity/lynix-go/internal/gate"
	"github.com/lynixity/lynix-go/internal/infra/observability"
)

// EnvPrefix prefixes every environment variable the CLI reads.
const EnvPrefix = "LYNIX"

var (
	success = color.New(color.FgGreen)
	failure = color.New(color.FgRed)
	muted   = color.New(color.Faint)
)

// PageError reports a page the gate turned the current identity away from.
type PageError struct {
	Page   domain.Page
	Landed domain.Page
}

func (e *PageError) Error() string {
	return fmt.Sprintf("%s is not available, redirected to %s", e.Page, e.Landed)
}

// env is the state shared by every command of one invocation.
type env struct {
	v   *viper.Viper
	app *app.App
	out io.Writer
	in  *bufio.Reader
}

// Run executes lynixctl with args and releases the workspace afterwards.
func Run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	root, e := newRoot()
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)
	defer e.close()
	return root.ExecuteContext(ctx)
}

// newRoot builds the lynixctl command tree.
func newRoot() (*cobra.Command, *env) {
	e := &env{v: viper.New()}

	root := &cobra.Command{
		Use:   "lynixctl",
		Short: "Lynix workspace from the terminal",
		Long: `lynixctl drives a Lynix workspace against a running server.

The session, theme and call history are kept in local storage between runs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.open(cmd)
		},
	}

	f := root.PersistentFlags()
	f.String("server", "http://localhost:8080", "Lynix server base URL")
	f.String("state", defaultStatePath(), "local storage file")
	f.String("redis", "", "redis URL for local storage (overrides --state)")
	f.Int("guest-quota", assistant.DefaultGuestQuota, "AI prompts a guest session may send per hour")
	f.Duration("call-delay", dialer.DefaultDelay, "how long a call rings before it resolves")
	f.Duration("timeout", 30*time.Second, "HTTP timeout")
	f.Int("retries", 2, "retries for failed server calls")
	f.String("log-level", "error", "log level (debug, info, warn, error)")
	_ = e.v.BindPFlags(f)

	e.v.SetEnvPrefix(EnvPrefix)
	e.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	e.v.AutomaticEnv()

	root.AddCommand(
		e.loginCommand(),
		e.guestCommand(),
		e.logoutCommand(),
		e.whoamiCommand(),
		e.themeCommand(),
		e.openCommand(),
		e.pagesCommand(),
		e.notesCommand(),
		e.contactsCommand(),
		e.chatCommand(),
		e.mailCommand(),
		e.usersCommand(),
		e.dialCommand(),
		e.callsCommand(),
		e.askCommand(),
	)
	return root, e
}

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".lynix-state.json"
	}
	return filepath.Join(dir, "lynix", "state.json")
}

func (e *env) open(cmd *cobra.Command) error {
	e.out = cmd.OutOrStdout()
	e.in = bufio.NewReader(cmd.InOrStdin())

	cfg := app.Config{
		Server:         e.v.GetString("server"),
		StatePath:      e.v.GetString("state"),
		RedisURL:       e.v.GetString("redis"),
		GuestQuota:     e.v.GetInt("guest-quota"),
		CallDelay:      e.v.GetDuration("call-delay"),
		HTTPTimeout:    e.v.GetDuration("timeout"),
		MaxRetries:     e.v.GetInt("retries"),
		InitialBackoff: 200 * time.Millisecond,
	}
	logger := observability.NewLogger(e.v.GetString("log-level"))

	a, err := app.Open(ctxOf(cmd), cfg, observability.NewMetrics(), logger)
	if err != nil {
		return fmt.Errorf("open local storage: %w", err)
	}
	e.app = a
	return nil
}

func (e *env) close() {
	if e.app != nil {
		e.app.Close()
		e.app = nil
	}
}

// enter opens page and fails when the gate does not let the identity in.
func (e *env) enter(page domain.Page) error {
	landed, d := e.app.Open(page)
	if d.Accessible {
		return nil
	}
	fmt.Fprintln(e.out, gate.LoadingText)
	return &PageError{Page: page, Landed: landed}
}

// owner returns the signed-in user's id.
func (e *env) owner() int64 {
	if u := e.app.Session.Identity(); u != nil {
		return u.ID
	}
	return 0
}

func (e *env) ok(format string, args ...any) {
	success.Fprintf(e.out, "✓ "+format+"\n", args...)
}

func (e *env) note(format string, args ...any) {
	muted.Fprintf(e.out, format+"\n", args...)
}

func (e *env) table(header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(e.out)
	t.SetHeader(header)
	t.SetBorder(true)
	t.SetRowLine(false)
	t.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	return t
}

// readLine prints prompt and returns the next input line without its
// newline. io.EOF is returned only when nothing was read.
func (e *env) readLine(prompt string) (string, error) {
	if prompt != "" {
		fmt.Fprint(e.out, prompt)
	}
	line, err := e.in.ReadString('\n')
	if err == io.EOF && line != "" {
		err = nil
	}
	return strings.TrimRight(line, "\r\n"), err
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, &domain.ErrValidation{Field: "id", Message: fmt.Sprintf("invalid id %q", s)}
	}
	return id, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func millis(ms int64) string {
	return time.UnixMilli(ms).Format("2006-01-02 15:04")
}

func ctxOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
