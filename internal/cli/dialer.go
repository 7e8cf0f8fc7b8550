package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/lynixity/lynix-go/internal/dialer"
	"github.com/lynixity/lynix-go/internal/domain"
)

const pollInterval = 20 * time.Millisecond

func (e *env) dialCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dial <number>",
		Short: "Place a simulated call",
		Long: `Place a simulated call. The number goes through the keypad, so only
0-9, * and # are kept and at most 15 keys are accepted. Calls to 555 fail.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.enter(domain.PageDialer); err != nil {
				return err
			}
			var pad dialer.Keypad
			if n := pad.Type(args[0]); n < len([]rune(args[0])) {
				e.note("ignored %d key(s)", len([]rune(args[0]))-n)
			}
			if err := e.app.Dialer.Dial(pad.String()); err != nil {
				return err
			}
			fmt.Fprintf(e.out, "Calling %s...\n", pad.String())

			ctx := ctxOf(cmd)
			s := e.waitWhile(ctx, domain.CallCalling)
			if s.Status == domain.CallConnected {
				success.Fprintln(e.out, "Connected")
				hold, _ := cmd.Flags().GetDuration("hold")
				select {
				case <-time.After(hold):
				case <-ctx.Done():
				}
			}

			rec := e.app.Dialer.End(context.WithoutCancel(ctx))
			if rec == nil {
				return nil
			}
			if rec.Status == domain.CallFailed {
				failure.Fprintf(e.out, "Call to %s failed\n", rec.DialedNumber)
				return nil
			}
			e.ok("Call to %s ended after %ds", rec.DialedNumber, rec.DurationSeconds)
			return nil
		},
	}
	cmd.Flags().Duration("hold", 5*time.Second, "how long to stay on a connected call")
	return cmd
}

// waitWhile polls the dialer until it leaves status or ctx ends.
func (e *env) waitWhile(ctx context.Context, status domain.CallStatus) dialer.Session {
	t := time.NewTicker(pollInterval)
	defer t.Stop()
	for {
		s := e.app.Dialer.Session()
		if s.Status != status {
			return s
		}
		select {
		case <-ctx.Done():
			return s
		case <-t.C:
		}
	}
}

func (e *env) callsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "calls",
		Short: "Show the call history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.enter(domain.PageDialer); err != nil {
				return err
			}
			records, err := e.app.Calls.List(ctxOf(cmd))
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(e.out, "No calls yet")
				return nil
			}
			t := e.table("Number", "Status", "Started", "Duration")
			for _, r := range records {
				status := success.Sprint(r.Status)
				if r.Status == domain.CallFailed {
					status = failure.Sprint(r.Status)
				}
				t.Append([]string{
					r.DialedNumber,
					status,
					r.StartedAt.Format("2006-01-02 15:04:05"),
					strconv.FormatInt(r.DurationSeconds, 10) + "s",
				})
			}
			t.Render()
			return nil
		},
	}
}
