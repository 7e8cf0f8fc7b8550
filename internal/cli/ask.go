package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lynixity/lynix-go/internal/domain"
)

func (e *env) askCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ask [prompt...]",
		Short: "Talk to the AI assistant",
		Long: `Ask the AI assistant one question, or start an interactive
conversation when no prompt is given. Type exit to leave.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.enter(domain.PageAI); err != nil {
				return err
			}
			if len(args) > 0 {
				return e.ask(cmd, strings.Join(args, " "))
			}
			for {
				line, err := e.readLine("> ")
				if err == io.EOF {
					fmt.Fprintln(e.out)
					return nil
				}
				if err != nil {
					return err
				}
				line = strings.TrimSpace(line)
				switch line {
				case "":
					continue
				case "exit", "quit":
					return nil
				}
				if err := e.ask(cmd, line); err != nil {
					return err
				}
			}
		},
	}
}

func (e *env) ask(cmd *cobra.Command, prompt string) error {
	answer, err := e.app.Assistant.Ask(ctxOf(cmd), prompt)
	if err != nil {
		return err
	}
	fmt.Fprintln(e.out, answer)
	if left := e.app.Assistant.Remaining(); left >= 0 {
		e.note("(%d prompts left in this session)", left)
	}
	return nil
}
