package cli

import (
	"bufio"
	"fmt"
	"strings"

	"ecogarden-sync-go/internal/sandbox"

	"github.com/spf13/cobra"
)

func (a *app) sandboxCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sandbox",
		Short: "Chat with the offline demo garden",
		Long: `Starts an offline garden that reacts to chat messages, for example
"I took the bus", "praise" or "water". Levels here follow the demo xp rule and
are unrelated to your real garden. Type 'quit' to leave.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			session := sandbox.NewSession(cfg.Sandbox, nil)
			defer session.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, sandbox.Greeting)

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(out, "> ")
				if !scanner.Scan() {
					break
				}
				text := strings.TrimSpace(scanner.Text())
				if text == "" {
					continue
				}
				if text == "quit" || text == "exit" {
					break
				}

				reply, state := session.Interpret(text)
				fmt.Fprintln(out, reply)
				fmt.Fprintln(out, state)
			}
			return scanner.Err()
		},
	}
}
