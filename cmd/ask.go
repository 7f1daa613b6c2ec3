package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/resolvo/resolvo/internal/app"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question and exit",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(_ *cobra.Command, args []string) error {
	question := strings.Join(args, " ")

	return withApp(func(ctx context.Context, a *app.App) error {
		sess, err := a.Sessions.Create(ctx, "")
		if err != nil {
			return fmt.Errorf("creating session: %w", err)
		}

		resp, err := a.Agent.Execute(ctx, sess.ID, question)
		if err != nil {
			return fmt.Errorf("answering question: %w", err)
		}

		fmt.Println(resp.FinalText)

		// The conversation is kept so a follow-up can resume it.
		fmt.Fprintf(rootCmd.ErrOrStderr(), "\n(session %s - resume with: resolvo chat --session %s)\n", sess.ID, sess.ID)
		return nil
	})
}
