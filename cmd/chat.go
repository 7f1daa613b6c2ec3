package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/resolvo/resolvo/internal/agent"
	"github.com/resolvo/resolvo/internal/app"
)

var chatSessionID string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive support conversation",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatSessionID, "session", "", "resume an existing session by UUID")
	rootCmd.AddCommand(chatCmd)
}

func runChat(_ *cobra.Command, _ []string) error {
	return withApp(func(ctx context.Context, a *app.App) error {
		sessionID, fresh, err := resolveSession(ctx, a)
		if err != nil {
			return err
		}

		fmt.Printf("Resolvo %s - type your question, or 'quit' to leave.\n", AppVersion)
		fmt.Printf("Session: %s\n\n", sessionID)

		scanner := bufio.NewScanner(os.Stdin)
		firstTurn := fresh
		for {
			fmt.Print("you> ")
			if !scanner.Scan() {
				fmt.Println("\nGoodbye!")
				break
			}

			input := strings.TrimSpace(scanner.Text())
			if input == "" {
				continue
			}
			if isQuitCommand(input) || agent.IsGoodbye(input) {
				fmt.Println("Goodbye! Have a great day.")
				break
			}

			fmt.Print("resolvo> ")
			// Chunks are printed by the callback; fast-path responses
			// arrive as a single synthetic chunk.
			if _, err := a.Agent.ExecuteStream(ctx, sessionID, input, printChunk); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				fmt.Fprintf(os.Stderr, "\nerror: %v\n", err)
				continue
			}
			fmt.Println()

			if firstTurn {
				firstTurn = false
				if title := a.Agent.GenerateTitle(ctx, input); title != "" {
					_ = a.Sessions.SetTitle(ctx, sessionID, title)
				}
			}
		}

		if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("reading input: %w", err)
		}
		return nil
	})
}

// quitCommands exit the REPL without being sent to the agent.
var quitCommands = map[string]bool{
	"quit": true, "exit": true, "q": true,
}

// isQuitCommand reports whether input is a REPL exit command.
func isQuitCommand(input string) bool {
	return quitCommands[strings.ToLower(strings.TrimSpace(input))]
}

// resolveSession resumes the --session UUID or creates a fresh session.
// The second return value reports whether the session is new.
func resolveSession(ctx context.Context, a *app.App) (uuid.UUID, bool, error) {
	if chatSessionID != "" {
		id, err := uuid.Parse(chatSessionID)
		if err != nil {
			return uuid.Nil, false, fmt.Errorf("invalid session id %q: %w", chatSessionID, err)
		}
		if _, err := a.Sessions.Get(ctx, id); err != nil {
			return uuid.Nil, false, fmt.Errorf("resuming session: %w", err)
		}
		return id, false, nil
	}

	sess, err := a.Sessions.Create(ctx, "")
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("creating session: %w", err)
	}
	return sess.ID, true, nil
}

// printChunk writes streamed text parts to stdout as they arrive.
func printChunk(_ context.Context, chunk *ai.ModelResponseChunk) error {
	if chunk == nil {
		return nil
	}
	for _, part := range chunk.Content {
		if part.Text != "" {
			fmt.Print(part.Text)
		}
	}
	return nil
}
