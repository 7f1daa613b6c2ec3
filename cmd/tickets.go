package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/resolvo/resolvo/internal/app"
	"github.com/resolvo/resolvo/internal/ticket"
)

var ticketStatusFilter string

var ticketsCmd = &cobra.Command{
	Use:   "tickets",
	Short: "Manage escalated support tickets",
}

var ticketsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tickets, newest first",
	RunE:  runTicketsList,
}

var ticketsShowCmd = &cobra.Command{
	Use:   "show <ticket-id>",
	Short: "Show one ticket in full",
	Args:  cobra.ExactArgs(1),
	RunE:  runTicketsShow,
}

var ticketsRespondCmd = &cobra.Command{
	Use:   "respond <ticket-id> <response...>",
	Short: "Record a human answer and close the ticket",
	Long: `Records the human response and closes the ticket. Future questions that
closely match the ticket's issue will reuse this answer automatically.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runTicketsRespond,
}

func init() {
	ticketsListCmd.Flags().StringVar(&ticketStatusFilter, "status", "", "filter by status (open|closed)")
	ticketsCmd.AddCommand(ticketsListCmd, ticketsShowCmd, ticketsRespondCmd)
	rootCmd.AddCommand(ticketsCmd)
}

func runTicketsList(_ *cobra.Command, _ []string) error {
	if ticketStatusFilter != "" &&
		ticketStatusFilter != ticket.StatusOpen && ticketStatusFilter != ticket.StatusClosed {
		return fmt.Errorf("status must be open or closed, got %q", ticketStatusFilter)
	}

	return withApp(func(ctx context.Context, a *app.App) error {
		tickets, err := a.Tickets.List(ctx, ticketStatusFilter, 100, 0)
		if err != nil {
			return fmt.Errorf("listing tickets: %w", err)
		}
		if len(tickets) == 0 {
			fmt.Println("No tickets.")
			return nil
		}

		for _, t := range tickets {
			fmt.Printf("%s  [%s]  %s  %s\n",
				t.TicketID, t.Status, t.CreatedAt.Format("2006-01-02 15:04"), summarize(t.Issue, 60))
		}
		return nil
	})
}

func runTicketsShow(_ *cobra.Command, args []string) error {
	id := normalizeTicketID(args[0])
	if !ticket.ValidTicketID(id) {
		return fmt.Errorf("invalid ticket id %q", args[0])
	}

	return withApp(func(ctx context.Context, a *app.App) error {
		t, err := a.Tickets.Get(ctx, id)
		if err != nil {
			return err
		}

		fmt.Printf("Ticket:    %s\n", t.TicketID)
		fmt.Printf("Status:    %s\n", t.Status)
		fmt.Printf("Requester: %s\n", t.Requester)
		fmt.Printf("Created:   %s\n", t.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("Issue:\n  %s\n", t.Issue)
		if t.Response != "" {
			fmt.Printf("Response:\n  %s\n", t.Response)
		}
		return nil
	})
}

func runTicketsRespond(_ *cobra.Command, args []string) error {
	id := normalizeTicketID(args[0])
	if !ticket.ValidTicketID(id) {
		return fmt.Errorf("invalid ticket id %q", args[0])
	}
	response := strings.Join(args[1:], " ")

	return withApp(func(ctx context.Context, a *app.App) error {
		if err := a.Tickets.Respond(ctx, id, response); err != nil {
			return err
		}
		fmt.Printf("Ticket %s resolved.\n", id)
		return nil
	})
}

func normalizeTicketID(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// summarize truncates s to at most n runes for one-line listings.
func summarize(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
