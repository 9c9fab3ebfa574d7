package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/zioerenkl/AnonymityEngine/internal/config"
	"github.com/zioerenkl/AnonymityEngine/internal/history"
	"github.com/zioerenkl/AnonymityEngine/internal/report"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past rotation sessions",
		Long: `History lists rotation sessions recorded in the local database.

Without flags it prints a one-line-per-session table. Use --session to
show one session in full, including every rotation event.

Examples:
  # List the ten most recent sessions
  anonymity-engine history --last 10

  # Show one session with all rotation events
  anonymity-engine history --session 3

  # Dump a session as JSON or Markdown
  anonymity-engine history --session 3 --json
  anonymity-engine history --session 3 --markdown`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("last", "l", 0, "Show only the N most recent sessions")
	cmd.Flags().Int64("session", 0, "Show one session in full by id")
	cmd.Flags().BoolP("json", "j", false, "Output JSON (with --session)")
	cmd.Flags().BoolP("markdown", "m", false, "Output Markdown (with --session)")
	cmd.Flags().String("history-dir", "", "History database directory (default: XDG data directory)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	dir, err := cmd.Flags().GetString("history-dir")
	if err != nil {
		return err
	}
	if dir == "" {
		dir = config.XDGDataDir()
	}

	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	asMarkdown, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if asJSON && asMarkdown {
		return fmt.Errorf("--json and --markdown are mutually exclusive")
	}

	store, err := history.Open(dir, history.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return fmt.Errorf("no history yet: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	sessionID, err := cmd.Flags().GetInt64("session")
	if err != nil {
		return err
	}
	if sessionID > 0 {
		return showSession(cmd, store, sessionID, asJSON, asMarkdown)
	}

	limit, err := cmd.Flags().GetInt("last")
	if err != nil {
		return err
	}
	return listSessions(cmd, store, limit)
}

// showSession prints one session in full.
func showSession(cmd *cobra.Command, store *history.Store, id int64, asJSON, asMarkdown bool) error {
	summary, err := store.GetSession(cmd.Context(), id)
	if err != nil {
		return err
	}

	var writer report.Writer
	switch {
	case asJSON:
		writer = report.NewJSONWriter(cmd.OutOrStdout(), report.WithPrettyPrint())
	case asMarkdown:
		writer = report.NewMarkdownWriter(cmd.OutOrStdout())
	default:
		writer = report.NewSimpleWriter(cmd.OutOrStdout(), report.WithVerbose(true))
	}

	_, err = writer.Write(summary)
	return err
}

// listSessions prints the session table.
func listSessions(cmd *cobra.Command, store *history.Store, limit int) error {
	sessions, err := store.ListSessions(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No sessions recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tDURATION\tINTERVAL\tCHANGES\tFINAL IP\tENDED BY")
	for _, s := range sessions {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d/%d\t%s\t%s\n",
			s.ID,
			s.StartedAt.Local().Format("2006-01-02 15:04"),
			s.Duration().Round(time.Second),
			s.Interval,
			s.Changes, s.Attempts,
			s.FinalIP,
			s.Cause,
		)
	}
	return w.Flush()
}
