package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/vtree/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Edits bool // print every mutation of each batch
}

// SessionSummary is one row of the session list.
type SessionSummary struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Encoding       string `json:"encoding"`
	Batches        int    `json:"batches"`
	Edits          int    `json:"edits"`
	Structural     int    `json:"structural"`
	LastGeneration uint64 `json:"last_generation"`
}

// BatchSummary describes one recorded batch.
type BatchSummary struct {
	Generation uint64   `json:"generation"`
	Edits      int      `json:"edits"`
	Structural int      `json:"structural"`
	Mutations  []string `json:"mutations,omitempty"`
}

// SessionTrace is the detail view of one session.
type SessionTrace struct {
	Session SessionSummary `json:"session"`
	Batches []BatchSummary `json:"batches"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace [session-id]",
		Short: "Inspect recorded sessions",
		Long: `List the sessions in the trace database with batch statistics, or
show the batches of one session.

Examples:
  vtree trace --db trace.db
  vtree trace 01920c5e-... --edits`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runTraceList(opts, cmd)
			}
			return runTraceSession(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Edits, "edits", false, "print each mutation")
	return cmd
}

func runTraceList(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	st, err := opts.openStore(false)
	if err != nil {
		return err
	}
	defer st.Close()

	sessions, err := st.ListSessions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list sessions", err)
	}

	summaries := make([]SessionSummary, 0, len(sessions))
	for _, sess := range sessions {
		s, err := summarizeSession(cmd, st, sess)
		if err != nil {
			return err
		}
		summaries = append(summaries, s)
	}

	return newFormatter(opts.RootOptions, cmd).Emit(summaries, func(w io.Writer) error {
		if len(summaries) == 0 {
			fmt.Fprintln(w, "No sessions recorded.")
			return nil
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tENCODING\tBATCHES\tEDITS\tSTRUCTURAL\tGENERATION")
		for _, s := range summaries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
				s.ID, s.Name, s.Encoding, s.Batches, s.Edits, s.Structural, s.LastGeneration)
		}
		return tw.Flush()
	})
}

func runTraceSession(opts *TraceOptions, id string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	st, err := opts.openStore(false)
	if err != nil {
		return err
	}
	defer st.Close()

	sess, err := st.GetSession(ctx, id)
	if errors.Is(err, store.ErrSessionNotFound) {
		return NewExitError(ExitCommandError, fmt.Sprintf("session not found: %s", id))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}

	summary, err := summarizeSession(cmd, st, sess)
	if err != nil {
		return err
	}
	batches, err := st.ReadBatches(ctx, sess)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read batches", err)
	}

	trace := SessionTrace{Session: summary, Batches: make([]BatchSummary, len(batches))}
	for i, b := range batches {
		bs := BatchSummary{Generation: b.Generation, Edits: len(b.Edits)}
		for _, m := range b.Edits {
			if m.Kind.Structural() {
				bs.Structural++
			}
			if opts.Edits {
				bs.Mutations = append(bs.Mutations, m.String())
			}
		}
		trace.Batches[i] = bs
	}

	return newFormatter(opts.RootOptions, cmd).Emit(trace, func(w io.Writer) error {
		s := trace.Session
		fmt.Fprintf(w, "Session %s (%s, %s)\n", s.ID, s.Name, s.Encoding)
		fmt.Fprintf(w, "%d batches, %d edits, %d structural\n", s.Batches, s.Edits, s.Structural)
		for _, b := range trace.Batches {
			fmt.Fprintf(w, "  gen=%d edits=%d structural=%d\n", b.Generation, b.Edits, b.Structural)
			for _, m := range b.Mutations {
				fmt.Fprintf(w, "    %s\n", m)
			}
		}
		return nil
	})
}

func summarizeSession(cmd *cobra.Command, st *store.Store, sess store.Session) (SessionSummary, error) {
	stats, err := st.Stats(cmd.Context(), sess)
	if err != nil {
		return SessionSummary{}, WrapExitError(ExitCommandError, "failed to read session stats", err)
	}
	return SessionSummary{
		ID:             sess.ID,
		Name:           sess.Name,
		Encoding:       string(sess.Encoding),
		Batches:        stats.Batches,
		Edits:          stats.Edits,
		Structural:     stats.Structural,
		LastGeneration: stats.LastGeneration,
	}, nil
}
