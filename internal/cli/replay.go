package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/vtree/internal/dom"
	"github.com/roach88/vtree/internal/mutation"
	"github.com/roach88/vtree/internal/replay"
	"github.com/roach88/vtree/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	HTML  bool   // print serialized HTML instead of the node tree
	Until uint64 // stop after this generation; zero replays everything
}

// ReplayResult is the document reconstructed from a session.
type ReplayResult struct {
	Session    string `json:"session"`
	Generation uint64 `json:"generation"`
	Batches    int    `json:"batches"`
	Elements   int    `json:"elements"`
	HTML       string `json:"html"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay [session-id]",
		Short: "Rebuild the document from a recorded session",
		Long: `Apply the recorded batches of a session to an empty document and print
the result. Without a session id the most recent session is replayed.

Examples:
  vtree replay
  vtree replay 01920c5e-... --until 3
  vtree replay --html`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var id string
			if len(args) == 1 {
				id = args[0]
			}
			return runReplay(opts, id, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.HTML, "html", false, "print HTML")
	cmd.Flags().Uint64Var(&opts.Until, "until", 0, "replay up to and including this generation")
	return cmd
}

func runReplay(opts *ReplayOptions, id string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := opts.openStore(false)
	if err != nil {
		return err
	}
	defer st.Close()

	var sess store.Session
	if id == "" {
		sess, err = st.LatestSession(ctx)
	} else {
		sess, err = st.GetSession(ctx, id)
	}
	if errors.Is(err, store.ErrSessionNotFound) {
		if id == "" {
			return NewExitError(ExitCommandError, "no sessions recorded")
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("session not found: %s", id))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}

	batches, err := st.ReadBatches(ctx, sess)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read batches", err)
	}
	if opts.Until > 0 {
		batches = untilGeneration(batches, opts.Until)
	}
	formatter.VerboseLog("replaying %d batches of session %s", len(batches), sess.ID)

	doc, err := replay.Replay(batches, replay.WithLogger(opts.Logger(cmd.ErrOrStderr())))
	if err != nil {
		return WrapExitError(ExitFailure, "replay diverged", err)
	}

	result := ReplayResult{
		Session:    sess.ID,
		Generation: doc.Generation(),
		Batches:    len(batches),
		Elements:   doc.Len(),
		HTML:       doc.HTML(),
	}

	return formatter.Emit(result, func(w io.Writer) error {
		if opts.HTML {
			if err := doc.Component().Render(ctx, w); err != nil {
				return err
			}
			_, err := fmt.Fprintln(w)
			return err
		}
		fmt.Fprintf(w, "Session %s at generation %d (%d batches, %d elements)\n",
			result.Session, result.Generation, result.Batches, result.Elements)
		writeTree(w, doc.Root(), 0)
		return nil
	})
}

func untilGeneration(batches []mutation.Batch, until uint64) []mutation.Batch {
	for i, b := range batches {
		if b.Generation > until {
			return batches[:i]
		}
	}
	return batches
}

func writeTree(w io.Writer, n *dom.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	switch n.Kind {
	case dom.KindRoot:
		fmt.Fprintf(w, "%sroot #0\n", indent)
	case dom.KindElement:
		var b strings.Builder
		b.WriteString(n.Tag)
		for _, a := range n.Attrs() {
			name := a.Name
			if a.Namespace != "" {
				name = a.Namespace + ":" + a.Name
			}
			fmt.Fprintf(&b, " %s=%q", name, a.Value)
		}
		if ls := n.Listeners(); len(ls) > 0 {
			fmt.Fprintf(&b, " [%s]", strings.Join(ls, ","))
		}
		fmt.Fprintf(w, "%s%s%s\n", indent, b.String(), nodeID(n))
	case dom.KindText:
		fmt.Fprintf(w, "%s%q%s\n", indent, n.Text, nodeID(n))
	case dom.KindPlaceholder:
		fmt.Fprintf(w, "%splaceholder%s\n", indent, nodeID(n))
	}
	for _, c := range n.Children {
		writeTree(w, c, depth+1)
	}
}

func nodeID(n *dom.Node) string {
	if n.ID == 0 {
		return ""
	}
	return fmt.Sprintf(" #%d", n.ID)
}
