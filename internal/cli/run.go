package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/vtree/internal/harness"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Record bool // record batches into the trace database
}

// FrameSummary is the JSON form of one frame.
type FrameSummary struct {
	Name       string   `json:"name"`
	Generation uint64   `json:"generation"`
	Edits      int      `json:"edits"`
	Structural int      `json:"structural"`
	HTML       string   `json:"html"`
	Mutations  []string `json:"mutations,omitempty"`
	Handled    []string `json:"handled,omitempty"`
}

// RunResult is the JSON form of a scenario run.
type RunResult struct {
	Scenario string         `json:"scenario"`
	Pass     bool           `json:"pass"`
	Frames   []FrameSummary `json:"frames"`
	Errors   []string       `json:"errors,omitempty"`
	Session  string         `json:"session,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Render a scenario frame by frame",
		Long: `Render a YAML scenario against a fresh virtual DOM.

Each frame's batch is encoded, decoded and replayed into a reference
document, which must match the engine's own view of the tree. With
--record the batches are also stored as a new trace session.

Examples:
  vtree run scenarios/list.yaml
  vtree run scenarios/list.yaml --record --db trace.db
  vtree run scenarios/list.yaml -v --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioCommand(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Record, "record", false, "record committed batches in the trace database")
	return cmd
}

func runScenarioCommand(opts *RunOptions, path string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := newFormatter(opts.RootOptions, cmd)

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	runOpts := []harness.Option{harness.WithLogger(opts.Logger(cmd.ErrOrStderr()))}
	var sessionID string
	if opts.Record {
		st, err := opts.openStore(true)
		if err != nil {
			return err
		}
		defer st.Close()

		enc, err := opts.BatchEncoding()
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid batch encoding", err)
		}
		sess, err := st.CreateSession(ctx, scenario.Name, enc)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create session", err)
		}
		sessionID = sess.ID
		runOpts = append(runOpts, harness.WithRecorder(st.Recorder(ctx, sess)))
		formatter.VerboseLog("Recording session %s (%s) in %s", sess.ID, enc, opts.DBPath())
	}

	result, err := harness.Run(ctx, scenario, runOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "scenario could not run", err)
	}

	summary := summarize(scenario.Name, result, opts.Verbose)
	summary.Session = sessionID
	if err := formatter.Emit(summary, func(w io.Writer) error {
		return writeRunText(w, summary, opts.Verbose)
	}); err != nil {
		return err
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}

func summarize(name string, result *harness.Result, withMutations bool) RunResult {
	summary := RunResult{
		Scenario: name,
		Pass:     result.Pass,
		Frames:   make([]FrameSummary, len(result.Frames)),
		Errors:   result.Errors,
	}
	for i := range result.Frames {
		f := &result.Frames[i]
		fs := FrameSummary{
			Name:       f.Name,
			Generation: f.Generation,
			Edits:      len(f.Edits),
			Structural: f.Structural(),
			HTML:       f.HTML,
			Handled:    f.Handled,
		}
		if withMutations {
			fs.Mutations = f.Lines()
		}
		summary.Frames[i] = fs
	}
	return summary
}

func writeRunText(w io.Writer, r RunResult, verbose bool) error {
	edits := 0
	for _, f := range r.Frames {
		edits += f.Edits
	}
	fmt.Fprintf(w, "Scenario: %s (%d frames, %d edits)\n", r.Scenario, len(r.Frames), edits)
	for i, f := range r.Frames {
		fmt.Fprintf(w, "  [%d] %-12s gen=%d edits=%d structural=%d\n", i+1, f.Name, f.Generation, f.Edits, f.Structural)
		for _, h := range f.Handled {
			fmt.Fprintf(w, "      handled %s\n", h)
		}
		if verbose {
			for _, m := range f.Mutations {
				fmt.Fprintf(w, "      %s\n", m)
			}
		}
		fmt.Fprintf(w, "      %s\n", f.HTML)
	}
	if r.Session != "" {
		fmt.Fprintf(w, "Recorded session %s\n", r.Session)
	}

	if r.Pass {
		fmt.Fprintln(w, "PASS")
		return nil
	}
	fmt.Fprintln(w, "FAIL")
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
	return nil
}
