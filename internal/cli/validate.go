package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/vtree/internal/compiler"
)

// Finding is one load error or lint result.
type Finding struct {
	Template string `json:"template,omitempty"`
	Field    string `json:"field,omitempty"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Position string `json:"position,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool      `json:"valid"`
	Files     int       `json:"files"`
	Templates []string  `json:"templates"`
	Findings  []Finding `json:"findings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [templates-dir]",
		Short: "Compile and lint CUE template definitions",
		Long: `Compile every template under "template" in a CUE package and lint it.

Compile errors (missing roots, malformed nodes, bad slot numbers) and
lint findings (invalid tag or attribute names, children on void
elements, static on* handlers) are reported together. Without an
argument the template directories from vtree.toml are checked.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs := rootOpts.Settings().TemplateDirPaths()
			if len(args) == 1 {
				dirs = args[:1]
			}
			return runValidate(rootOpts, dirs, cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, dirs []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	result := ValidationResult{Valid: true, Templates: []string{}}

	for _, dir := range dirs {
		loaded, errs := compiler.LoadDir(dir, compiler.LoadModeCollectAll)
		if loaded == nil {
			code, msg := compiler.ErrCodeGeneric, "failed to load templates"
			var loadErr *compiler.LoadError
			if len(errs) > 0 && errors.As(errs[0], &loadErr) {
				code, msg = loadErr.Code, loadErr.Message
			}
			if err := formatter.Error(code, msg, nil); err != nil {
				return err
			}
			return NewExitError(ExitCommandError, msg)
		}
		formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, dir)
		result.Files += loaded.FileCount

		for _, err := range errs {
			result.Findings = append(result.Findings, loadFinding(err))
		}
		for _, t := range loaded.Templates {
			formatter.VerboseLog("Linting template: %s", t.ID)
			result.Templates = append(result.Templates, string(t.ID))
			for _, v := range compiler.Validate(t) {
				result.Findings = append(result.Findings, Finding{
					Template: string(t.ID),
					Field:    v.Field,
					Code:     v.Code,
					Message:  v.Message,
				})
			}
		}
	}
	result.Valid = len(result.Findings) == 0

	if err := formatter.Emit(result, func(w io.Writer) error {
		return writeValidateText(w, result)
	}); err != nil {
		return err
	}
	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%d finding(s)", len(result.Findings)))
	}
	return nil
}

func loadFinding(err error) Finding {
	var loadErr *compiler.LoadError
	if !errors.As(err, &loadErr) {
		return Finding{Code: compiler.ErrCodeGeneric, Message: err.Error()}
	}
	f := Finding{Code: loadErr.Code, Message: loadErr.Message}
	if loadErr.Pos.IsValid() {
		f.Position = fmt.Sprintf("%s:%d:%d", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column())
	}
	return f
}

func writeValidateText(w io.Writer, result ValidationResult) error {
	if result.Valid {
		fmt.Fprintf(w, "OK: %d template(s) in %d file(s)\n", len(result.Templates), result.Files)
		return nil
	}
	fmt.Fprintf(w, "Validation failed: %d finding(s)\n", len(result.Findings))
	for _, f := range result.Findings {
		switch {
		case f.Position != "":
			fmt.Fprintf(w, "  %s: [%s] %s\n", f.Position, f.Code, f.Message)
		case f.Template != "":
			fmt.Fprintf(w, "  %s %s: [%s] %s\n", f.Template, f.Field, f.Code, f.Message)
		default:
			fmt.Fprintf(w, "  [%s] %s\n", f.Code, f.Message)
		}
	}
	return nil
}
