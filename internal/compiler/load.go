package compiler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/vtree/internal/template"
)

// LoadMode controls how errors are handled during loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the templates loaded from CUE sources.
type LoadResult struct {
	Templates []*template.Template
	FileCount int
}

// Registry returns a registry holding every loaded template.
func (r *LoadResult) Registry() (*template.Registry, error) {
	return template.NewRegistry(r.Templates...)
}

// Lookup returns the loaded template with id.
func (r *LoadResult) Lookup(id template.ID) (*template.Template, bool) {
	for _, t := range r.Templates {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// LoadError represents an error that occurred during loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants, shared with the CLI.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeDuplicate   = "E008" // Same template id with different shapes

	ErrCodeTemplateID    = "E101" // Missing template id
	ErrCodeTemplateRoots = "E102" // Missing or empty roots
	ErrCodeTemplateNode  = "E103" // Malformed node or attribute
	ErrCodeTemplateSlot  = "E104" // Bad slot number
)

// LoadDir loads every CUE file in dir as one instance and compiles the
// templates under "template".
func LoadDir(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("templates directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing templates directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{FileCount: len(cueFiles)}
	errs := extractTemplates(value, mode, result)
	return result, errs
}

// LoadFiles compiles each file on its own and merges the templates. A
// template id defined twice with different shapes is an error.
func LoadFiles(mode LoadMode, paths ...string) (*LoadResult, []error) {
	result := &LoadResult{}
	var errs []error
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("reading %s: %v", path, err)})
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		part, partErrs := CompileSource(path, string(data), mode)
		errs = append(errs, partErrs...)
		if part != nil {
			errs = append(errs, merge(result, part.Templates)...)
			result.FileCount++
		}
		if len(errs) > 0 && mode == LoadModeFailFast {
			return result, errs
		}
	}
	sortTemplates(result)
	return result, errs
}

// CompileSource compiles CUE source text. filename is used for positions.
func CompileSource(filename, src string, mode LoadMode) (*LoadResult, []error) {
	ctx := cuecontext.New()
	value := ctx.CompileString(src, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, []error{convertCompileError(formatCUEError(err), filename)}
	}
	result := &LoadResult{FileCount: 1}
	errs := extractTemplates(value, mode, result)
	return result, errs
}

func extractTemplates(value cue.Value, mode LoadMode, result *LoadResult) []error {
	var errs []error

	tplsVal := value.LookupPath(cue.ParsePath("template"))
	if !tplsVal.Exists() {
		return []error{&LoadError{Code: ErrCodeGeneric, Message: "no templates found"}}
	}

	iter, err := tplsVal.Fields()
	if err != nil {
		return []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating templates: %v", err)}}
	}
	for iter.Next() {
		tpl, err := CompileTemplate(iter.Value())
		if err != nil {
			errs = append(errs, convertCompileError(err, "template."+iter.Label()))
			if mode == LoadModeFailFast {
				return errs
			}
			continue
		}
		errs = append(errs, merge(result, []*template.Template{tpl})...)
		if len(errs) > 0 && mode == LoadModeFailFast {
			return errs
		}
	}

	sortTemplates(result)
	return errs
}

func sortTemplates(result *LoadResult) {
	slices.SortStableFunc(result.Templates, func(a, b *template.Template) int {
		return strings.Compare(string(a.ID), string(b.ID))
	})
}

// merge appends templates not already present.
func merge(result *LoadResult, tpls []*template.Template) []error {
	var errs []error
	for _, t := range tpls {
		if existing, ok := result.Lookup(t.ID); ok {
			if existing.Fingerprint() != t.Fingerprint() {
				errs = append(errs, &LoadError{
					Code:    ErrCodeDuplicate,
					Message: fmt.Sprintf("template %s defined twice with different shapes", t.ID),
				})
			}
			continue
		}
		result.Templates = append(result.Templates, t)
	}
	return errs
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "id":
		return ErrCodeTemplateID
	case field == "roots":
		return ErrCodeTemplateRoots
	case field == "cue":
		return ErrCodeBuildFailed
	case strings.HasSuffix(field, ".dynamic"):
		return ErrCodeTemplateSlot
	case field != "":
		return ErrCodeTemplateNode
	}
	return ErrCodeGeneric
}
