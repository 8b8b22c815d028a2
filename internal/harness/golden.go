package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/vtree/internal/canonical"
)

// TraceSnapshot is the golden form of a scenario run: per frame, the edits
// as Mutation.String lines and the replayed HTML.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Frames       []FrameTrace `json:"frames"`
}

// toCanonicalMap converts the snapshot to plain values canonical.Marshal
// accepts.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	frames := make([]any, len(s.Frames))
	for i := range s.Frames {
		f := &s.Frames[i]
		frame := map[string]any{
			"name":       f.Name,
			"generation": f.Generation,
			"edits":      f.Lines(),
			"html":       f.HTML,
			"elements":   f.Elements,
		}
		if len(f.Handled) > 0 {
			frame["handled"] = f.Handled
		}
		frames[i] = frame
	}
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"frames":        frames,
	}
}

// MarshalTrace renders a result's frames as canonical JSON.
func MarshalTrace(name string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{ScenarioName: name, Frames: result.Frames}
	return canonical.Marshal(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also check Pass.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := MarshalTrace(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)
	return nil
}
