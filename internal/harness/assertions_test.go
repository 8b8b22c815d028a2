package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vtree/internal/mutation"
)

func sampleResult() *Result {
	r := NewResult()
	r.Frames = []FrameTrace{
		{
			Name: "mount",
			Edits: []mutation.Mutation{
				mutation.LoadTemplate("ui:label", 0, 1),
				mutation.CreateTextNode("hi", 2),
				mutation.ReplacePlaceholder([]int{0}, 1),
				mutation.AppendChildren(mutation.Root, 1),
			},
			HTML: "<span>hi</span>",
		},
		{
			Name:    "update",
			Edits:   []mutation.Mutation{mutation.SetText("yo", 2)},
			HTML:    "<span>yo</span>",
			Handled: []string{"click@1"},
		},
	}
	return r
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	assertions := []Assertion{
		{Type: AssertHTML, Frame: "mount", HTML: "<span>hi</span>"},
		{Type: AssertEditCount, Frame: "mount", Count: 4},
		{Type: AssertKindCount, Frame: "update", Kind: "SetText", Count: 1},
		{Type: AssertKindCount, Kind: "CreateTextNode", Count: 1},
		{Type: AssertEditOrder, Frame: "mount", Kinds: []string{"LoadTemplate", "ReplacePlaceholder", "AppendChildren"}},
		{Type: AssertEditContains, Frame: "update", Edit: `SetText{value: "yo", id: 2}`},
		{Type: AssertHandled, Frame: "update", Count: 1},
	}
	assert.Empty(t, EvaluateAssertions(sampleResult(), assertions))
}

func TestEvaluateAssertions_Fail(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		want      []string
	}{
		{
			name:      "html",
			assertion: Assertion{Type: AssertHTML, Frame: "mount", HTML: "<b/>"},
			want:      []string{"Assertion failed: html (frame mount)", "Expected: <b/>", "Actual: <span>hi</span>"},
		},
		{
			name:      "edit count",
			assertion: Assertion{Type: AssertEditCount, Frame: "update", Count: 3},
			want:      []string{"Expected: 3 edits", "Actual: 1 edits", `[1] SetText{value: "yo", id: 2}`},
		},
		{
			name:      "kind count across frames",
			assertion: Assertion{Type: AssertKindCount, Kind: "Remove", Count: 1},
			want:      []string{"Expected: 1 occurrences of Remove", "Actual: 0 occurrences"},
		},
		{
			name:      "order",
			assertion: Assertion{Type: AssertEditOrder, Frame: "mount", Kinds: []string{"AppendChildren", "LoadTemplate"}},
			want:      []string{"AppendChildren (pos 4) should be before LoadTemplate (pos 1)"},
		},
		{
			name:      "order missing",
			assertion: Assertion{Type: AssertEditOrder, Frame: "mount", Kinds: []string{"Remove"}},
			want:      []string{"missing kind: Remove"},
		},
		{
			name:      "contains",
			assertion: Assertion{Type: AssertEditContains, Frame: "mount", Edit: "Remove{id: 1}"},
			want:      []string{"Expected: Remove{id: 1}", "not found in frame"},
		},
		{
			name:      "handled",
			assertion: Assertion{Type: AssertHandled, Frame: "mount", Count: 1},
			want:      []string{"Expected: 1 listeners ran", "Actual: 0 listeners ran"},
		},
		{
			name:      "missing frame",
			assertion: Assertion{Type: AssertHTML, Frame: "later"},
			want:      []string{"frame did not run"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			failures := EvaluateAssertions(sampleResult(), []Assertion{tt.assertion})
			require.Len(t, failures, 1)
			for _, w := range tt.want {
				assert.Contains(t, failures[0], w)
			}
		})
	}
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)
	r.AddError("nope")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"nope"}, r.Errors)
}
