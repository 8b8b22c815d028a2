// Package harness runs YAML render scenarios against the virtual DOM.
//
// A scenario names the CUE template files it needs and a list of frames.
// Each frame either supplies a new declarative tree for the root component
// or dispatches an event. The harness renders the frame, pushes the batch
// through the configured wire codec into a replay.Document, and checks that
// the replayed document and the engine's own snapshot serialize to the same
// HTML. Assertions then run over the recorded frame traces.
//
// A minimal scenario:
//
//	name: label
//	description: text and attribute updates
//	templates: [ui/label.cue]
//	frames:
//	  - name: mount
//	    tree:
//	      template: ui:label
//	      attrs: [{name: class, value: greeting}]
//	      nodes: [{text: hello}]
//	  - name: update
//	    tree:
//	      template: ui:label
//	      attrs: [{name: class, value: greeting}]
//	      nodes: [{text: world}]
//	assertions:
//	  - type: edit_contains
//	    frame: update
//	    edit: 'SetText{value: "world", id: 2}'
//
// Named components declared under components are reusable trees; a node
// referencing one with use renders it as a child component. References
// that form a cycle are rejected when the scenario loads.
//
// RunWithGolden compares the trace with testdata/golden/<name>.golden.
// Regenerate with:
//
//	go test ./internal/harness -update
package harness
