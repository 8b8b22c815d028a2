// Package engine reconciles a tree of components into renderer mutations.
//
// A VirtualDom owns every mounted component instance (a Scope), renders them
// into per-scope double buffers and diffs each new tree against the
// committed one. Differences are written to a mutation.Writer as a
// stack-machine edit list that any renderer can replay.
//
// ARCHITECTURE:
//
// Single-Writer Driver:
// All rendering, diffing and event handling happens on one goroutine, the
// driver. Tasks run on their own goroutines and reach the driver only by
// posting callbacks through a thread-safe message queue. Run is the usual
// driver loop; tests drive the VirtualDom by hand with Rebuild,
// HandleEvent, ProcessMessages and the Render methods.
//
// Render Flow:
//  1. A state change marks its scope dirty in the immediate or deferred queue
//  2. The driver pops the shallowest dirty scope
//  3. The scope renders into its work-in-progress buffer
//  4. The new tree is diffed against the committed tree
//  5. The buffers flip; effects queued by the render run after the pass
//
// Ancestors always render before descendants, so a child unmounted by its
// parent's diff never renders.
//
// Templates:
// Every node is an instance of a template.Template. The renderer is told
// about each template once and clones it thereafter; diffs only touch the
// dynamic slots. ReplaceTemplate swaps a template's shape in place.
//
// Keyed Lists:
// Fragments whose children carry keys are reconciled with a longest
// increasing subsequence pass, so moves cost one PushRoot per moved node.
// Unkeyed fragments are diffed by position.
//
// Contract violations (stale nodes, hook order, mixed keys) panic with a
// *ContractViolation. Recoverable failures are returned as *RuntimeError.
package engine
