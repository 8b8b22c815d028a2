package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/vtree/internal/compiler"
	"github.com/roach88/vtree/internal/dom"
	"github.com/roach88/vtree/internal/engine"
	"github.com/roach88/vtree/internal/mutation"
	"github.com/roach88/vtree/internal/replay"
	"github.com/roach88/vtree/internal/testutil"
)

// Option configures a scenario run.
type Option func(*Harness)

// WithLogger sets the logger handed to the engine and the replay document.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// WithRecorder receives every non-empty batch after it is decoded, for
// example store.Recorder.
func WithRecorder(record func(mutation.Batch) error) Option {
	return func(h *Harness) {
		h.record = record
	}
}

// Harness executes one scenario.
type Harness struct {
	scenario *Scenario
	format   mutation.Format
	logger   *slog.Logger
	record   func(mutation.Batch) error

	dom     *engine.VirtualDom
	doc     *replay.Document
	state   *engine.State[*TreeSpec]
	handled []string
	broken  bool
}

// Run executes a scenario and returns the result.
//
// Each run loads the scenario's templates, mounts a fresh virtual DOM whose
// root renders the current frame's tree, and replays every batch into a
// fresh document after a round trip through the scenario's wire format.
// Wall time is frozen, so deferred work always completes in one pass.
//
// Run returns an error when the scenario cannot execute at all. Mismatches
// and failed assertions are reported in the Result.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	format, err := scenario.format()
	if err != nil {
		return nil, err
	}
	h := &Harness{
		scenario: scenario,
		format:   format,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}

	loaded, errs := compiler.LoadFiles(compiler.LoadModeFailFast, scenario.Templates...)
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to load templates: %w", errors.Join(errs...))
	}
	if err := checkTemplates(scenario, loaded); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	registry, err := loaded.Registry()
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	b := &builder{
		templates:  loaded,
		components: scenario.Components,
		handled: func(ev *engine.Event) {
			h.handled = append(h.handled, fmt.Sprintf("%s@%d", ev.Name, ev.Target))
		},
	}
	first := scenario.Frames[0].Tree
	root := engine.Func("scenario:"+scenario.Name, func(cx *engine.Scope) (engine.Node, error) {
		h.state = engine.UseState(cx, func() *TreeSpec { return first })
		return b.tree(cx, h.state.Get())
	})

	h.dom = engine.New(root,
		engine.WithLogger(h.logger),
		engine.WithTemplates(registry),
		engine.WithTimeSource(testutil.NewFakeTime(0)),
	)
	h.doc = replay.New(replay.WithLogger(h.logger))

	defer func() {
		// A contract violation leaves the arena inconsistent.
		if !h.broken {
			h.dom.Close()
		}
	}()

	result := NewResult()

	for i := range scenario.Frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		trace, err := h.runFrame(i)
		if err != nil {
			return nil, fmt.Errorf("frame %q: %w", scenario.Frames[i].Name, err)
		}
		result.Frames = append(result.Frames, *trace)

		if got, want := dom.HTML(h.dom.Snapshot()), trace.HTML; got != want {
			result.AddError(fmt.Sprintf("frame %q: replayed document diverged\n  engine: %s\n  replay: %s", trace.Name, got, want))
		}
		if got, want := h.dom.ElementCount(), trace.Elements; got != want {
			result.AddError(fmt.Sprintf("frame %q: engine holds %d element ids, replay holds %d", trace.Name, got, want))
		}
		for _, err := range h.dom.TakeErrors() {
			result.AddError(fmt.Sprintf("frame %q: uncaught render error: %v", trace.Name, err))
		}
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	h.logger.Info("scenario finished",
		"scenario", scenario.Name,
		"frames", len(result.Frames),
		"edits", result.Edits(),
		"pass", result.Pass)
	return result, nil
}

// runFrame drives one frame and replays what it produced.
func (h *Harness) runFrame(i int) (trace *FrameTrace, err error) {
	defer func() {
		if r := recover(); r != nil {
			cv, ok := r.(*engine.ContractViolation)
			if !ok {
				panic(r)
			}
			h.broken = true
			err = cv
		}
	}()

	f := h.scenario.Frames[i]
	h.handled = nil

	var batches []mutation.Batch
	switch {
	case i == 0:
		batches = append(batches, h.dom.RebuildBatch())
	case f.Tree != nil:
		h.state.Set(f.Tree)
		batches = h.drain()
	default:
		h.dom.HandleEvent(f.Event.Name, mutation.ElementID(f.Event.Target), nil, f.Event.Bubbles)
		batches = h.drain()
	}

	trace = &FrameTrace{Name: f.Name, Edits: []mutation.Mutation{}}
	for _, b := range batches {
		if len(b.Edits) == 0 {
			continue
		}
		decoded, err := h.roundTrip(b)
		if err != nil {
			return nil, err
		}
		if h.record != nil {
			if err := h.record(decoded); err != nil {
				return nil, fmt.Errorf("record generation %d: %w", decoded.Generation, err)
			}
		}
		if err := h.doc.ApplyBatch(decoded); err != nil {
			return nil, fmt.Errorf("replay: %w", err)
		}
		trace.Edits = append(trace.Edits, decoded.Edits...)
	}

	trace.Generation = h.dom.Generation()
	trace.HTML = h.doc.HTML()
	trace.Elements = h.doc.Len()
	trace.Handled = h.handled
	return trace, nil
}

// drain renders until no dirty scopes remain.
func (h *Harness) drain() []mutation.Batch {
	var batches []mutation.Batch
	for {
		b, done := h.dom.RenderDeferredBatch(engine.DefaultDeferredBudget)
		batches = append(batches, b)
		if done {
			return batches
		}
	}
}

func (h *Harness) roundTrip(b mutation.Batch) (mutation.Batch, error) {
	data, err := mutation.Encode(h.format, b)
	if err != nil {
		return mutation.Batch{}, fmt.Errorf("encode generation %d: %w", b.Generation, err)
	}
	decoded, err := mutation.Decode(h.format, data)
	if err != nil {
		return mutation.Batch{}, fmt.Errorf("decode generation %d: %w", b.Generation, err)
	}
	return decoded, nil
}
