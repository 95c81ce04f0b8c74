package agent

import (
	"strings"

	"github.com/yoyo-67/ai-agent-mvp/core"
	"github.com/yoyo-67/ai-agent-mvp/model"
)

// partialCall is a tool invocation under reconstruction: raw argument text
// accumulating monotonically until the turn's terminal disposition promotes
// it to a complete invocation record.
type partialCall struct {
	id   string
	name string
	args strings.Builder
}

// Accumulator merges the fragmented deltas of one model turn. Tool-call
// fragments key on a per-turn positional index, not the invocation id,
// because the id may arrive only with the first fragment for an index. Text
// fragments are concatenated independently, order-preserving, regardless of
// interleaving with tool-call fragments.
//
// An Accumulator covers exactly one turn and is not safe for concurrent use.
type Accumulator struct {
	calls  map[int64]*partialCall
	order  []int64 // indexes in discovery order
	text   strings.Builder
	finish string
}

// NewAccumulator creates an empty accumulator for one turn.
func NewAccumulator() *Accumulator {
	return &Accumulator{calls: make(map[int64]*partialCall)}
}

// Add folds one fragment into the turn. For an unseen index a new buffer is
// initialized from the fragment's id and name; for a known index the
// argument increment strictly appends and previously-set id/name are never
// overwritten or cleared by later fragments.
func (a *Accumulator) Add(frag model.Response) {
	if frag.TextDelta != "" {
		a.text.WriteString(frag.TextDelta)
	}
	for _, tc := range frag.ToolCalls {
		pc, ok := a.calls[tc.Index]
		if !ok {
			pc = &partialCall{}
			a.calls[tc.Index] = pc
			a.order = append(a.order, tc.Index)
		}
		if pc.id == "" {
			pc.id = tc.ID
		}
		if pc.name == "" {
			pc.name = tc.Name
		}
		pc.args.WriteString(tc.ArgumentsDelta)
	}
	if frag.FinishReason != "" {
		a.finish = frag.FinishReason
	}
}

// Text returns the concatenated text content accumulated so far.
func (a *Accumulator) Text() string { return a.text.String() }

// FinishReason returns the turn's terminal disposition, or "" if no
// terminal fragment has been observed.
func (a *Accumulator) FinishReason() string { return a.finish }

// ToolCalls promotes the accumulated buffers to complete invocation records
// in the order their indexes were first seen. Promotion is decided by the
// provider-supplied disposition, not by buffer contents: unless the turn
// ended in tool calls, partially accumulated buffers are discarded.
func (a *Accumulator) ToolCalls() []core.FunctionCall {
	if a.finish != model.FinishToolCalls {
		return nil
	}
	out := make([]core.FunctionCall, 0, len(a.order))
	for _, idx := range a.order {
		pc := a.calls[idx]
		out = append(out, core.FunctionCall{
			ID:        pc.id,
			Name:      pc.name,
			Arguments: pc.args.String(),
		})
	}
	return out
}
