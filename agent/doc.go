// Package agent implements the streaming tool-orchestration loop. A Loop
// repeatedly calls a model provider, reconstructs fragmented tool-call
// deltas via the Accumulator, executes complete invocations against the
// tool registry, folds the results back into the conversation and loops
// until the model answers with plain text, emitting an ordered stream of
// wire events throughout.
package agent
