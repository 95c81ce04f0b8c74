// Package core provides the foundational domain types shared by the agent
// loop, model adapters and transports. It defines:
//
//   - Content / Part (role-tagged conversation messages with text,
//     function call and function response segments)
//   - FunctionCall / FunctionResponse (tool invocation records)
//   - StreamEvent (the ordered wire-level event sequence consumed by
//     transports)
//
// The package intentionally keeps implementation concerns (model providers,
// tool execution, HTTP serving) out of scope so every other package can
// depend on it without cycles.
package core
