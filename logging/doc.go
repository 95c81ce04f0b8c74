// Package logging provides a tiny abstraction over slog so downstream code
// can depend on a minimal interface (Logger) while allowing users to plug
// any structured logger. The agent loop receives its Logger explicitly;
// there are no package-level log sinks.
package logging
