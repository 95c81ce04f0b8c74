// Package model defines the normalized interface to language-model
// completion providers. A provider streams a turn as an ordered sequence of
// fragments, each optionally carrying a content-text increment and/or
// zero-or-more indexed tool-call fragments, terminated by a finish reason.
// Concrete adapters live in the subpackages (openai, anthropic).
package model
