// Package diag defines the diagnostic model the renderer consumes.
//
// # Purpose
//
//   - Provide deterministic, serialisable data structures describing a
//     fully-formed compiler diagnostic: severity, message lines, a
//     location, an optional snippet source and an optional call stack.
//   - Offer light-weight utilities (Bag, GroupAll) that let consumers
//     collect and coalesce diagnostics without coupling to formatting.
//   - Define the batch codec (JSON and msgpack) used at the CLI
//     boundary between the compiler frontend and the renderer.
//
// # Scope
//
// Package diag performs no formatting and no file I/O. Rendering lives
// in internal/diagfmt; snippet resolution lives in internal/source.
//
// # Invariants
//
// Diagnostic values are validated at construction (New, DecodeBatch):
// a missing message, a non-positive line, an end column before its
// start column, a file-lookup snippet on a nofile location, or a stack
// frame without a label are contract violations by the producer, not
// runtime conditions the renderer tolerates.
//
// Grouping coalesces diagnostics sharing (severity, message, file) in
// first-seen order; members keep emission order and are never
// de-duplicated, so each occurrence yields its own trailer line.
package diag
