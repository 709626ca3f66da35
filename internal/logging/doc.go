// Package logging wires slog with the console and JSON handlers used across
// the pipeline, plus shared attribute helpers and context-derived fields
// (run id, stage) so every component logs the same shape.
package logging
