// Package logging builds slog loggers with console and JSON handlers and
// shared attribute helpers. Components obtain a child logger through
// NewComponentLogger so every record carries a component field.
package logging
