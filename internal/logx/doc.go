// Package logx builds the slog loggers used by the CLI and masks secrets before they
// reach a handler.
package logx
