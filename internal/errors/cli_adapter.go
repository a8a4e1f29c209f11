package errors

import (
	"fmt"
	"log/slog"
)

// CLIErrorAdapter handles error presentation and exit code determination for the CLI.
// All failures map to exit status 1 so that nested invocations compose with shell
// scripts that only distinguish success from failure; the category still drives
// log formatting.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{
		verbose: verbose,
		logger:  logger,
	}
}

// ExitCodeFor determines the appropriate exit code for an error.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	return 1
}

// FormatError formats an error for user-friendly display.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	if se, ok := err.(*SubsyncError); ok {
		if a.verbose && se.Cause != nil {
			return fmt.Sprintf("%s: %s (caused by: %v)", se.Category, se.Message, se.Cause)
		}
		return fmt.Sprintf("%s: %s", se.Category, se.Message)
	}
	return err.Error()
}

// LogError logs an error with structured fields appropriate to its classification.
func (a *CLIErrorAdapter) LogError(err error) {
	if err == nil {
		return
	}
	if se, ok := err.(*SubsyncError); ok {
		attrs := []any{
			slog.String("category", string(se.Category)),
			slog.Bool("retryable", se.Retryable),
		}
		for k, v := range se.Context {
			attrs = append(attrs, slog.Any(k, v))
		}
		if se.Cause != nil {
			attrs = append(attrs, slog.String("cause", se.Cause.Error()))
		}
		a.logger.Error(se.Message, attrs...)
		return
	}
	a.logger.Error(err.Error())
}
