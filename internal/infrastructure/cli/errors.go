package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/felixgeelhaar/blotter/pkg/domain"
)

// CLIError wraps domain errors with user-facing messages and actionable hints.
type CLIError struct {
	Message  string
	Hint     string
	Err      error
	ExitCode int
}

func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a CLIError with a default exit code of 1.
func NewCLIError(msg, hint string, err error) *CLIError {
	return &CLIError{
		Message:  msg,
		Hint:     hint,
		Err:      err,
		ExitCode: 1,
	}
}

// MapError converts known domain errors into CLIErrors with actionable hints.
// Unmapped errors are returned as-is.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return err
	}

	var transErr *domain.TransitionError
	if errors.As(err, &transErr) {
		return NewCLIError(
			transErr.Error(),
			fmt.Sprintf("The %s is %s; run 'blotter case next' to see what is allowed", transErr.Entity, transErr.From),
			err,
		)
	}

	var parseErr *domain.ParseError
	if errors.As(err, &parseErr) {
		return NewCLIError(
			"hearing time could not be read",
			"Use --date YYYY-MM-DD --time HH:MM, or --at with an RFC 3339 timestamp",
			err,
		)
	}

	var enumErr *domain.InvalidEnumError
	if errors.As(err, &enumErr) {
		return NewCLIError(enumErr.Error(), enumHint(enumErr.Enum), err)
	}

	switch {
	case errors.Is(err, ErrNotInitialized):
		return NewCLIError("workspace not initialized", "Run 'blotter init' first", err)
	case errors.Is(err, domain.ErrCaseNotFound):
		return NewCLIError("case not found", "Run 'blotter case list' to see case numbers", err)
	case errors.Is(err, domain.ErrHearingNotFound):
		return NewCLIError("hearing not found", "Run 'blotter hearing list <case>' to see hearing IDs", err)
	case errors.Is(err, domain.ErrInvalidTransition):
		return NewCLIError("action not allowed now", "Run 'blotter case next <case>' to see the enabled action", err)
	case errors.Is(err, domain.ErrTransientDelivery):
		return NewCLIError("reminder delivery failed", "Check 'blotter channels list' and 'blotter reminders deadletters'", err)
	case errors.Is(err, domain.ErrDataConsistency):
		return NewCLIError("stored case data is inconsistent", "Run 'blotter history verify' to check the audit trail", err)
	case errors.Is(err, ErrAborted):
		return &CLIError{Message: "aborted", ExitCode: 2}
	}

	return err
}

func enumHint(enum string) string {
	switch enum {
	case "resolution type":
		return "Valid types: Settled, Withdrawn"
	case "role":
		return "Valid roles: officer, admin, user"
	case "artifact kind":
		return "Valid kinds: witness, suspect, evidence"
	case "reminder offset":
		return "Valid keys: enabled, 1_day, 1_hour, 15_min, at_time, sound, vibration"
	default:
		return ""
	}
}

// Report prints err and its hint to w and returns the process exit code.
func Report(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	err = MapError(err)
	fmt.Fprintf(w, "Error: %v\n", err)

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		if cliErr.Hint != "" {
			fmt.Fprintf(w, "Hint: %s\n", cliErr.Hint)
		}
		return cliErr.ExitCode
	}
	return 1
}
