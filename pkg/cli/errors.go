package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mercator-hq/chronicle/pkg/config"
	"mercator-hq/chronicle/pkg/history"
	"mercator-hq/chronicle/pkg/history/removaltime"
)

// Process exit codes, following sysexits(3) where one fits.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitUnavailable = 69  // history store unreachable or failing
	ExitTempFail    = 75  // concurrent change, re-running the command is safe
	ExitConfig      = 78  // invalid configuration or flags
	ExitInterrupted = 130 // SIGINT or SIGTERM
)

// ConfigError reports invalid settings or flags. Fields names the offending
// configuration fields or flags, if known.
type ConfigError struct {
	Fields  []string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("config error: %s", e.Message)
	}
	return fmt.Sprintf("config error in %s: %s", strings.Join(e.Fields, ", "), e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError reports an invalid field or flag. An empty field leaves
// the error unattributed.
func NewConfigError(field, message string) *ConfigError {
	e := &ConfigError{Message: message}
	if field != "" {
		e.Fields = []string{field}
	}
	return e
}

// ConfigErrorFrom turns a configuration load failure into a ConfigError.
// Validation failures and unknown removal time strategies keep the names
// of the offending fields.
func ConfigErrorFrom(err error) *ConfigError {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce
	}

	var ve config.ValidationError
	if errors.As(err, &ve) && len(ve.Errors) > 0 {
		e := &ConfigError{Err: err}
		msgs := make([]string, 0, len(ve.Errors))
		for _, fe := range ve.Errors {
			e.Fields = append(e.Fields, fe.Field)
			msgs = append(msgs, fe.Message)
		}
		e.Message = strings.Join(msgs, "; ")
		return e
	}

	var se *removaltime.StrategyError
	if errors.As(err, &se) {
		return &ConfigError{Fields: []string{"history.removal_time_strategy"}, Message: se.Error(), Err: err}
	}

	return &ConfigError{Message: err.Error(), Err: err}
}

// CommandError reports a failed retention command.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	if history.IsRetryable(e.Err) {
		return fmt.Sprintf("%s interrupted by a concurrent change, run it again: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{Command: command, Err: err}
}

// ExitCode maps an error returned by a command to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var (
		ce      *ConfigError
		storage *history.StorageError
	)
	switch {
	case errors.As(err, &ce):
		return ExitConfig
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case history.IsRetryable(err):
		return ExitTempFail
	case errors.As(err, &storage):
		return ExitUnavailable
	default:
		return ExitFailure
	}
}
