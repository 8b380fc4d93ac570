// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/CaptainASIC/FusionLoom/internal/config"
	"github.com/CaptainASIC/FusionLoom/internal/history"
	"github.com/CaptainASIC/FusionLoom/internal/model"
	"github.com/CaptainASIC/FusionLoom/internal/ollama"
	"github.com/CaptainASIC/FusionLoom/internal/provider"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess       = 0
	ExitGeneralError  = 1
	ExitUsageError    = 2
	ExitConfigError   = 3
	ExitAuthError     = 4
	ExitNetworkError  = 5
	ExitNotFoundError = 7
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // e.g. "history"
	Action  string // e.g. "import"
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Command, e.Action, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NotFoundError represents a missing session or other resource.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// UsageError reports invalid flags or arguments.
type UsageError struct {
	Reason string
}

func (e *UsageError) Error() string {
	return e.Reason
}

// wrap builds a CommandError, passing nil through.
func wrap(command, action string, err error) error {
	if err == nil {
		return nil
	}
	return &CommandError{Command: command, Action: action, Err: err}
}

// =============================================================================
// DISPLAY AND EXIT CODES
// =============================================================================

// DisplayError prints err in the CLI error style.
func DisplayError(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
}

// GetExitCode determines the exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usage *UsageError
	var notFound *NotFoundError
	var validation config.ValidateErrors
	var clientErr *ollama.ClientError
	switch {
	case errors.As(err, &usage), errors.Is(err, model.ErrUnknownProvider):
		return ExitUsageError
	case errors.As(err, &validation):
		return ExitConfigError
	case errors.Is(err, provider.ErrAPIKeyMissing):
		return ExitAuthError
	case errors.As(err, &notFound), errors.Is(err, history.ErrNotFound):
		return ExitNotFoundError
	case errors.Is(err, ollama.ErrNotRunning), errors.As(err, &clientErr):
		return ExitNetworkError
	}
	return ExitGeneralError
}
