// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package gitrepo

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrNotRepository indicates the directory is not inside a git work tree.
	ErrNotRepository = errors.New("not a git repository")

	// ErrNoHead indicates the repository has no commits yet.
	ErrNoHead = errors.New("repository has no HEAD commit")

	// ErrUncommittedLine indicates a blamed line is not part of HEAD.
	ErrUncommittedLine = errors.New("line is not committed")
)

// CommandError wraps a failed git invocation with its stderr.
//
// # Description
//
// Every git subprocess failure surfaces as a CommandError so callers can
// report the exact command and its diagnostics. Supports errors.Is/As via
// Unwrap.
//
// # Thread Safety
//
// Immutable after creation.
type CommandError struct {
	// Command is the full command line, e.g. "git rev-list HEAD".
	Command string

	// ExitCode is the process exit code (-1 if the process did not start).
	ExitCode int

	// Stderr is the trimmed standard error output.
	Stderr string

	// Wrapped is the underlying exec error.
	Wrapped error
}

// Error returns "<command> (exit N): <stderr>".
func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s (exit %d): %s", e.Command, e.ExitCode, e.Stderr)
	}
	if e.Wrapped != nil {
		return fmt.Sprintf("%s (exit %d): %v", e.Command, e.ExitCode, e.Wrapped)
	}
	return fmt.Sprintf("%s (exit %d)", e.Command, e.ExitCode)
}

// Unwrap returns the underlying error.
func (e *CommandError) Unwrap() error {
	return e.Wrapped
}
