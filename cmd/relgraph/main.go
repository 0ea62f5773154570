// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command relgraph plans releases of the projects in a monorepo.
//
// It discovers projects from .relgraph/config.yaml, walks git history to
// find the commits that touched each project since its last release tag,
// proposes semantic version bumps from conventional commit messages, and
// checks that every internal dependency is satisfied by an existing or
// co-released version of its dependee.
//
// Usage:
//
//	relgraph graph [names...]          Show projects and their dependencies
//	relgraph status [--metrics]        Show pending changes per project
//	relgraph apply name=scheme...      Decide versions and resolve requirements
//	relgraph baseline                  Tag HEAD as the history baseline
//	relgraph config                    Print the effective configuration
package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/graph"
	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/resolve"
	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/session"
	"github.com/AleutianAI/relgraph/pkg/ux"
)

// Exit codes.
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitBadArgs = 2

	// ExitUnsatisfied means a released project needs a dependee version
	// that neither exists nor is part of the release.
	ExitUnsatisfied = 3
)

// buildVersion is overridden at link time with -X main.buildVersion=...
var buildVersion = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one CLI invocation and returns its exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts := &rootOptions{stdout: stdout, stderr: stderr}
	defer opts.close()

	root := newRootCmd(opts)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	ux.NewPrinter(stderr, opts.plainErr()).Error(err.Error())
	return exitCode(err)
}

// usageError marks failures caused by the command line itself.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var ue *usageError
	switch {
	case errors.As(err, &ue),
		errors.Is(err, session.ErrInvalidBumpSpec),
		errors.Is(err, graph.ErrNoSuchProject):
		return ExitBadArgs
	case errors.Is(err, resolve.ErrUnsatisfiedRequirement):
		return ExitUnsatisfied
	default:
		return ExitError
	}
}
