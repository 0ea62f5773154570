// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/config"
	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/gitrepo"
	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/session"
	"github.com/AleutianAI/relgraph/pkg/logging"
	"github.com/AleutianAI/relgraph/pkg/ux"
)

// rootOptions holds persistent flags and the resources they create. One
// instance lives for a single run.
type rootOptions struct {
	repoDir  string
	logLevel string
	logDir   string
	jsonOut  bool
	trace    bool
	noColor  bool

	stdout io.Writer
	stderr io.Writer

	logger   *logging.Logger
	shutdown func(context.Context) error
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:   "relgraph",
		Short: "Plan releases of the projects in a monorepo",
		Long: `relgraph discovers the projects declared in .relgraph/config.yaml,
finds the commits that touched each one since its last release tag, and
decides new versions while keeping internal dependencies satisfied.`,
		Version:       buildVersion,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !opts.trace {
				return nil
			}
			shutdown, err := initTelemetry(cmd.Context(), opts.stderr)
			if err != nil {
				return fmt.Errorf("init telemetry: %w", err)
			}
			opts.shutdown = shutdown
			return nil
		},
	}

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.repoDir, "repo", "C", ".", "Path inside the git work tree")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error (default from config)")
	flags.StringVar(&opts.logDir, "log-dir", "", "Also write JSON logs to this directory")
	flags.BoolVar(&opts.jsonOut, "json", false, "Output results as JSON")
	flags.BoolVar(&opts.trace, "trace", false, "Print trace spans and metrics to stderr on exit")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable styled output")

	root.AddCommand(
		newGraphCmd(opts),
		newStatusCmd(opts),
		newApplyCmd(opts),
		newBaselineCmd(opts),
		newConfigCmd(opts),
	)
	return root
}

// load opens the repository and its configuration and sets up logging.
func (o *rootOptions) load(ctx context.Context) (*gitrepo.Repo, *config.RelgraphConfig, error) {
	repo, err := gitrepo.Open(ctx, o.repoDir)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(repo.Root())
	if err != nil {
		return nil, nil, err
	}

	levelName := cfg.Log.Level
	if o.logLevel != "" {
		levelName = o.logLevel
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return nil, nil, &usageError{err: err}
	}

	o.logger = logging.New(logging.Config{
		Level:   level,
		LogDir:  o.logDir,
		Service: "relgraph",
		JSON:    cfg.Log.JSON,
		Writer:  o.stderr,
	})
	return repo, cfg, nil
}

func (o *rootOptions) openSession(ctx context.Context) (*session.Session, error) {
	repo, cfg, err := o.load(ctx)
	if err != nil {
		return nil, err
	}
	return session.Open(ctx, repo, cfg, o.logger.Slog())
}

func (o *rootOptions) printer() *ux.Printer {
	return ux.NewPrinter(o.stdout, o.noColor || !isTTY(o.stdout))
}

func (o *rootOptions) plainErr() bool {
	return o.noColor || !isTTY(o.stderr)
}

func (o *rootOptions) writeJSON(v any) error {
	enc := json.NewEncoder(o.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// close flushes telemetry and closes the log file.
func (o *rootOptions) close() {
	if o.shutdown != nil {
		if err := o.shutdown(context.Background()); err != nil {
			fmt.Fprintf(o.stderr, "relgraph: telemetry shutdown: %v\n", err)
		}
	}
	if o.logger != nil {
		o.logger.Close()
	}
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && ux.IsTerminal(f)
}

// usageArgs wraps a cobra argument validator so its failures exit with
// ExitBadArgs.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}
