// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package session ties a repository, its configuration and the release
// engine together for one command invocation.
//
// Opening a session loads the project graph from configuration, resolves
// every dependency's history reference against the repository, and fills in
// versions of projects declared at 0.0.0 from their release tags. The
// session then drives history analysis and dependency resolution for the
// status, apply and baseline workflows.
//
// # Thread Safety
//
// A Session is owned by a single command and is not safe for concurrent use.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/config"
	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/gitrepo"
	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/graph"
	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/history"
	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/resolve"
	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/version"
)

// Session is one invocation's view of the repository.
type Session struct {
	id       string
	repo     *gitrepo.Repo
	cfg      *config.RelgraphConfig
	graph    *graph.ProjectGraph
	analyzer *history.Analyzer
	resolver *resolve.Resolver
	logger   *slog.Logger
}

// Open builds a session.
//
// # Description
//
// Projects are registered in configuration order, skipping those marked
// ignore. Dependency requirements are resolved as history references whose
// declaring file is the configuration file. After the graph is complete,
// projects at version 0.0.0 take the version of their latest release tag.
//
// # Inputs
//
//   - ctx: Context for git subprocesses.
//   - repo: The opened repository.
//   - cfg: Validated configuration.
//   - logger: Base logger; nil uses slog.Default(). The session adds its id.
//
// # Outputs
//
//   - *Session: Ready for use.
//   - error: Configuration, history reference or graph construction errors.
func Open(ctx context.Context, repo *gitrepo.Repo, cfg *config.RelgraphConfig, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	logger = logger.With(slog.String("session_id", id))

	g, err := buildGraph(ctx, repo, cfg)
	if err != nil {
		return nil, err
	}

	opts := cfg.HistoryOptions()
	opts.Logger = logger
	analyzer := history.NewAnalyzer(repo, opts)

	s := &Session{
		id:       id,
		repo:     repo,
		cfg:      cfg,
		graph:    g,
		analyzer: analyzer,
		resolver: resolve.NewResolver(analyzer, logger),
		logger:   logger,
	}

	if err := s.resolveVersionsFromTags(ctx); err != nil {
		return nil, err
	}

	logger.Debug("session opened",
		slog.String("repo", repo.Root()),
		slog.Int("projects", g.Len()))
	return s, nil
}

// ID returns the session's unique id, attached to all of its log records.
func (s *Session) ID() string { return s.id }

func (s *Session) Repo() *gitrepo.Repo { return s.repo }
func (s *Session) Graph() *graph.ProjectGraph { return s.graph }
func (s *Session) Analyzer() *history.Analyzer { return s.analyzer }
func (s *Session) Config() *config.RelgraphConfig { return s.cfg }
func (s *Session) Logger() *slog.Logger { return s.logger }
func (s *Session) IsSingleProject() bool { return s.graph.Len() == 1 }

// AnalyzeHistories analyzes every project in the graph.
func (s *Session) AnalyzeHistories(ctx context.Context) (*history.Histories, error) {
	return s.analyzer.AnalyzeHistories(ctx, s.graph.Projects())
}

// =============================================================================
// Graph construction
// =============================================================================

func buildGraph(ctx context.Context, repo *gitrepo.Repo, cfg *config.RelgraphConfig) (*graph.ProjectGraph, error) {
	ignored := make(graph.IgnoreSet)
	for _, p := range cfg.Projects {
		if p.Ignore {
			ignored[p.FullName()] = true
		}
	}

	source := filepath.ToSlash(filepath.Join(config.Dir, config.FileName))

	b := graph.NewBuilder()
	for _, pc := range cfg.Projects {
		id, ok := b.TryAddProject(pc.QualifiedNames, ignored)
		if !ok {
			continue
		}

		v := version.Zero()
		if pc.Version != "" {
			parsed, err := version.Parse(pc.Version)
			if err != nil {
				return nil, fmt.Errorf("project %s: %w", pc.FullName(), err)
			}
			v = parsed
		}
		pb := b.LookupMut(id)
		pb.SetVersion(v)
		pb.SetPrefix(pc.DirPrefix())

		for _, dc := range pc.Dependencies {
			req := graph.Unavailable()
			if dc.Requirement != "" {
				ref, err := ParseHistoryRef(dc.Requirement)
				if err != nil {
					return nil, fmt.Errorf("project %s: dependency on %s: %w", pc.FullName(), dc.Target, err)
				}
				if req, err = ResolveHistoryRef(ctx, repo, ref, source); err != nil {
					return nil, fmt.Errorf("project %s: dependency on %s: %w", pc.FullName(), dc.Target, err)
				}
			}
			b.AddDependency(id, graph.TargetName(dc.Target), dc.Literal, req)
		}
	}

	return b.CompleteLoading()
}

// resolveVersionsFromTags gives projects declared at 0.0.0 the version of
// their latest release tag, when that version is nonzero.
func (s *Session) resolveVersionsFromTags(ctx context.Context) error {
	single := s.IsSingleProject()
	for _, p := range s.graph.Projects() {
		if !p.Version.IsZero() {
			continue
		}
		tag, err := s.analyzer.FindLatestTagForProject(ctx, p.Name, single)
		if err != nil {
			return err
		}
		if tag == nil || tag.Version.IsZero() {
			continue
		}
		s.logger.Info("resolved version from tag",
			slog.String("project", p.Name),
			slog.String("version", tag.Version.String()),
			slog.String("tag", tag.TagName))
		p.Version = tag.Version
	}
	return nil
}
