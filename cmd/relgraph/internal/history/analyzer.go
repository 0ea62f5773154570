// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package history attributes repository commits to projects.
//
// For every project the analyzer finds its latest release marker, walks
// history from HEAD down to that marker and keeps the commits that affect
// the project. A commit's effect is computed once per analysis: a
// conventional-commit scope naming a project decides it outright, otherwise
// the paths changed against the first parent are tested against every
// project's path matcher. Merge commits are never attributed.
//
// # Thread Safety
//
// An Analyzer may be shared, but each AnalyzeHistories call owns its caches
// and runs sequentially.
package history

import (
	"context"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/conventional"
	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/gitrepo"
	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/graph"
	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/version"
)

// Default cache sizes.
const (
	DefaultCommitCacheSize = 512
	DefaultTreeCacheSize   = 3
)

// Options configures an Analyzer.
type Options struct {
	// CommitCacheSize bounds the per-commit hit-vector cache.
	CommitCacheSize int

	// TreeCacheSize bounds the flattened-tree cache.
	TreeCacheSize int

	// Scopes attributes conventional-commit scopes. nil uses smart matching
	// with no mappings.
	Scopes *conventional.ScopeMatcher

	Logger *slog.Logger
}

// RepoHistory is the commits affecting one project since its release marker.
type RepoHistory struct {
	// Commits are newest first and never include the marker commit.
	Commits []gitrepo.CommitID `json:"commits"`

	// ReleaseTag is nil when the whole history was analyzed.
	ReleaseTag *ReleaseTagInfo `json:"release_tag,omitempty"`
}

// Len returns the number of attributed commits.
func (h *RepoHistory) Len() int {
	return len(h.Commits)
}

// ReleaseVersion returns the version of the release marker, if any. The
// baseline marker reports 0.0.0.
func (h *RepoHistory) ReleaseVersion() (version.Version, bool) {
	if h.ReleaseTag == nil {
		return version.Version{}, false
	}
	return h.ReleaseTag.Version, true
}

// Histories holds one RepoHistory per analyzed project.
type Histories struct {
	byID map[graph.ProjectID]*RepoHistory
}

// Lookup returns the history of a project, or nil if it was not analyzed.
func (h *Histories) Lookup(id graph.ProjectID) *RepoHistory {
	return h.byID[id]
}

// Analyzer walks repository history on behalf of a project graph.
type Analyzer struct {
	repo   *gitrepo.Repo
	opts   Options
	logger *slog.Logger
}

// NewAnalyzer creates an analyzer over repo. Zero cache sizes take the
// defaults.
func NewAnalyzer(repo *gitrepo.Repo, opts Options) *Analyzer {
	if opts.CommitCacheSize <= 0 {
		opts.CommitCacheSize = DefaultCommitCacheSize
	}
	if opts.TreeCacheSize <= 0 {
		opts.TreeCacheSize = DefaultTreeCacheSize
	}
	if opts.Scopes == nil {
		opts.Scopes = conventional.NewScopeMatcher(conventional.MatchSmart, nil, nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{repo: repo, opts: opts, logger: logger}
}

// Repo returns the repository the analyzer reads.
func (a *Analyzer) Repo() *gitrepo.Repo {
	return a.repo
}

// FindLatestTagForProject returns the project's newest release tag, or nil.
func (a *Analyzer) FindLatestTagForProject(ctx context.Context, name string, singleProject bool) (*ReleaseTagInfo, error) {
	tags, err := a.repo.Tags(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	return latestTag(tags, name, singleProject), nil
}

// AnalyzeHistories computes the history of every project.
//
// # Description
//
// Each project is bounded by its newest release tag, else by the shared
// baseline tag, else by nothing (the whole history, with a warning).
// Per-commit attribution is cached across projects so a commit is loaded
// and diffed at most once while it stays in the cache.
//
// # Inputs
//
//   - ctx: Context for the git subprocesses. Must not be nil.
//   - projects: The graph's projects. Their matchers must be final.
//
// # Outputs
//
//   - *Histories: One history per project.
//   - error: Repository errors, wrapped with the failing operation.
func (a *Analyzer) AnalyzeHistories(ctx context.Context, projects []*graph.Project) (*Histories, error) {
	tags, err := a.repo.Tags(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}

	single := len(projects) == 1
	baseline := baselineTag(tags)

	w, err := newWalker(a, projects)
	if err != nil {
		return nil, err
	}

	out := &Histories{byID: make(map[graph.ProjectID]*RepoHistory, len(projects))}
	for i, p := range projects {
		marker := latestTag(tags, p.Name, single)
		if marker == nil && baseline != nil {
			marker = baseline
		}
		if marker == nil {
			a.logger.Warn("no release tag or baseline found; analyzing all history",
				slog.String("project", p.Name),
				slog.String("baseline_tag", BaselineTagName))
		}

		var hide gitrepo.CommitID
		if marker != nil {
			hide = marker.Commit
		}
		ids, err := a.repo.RevList(ctx, hide)
		if err != nil {
			return nil, fmt.Errorf("walking history of project %s: %w", p.Name, err)
		}
		commitsVisited.Observe(float64(len(ids)))

		hist := &RepoHistory{ReleaseTag: marker}
		for _, id := range ids {
			hits, err := w.hits(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("analyzing commit %s for project %s: %w", id.Short(), p.Name, err)
			}
			if hits[i] {
				hist.Commits = append(hist.Commits, id)
			}
		}

		a.logger.Debug("analyzed project history",
			slog.String("project", p.Name),
			slog.Int("walked", len(ids)),
			slog.Int("attributed", len(hist.Commits)))
		out.byID[p.ID] = hist
	}

	return out, nil
}

// Messages loads the full commit message of each id, in order.
func (a *Analyzer) Messages(ctx context.Context, ids []gitrepo.CommitID) ([]string, error) {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		info, err := a.repo.Commit(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("loading commit %s: %w", id.Short(), err)
		}
		out = append(out, info.Message)
	}
	return out, nil
}

// =============================================================================
// Per-analysis walker
// =============================================================================

// walker holds the caches private to one AnalyzeHistories call.
type walker struct {
	repo     *gitrepo.Repo
	scopes   *conventional.ScopeMatcher
	projects []*graph.Project
	names    []string

	commitHits *lru.Cache[gitrepo.CommitID, []bool]
	trees      *lru.Cache[string, gitrepo.Tree]
}

func newWalker(a *Analyzer, projects []*graph.Project) (*walker, error) {
	commitHits, err := lru.New[gitrepo.CommitID, []bool](a.opts.CommitCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating commit cache: %w", err)
	}
	trees, err := lru.New[string, gitrepo.Tree](a.opts.TreeCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating tree cache: %w", err)
	}

	names := make([]string, len(projects))
	for i, p := range projects {
		names[i] = p.Name
	}

	return &walker{
		repo:       a.repo,
		scopes:     a.opts.Scopes,
		projects:   projects,
		names:      names,
		commitHits: commitHits,
		trees:      trees,
	}, nil
}

// hits returns, for each project, whether the commit affects it.
func (w *walker) hits(ctx context.Context, id gitrepo.CommitID) ([]bool, error) {
	if cached, ok := w.commitHits.Get(id); ok {
		commitCacheTotal.WithLabelValues(cacheResult(true)).Inc()
		return cached, nil
	}
	commitCacheTotal.WithLabelValues(cacheResult(false)).Inc()

	hits, err := w.classify(ctx, id)
	if err != nil {
		return nil, err
	}
	w.commitHits.Add(id, hits)
	return hits, nil
}

func (w *walker) classify(ctx context.Context, id gitrepo.CommitID) ([]bool, error) {
	hits := make([]bool, len(w.projects))

	info, err := w.repo.Commit(ctx, id)
	if err != nil {
		return nil, err
	}

	if info.IsMerge() {
		attributionTotal.WithLabelValues("merge").Inc()
		return hits, nil
	}

	if scope := conventional.ExtractScope(info.Summary()); scope != "" {
		if idx := w.scopes.FindProject(scope, w.names); idx >= 0 {
			attributionTotal.WithLabelValues("scope").Inc()
			hits[idx] = true
			return hits, nil
		}
	}

	newTree, err := w.tree(ctx, info.Tree)
	if err != nil {
		return nil, err
	}

	var oldTree gitrepo.Tree
	if len(info.Parents) == 1 {
		parentTree, err := w.repo.TreeOf(ctx, info.Parents[0])
		if err != nil {
			return nil, err
		}
		if oldTree, err = w.tree(ctx, parentTree); err != nil {
			return nil, err
		}
	}

	attributionTotal.WithLabelValues("paths").Inc()
	for _, path := range gitrepo.ChangedPaths(oldTree, newTree) {
		for i, p := range w.projects {
			if !hits[i] && p.Paths.Matches(path) {
				hits[i] = true
			}
		}
	}
	return hits, nil
}

func (w *walker) tree(ctx context.Context, treeID string) (gitrepo.Tree, error) {
	if t, ok := w.trees.Get(treeID); ok {
		treeCacheTotal.WithLabelValues(cacheResult(true)).Inc()
		return t, nil
	}
	treeCacheTotal.WithLabelValues(cacheResult(false)).Inc()

	t, err := w.repo.LoadTree(ctx, treeID)
	if err != nil {
		return nil, err
	}
	w.trees.Add(treeID, t)
	return t, nil
}
