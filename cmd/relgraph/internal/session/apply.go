// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/graph"
	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/history"
	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/resolve"
	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/version"
	"github.com/AleutianAI/relgraph/pkg/validation"
)

// AllProjects is the bump-spec key that applies to every project with
// commits since its last release.
const AllProjects = "*"

// ErrInvalidBumpSpec is returned for malformed "name=scheme" arguments.
var ErrInvalidBumpSpec = errors.New("invalid bump spec")

// ParseBumpSpecs parses "name=scheme" arguments into a map keyed by project
// name. Schemes are "major", "minor", "patch", "auto" or an exact version.
// The name "*" selects every project with new commits; explicit names take
// precedence over it.
func ParseBumpSpecs(args []string) (map[string]version.Scheme, error) {
	out := make(map[string]version.Scheme, len(args))
	for _, arg := range args {
		name, raw, ok := strings.Cut(arg, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: %q (want name=scheme)", ErrInvalidBumpSpec, arg)
		}
		scheme, err := version.ParseScheme(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidBumpSpec, name, err)
		}
		if _, dup := out[name]; dup {
			return nil, fmt.Errorf("%w: project %s given twice", ErrInvalidBumpSpec, name)
		}
		out[name] = scheme
	}
	return out, nil
}

// ApplyOptions controls ApplyVersions.
type ApplyOptions struct {
	// Specs maps project names (or AllProjects) to bump schemes.
	Specs map[string]version.Scheme

	// PinExact rewrites every internal requirement to exactly the
	// dependee's final version.
	PinExact bool

	// CreateTags creates a local release tag at HEAD for every released
	// project.
	CreateTags bool
}

// ResolvedDependency is a dependency after resolution.
type ResolvedDependency struct {
	Target      string `json:"target"`
	Requirement string `json:"requirement"`
	Resolved    string `json:"resolved,omitempty"`
}

// AppliedProject is the outcome for one project.
type AppliedProject struct {
	Name     string          `json:"name"`
	Previous version.Version `json:"previous"`
	Version  version.Version `json:"version"`
	Released bool            `json:"released"`

	// Tag is the release tag name, set for released projects.
	Tag string `json:"tag,omitempty"`

	Dependencies []ResolvedDependency `json:"dependencies,omitempty"`
}

// ApplyReport summarizes an ApplyVersions run, in topological order.
type ApplyReport struct {
	Projects []AppliedProject `json:"projects"`
	Unmet    []resolve.Unmet  `json:"unmet,omitempty"`

	// TagsCreated lists tags created at HEAD when CreateTags is set.
	TagsCreated []string `json:"tags_created,omitempty"`
}

// ApplyVersions decides new versions and resolves internal dependencies.
//
// # Description
//
// Histories are analyzed first. Then, dependees first, each project's
// version is reset to the version of its latest release tag (when that tag
// carries a nonzero version), and the project's bump spec, if any, is
// applied. An auto spec whose commits call for no bump leaves the project
// unreleased. Internal dependencies are resolved as each project is visited,
// so a project released in this run satisfies later dependers.
//
// # Inputs
//
//   - ctx: Context for git subprocesses.
//   - opts: Bump specs and output options.
//
// # Outputs
//
//   - *ApplyReport: Per-project outcome.
//   - error: *graph.NoSuchProjectError for a spec naming an unknown project,
//     *resolve.UnsatisfiedRequirementError, or repository errors.
func (s *Session) ApplyVersions(ctx context.Context, opts ApplyOptions) (*ApplyReport, error) {
	g := s.graph
	for name := range opts.Specs {
		if name == AllProjects {
			continue
		}
		if _, ok := g.LookupIdent(name); !ok {
			return nil, &graph.NoSuchProjectError{Name: name}
		}
	}

	histories, err := s.AnalyzeHistories(ctx)
	if err != nil {
		return nil, err
	}

	previous := make(map[graph.ProjectID]version.Version, g.Len())
	process := func(ctx context.Context, g *graph.ProjectGraph, id graph.ProjectID) (bool, error) {
		p := g.Lookup(id)
		hist := histories.Lookup(id)

		if v, ok := hist.ReleaseVersion(); ok && !v.IsZero() {
			p.Version = v
		}
		previous[id] = p.Version

		scheme, ok := opts.Specs[p.Name]
		if !ok {
			scheme, ok = opts.Specs[AllProjects]
			ok = ok && hist.Len() > 0
		}
		if !ok {
			s.logger.Info("unchanged", slog.String("project", p.Name), slog.String("version", p.Version.String()))
			return false, nil
		}

		recommended := version.BumpNone
		if scheme.Kind == version.SchemeAuto {
			analysis, err := s.analyzeCommits(ctx, hist)
			if err != nil {
				return false, err
			}
			recommended = analysis.Recommendation
			if recommended == version.BumpNone {
				s.logger.Info("unchanged, no releasable commits",
					slog.String("project", p.Name),
					slog.String("version", p.Version.String()),
					slog.String("analysis", analysis.Summary()))
				return false, nil
			}
		}

		next, err := scheme.Apply(p.Version, recommended, s.cfg.Bump)
		if err != nil {
			return false, err
		}
		s.logger.Info("version bumped",
			slog.String("project", p.Name),
			slog.String("from", p.Version.String()),
			slog.String("to", next.String()),
			slog.String("scheme", scheme.String()))
		p.Version = next
		return true, nil
	}

	result, err := s.resolver.SolveInternalDeps(ctx, g, process)
	if err != nil {
		return nil, err
	}

	if opts.PinExact {
		resolve.FakeInternalDeps(g)
	}

	report := &ApplyReport{Unmet: result.Unmet}
	single := s.IsSingleProject()
	for _, id := range g.Toposorted() {
		p := g.Lookup(id)
		_, released := result.Released[id]

		ap := AppliedProject{
			Name:     p.Name,
			Previous: previous[id],
			Version:  p.Version,
			Released: released,
		}
		if released {
			ap.Tag = history.ReleaseTagName(p.Name, p.Version, single)
		}
		for _, d := range p.InternalDeps {
			rd := ResolvedDependency{
				Target:      g.Lookup(d.Target).Name,
				Requirement: d.Requirement.String(),
			}
			if d.ResolvedVersion != nil {
				rd.Resolved = d.ResolvedVersion.String()
			}
			ap.Dependencies = append(ap.Dependencies, rd)
		}
		report.Projects = append(report.Projects, ap)
	}

	if opts.CreateTags {
		var tags []string
		for _, ap := range report.Projects {
			if ap.Released {
				tags = append(tags, ap.Tag)
			}
		}
		// Checked up front so a bad name cannot leave a partial set of tags.
		if err := validation.ValidateTagNames(tags); err != nil {
			return nil, err
		}

		for _, ap := range report.Projects {
			if !ap.Released {
				continue
			}
			created, err := s.repo.CreateTag(ctx, ap.Tag)
			if err != nil {
				return nil, fmt.Errorf("tagging %s: %w", ap.Name, err)
			}
			if !created {
				s.logger.Warn("release tag already exists", slog.String("tag", ap.Tag))
				continue
			}
			report.TagsCreated = append(report.TagsCreated, ap.Tag)
		}
	}

	return report, nil
}
