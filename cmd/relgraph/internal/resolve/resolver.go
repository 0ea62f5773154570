// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package resolve makes internal dependency requirements concrete before
// release decisions are taken.
//
// The resolver visits projects dependees first. For each dependency it
// decides which version of the dependee satisfies the requirement, hands the
// project to a caller-supplied decision callback, and records the versions of
// projects released in this batch so later dependers can rely on them. A
// requirement that cannot be met is an error only if the depending project
// is actually released.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/gitrepo"
	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/graph"
	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/history"
	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/version"
)

// ErrUnsatisfiedRequirement is the sentinel behind UnsatisfiedRequirementError.
var ErrUnsatisfiedRequirement = errors.New("unsatisfied internal requirement")

// UnsatisfiedRequirementError reports a project released with dependencies
// whose required versions are not available.
type UnsatisfiedRequirementError struct {
	Project   string
	Dependees []string
}

// Error implements the error interface.
func (e *UnsatisfiedRequirementError) Error() string {
	return fmt.Sprintf("unsatisfied internal requirement: `%s` needs newer `%s`", e.Project, strings.Join(e.Dependees, ", "))
}

// Unwrap returns the sentinel error.
func (e *UnsatisfiedRequirementError) Unwrap() error {
	return ErrUnsatisfiedRequirement
}

// AvailabilityOracle answers where a commit of a dependee becomes available.
// *history.Analyzer implements it.
type AvailabilityOracle interface {
	ReleaseAvailability(ctx context.Context, g *graph.ProjectGraph, dependee graph.ProjectID, commit gitrepo.CommitID) (history.Availability, error)
}

// ProcessFunc decides a project's fate once its dependencies are resolved.
// It may update the project's Version and returns true when the project is
// released in this batch.
type ProcessFunc func(ctx context.Context, g *graph.ProjectGraph, id graph.ProjectID) (bool, error)

// Unmet records a project left unreleased with requirements that cannot be
// satisfied.
type Unmet struct {
	Project   string   `json:"project"`
	Dependees []string `json:"dependees"`
}

// Result summarizes one resolution pass.
type Result struct {
	// Released maps each released project to its new version.
	Released map[graph.ProjectID]version.Version

	// Unmet lists unreleased projects with unsatisfiable requirements, in
	// topological order.
	Unmet []Unmet
}

// Resolver runs dependency resolution passes.
//
// # Thread Safety
//
// A pass mutates the graph's projects; do not run passes over the same graph
// concurrently.
type Resolver struct {
	oracle AvailabilityOracle
	logger *slog.Logger
}

// NewResolver creates a resolver. A nil logger uses slog.Default().
func NewResolver(oracle AvailabilityOracle, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{oracle: oracle, logger: logger}
}

// SolveInternalDeps resolves every internal dependency in topological order.
//
// # Description
//
// For each project, dependees first:
//
//  1. Commit requirements are located in the dependee's history. An
//     existing release resolves to that release's version. A commit only
//     reachable from HEAD resolves to the dependee's new version if the
//     dependee was released earlier in this pass; otherwise it is unmet.
//     Unreachable commits are unmet.
//  2. Unavailable requirements are always unmet.
//  3. Manual requirements are left untouched.
//
// Unmet dependencies resolve to the dependee's current version as a
// placeholder. process is then called; if it releases a project that has
// unmet dependencies the pass fails, and if it does not the condition is
// only logged.
//
// # Inputs
//
//   - ctx: Passed to the oracle and to process.
//   - g: The project graph. Dependency resolutions are written into it.
//   - process: The per-project release decision.
//
// # Outputs
//
//   - *Result: Released versions and unmet-but-unreleased projects.
//   - error: *UnsatisfiedRequirementError, or an oracle/process error
//     wrapped with the project name.
func (r *Resolver) SolveInternalDeps(ctx context.Context, g *graph.ProjectGraph, process ProcessFunc) (*Result, error) {
	res := &Result{Released: make(map[graph.ProjectID]version.Version)}

	for _, id := range g.Toposorted() {
		proj := g.Lookup(id)
		var unmet []string

		for i := range proj.InternalDeps {
			dep := &proj.InternalDeps[i]
			dependee := g.Lookup(dep.Target)

			switch dep.Requirement.Kind {
			case graph.RequirementCommit:
				avail, err := r.oracle.ReleaseAvailability(ctx, g, dep.Target, dep.Requirement.Commit)
				if err != nil {
					return nil, fmt.Errorf("failed to solve internal dependencies of project `%s`: %w", proj.Name, err)
				}

				var resolved version.Version
				switch avail.Kind {
				case history.ExistingRelease:
					resolved = avail.Version
				case history.NewRelease:
					if v, ok := res.Released[dep.Target]; ok {
						resolved = v
					} else {
						unmet = append(unmet, dependee.Name)
						resolved = dependee.Version
					}
				default:
					unmet = append(unmet, dependee.Name)
					resolved = dependee.Version
				}
				dep.ResolvedVersion = &resolved

			case graph.RequirementManual:
				// Fixed by configuration.

			default:
				unmet = append(unmet, dependee.Name)
				placeholder := dependee.Version
				dep.ResolvedVersion = &placeholder
			}
		}

		released, err := process(ctx, g, id)
		if err != nil {
			return nil, fmt.Errorf("failed to solve internal dependencies of project `%s`: %w", proj.Name, err)
		}

		if released {
			if len(unmet) > 0 {
				return nil, &UnsatisfiedRequirementError{Project: proj.Name, Dependees: unmet}
			}
			res.Released[id] = proj.Version
			continue
		}

		if len(unmet) > 0 {
			r.logger.Warn("project has internal requirements that won't be satisfiable in the wild, but it is not being released",
				slog.String("project", proj.Name),
				slog.String("dependees", strings.Join(unmet, ", ")))
			res.Unmet = append(res.Unmet, Unmet{Project: proj.Name, Dependees: unmet})
		}
	}

	return res, nil
}

// FakeInternalDeps pins every internal dependency to exactly the dependee's
// current version, as a manual requirement. Tools that cannot follow
// commit-based requirements consume this form.
func FakeInternalDeps(g *graph.ProjectGraph) {
	for _, id := range g.Toposorted() {
		proj := g.Lookup(id)
		for i := range proj.InternalDeps {
			dep := &proj.InternalDeps[i]
			v := g.Lookup(dep.Target).Version
			dep.Requirement = graph.ManualRequirement(v.String())
			dep.ResolvedVersion = &v
		}
	}
}
