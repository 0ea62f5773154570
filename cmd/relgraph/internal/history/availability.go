// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package history

import (
	"context"
	"fmt"

	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/gitrepo"
	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/graph"
	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/version"
)

// AvailabilityKind classifies whether a commit has shipped in a project.
type AvailabilityKind int

const (
	// NotAvailable: neither released nor reachable from HEAD.
	NotAvailable AvailabilityKind = iota

	// ExistingRelease: contained in the project's latest release tag.
	ExistingRelease

	// NewRelease: reachable from HEAD, so a release made now contains it.
	NewRelease
)

// String returns a short label.
func (k AvailabilityKind) String() string {
	switch k {
	case ExistingRelease:
		return "existing-release"
	case NewRelease:
		return "new-release"
	default:
		return "not-available"
	}
}

// Availability is the answer to "which release of a project contains a
// commit". Version is only meaningful for ExistingRelease.
type Availability struct {
	Kind    AvailabilityKind
	Version version.Version
}

// FindEarliestReleaseContaining determines where a commit becomes
// available for a project.
//
// # Description
//
// If the project's latest release tag is the commit or descends from it,
// that release already contains it. Otherwise, if HEAD is the commit or
// descends from it, the next release will. Otherwise it is not available.
//
// # Inputs
//
//   - ctx: Context for git subprocesses.
//   - projectName: The project's user-facing name.
//   - singleProject: Whether bare "v" tags count for the project.
//   - commit: The commit to locate.
func (a *Analyzer) FindEarliestReleaseContaining(ctx context.Context, projectName string, singleProject bool, commit gitrepo.CommitID) (Availability, error) {
	tag, err := a.FindLatestTagForProject(ctx, projectName, singleProject)
	if err != nil {
		return Availability{}, err
	}

	if tag != nil {
		shipped, err := a.repo.IsAncestor(ctx, commit, tag.Commit)
		if err != nil {
			return Availability{}, fmt.Errorf("checking %s against tag %s: %w", commit.Short(), tag.TagName, err)
		}
		if shipped {
			return Availability{Kind: ExistingRelease, Version: tag.Version}, nil
		}
	}

	head, err := a.repo.Head(ctx)
	if err != nil {
		return Availability{}, err
	}
	reachable, err := a.repo.IsAncestor(ctx, commit, head)
	if err != nil {
		return Availability{}, fmt.Errorf("checking %s against HEAD: %w", commit.Short(), err)
	}
	if reachable {
		return Availability{Kind: NewRelease}, nil
	}
	return Availability{Kind: NotAvailable}, nil
}

// ReleaseAvailability answers FindEarliestReleaseContaining for a project of
// g, treating bare version tags as its own when g holds a single project.
func (a *Analyzer) ReleaseAvailability(ctx context.Context, g *graph.ProjectGraph, dependee graph.ProjectID, commit gitrepo.CommitID) (Availability, error) {
	return a.FindEarliestReleaseContaining(ctx, g.Lookup(dependee).Name, g.Len() == 1, commit)
}
