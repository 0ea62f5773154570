// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"strings"

	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/gitrepo"
	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/pathmatch"
	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/version"
)

// ProjectID is a dense index into the graph's project slice. IDs only
// originate from a Builder and are valid for the graph it produces.
type ProjectID int

// =============================================================================
// Requirements
// =============================================================================

// RequirementKind tags the variant held by a Requirement.
type RequirementKind int

const (
	// RequirementUnavailable means no minimum version could be determined.
	RequirementUnavailable RequirementKind = iota

	// RequirementCommit means the dependee must include a given commit.
	RequirementCommit

	// RequirementManual is fixed text from configuration.
	RequirementManual
)

// String returns the kind name.
func (k RequirementKind) String() string {
	switch k {
	case RequirementCommit:
		return "commit"
	case RequirementManual:
		return "manual"
	default:
		return "unavailable"
	}
}

// Requirement expresses a dependency's minimum acceptable version. The zero
// value is Unavailable.
type Requirement struct {
	Kind RequirementKind

	// Commit is set for RequirementCommit.
	Commit gitrepo.CommitID

	// Manual is set for RequirementManual.
	Manual string
}

// CommitRequirement requires a release that contains id.
func CommitRequirement(id gitrepo.CommitID) Requirement {
	return Requirement{Kind: RequirementCommit, Commit: id}
}

// ManualRequirement pins a requirement to literal text.
func ManualRequirement(text string) Requirement {
	return Requirement{Kind: RequirementManual, Manual: text}
}

// Unavailable returns the requirement for "unknown".
func Unavailable() Requirement {
	return Requirement{}
}

// String renders the requirement as it would be written in configuration.
func (r Requirement) String() string {
	switch r.Kind {
	case RequirementCommit:
		return string(r.Commit)
	case RequirementManual:
		return "manual:" + r.Manual
	default:
		return "unavailable"
	}
}

// =============================================================================
// Projects
// =============================================================================

// Dependency is an edge from the owning project to Target.
type Dependency struct {
	Target ProjectID

	// Literal is the requirement text as written in the depender's manifest.
	Literal string

	Requirement Requirement

	// ResolvedVersion is nil until the dependency resolver visits the
	// depender.
	ResolvedVersion *version.Version
}

// Project is one independently versioned unit in the repository.
type Project struct {
	ID ProjectID

	// QualifiedNames are ordered narrowest first and never change.
	QualifiedNames []string

	// Name is the unique user-facing name assigned at CompleteLoading.
	Name string

	Version version.Version

	// Prefix bounds the project's files. "" is the repository root.
	Prefix string

	// Paths is derived from Prefix and made disjoint from nested projects.
	Paths *pathmatch.Matcher

	InternalDeps []Dependency
}

// FullName joins all qualified names broadest first, e.g. "go:core".
func (p *Project) FullName() string {
	return fullName(p.QualifiedNames)
}

func fullName(qnames []string) string {
	n := len(qnames)
	parts := make([]string, n)
	for i, q := range qnames {
		parts[n-1-i] = q
	}
	return strings.Join(parts, ":")
}
