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
	"errors"
	"fmt"
	"sort"

	graphlib "github.com/dominikbraun/graph"

	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/pathmatch"
	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/version"
)

// IgnorePolicy decides whether a discovered project is excluded, keyed by
// its full name (qualified names broadest first, joined by ":").
type IgnorePolicy interface {
	IsIgnored(fullName string) bool
}

// IgnoreSet is an IgnorePolicy backed by a set of full names.
type IgnoreSet map[string]bool

// IsIgnored implements IgnorePolicy.
func (s IgnoreSet) IsIgnored(fullName string) bool {
	return s[fullName]
}

// DependencyTarget identifies a dependee either by id or by user-facing
// name. Names are resolved at CompleteLoading.
type DependencyTarget struct {
	id     ProjectID
	name   string
	byName bool
}

// TargetID refers to an already registered project.
func TargetID(id ProjectID) DependencyTarget {
	return DependencyTarget{id: id}
}

// TargetName refers to a project by the user-facing name it will receive.
func TargetName(name string) DependencyTarget {
	return DependencyTarget{name: name, byName: true}
}

type pendingDep struct {
	target      DependencyTarget
	literal     string
	requirement Requirement
}

// ProjectBuilder is the scan-time state of one project.
type ProjectBuilder struct {
	qnames []string

	version    version.Version
	hasVersion bool

	prefix    string
	hasPrefix bool

	deps []pendingDep
}

// QualifiedNames returns the project's qualified names, narrowest first.
func (p *ProjectBuilder) QualifiedNames() []string {
	return p.qnames
}

// SetVersion records the project's current version.
func (p *ProjectBuilder) SetVersion(v version.Version) {
	p.version = v
	p.hasVersion = true
}

// SetPrefix records the repository path prefix owning the project's files.
// "" is the repository root.
func (p *ProjectBuilder) SetPrefix(prefix string) {
	p.prefix = prefix
	p.hasPrefix = true
}

// Builder accumulates projects and dependency edges during a repository
// scan. CompleteLoading turns it into an immutable-shape ProjectGraph.
//
// # Thread Safety
//
// Not safe for concurrent use.
type Builder struct {
	projects []*ProjectBuilder
	consumed bool
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// TryAddProject registers a candidate project.
//
// # Inputs
//
//   - qnames: Qualified names, narrowest first. Must be non-empty.
//   - policy: Ignore policy keyed by full name. May be nil.
//
// # Outputs
//
//   - ProjectID: The new project's id.
//   - bool: False when the policy ignores the project.
func (b *Builder) TryAddProject(qnames []string, policy IgnorePolicy) (ProjectID, bool) {
	if len(qnames) == 0 {
		panic("graph: project registered without qualified names")
	}
	if policy != nil && policy.IsIgnored(fullName(qnames)) {
		return 0, false
	}

	names := make([]string, len(qnames))
	copy(names, qnames)

	id := ProjectID(len(b.projects))
	b.projects = append(b.projects, &ProjectBuilder{qnames: names})
	return id, true
}

// LookupMut returns the scan-time record for id.
func (b *Builder) LookupMut(id ProjectID) *ProjectBuilder {
	return b.projects[id]
}

// ProjectCount returns the number of registered projects.
func (b *Builder) ProjectCount() int {
	return len(b.projects)
}

// AddDependency records that depender depends on target.
func (b *Builder) AddDependency(depender ProjectID, target DependencyTarget, literal string, req Requirement) {
	p := b.projects[depender]
	p.deps = append(p.deps, pendingDep{target: target, literal: literal, requirement: req})
}

// CompleteLoading finalizes the graph.
//
// # Description
//
// Assigns unique user-facing names, resolves textual dependency targets,
// orders projects topologically (dependees first) and makes every project's
// path matcher disjoint from projects nested beneath it. The builder cannot
// be used afterwards.
//
// # Outputs
//
//   - *ProjectGraph: The finalized graph.
//   - error: *NamingClashError, *UnknownDependencyError,
//     *DependencyCycleError, *IncompleteProjectError or ErrBuilderConsumed.
func (b *Builder) CompleteLoading() (*ProjectGraph, error) {
	if b.consumed {
		return nil, ErrBuilderConsumed
	}
	b.consumed = true

	qnames := make([][]string, len(b.projects))
	for i, p := range b.projects {
		if !p.hasVersion {
			return nil, &IncompleteProjectError{QualifiedNames: p.qnames, Missing: "version"}
		}
		if !p.hasPrefix {
			return nil, &IncompleteProjectError{QualifiedNames: p.qnames, Missing: "prefix"}
		}
		qnames[i] = p.qnames
	}

	names, err := assignNames(qnames)
	if err != nil {
		return nil, err
	}

	g := &ProjectGraph{
		projects: make([]*Project, len(b.projects)),
		nameToID: make(map[string]ProjectID, len(b.projects)),
		edges:    graphlib.New(projectHash, graphlib.Directed()),
	}

	for i, pb := range b.projects {
		id := ProjectID(i)
		g.projects[i] = &Project{
			ID:             id,
			QualifiedNames: pb.qnames,
			Name:           names[i],
			Version:        pb.version,
			Prefix:         pb.prefix,
			Paths:          pathmatch.NewInclude(pb.prefix),
		}
		g.nameToID[names[i]] = id
		if err := g.edges.AddVertex(id); err != nil {
			return nil, fmt.Errorf("adding project %s to graph: %w", names[i], err)
		}
	}

	for i, pb := range b.projects {
		depender := g.projects[i]
		for _, d := range pb.deps {
			target := d.target.id
			if d.target.byName {
				id, ok := g.nameToID[d.target.name]
				if !ok {
					return nil, &UnknownDependencyError{Depender: depender.Name, Target: d.target.name}
				}
				target = id
			} else if int(target) < 0 || int(target) >= len(g.projects) {
				return nil, fmt.Errorf("project `%s` depends on invalid project id %d", depender.Name, target)
			}

			depender.InternalDeps = append(depender.InternalDeps, Dependency{
				Target:      target,
				Literal:     d.literal,
				Requirement: d.requirement,
			})

			err := g.edges.AddEdge(target, depender.ID)
			if err != nil && !errors.Is(err, graphlib.ErrEdgeAlreadyExists) {
				return nil, fmt.Errorf("adding dependency %s -> %s: %w", depender.Name, g.projects[target].Name, err)
			}
		}
	}

	order, err := graphlib.StableTopologicalSort(g.edges, func(a, b ProjectID) bool { return a < b })
	if err != nil {
		return nil, &DependencyCycleError{Name: g.projects[g.cycleMember()].Name}
	}
	g.toposorted = order

	for _, a := range g.projects {
		for _, other := range g.projects {
			if a.ID != other.ID {
				a.Paths.MakeDisjoint(other.Paths)
			}
		}
	}

	return g, nil
}

func projectHash(id ProjectID) ProjectID {
	return id
}

// cycleMember returns the lowest project id that sits on a cycle. Only
// called after topological sorting failed, so a cycle exists.
func (g *ProjectGraph) cycleMember() ProjectID {
	var candidates []ProjectID

	if adj, err := g.edges.AdjacencyMap(); err == nil {
		for v, out := range adj {
			if _, self := out[v]; self {
				candidates = append(candidates, v)
			}
		}
	}

	if sccs, err := graphlib.StronglyConnectedComponents(g.edges); err == nil {
		for _, comp := range sccs {
			if len(comp) > 1 {
				candidates = append(candidates, comp...)
			}
		}
	}

	if len(candidates) == 0 {
		return 0
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })
	return candidates[0]
}
