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
	"sort"

	graphlib "github.com/dominikbraun/graph"
)

// ProjectGraph is the finalized project DAG.
//
// # Description
//
// Projects are owned by a dense slice indexed by ProjectID; everything else
// refers to them by id. Edges run dependee -> depender and the topological
// order is computed once at construction.
//
// # Thread Safety
//
// The shape is immutable. Project fields (version, dependency resolution)
// are mutated in place by a single writer; concurrent readers must
// coordinate externally.
type ProjectGraph struct {
	projects   []*Project
	nameToID   map[string]ProjectID
	edges      graphlib.Graph[ProjectID, ProjectID]
	toposorted []ProjectID
}

// Len returns the number of projects.
func (g *ProjectGraph) Len() int {
	return len(g.projects)
}

// Lookup returns the project for id. id must originate from this graph.
func (g *ProjectGraph) Lookup(id ProjectID) *Project {
	return g.projects[id]
}

// LookupIdent returns the id of the project with the given user-facing name.
func (g *ProjectGraph) LookupIdent(name string) (ProjectID, bool) {
	id, ok := g.nameToID[name]
	return id, ok
}

// Projects returns all projects in id order.
func (g *ProjectGraph) Projects() []*Project {
	out := make([]*Project, len(g.projects))
	copy(out, g.projects)
	return out
}

// Toposorted returns project ids with every dependee before its dependers.
func (g *ProjectGraph) Toposorted() []ProjectID {
	out := make([]ProjectID, len(g.toposorted))
	copy(out, g.toposorted)
	return out
}

// Dependents returns the ids of projects that directly depend on id, in
// ascending order.
func (g *ProjectGraph) Dependents(id ProjectID) []ProjectID {
	adj, err := g.edges.AdjacencyMap()
	if err != nil {
		return nil
	}
	out := make([]ProjectID, 0, len(adj[id]))
	for dep := range adj[id] {
		out = append(out, dep)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Query selects projects by name and ecosystem type.
type Query struct {
	// Names restricts the result to these user-facing names. Empty selects
	// every project in topological order.
	Names []string

	// ProjectType keeps only projects whose broadest qualified name equals
	// it. Projects with a single qualified name have no type.
	ProjectType string
}

// Query resolves q against the graph.
//
// # Outputs
//
//   - []ProjectID: Matching ids, each at most once, in name order when
//     Names is set and topological order otherwise.
//   - error: *NoSuchProjectError for the first unknown name.
func (g *ProjectGraph) Query(q Query) ([]ProjectID, error) {
	var roots []ProjectID
	if len(q.Names) == 0 {
		roots = g.toposorted
	} else {
		roots = make([]ProjectID, 0, len(q.Names))
		for _, name := range q.Names {
			id, ok := g.nameToID[name]
			if !ok {
				return nil, &NoSuchProjectError{Name: name}
			}
			roots = append(roots, id)
		}
	}

	seen := make(map[ProjectID]bool, len(roots))
	matched := make([]ProjectID, 0, len(roots))
	for _, id := range roots {
		if q.ProjectType != "" {
			qn := g.projects[id].QualifiedNames
			if len(qn) < 2 || qn[len(qn)-1] != q.ProjectType {
				continue
			}
		}
		if !seen[id] {
			seen[id] = true
			matched = append(matched, id)
		}
	}
	return matched, nil
}
