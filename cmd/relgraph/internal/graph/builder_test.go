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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/version"
)

// =============================================================================
// Helpers
// =============================================================================

func addProject(t *testing.T, b *Builder, prefix string, qnames ...string) ProjectID {
	t.Helper()
	id, ok := b.TryAddProject(qnames, nil)
	require.True(t, ok)
	p := b.LookupMut(id)
	p.SetVersion(version.MustParse("1.0.0"))
	p.SetPrefix(prefix)
	return id
}

func namesFor(t *testing.T, qnames ...[]string) []string {
	t.Helper()
	b := NewBuilder()
	for _, q := range qnames {
		addProject(t, b, "", q...)
	}
	g, err := b.CompleteLoading()
	require.NoError(t, err)

	out := make([]string, g.Len())
	for _, p := range g.Projects() {
		out[p.ID] = p.Name
	}
	return out
}

// chain builds projects p0..p(n-1) and edges from pairs (dependee, depender).
func buildWithEdges(t *testing.T, n int, edges [][2]int) (*ProjectGraph, error) {
	t.Helper()
	b := NewBuilder()
	ids := make([]ProjectID, n)
	for i := 0; i < n; i++ {
		ids[i] = addProject(t, b, "", string(rune('a'+i)))
	}
	for _, e := range edges {
		b.AddDependency(ids[e[1]], TargetID(ids[e[0]]), "*", Unavailable())
	}
	return b.CompleteLoading()
}

func assertTopological(t *testing.T, g *ProjectGraph) {
	t.Helper()
	pos := make(map[ProjectID]int)
	for i, id := range g.Toposorted() {
		pos[id] = i
	}
	require.Len(t, pos, g.Len())
	for _, p := range g.Projects() {
		for _, d := range p.InternalDeps {
			assert.Less(t, pos[d.Target], pos[p.ID], "%s must follow its dependee %s", p.Name, g.Lookup(d.Target).Name)
		}
	}
}

// =============================================================================
// Naming
// =============================================================================

func TestNaming(t *testing.T) {
	tests := []struct {
		name   string
		qnames [][]string
		want   []string
	}{
		{"single", [][]string{{"A", "B"}}, []string{"A"}},
		{"shared narrow name", [][]string{{"A", "B"}, {"A", "C"}}, []string{"B:A", "C:A"}},
		{
			"only clashing projects widen",
			[][]string{{"A", "B"}, {"A", "C"}, {"D", "B"}, {"E"}},
			[]string{"B:A", "C:A", "D", "E"},
		},
		{"prefix list", [][]string{{"A", "A"}, {"A"}}, []string{"A:A", "A"}},
		{
			"nested prefixes need several passes",
			[][]string{{"A"}, {"A", "B"}, {"A", "B", "C"}, {"A", "B", "C", "D"}},
			[]string{"A", "B:A", "C:B:A", "D:C:B:A"},
		},
		{
			"divergence deep in the list",
			[][]string{{"core", "go", "svc"}, {"core", "go", "lib"}},
			[]string{"svc:go:core", "lib:go:core"},
		},
		{
			"ecosystems",
			[][]string{{"core", "go"}, {"core", "npm"}, {"cli", "go"}},
			[]string{"go:core", "npm:core", "cli"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, namesFor(t, tt.qnames...))
		})
	}
}

func TestNaming_Deterministic(t *testing.T) {
	input := [][]string{{"x", "go"}, {"x", "npm"}, {"y", "go"}, {"x", "go", "tools"}}
	first := namesFor(t, input...)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, namesFor(t, input...))
	}
}

func TestNaming_IdenticalQualifiedNamesClash(t *testing.T) {
	b := NewBuilder()
	addProject(t, b, "a/", "core", "go")
	addProject(t, b, "b/", "core", "go")

	_, err := b.CompleteLoading()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNamingClash)

	var clash *NamingClashError
	require.True(t, errors.As(err, &clash))
	assert.Equal(t, "go:core", clash.Name)
}

func TestNaming_DelimiterInNameClashes(t *testing.T) {
	b := NewBuilder()
	addProject(t, b, "", "a", "b")
	addProject(t, b, "", "b:a")
	addProject(t, b, "", "a", "c")

	_, err := b.CompleteLoading()
	assert.ErrorIs(t, err, ErrNamingClash)
}

// =============================================================================
// Ignore policy
// =============================================================================

func TestTryAddProject_Ignored(t *testing.T) {
	b := NewBuilder()
	_, ok := b.TryAddProject([]string{"core", "go"}, IgnoreSet{"go:core": true})
	assert.False(t, ok)
	assert.Equal(t, 0, b.ProjectCount())

	id, ok := b.TryAddProject([]string{"core", "npm"}, IgnoreSet{"go:core": true})
	assert.True(t, ok)
	assert.Equal(t, ProjectID(0), id)
}

func TestTryAddProject_CopiesNames(t *testing.T) {
	b := NewBuilder()
	q := []string{"a", "go"}
	id, _ := b.TryAddProject(q, nil)
	q[0] = "mutated"
	assert.Equal(t, []string{"a", "go"}, b.LookupMut(id).QualifiedNames())
}

// =============================================================================
// Cycles and ordering
// =============================================================================

func TestCompleteLoading_Cycles(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		edges   [][2]int
		members []string
	}{
		{"two node", 2, [][2]int{{0, 1}, {1, 0}}, []string{"a", "b"}},
		{"self", 1, [][2]int{{0, 0}}, []string{"a"}},
		{"three node", 3, [][2]int{{0, 1}, {1, 2}, {2, 0}}, []string{"a", "b", "c"}},
		{"partial", 4, [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 2}}, []string{"c", "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildWithEdges(t, tt.n, tt.edges)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrDependencyCycle)

			var cyc *DependencyCycleError
			require.True(t, errors.As(err, &cyc))
			assert.Contains(t, tt.members, cyc.Name)
		})
	}
}

func TestCompleteLoading_ValidGraphs(t *testing.T) {
	tests := []struct {
		name  string
		n     int
		edges [][2]int
	}{
		{"chain", 3, [][2]int{{0, 1}, {1, 2}}},
		{"diamond", 4, [][2]int{{0, 1}, {0, 2}, {1, 3}, {2, 3}}},
		{"independent", 3, nil},
		{"reverse id order", 3, [][2]int{{2, 1}, {1, 0}}},
		{"complex dag", 6, [][2]int{{0, 2}, {1, 2}, {2, 3}, {2, 4}, {3, 5}, {4, 5}, {0, 5}}},
		{"deep chain", 8, [][2]int{{7, 6}, {6, 5}, {5, 4}, {4, 3}, {3, 2}, {2, 1}, {1, 0}}},
		{"many to many", 4, [][2]int{{0, 2}, {0, 3}, {1, 2}, {1, 3}}},
		{"parallel chains", 4, [][2]int{{0, 1}, {2, 3}}},
		{"duplicate edge", 2, [][2]int{{0, 1}, {0, 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := buildWithEdges(t, tt.n, tt.edges)
			require.NoError(t, err)
			assertTopological(t, g)
		})
	}
}

func TestCompleteLoading_StableOrder(t *testing.T) {
	g, err := buildWithEdges(t, 4, [][2]int{{3, 0}})
	require.NoError(t, err)
	assert.Equal(t, []ProjectID{1, 2, 3, 0}, g.Toposorted())
}

func TestCompleteLoading_DependencyByName(t *testing.T) {
	b := NewBuilder()
	app := addProject(t, b, "", "app", "go")
	addProject(t, b, "lib/", "lib", "go")
	b.AddDependency(app, TargetName("lib"), ">=1.0.0", ManualRequirement(">=1.0.0"))

	g, err := b.CompleteLoading()
	require.NoError(t, err)

	libID, ok := g.LookupIdent("lib")
	require.True(t, ok)

	deps := g.Lookup(app).InternalDeps
	require.Len(t, deps, 1)
	assert.Equal(t, libID, deps[0].Target)
	assert.Equal(t, ">=1.0.0", deps[0].Literal)
	assert.Equal(t, RequirementManual, deps[0].Requirement.Kind)
	assert.Nil(t, deps[0].ResolvedVersion)

	assert.Equal(t, []ProjectID{app}, g.Dependents(libID))
	assert.Empty(t, g.Dependents(app))
	assertTopological(t, g)
}

func TestCompleteLoading_UnknownDependency(t *testing.T) {
	b := NewBuilder()
	app := addProject(t, b, "", "app")
	b.AddDependency(app, TargetName("ghost"), "^1", Unavailable())

	_, err := b.CompleteLoading()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownDependency)
	assert.Contains(t, err.Error(), "`app`")
	assert.Contains(t, err.Error(), "`ghost`")
}

func TestCompleteLoading_Incomplete(t *testing.T) {
	b := NewBuilder()
	id, _ := b.TryAddProject([]string{"x"}, nil)
	b.LookupMut(id).SetPrefix("")

	_, err := b.CompleteLoading()
	assert.ErrorIs(t, err, ErrIncompleteProject)
}

func TestCompleteLoading_OnlyOnce(t *testing.T) {
	b := NewBuilder()
	addProject(t, b, "", "x")

	_, err := b.CompleteLoading()
	require.NoError(t, err)

	_, err = b.CompleteLoading()
	assert.ErrorIs(t, err, ErrBuilderConsumed)
}

func TestCompleteLoading_InternalDepsKeepRequirement(t *testing.T) {
	b := NewBuilder()
	a := addProject(t, b, "", "a")
	bb := addProject(t, b, "b/", "b")
	b.AddDependency(a, TargetID(bb), "0.0.0-dev.0", CommitRequirement("0123456789abcdef0123456789abcdef01234567"))

	g, err := b.CompleteLoading()
	require.NoError(t, err)

	dep := g.Lookup(a).InternalDeps[0]
	assert.Equal(t, "0.0.0-dev.0", dep.Literal)
	assert.Equal(t, RequirementCommit, dep.Requirement.Kind)
	assert.Equal(t, "0123456789abcdef0123456789abcdef01234567", dep.Requirement.String())
}

// =============================================================================
// Path matchers
// =============================================================================

func TestCompleteLoading_DisjointPaths(t *testing.T) {
	b := NewBuilder()
	a := addProject(t, b, "a/", "a")
	ab := addProject(t, b, "a/b/", "b")
	root := addProject(t, b, "", "root")

	g, err := b.CompleteLoading()
	require.NoError(t, err)

	pa, pb, pr := g.Lookup(a).Paths, g.Lookup(ab).Paths, g.Lookup(root).Paths

	assert.True(t, pb.Matches("a/b/x"))
	assert.False(t, pa.Matches("a/b/x"))
	assert.True(t, pa.Matches("a/x"))
	assert.False(t, pb.Matches("a/x"))

	assert.True(t, pr.Matches("README.md"))
	assert.False(t, pr.Matches("a/x"))
	assert.False(t, pr.Matches("a/b/x"))
}

// =============================================================================
// Query
// =============================================================================

func TestQuery(t *testing.T) {
	b := NewBuilder()
	goCore := addProject(t, b, "go/core/", "core", "go")
	npmCore := addProject(t, b, "js/core/", "core", "npm")
	cli := addProject(t, b, "cli/", "cli", "go")
	bare := addProject(t, b, "bare/", "bare")
	b.AddDependency(cli, TargetID(goCore), "*", Unavailable())

	g, err := b.CompleteLoading()
	require.NoError(t, err)

	all, err := g.Query(Query{})
	require.NoError(t, err)
	assert.Equal(t, g.Toposorted(), all)

	goOnly, err := g.Query(Query{ProjectType: "go"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []ProjectID{goCore, cli}, goOnly)

	named, err := g.Query(Query{Names: []string{"npm:core", "bare", "npm:core"}})
	require.NoError(t, err)
	assert.Equal(t, []ProjectID{npmCore, bare}, named)

	typedNamed, err := g.Query(Query{Names: []string{"bare", "cli"}, ProjectType: "go"})
	require.NoError(t, err)
	assert.Equal(t, []ProjectID{cli}, typedNamed)

	_, err = g.Query(Query{Names: []string{"cli", "nope"}})
	var nsp *NoSuchProjectError
	require.ErrorAs(t, err, &nsp)
	assert.Equal(t, "nope", nsp.Name)
	assert.ErrorIs(t, err, ErrNoSuchProject)
}

func TestProject_Names(t *testing.T) {
	p := &Project{Name: "core", QualifiedNames: []string{"core", "go"}, Version: version.MustParse("1.2.0")}
	assert.Equal(t, "go:core", p.FullName())
}

func TestRequirement_String(t *testing.T) {
	assert.Equal(t, "unavailable", Unavailable().String())
	assert.Equal(t, "manual:^1.0", ManualRequirement("^1.0").String())
	assert.Equal(t, RequirementUnavailable, Requirement{}.Kind)
}
