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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/config"
	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/gitrepo"
	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/gitrepo/gitrepotest"
	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/graph"
	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/resolve"
	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/version"
)

// =============================================================================
// Helpers
// =============================================================================

const configPath = ".relgraph/config.yaml"

const baseConfig = `projects:
  - qualified_names: [core]
    prefix: core/
    version: 0.0.0
  - qualified_names: [cli]
    prefix: cli/
    version: 0.1.0
`

const depConfig = baseConfig + `    dependencies:
      - target: core
        literal: "^1.1"
        requirement: "thiscommit:use-core-api"
`

// fixture lays out:
//
//	c0 chore: initial          core/, cli/, config without deps   <- core-v1.0.0
//	c1 feat(core): add api     core/api.go
//	c2 fix(cli): use new api   cli/main.go, config gains the dependency
type fixture struct {
	*gitrepotest.Fixture
	c0, c1, c2 gitrepo.CommitID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{Fixture: gitrepotest.New(t)}
	f.c0 = f.Commit("chore: initial", map[string]string{
		"core/lib.go": "package core",
		"cli/main.go": "package main",
		configPath:    baseConfig,
	})
	f.Tag("core-v1.0.0")
	f.c1 = f.Commit("feat(core): add api", map[string]string{"core/api.go": "package core // api"})
	f.c2 = f.Commit("fix(cli): use new api", map[string]string{
		"cli/main.go": "package main // api",
		configPath:    depConfig,
	})
	return f
}

func openSession(t *testing.T, f *gitrepotest.Fixture) *Session {
	t.Helper()
	cfg, err := config.Load(f.Dir)
	require.NoError(t, err)
	s, err := Open(context.Background(), f.Open(), cfg, nil)
	require.NoError(t, err)
	return s
}

func project(t *testing.T, s *Session, name string) *graph.Project {
	t.Helper()
	id, ok := s.Graph().LookupIdent(name)
	require.True(t, ok, "project %s", name)
	return s.Graph().Lookup(id)
}

func findApplied(t *testing.T, r *ApplyReport, name string) AppliedProject {
	t.Helper()
	for _, p := range r.Projects {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("project %s missing from report", name)
	return AppliedProject{}
}

// =============================================================================
// Open
// =============================================================================

func TestOpen_BuildsGraph(t *testing.T) {
	f := newFixture(t)
	s := openSession(t, f.Fixture)

	assert.NotEmpty(t, s.ID())
	assert.Equal(t, 2, s.Graph().Len())

	core := project(t, s, "core")
	assert.Equal(t, "1.0.0", core.Version.String(), "0.0.0 resolves from the release tag")

	cli := project(t, s, "cli")
	assert.Equal(t, "0.1.0", cli.Version.String())
	require.Len(t, cli.InternalDeps, 1)
	dep := cli.InternalDeps[0]
	assert.Equal(t, core.ID, dep.Target)
	assert.Equal(t, "^1.1", dep.Literal)
	assert.Equal(t, graph.CommitRequirement(f.c2), dep.Requirement, "thiscommit: blames the declaring line")
}

func TestOpen_IgnoredProject(t *testing.T) {
	f := gitrepotest.New(t)
	f.Commit("chore: initial", map[string]string{configPath: baseConfig + "  - qualified_names: [docs]\n    prefix: docs/\n    version: 1.0.0\n    ignore: true\n"})

	s := openSession(t, f)
	assert.Equal(t, 2, s.Graph().Len())
	_, ok := s.Graph().LookupIdent("docs")
	assert.False(t, ok)
}

func TestOpen_UnknownDependencyTarget(t *testing.T) {
	f := gitrepotest.New(t)
	f.Commit("chore: initial", map[string]string{configPath: baseConfig + "    dependencies:\n      - target: nope\n"})

	cfg, err := config.Load(f.Dir)
	require.NoError(t, err)
	_, err = Open(context.Background(), f.Open(), cfg, nil)
	assert.ErrorIs(t, err, graph.ErrUnknownDependency)
}

func TestOpen_InvalidRequirement(t *testing.T) {
	f := gitrepotest.New(t)
	f.Commit("chore: initial", map[string]string{configPath: baseConfig + "    dependencies:\n      - target: core\n        requirement: \"HEAD~1\"\n"})

	cfg, err := config.Load(f.Dir)
	require.NoError(t, err)
	_, err = Open(context.Background(), f.Open(), cfg, nil)
	assert.ErrorIs(t, err, ErrInvalidHistoryRef)
}

// =============================================================================
// Status
// =============================================================================

func TestStatus(t *testing.T) {
	f := newFixture(t)
	s := openSession(t, f.Fixture)

	st, err := s.Status(context.Background())
	require.NoError(t, err)
	require.Len(t, st, 2)

	assert.Equal(t, "core", st[0].Name, "dependees first")
	assert.Equal(t, 1, st[0].Commits)
	require.NotNil(t, st[0].ReleaseTag)
	assert.Equal(t, "core-v1.0.0", st[0].ReleaseTag.TagName)
	assert.Equal(t, version.BumpMinor, st[0].Analysis.Recommendation)
	require.NotNil(t, st[0].Suggested)
	assert.Equal(t, "1.1.0", st[0].Suggested.String())
	assert.Equal(t, []string{"cli"}, st[0].Dependents)

	assert.Equal(t, "cli", st[1].Name)
	assert.Nil(t, st[1].ReleaseTag)
	assert.Equal(t, 2, st[1].Commits, "c0 by path, c2 by scope")
	require.Len(t, st[1].Dependencies, 1)
	assert.Equal(t, "core", st[1].Dependencies[0].Target)
	assert.Equal(t, string(f.c2), st[1].Dependencies[0].Requirement)
}

// =============================================================================
// ApplyVersions
// =============================================================================

func TestApplyVersions_AutoReleasesBoth(t *testing.T) {
	f := newFixture(t)
	s := openSession(t, f.Fixture)

	specs, err := ParseBumpSpecs([]string{"*=auto"})
	require.NoError(t, err)

	report, err := s.ApplyVersions(context.Background(), ApplyOptions{Specs: specs})
	require.NoError(t, err)

	core := findApplied(t, report, "core")
	assert.True(t, core.Released)
	assert.Equal(t, "1.0.0", core.Previous.String())
	assert.Equal(t, "1.1.0", core.Version.String())
	assert.Equal(t, "core-v1.1.0", core.Tag)

	cli := findApplied(t, report, "cli")
	assert.True(t, cli.Released)
	assert.Equal(t, "0.1.1", cli.Version.String())
	require.Len(t, cli.Dependencies, 1)
	assert.Equal(t, "1.1.0", cli.Dependencies[0].Resolved, "satisfied by core's release in the same run")
	assert.Empty(t, report.Unmet)
	assert.Empty(t, report.TagsCreated)
}

func TestApplyVersions_DependeeNotReleased(t *testing.T) {
	f := newFixture(t)
	s := openSession(t, f.Fixture)

	_, err := s.ApplyVersions(context.Background(), ApplyOptions{
		Specs: map[string]version.Scheme{"cli": {Kind: version.SchemeBump, Bump: version.BumpPatch}},
	})
	require.Error(t, err)

	var unsat *resolve.UnsatisfiedRequirementError
	require.True(t, errors.As(err, &unsat))
	assert.Equal(t, "cli", unsat.Project)
	assert.Equal(t, []string{"core"}, unsat.Dependees)
}

func TestApplyVersions_UnreleasedDependerWarnsOnly(t *testing.T) {
	f := newFixture(t)
	s := openSession(t, f.Fixture)

	report, err := s.ApplyVersions(context.Background(), ApplyOptions{})
	require.NoError(t, err)

	for _, p := range report.Projects {
		assert.False(t, p.Released, p.Name)
		assert.Equal(t, p.Previous, p.Version)
	}
	require.Len(t, report.Unmet, 1)
	assert.Equal(t, "cli", report.Unmet[0].Project)
}

func TestApplyVersions_ExistingReleaseSatisfies(t *testing.T) {
	f := newFixture(t)
	f.Tag("core-v1.1.0")
	s := openSession(t, f.Fixture)

	report, err := s.ApplyVersions(context.Background(), ApplyOptions{
		Specs: map[string]version.Scheme{"cli": {Kind: version.SchemeBump, Bump: version.BumpMinor}},
	})
	require.NoError(t, err)

	core := findApplied(t, report, "core")
	assert.False(t, core.Released)
	assert.Equal(t, "1.1.0", core.Version.String(), "version taken from the newest tag")

	cli := findApplied(t, report, "cli")
	assert.Equal(t, "0.2.0", cli.Version.String())
	assert.Equal(t, "1.1.0", cli.Dependencies[0].Resolved)
}

func TestApplyVersions_PinExactAndTags(t *testing.T) {
	f := newFixture(t)
	s := openSession(t, f.Fixture)

	report, err := s.ApplyVersions(context.Background(), ApplyOptions{
		Specs:      map[string]version.Scheme{AllProjects: {Kind: version.SchemeAuto}},
		PinExact:   true,
		CreateTags: true,
	})
	require.NoError(t, err)

	cli := findApplied(t, report, "cli")
	assert.Equal(t, "manual:1.1.0", cli.Dependencies[0].Requirement)
	assert.ElementsMatch(t, []string{"core-v1.1.0", "cli-v0.1.1"}, report.TagsCreated)

	id, ok, err := s.Repo().ResolveTag(context.Background(), "cli-v0.1.1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, f.c2, id)
}

const qualifiedConfig = `projects:
  - qualified_names: [core, go]
    prefix: go/
    version: 1.0.0
  - qualified_names: [core, npm]
    prefix: npm/
    version: 1.0.0
`

const bareprefixConfig = `projects:
  - qualified_names: [lib]
    prefix: lib
    version: 1.0.0
  - qualified_names: [root]
    prefix: ""
    version: 1.0.0
`

func TestApplyVersions_TagsQualifiedNames(t *testing.T) {
	f := gitrepotest.New(t)
	f.Commit("chore: initial", map[string]string{
		"go/core.go":   "package core",
		"npm/index.js": "export {}",
		configPath:     qualifiedConfig,
	})
	s := openSession(t, f)
	project(t, s, "go:core")
	project(t, s, "npm:core")

	report, err := s.ApplyVersions(context.Background(), ApplyOptions{
		Specs:      map[string]version.Scheme{AllProjects: {Kind: version.SchemeBump, Bump: version.BumpMinor}},
		CreateTags: true,
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"go/core-v1.1.0", "npm/core-v1.1.0"}, report.TagsCreated)

	f.Commit("feat(go): more", map[string]string{"go/more.go": "package core"})
	statuses, err := openSession(t, f).Status(context.Background())
	require.NoError(t, err)
	for _, st := range statuses {
		require.NotNil(t, st.ReleaseTag, st.Name)
		assert.Equal(t, "1.1.0", st.ReleaseTag.Version.String())
	}
}

func TestOpen_PrefixIsADirectory(t *testing.T) {
	f := gitrepotest.New(t)
	f.Commit("chore: initial", map[string]string{
		"lib/x.go":   "package lib",
		"libfoo.txt": "not lib",
		configPath:   bareprefixConfig,
	})
	s := openSession(t, f)
	lib := project(t, s, "lib")
	assert.Equal(t, "lib/", lib.Prefix)

	root := project(t, s, "root")
	assert.True(t, root.Paths.Matches("libfoo.txt"))
	assert.False(t, lib.Paths.Matches("libfoo.txt"))
	assert.True(t, lib.Paths.Matches("lib/x.go"))
}

func TestApplyVersions_UnknownProject(t *testing.T) {
	f := newFixture(t)
	s := openSession(t, f.Fixture)

	_, err := s.ApplyVersions(context.Background(), ApplyOptions{
		Specs: map[string]version.Scheme{"nope": {Kind: version.SchemeAuto}},
	})
	assert.ErrorIs(t, err, graph.ErrNoSuchProject)
}

func TestApplyVersions_ExactOlderRejected(t *testing.T) {
	f := newFixture(t)
	s := openSession(t, f.Fixture)

	_, err := s.ApplyVersions(context.Background(), ApplyOptions{
		Specs: map[string]version.Scheme{"core": {Kind: version.SchemeExact, Exact: version.MustParse("0.9.0")}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project `core`")
}

// =============================================================================
// Bump specs
// =============================================================================

func TestParseBumpSpecs(t *testing.T) {
	specs, err := ParseBumpSpecs([]string{"core=minor", "cli=2.0.0", "*=auto"})
	require.NoError(t, err)
	assert.Equal(t, version.Scheme{Kind: version.SchemeBump, Bump: version.BumpMinor}, specs["core"])
	assert.Equal(t, version.SchemeExact, specs["cli"].Kind)
	assert.Equal(t, "2.0.0", specs["cli"].Exact.String())
	assert.Equal(t, version.SchemeAuto, specs[AllProjects].Kind)

	for _, bad := range [][]string{{"core"}, {"=minor"}, {"core=sideways"}, {"core=minor", "core=major"}} {
		_, err := ParseBumpSpecs(bad)
		assert.ErrorIs(t, err, ErrInvalidBumpSpec, "%v", bad)
	}
}

// =============================================================================
// Baseline
// =============================================================================

func TestCreateBaseline(t *testing.T) {
	ctx := context.Background()
	f := gitrepotest.New(t)
	head := f.Commit("chore: initial", map[string]string{"x": "1"})
	repo := f.Open()

	created, err := CreateBaseline(ctx, repo, nil)
	require.NoError(t, err)
	assert.True(t, created)

	id, ok, err := repo.ResolveTag(ctx, "relgraph-baseline")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, head, id)

	f.Commit("chore: more", map[string]string{"x": "2"})
	created, err = CreateBaseline(ctx, repo, nil)
	require.NoError(t, err)
	assert.False(t, created)

	id, _, err = repo.ResolveTag(ctx, "relgraph-baseline")
	require.NoError(t, err)
	assert.Equal(t, head, id, "existing baseline is not moved")
}
