// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package gitrepo_test

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/gitrepo"
	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/gitrepo/gitrepotest"
	"github.com/AleutianAI/relgraph/pkg/validation"
)

func TestParseCommitID(t *testing.T) {
	id, ok := gitrepo.ParseCommitID("0123456789ABCDEF0123456789abcdef01234567")
	assert.True(t, ok)
	assert.Equal(t, gitrepo.CommitID("0123456789abcdef0123456789abcdef01234567"), id)
	assert.Equal(t, "01234567", id.Short())

	for _, bad := range []string{"", "abc123", "zz23456789abcdef0123456789abcdef01234567", "manual:^1.0"} {
		_, ok := gitrepo.ParseCommitID(bad)
		assert.False(t, ok, bad)
	}
}

func TestChangedPaths(t *testing.T) {
	oldTree := gitrepo.Tree{"a.txt": "100644 1", "b.txt": "100644 2", "c.txt": "100644 3"}
	newTree := gitrepo.Tree{"a.txt": "100644 1", "b.txt": "100644 9", "d.txt": "100644 4"}

	assert.Equal(t, []string{"b.txt", "c.txt", "d.txt"}, gitrepo.ChangedPaths(oldTree, newTree))
	assert.Equal(t, []string{"a.txt"}, gitrepo.ChangedPaths(nil, gitrepo.Tree{"a.txt": "x"}))
	assert.Empty(t, gitrepo.ChangedPaths(oldTree, oldTree))
}

func TestOpen_NotARepository(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	_, err := gitrepo.Open(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, gitrepo.ErrNotRepository)
}

func TestRepo_HeadOnEmptyRepository(t *testing.T) {
	f := gitrepotest.New(t)
	_, err := f.Open().Head(context.Background())
	assert.ErrorIs(t, err, gitrepo.ErrNoHead)
}

func TestRepo_CommitsAndHistory(t *testing.T) {
	ctx := context.Background()
	f := gitrepotest.New(t)

	c1 := f.Commit("chore: init", map[string]string{"README.md": "# x\n"})
	c2 := f.Commit("feat(lib): add lib", map[string]string{"lib/a.go": "package lib\n"})
	c3 := f.Commit("fix: readme\n\nlonger body", map[string]string{"README.md": "# y\n"})

	repo := f.Open()

	head, err := repo.Head(ctx)
	require.NoError(t, err)
	assert.Equal(t, c3, head)

	all, err := repo.RevList(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []gitrepo.CommitID{c3, c2, c1}, all)

	since, err := repo.RevList(ctx, c1)
	require.NoError(t, err)
	assert.Equal(t, []gitrepo.CommitID{c3, c2}, since)

	info, err := repo.Commit(ctx, c3)
	require.NoError(t, err)
	assert.Equal(t, []gitrepo.CommitID{c2}, info.Parents)
	assert.Equal(t, "fix: readme", info.Summary())
	assert.Equal(t, "fix: readme\n\nlonger body", info.Message)
	assert.False(t, info.IsMerge())

	root, err := repo.Commit(ctx, c1)
	require.NoError(t, err)
	assert.Empty(t, root.Parents)

	oldTree, err := repo.LoadTree(ctx, root.Tree)
	require.NoError(t, err)
	newTree, err := repo.LoadTree(ctx, info.Tree)
	require.NoError(t, err)
	assert.Contains(t, newTree, "lib/a.go")
	assert.Equal(t, []string{"README.md", "lib/a.go"}, gitrepo.ChangedPaths(oldTree, newTree))
}

func TestRepo_TagsAndAncestry(t *testing.T) {
	ctx := context.Background()
	f := gitrepotest.New(t)

	c1 := f.Commit("one", map[string]string{"a": "1"})
	f.Tag("lib-v1.0.0")
	c2 := f.Commit("two", map[string]string{"a": "2"})
	f.AnnotatedTag("lib-v1.1.0")
	f.Branch("side")
	side := f.Commit("side", map[string]string{"b": "1"})
	f.Checkout("main")

	repo := f.Open()

	tags, err := repo.Tags(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []gitrepo.Tag{
		{Name: "lib-v1.0.0", Commit: c1},
		{Name: "lib-v1.1.0", Commit: c2},
	}, tags)

	id, ok, err := repo.ResolveTag(ctx, "lib-v1.1.0")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, c2, id, "annotated tags are peeled to their commit")

	_, ok, err = repo.ResolveTag(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	yes, err := repo.IsAncestor(ctx, c1, c2)
	require.NoError(t, err)
	assert.True(t, yes)

	no, err := repo.IsAncestor(ctx, side, c2)
	require.NoError(t, err)
	assert.False(t, no)

	self, err := repo.IsAncestor(ctx, c2, c2)
	require.NoError(t, err)
	assert.True(t, self)
}

func TestRepo_MergeCommit(t *testing.T) {
	ctx := context.Background()
	f := gitrepotest.New(t)

	f.Commit("base", map[string]string{"a": "1"})
	f.Branch("topic")
	f.Commit("topic work", map[string]string{"b": "1"})
	f.Checkout("main")
	f.Commit("main work", map[string]string{"c": "1"})
	merge := f.Merge("topic", "Merge branch 'topic'")

	info, err := f.Open().Commit(ctx, merge)
	require.NoError(t, err)
	assert.True(t, info.IsMerge())
	assert.Len(t, info.Parents, 2)
}

func TestRepo_BlameLine(t *testing.T) {
	ctx := context.Background()
	f := gitrepotest.New(t)

	c1 := f.Commit("one", map[string]string{"deps.yaml": "first\n"})
	c2 := f.Commit("two", map[string]string{"deps.yaml": "first\nsecond\n"})

	repo := f.Open()

	got, err := repo.BlameLine(ctx, "deps.yaml", 1)
	require.NoError(t, err)
	assert.Equal(t, c1, got)

	got, err = repo.BlameLine(ctx, "deps.yaml", 2)
	require.NoError(t, err)
	assert.Equal(t, c2, got)

	_, err = repo.BlameLine(ctx, "deps.yaml", 5)
	assert.ErrorIs(t, err, gitrepo.ErrUncommittedLine)
}

func TestRepo_CreateTag(t *testing.T) {
	ctx := context.Background()
	f := gitrepotest.New(t)
	head := f.Commit("one", map[string]string{"a": "1"})
	repo := f.Open()

	created, err := repo.CreateTag(ctx, "relgraph-baseline")
	require.NoError(t, err)
	assert.True(t, created)

	id, ok, err := repo.ResolveTag(ctx, "relgraph-baseline")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, head, id)

	created, err = repo.CreateTag(ctx, "relgraph-baseline")
	require.NoError(t, err)
	assert.False(t, created)

	created, err = repo.CreateTag(ctx, "--delete")
	assert.ErrorIs(t, err, validation.ErrInvalidName)
	assert.False(t, created)
}

func TestCommandError(t *testing.T) {
	inner := errors.New("exit status 128")
	err := &gitrepo.CommandError{Command: "git log", ExitCode: 128, Stderr: "fatal: bad object", Wrapped: inner}

	assert.Equal(t, "git log (exit 128): fatal: bad object", err.Error())
	assert.ErrorIs(t, err, inner)

	bare := &gitrepo.CommandError{Command: "git log", ExitCode: 1}
	assert.Equal(t, "git log (exit 1)", bare.Error())
}

func TestRepo_CommandFailureIsTyped(t *testing.T) {
	f := gitrepotest.New(t)
	f.Commit("one", map[string]string{"a": "1"})

	_, err := f.Open().Commit(context.Background(), gitrepo.CommitID("0123456789abcdef0123456789abcdef01234567"))
	var cmdErr *gitrepo.CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.NotZero(t, cmdErr.ExitCode)
}
