// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package gitrepotest builds throwaway git repositories for tests.
package gitrepotest

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/gitrepo"
)

// baseTime keeps commit timestamps strictly increasing so history order is
// stable regardless of how fast the test runs.
const baseTime = 1700000000

// Fixture is a git work tree under t.TempDir().
type Fixture struct {
	t     testing.TB
	Dir   string
	clock int
}

// New initializes an empty repository. The test is skipped when git is not
// installed.
func New(t testing.TB) *Fixture {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	f := &Fixture{t: t, Dir: t.TempDir()}
	f.Git("init", "-q")
	f.Git("config", "user.email", "test@test.com")
	f.Git("config", "user.name", "Test")
	f.Git("config", "commit.gpgsign", "false")
	f.Git("config", "tag.gpgsign", "false")
	f.Git("symbolic-ref", "HEAD", "refs/heads/main")
	return f
}

// Open returns a gitrepo handle on the fixture.
func (f *Fixture) Open() *gitrepo.Repo {
	f.t.Helper()
	repo, err := gitrepo.Open(context.Background(), f.Dir)
	if err != nil {
		f.t.Fatalf("open fixture: %v", err)
	}
	return repo
}

// Git runs a git command in the fixture and returns trimmed stdout.
func (f *Fixture) Git(args ...string) string {
	f.t.Helper()

	f.clock++
	date := fmt.Sprintf("%d +0000", baseTime+f.clock)

	cmd := exec.Command("git", args...)
	cmd.Dir = f.Dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_DATE="+date,
		"GIT_COMMITTER_DATE="+date,
		"GIT_CONFIG_NOSYSTEM=1",
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		f.t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

// Write creates or replaces a file relative to the work tree.
func (f *Fixture) Write(rel, content string) {
	f.t.Helper()
	path := filepath.Join(f.Dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		f.t.Fatalf("mkdir for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		f.t.Fatalf("write %s: %v", rel, err)
	}
}

// Remove deletes a file relative to the work tree.
func (f *Fixture) Remove(rel string) {
	f.t.Helper()
	if err := os.Remove(filepath.Join(f.Dir, filepath.FromSlash(rel))); err != nil {
		f.t.Fatalf("remove %s: %v", rel, err)
	}
}

// Commit writes files (path to content), stages everything and commits.
func (f *Fixture) Commit(message string, files map[string]string) gitrepo.CommitID {
	f.t.Helper()
	for rel, content := range files {
		f.Write(rel, content)
	}
	f.Git("add", "-A")
	f.Git("commit", "-q", "--allow-empty", "-m", message)
	return f.Head()
}

// Head returns the current HEAD commit.
func (f *Fixture) Head() gitrepo.CommitID {
	f.t.Helper()
	return gitrepo.CommitID(f.Git("rev-parse", "HEAD"))
}

// Tag creates a lightweight tag at HEAD.
func (f *Fixture) Tag(name string) {
	f.t.Helper()
	f.Git("tag", name)
}

// AnnotatedTag creates an annotated tag at HEAD.
func (f *Fixture) AnnotatedTag(name string) {
	f.t.Helper()
	f.Git("tag", "-a", "-m", "release "+name, name)
}

// Branch creates and checks out a new branch.
func (f *Fixture) Branch(name string) {
	f.t.Helper()
	f.Git("checkout", "-q", "-b", name)
}

// Checkout switches to an existing branch.
func (f *Fixture) Checkout(name string) {
	f.t.Helper()
	f.Git("checkout", "-q", name)
}

// Merge merges branch into the current branch with a merge commit.
func (f *Fixture) Merge(branch, message string) gitrepo.CommitID {
	f.t.Helper()
	f.Git("merge", "-q", "--no-ff", "-m", message, branch)
	return f.Head()
}
