// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package gitrepo reads and annotates a local git repository by running the
// git binary.
//
// Only local object-store operations are exposed: resolving refs, listing
// tags, walking history, loading trees, ancestry checks, blame and creating
// lightweight tags. Nothing here talks to a remote.
//
// # Thread Safety
//
// Repo holds no mutable state and is safe for concurrent use.
package gitrepo

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/relgraph/pkg/validation"
)

// CommitID is a full hexadecimal object name.
type CommitID string

// Short returns the first 8 characters.
func (c CommitID) Short() string {
	if len(c) > 8 {
		return string(c[:8])
	}
	return string(c)
}

// ParseCommitID accepts a full 40 (SHA-1) or 64 (SHA-256) hex object name.
func ParseCommitID(s string) (CommitID, bool) {
	if len(s) != 40 && len(s) != 64 {
		return "", false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
			return "", false
		}
	}
	return CommitID(strings.ToLower(s)), true
}

// Tag is a tag name and the commit it ultimately points to.
type Tag struct {
	Name   string
	Commit CommitID
}

// CommitInfo is the subset of a commit object the engine reads.
type CommitInfo struct {
	ID      CommitID
	Tree    string
	Parents []CommitID
	Message string
}

// Summary returns the first line of the message.
func (c CommitInfo) Summary() string {
	s, _, _ := strings.Cut(c.Message, "\n")
	return strings.TrimSpace(s)
}

// IsMerge reports whether the commit has more than one parent.
func (c CommitInfo) IsMerge() bool {
	return len(c.Parents) > 1
}

// Repo is a handle on a git work tree.
type Repo struct {
	root string
}

// Open locates the work tree containing dir.
//
// # Inputs
//
//   - ctx: Context for cancellation. Must not be nil.
//   - dir: Any directory inside the work tree.
//
// # Outputs
//
//   - *Repo: Handle rooted at the top level of the work tree.
//   - error: ErrNotRepository if dir is not inside one.
func Open(ctx context.Context, dir string) (*Repo, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}

	probe := &Repo{root: abs}
	out, err := probe.run(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotRepository, abs, err)
	}
	return &Repo{root: strings.TrimSpace(out)}, nil
}

// Root returns the absolute path of the work tree.
func (r *Repo) Root() string {
	return r.root
}

// WorkPath converts a repository-relative slash path to a filesystem path.
func (r *Repo) WorkPath(rel string) string {
	return filepath.Join(r.root, filepath.FromSlash(rel))
}

// Head returns the commit HEAD points to.
func (r *Repo) Head(ctx context.Context) (CommitID, error) {
	id, ok, err := r.resolveCommit(ctx, "HEAD")
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNoHead
	}
	return id, nil
}

// ResolveTag returns the commit a tag points to, peeling annotated tags.
// A missing tag yields ok == false and no error.
func (r *Repo) ResolveTag(ctx context.Context, name string) (CommitID, bool, error) {
	return r.resolveCommit(ctx, "refs/tags/"+name)
}

// HasCommit reports whether id names a commit in the object store.
func (r *Repo) HasCommit(ctx context.Context, id CommitID) (bool, error) {
	_, ok, err := r.resolveCommit(ctx, string(id))
	return ok, err
}

func (r *Repo) resolveCommit(ctx context.Context, rev string) (CommitID, bool, error) {
	out, code, err := r.runStatus(ctx, "rev-parse", "--verify", "--quiet", rev+"^{commit}")
	if err != nil {
		return "", false, err
	}
	if code != 0 {
		return "", false, nil
	}
	return CommitID(strings.TrimSpace(out)), true, nil
}

// Tags lists every tag that resolves to a commit.
//
// # Outputs
//
//   - []Tag: Tags in refname order. Tags on trees or blobs are skipped.
//   - error: Non-nil if git fails.
func (r *Repo) Tags(ctx context.Context) ([]Tag, error) {
	out, err := r.run(ctx, "for-each-ref",
		"--format=%(refname:strip=2) %(objecttype) %(objectname) %(*objecttype) %(*objectname)",
		"refs/tags")
	if err != nil {
		return nil, err
	}

	var tags []Tag
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		switch {
		case len(fields) == 3 && fields[1] == "commit":
			tags = append(tags, Tag{Name: fields[0], Commit: CommitID(fields[2])})
		case len(fields) == 5 && fields[1] == "tag" && fields[3] == "commit":
			tags = append(tags, Tag{Name: fields[0], Commit: CommitID(fields[4])})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("parsing tag list: %w", err)
	}
	return tags, nil
}

// RevList walks history from HEAD, newest first, excluding everything
// reachable from hide. An empty hide walks the whole history.
func (r *Repo) RevList(ctx context.Context, hide CommitID) ([]CommitID, error) {
	args := []string{"rev-list", "HEAD"}
	if hide != "" {
		args = append(args, "^"+string(hide))
	}
	args = append(args, "--")

	out, err := r.run(ctx, args...)
	if err != nil {
		return nil, err
	}

	var ids []CommitID
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			ids = append(ids, CommitID(line))
		}
	}
	return ids, nil
}

// Commit loads a commit's tree, parents and message.
func (r *Repo) Commit(ctx context.Context, id CommitID) (CommitInfo, error) {
	out, err := r.run(ctx, "log", "-1", "--no-show-signature", "--format=%T%x00%P%x00%B", string(id), "--")
	if err != nil {
		return CommitInfo{}, err
	}

	parts := strings.SplitN(out, "\x00", 3)
	if len(parts) != 3 {
		return CommitInfo{}, fmt.Errorf("unexpected commit format for %s", id)
	}

	info := CommitInfo{
		ID:      id,
		Tree:    strings.TrimSpace(parts[0]),
		Message: strings.TrimRight(parts[2], "\n"),
	}
	for _, p := range strings.Fields(parts[1]) {
		info.Parents = append(info.Parents, CommitID(p))
	}
	return info, nil
}

// TreeOf returns the tree object id of a commit.
func (r *Repo) TreeOf(ctx context.Context, id CommitID) (string, error) {
	out, err := r.run(ctx, "rev-parse", "--verify", string(id)+"^{tree}")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// IsAncestor reports whether ancestor is reachable from descendant. A commit
// counts as its own ancestor.
func (r *Repo) IsAncestor(ctx context.Context, ancestor, descendant CommitID) (bool, error) {
	if ancestor == descendant {
		return true, nil
	}
	_, code, err := r.runStatus(ctx, "merge-base", "--is-ancestor", string(ancestor), string(descendant))
	if err != nil {
		return false, err
	}
	return code == 0, nil
}

// BlameLine returns the commit that last changed a line of a file as of HEAD.
//
// # Inputs
//
//   - path: Repository-relative slash path.
//   - line: 1-based line number.
//
// # Outputs
//
//   - CommitID: The commit that introduced the line.
//   - error: ErrUncommittedLine if HEAD has no such line.
func (r *Repo) BlameLine(ctx context.Context, path string, line int) (CommitID, error) {
	rangeArg := strconv.Itoa(line) + "," + strconv.Itoa(line)
	out, err := r.run(ctx, "blame", "--porcelain", "-L", rangeArg, "HEAD", "--", path)
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) && strings.Contains(cmdErr.Stderr, "has only") {
			return "", fmt.Errorf("%w: %s:%d", ErrUncommittedLine, path, line)
		}
		return "", err
	}

	first, _, _ := strings.Cut(out, "\n")
	fields := strings.Fields(first)
	if len(fields) == 0 {
		return "", fmt.Errorf("empty blame output for %s:%d", path, line)
	}
	id, ok := ParseCommitID(fields[0])
	if !ok {
		return "", fmt.Errorf("unexpected blame output for %s:%d: %q", path, line, first)
	}
	return id, nil
}

// CreateTag creates a lightweight tag at HEAD. It returns false without
// error if the tag already exists.
func (r *Repo) CreateTag(ctx context.Context, name string) (bool, error) {
	if err := validation.ValidateTagName(name); err != nil {
		return false, err
	}
	if _, exists, err := r.ResolveTag(ctx, name); err != nil {
		return false, err
	} else if exists {
		return false, nil
	}
	if _, err := r.run(ctx, "tag", name, "HEAD"); err != nil {
		return false, err
	}
	return true, nil
}

// =============================================================================
// Subprocess plumbing
// =============================================================================

// run executes git and fails on any non-zero exit.
func (r *Repo) run(ctx context.Context, args ...string) (string, error) {
	out, code, err := r.exec(ctx, args...)
	if err != nil {
		return "", err
	}
	if code != 0 {
		return "", out.err
	}
	return out.stdout, nil
}

// runStatus executes git and reports exit code 1 as a status rather than a
// failure. Higher codes are errors.
func (r *Repo) runStatus(ctx context.Context, args ...string) (string, int, error) {
	out, code, err := r.exec(ctx, args...)
	if err != nil {
		return "", code, err
	}
	if code > 1 {
		return "", code, out.err
	}
	return out.stdout, code, nil
}

type result struct {
	stdout string
	err    *CommandError
}

func (r *Repo) exec(ctx context.Context, args ...string) (result, int, error) {
	sub := ""
	if len(args) > 0 {
		sub = args[0]
	}

	ctx, span := startCommandSpan(ctx, sub, r.root)
	defer span.End()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.root
	cmd.Env = append(os.Environ(), "LC_ALL=C", "GIT_TERMINAL_PROMPT=0")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	code := 0
	if runErr != nil {
		code = -1
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			code = exitErr.ExitCode()
		}
	}
	recordCommand(ctx, sub, time.Since(start), code)
	span.SetAttributes(attribute.Int("git.exit_code", code))

	cmdErr := &CommandError{
		Command:  "git " + strings.Join(args, " "),
		ExitCode: code,
		Stderr:   strings.TrimSpace(stderr.String()),
		Wrapped:  runErr,
	}
	if code < 0 {
		span.SetStatus(codes.Error, runErr.Error())
		return result{}, code, cmdErr
	}
	if code != 0 {
		span.SetStatus(codes.Error, cmdErr.Stderr)
	}
	return result{stdout: stdout.String(), err: cmdErr}, code, nil
}
