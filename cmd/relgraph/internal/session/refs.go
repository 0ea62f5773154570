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
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/gitrepo"
	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/graph"
)

const (
	thisCommitPrefix = "thiscommit:"
	manualPrefix     = "manual:"
)

var (
	// ErrInvalidHistoryRef is the sentinel behind InvalidHistoryRefError.
	ErrInvalidHistoryRef = errors.New("invalid history reference")

	// ErrUnknownCommit means a history reference names a commit the
	// repository does not have.
	ErrUnknownCommit = errors.New("commit not found in repository")

	// ErrSaltNotFound means a thiscommit: salt does not occur in its file.
	ErrSaltNotFound = errors.New("commit-ref key not found")
)

// InvalidHistoryRefError reports requirement text that is neither a commit
// id nor a "thiscommit:" or "manual:" reference.
type InvalidHistoryRefError struct {
	Text string
}

func (e *InvalidHistoryRefError) Error() string {
	return fmt.Sprintf("invalid history reference `%s`", e.Text)
}

func (e *InvalidHistoryRefError) Unwrap() error {
	return ErrInvalidHistoryRef
}

// HistoryRefKind tags a ParsedHistoryRef.
type HistoryRefKind int

const (
	RefCommit HistoryRefKind = iota
	RefThisCommit
	RefManual
)

// ParsedHistoryRef is requirement text after syntax checks and before any
// repository lookups.
type ParsedHistoryRef struct {
	Kind   HistoryRefKind
	Commit gitrepo.CommitID
	Salt   string
	Manual string
}

// ParseHistoryRef parses a full commit id, "thiscommit:<salt>" or
// "manual:<text>".
func ParseHistoryRef(text string) (ParsedHistoryRef, error) {
	if id, ok := gitrepo.ParseCommitID(text); ok {
		return ParsedHistoryRef{Kind: RefCommit, Commit: id}, nil
	}
	if salt, ok := strings.CutPrefix(text, thisCommitPrefix); ok {
		return ParsedHistoryRef{Kind: RefThisCommit, Salt: salt}, nil
	}
	if manual, ok := strings.CutPrefix(text, manualPrefix); ok {
		return ParsedHistoryRef{Kind: RefManual, Manual: manual}, nil
	}
	return ParsedHistoryRef{}, &InvalidHistoryRefError{Text: text}
}

// ResolveHistoryRef turns a parsed reference into a requirement.
//
// # Description
//
// Commit ids must exist in the repository. A "thiscommit:" salt is looked up
// in sourcePath, the repository-relative file that declares it; the commit
// that last touched the first line containing the salt is the requirement.
// That line must be committed.
//
// # Inputs
//
//   - ctx: Context for git subprocesses.
//   - repo: The repository.
//   - ref: The parsed reference.
//   - sourcePath: Repository-relative path of the declaring file.
//
// # Outputs
//
//   - graph.Requirement: A commit or manual requirement.
//   - error: ErrUnknownCommit, ErrSaltNotFound, gitrepo.ErrUncommittedLine
//     or a repository error.
func ResolveHistoryRef(ctx context.Context, repo *gitrepo.Repo, ref ParsedHistoryRef, sourcePath string) (graph.Requirement, error) {
	var id gitrepo.CommitID

	switch ref.Kind {
	case RefManual:
		return graph.ManualRequirement(ref.Manual), nil

	case RefThisCommit:
		line, err := findSaltLine(repo.WorkPath(sourcePath), ref.Salt)
		if err != nil {
			return graph.Requirement{}, fmt.Errorf("%s: %w", sourcePath, err)
		}
		if id, err = repo.BlameLine(ctx, sourcePath, line); err != nil {
			return graph.Requirement{}, fmt.Errorf("commit-ref key `%s` must be committed before it can be referenced: %w", ref.Salt, err)
		}

	default:
		id = ref.Commit
	}

	ok, err := repo.HasCommit(ctx, id)
	if err != nil {
		return graph.Requirement{}, err
	}
	if !ok {
		return graph.Requirement{}, fmt.Errorf("%w: %s", ErrUnknownCommit, id)
	}
	return graph.CommitRequirement(id), nil
}

// findSaltLine returns the 1-based number of the first line containing salt.
func findSaltLine(path, salt string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for n := 1; sc.Scan(); n++ {
		if strings.Contains(sc.Text(), salt) {
			return n, nil
		}
	}
	if err := sc.Err(); err != nil {
		return 0, err
	}
	return 0, fmt.Errorf("%w: `%s`", ErrSaltNotFound, salt)
}
