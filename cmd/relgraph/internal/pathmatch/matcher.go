// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pathmatch decides whether repository-relative paths belong to a
// project.
//
// A Matcher is an ordered list of Include and Exclude prefix terms. The first
// term whose prefix is a prefix of the candidate path decides the outcome; a
// path that no term covers does not match.
//
// # Thread Safety
//
// Matchers are not safe for concurrent mutation. Once refined they are only
// read, and concurrent Matches calls are safe.
package pathmatch

import (
	"strings"
)

// TermKind distinguishes inclusion from exclusion.
type TermKind int

const (
	// Include accepts paths under the prefix.
	Include TermKind = iota

	// Exclude rejects paths under the prefix.
	Exclude
)

// String returns "include" or "exclude".
func (k TermKind) String() string {
	if k == Exclude {
		return "exclude"
	}
	return "include"
}

// Term is one prefix rule.
type Term struct {
	Kind   TermKind `json:"kind"`
	Prefix string   `json:"prefix"`
}

// Matcher is an ordered set of prefix terms.
type Matcher struct {
	terms []Term
}

// NewInclude creates a matcher that accepts everything under prefix.
//
// # Inputs
//
//   - prefix: Repository-relative path prefix. "" covers the whole repository.
//
// # Outputs
//
//   - *Matcher: A matcher with a single Include term.
func NewInclude(prefix string) *Matcher {
	return &Matcher{terms: []Term{{Kind: Include, Prefix: prefix}}}
}

// Matches reports whether path belongs to the matcher.
//
// Prefix comparison is byte-wise; "lib" therefore also covers "library/x".
// Project prefixes are expected to end in "/" or be empty.
func (m *Matcher) Matches(path string) bool {
	for _, t := range m.terms {
		if strings.HasPrefix(path, t.Prefix) {
			return t.Kind == Include
		}
	}
	return false
}

// MakeDisjoint refines m so it no longer covers paths claimed by other.
//
// # Description
//
// For each Include prefix of other that lies strictly below one of m's
// Include prefixes, an Exclude term for it is placed at the front of m. Equal
// prefixes are left untouched so two projects sharing a directory keep
// matching it.
//
// # Inputs
//
//   - other: The sibling matcher. Not modified.
func (m *Matcher) MakeDisjoint(other *Matcher) {
	var excludes []Term

	for _, ot := range other.terms {
		if ot.Kind != Include {
			continue
		}
		for _, t := range m.terms {
			if t.Kind != Include {
				continue
			}
			if ot.Prefix != t.Prefix && strings.HasPrefix(ot.Prefix, t.Prefix) && !m.hasExclude(ot.Prefix) {
				excludes = append(excludes, Term{Kind: Exclude, Prefix: ot.Prefix})
				break
			}
		}
	}

	if len(excludes) == 0 {
		return
	}
	m.terms = append(excludes, m.terms...)
}

func (m *Matcher) hasExclude(prefix string) bool {
	for _, t := range m.terms {
		if t.Kind == Exclude && t.Prefix == prefix {
			return true
		}
	}
	return false
}

// String renders the terms as "+prefix" / "-prefix" separated by spaces.
func (m *Matcher) String() string {
	var sb strings.Builder
	for i, t := range m.terms {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if t.Kind == Include {
			sb.WriteByte('+')
		} else {
			sb.WriteByte('-')
		}
		if t.Prefix == "" {
			sb.WriteString("<root>")
		} else {
			sb.WriteString(t.Prefix)
		}
	}
	return sb.String()
}
