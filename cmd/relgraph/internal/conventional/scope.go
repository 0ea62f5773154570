// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package conventional

import (
	"sort"
	"strings"
)

// MatchMode selects how a commit scope is compared to project names.
type MatchMode string

const (
	// MatchSmart tries exact, then suffix, then contains.
	MatchSmart MatchMode = "smart"

	// MatchExact requires the name to equal the scope.
	MatchExact MatchMode = "exact"

	// MatchSuffix also accepts names ending in "-scope" or "_scope".
	MatchSuffix MatchMode = "suffix"

	// MatchContains accepts names containing the scope.
	MatchContains MatchMode = "contains"
)

// ParseMatchMode maps a configuration string to a mode. Unknown values
// fall back to MatchSmart.
func ParseMatchMode(s string) MatchMode {
	switch MatchMode(strings.ToLower(strings.TrimSpace(s))) {
	case MatchExact:
		return MatchExact
	case MatchSuffix:
		return MatchSuffix
	case MatchContains:
		return MatchContains
	default:
		return MatchSmart
	}
}

// ScopeMatcher attributes a commit scope to a project name.
//
// # Thread Safety
//
// Immutable after construction; safe for concurrent use.
type ScopeMatcher struct {
	mode     MatchMode
	mappings map[string]string

	// aliases maps a lower-cased scope alias to a project name, built from
	// package scopes in sorted project order.
	aliases map[string]string
}

// NewScopeMatcher builds a matcher.
//
// # Inputs
//
//   - mode: The fallback comparison mode.
//   - mappings: Explicit scope to project name overrides.
//   - packageScopes: Project name to the scopes that also denote it.
func NewScopeMatcher(mode MatchMode, mappings map[string]string, packageScopes map[string][]string) *ScopeMatcher {
	m := &ScopeMatcher{
		mode:     ParseMatchMode(string(mode)),
		mappings: make(map[string]string, len(mappings)),
		aliases:  make(map[string]string),
	}
	for scope, project := range mappings {
		m.mappings[strings.ToLower(scope)] = project
	}

	pkgs := make([]string, 0, len(packageScopes))
	for pkg := range packageScopes {
		pkgs = append(pkgs, pkg)
	}
	sort.Strings(pkgs)
	for _, pkg := range pkgs {
		for _, s := range packageScopes[pkg] {
			key := strings.ToLower(s)
			if _, taken := m.aliases[key]; !taken {
				m.aliases[key] = pkg
			}
		}
	}
	return m
}

// FindProject returns the index into names of the project the scope
// denotes, or -1.
//
// Explicit mappings win over package scopes, which win over mode
// comparison. Comparisons are case-insensitive; the first name in order
// that satisfies a rule is returned.
func (m *ScopeMatcher) FindProject(scope string, names []string) int {
	s := strings.ToLower(strings.TrimSpace(scope))
	if s == "" {
		return -1
	}

	if mapped, ok := m.mappings[s]; ok {
		return indexFold(names, mapped)
	}
	if pkg, ok := m.aliases[s]; ok {
		return indexFold(names, pkg)
	}

	switch m.mode {
	case MatchExact:
		return matchExact(s, names)
	case MatchSuffix:
		return matchSuffix(s, names)
	case MatchContains:
		return matchContains(s, names)
	default:
		if i := matchExact(s, names); i >= 0 {
			return i
		}
		if i := matchSuffix(s, names); i >= 0 {
			return i
		}
		return matchContains(s, names)
	}
}

func indexFold(names []string, target string) int {
	for i, n := range names {
		if strings.EqualFold(n, target) {
			return i
		}
	}
	return -1
}

func matchExact(scope string, names []string) int {
	return indexFold(names, scope)
}

func matchSuffix(scope string, names []string) int {
	for i, n := range names {
		l := strings.ToLower(n)
		if l == scope || strings.HasSuffix(l, "-"+scope) || strings.HasSuffix(l, "_"+scope) {
			return i
		}
	}
	return -1
}

func matchContains(scope string, names []string) int {
	for i, n := range names {
		if strings.Contains(strings.ToLower(n), scope) {
			return i
		}
	}
	return -1
}
