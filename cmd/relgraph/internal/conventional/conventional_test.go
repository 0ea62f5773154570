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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/version"
)

func TestParse(t *testing.T) {
	c, err := Parse("feat(auth)!: drop legacy tokens\n\nmore detail")
	require.NoError(t, err)
	assert.Equal(t, "feat", c.Type)
	assert.Equal(t, "auth", c.Scope)
	assert.True(t, c.Breaking)
	assert.Equal(t, "drop legacy tokens", c.Description)
	assert.Equal(t, "more detail", c.Body)

	c, err = Parse("Fix: handle nil")
	require.NoError(t, err)
	assert.Equal(t, "fix", c.Type)
	assert.Empty(t, c.Scope)
	assert.False(t, c.Breaking)

	c, err = Parse("feat: add feature\n\nBREAKING CHANGE: breaks API")
	require.NoError(t, err)
	assert.True(t, c.Breaking)
}

func TestParse_Rejects(t *testing.T) {
	for _, msg := range []string{
		"random message",
		"feat():empty scope",
		"feat(): empty scope",
		"feat:missing space",
		"",
		"Merge branch 'main' into topic",
	} {
		_, err := Parse(msg)
		assert.ErrorIs(t, err, ErrNotConventional, msg)
	}
}

func TestExtractScope(t *testing.T) {
	assert.Equal(t, "auth", ExtractScope("feat(auth): add login"))
	assert.Equal(t, "gate", ExtractScope("fix(gate): resolve bug"))
	assert.Equal(t, "", ExtractScope("feat: no scope"))
	assert.Equal(t, "", ExtractScope("random message"))
}

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name     string
		messages []string
		want     version.BumpKind
	}{
		{"feat recommends minor", []string{"feat: add feature"}, version.BumpMinor},
		{"fix recommends patch", []string{"fix: bug"}, version.BumpPatch},
		{"perf recommends patch", []string{"perf(db): faster"}, version.BumpPatch},
		{"bang recommends major", []string{"feat!: breaking change"}, version.BumpMajor},
		{"footer recommends major", []string{"feat: add\n\nBREAKING CHANGE: breaks API"}, version.BumpMajor},
		{"chore recommends nothing", []string{"chore: tidy", "not conventional"}, version.BumpNone},
		{"highest wins", []string{"fix: a", "feat: b", "docs: c"}, version.BumpMinor},
		{"empty", nil, version.BumpNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Analyze(tt.messages).Recommendation)
		})
	}
}

func TestAnalysis_Summary(t *testing.T) {
	a := Analyze([]string{"feat: one", "fix: two", "fix: three", "chore: four"})
	assert.Equal(t, 4, a.Total)
	assert.Equal(t, 1, a.Features)
	assert.Equal(t, 2, a.Fixes)
	assert.Equal(t, 1, a.Other)
	assert.Equal(t, "4 commits: 1 feat, 2 fix, 1 other -> suggests MINOR", a.Summary())

	assert.Equal(t, "no commits to analyze", Analyze(nil).Summary())
	assert.Equal(t, "1 commit: 1 other -> suggests NO BUMP", Analyze([]string{"wip"}).Summary())
}

func TestParseMatchMode(t *testing.T) {
	assert.Equal(t, MatchExact, ParseMatchMode("EXACT"))
	assert.Equal(t, MatchSuffix, ParseMatchMode("suffix"))
	assert.Equal(t, MatchContains, ParseMatchMode("contains"))
	assert.Equal(t, MatchSmart, ParseMatchMode("whatever"))
	assert.Equal(t, MatchSmart, ParseMatchMode(""))
}

func TestScopeMatcher_Exact(t *testing.T) {
	m := NewScopeMatcher(MatchExact, nil, nil)
	names := []string{"gate", "jiji", "acme-jwt"}

	assert.Equal(t, 0, m.FindProject("gate", names))
	assert.Equal(t, 0, m.FindProject("GATE", names))
	assert.Equal(t, -1, m.FindProject("jwt", names))
}

func TestScopeMatcher_Suffix(t *testing.T) {
	m := NewScopeMatcher(MatchSuffix, nil, nil)
	names := []string{"gate", "acme-jwt", "acme_events"}

	assert.Equal(t, 1, m.FindProject("jwt", names))
	assert.Equal(t, 2, m.FindProject("events", names))
	assert.Equal(t, 0, m.FindProject("gate", names))
	assert.Equal(t, -1, m.FindProject("acme", names))
}

func TestScopeMatcher_Smart(t *testing.T) {
	m := NewScopeMatcher(MatchSmart, nil, nil)
	names := []string{"gate", "jiji", "acme-jwt", "gateway"}

	assert.Equal(t, 0, m.FindProject("gate", names))
	assert.Equal(t, 2, m.FindProject("jwt", names))
	assert.Equal(t, 3, m.FindProject("way", names))
	assert.Equal(t, -1, m.FindProject("unknown", names))
	assert.Equal(t, -1, m.FindProject("", names))
}

func TestScopeMatcher_Mappings(t *testing.T) {
	m := NewScopeMatcher(MatchExact, map[string]string{"Auth": "acme-jwt"}, nil)
	names := []string{"gate", "acme-jwt"}

	assert.Equal(t, 1, m.FindProject("auth", names))

	m = NewScopeMatcher(MatchExact, map[string]string{"auth": "missing"}, nil)
	assert.Equal(t, -1, m.FindProject("auth", names), "a mapping to an unknown project does not fall through")
}

func TestScopeMatcher_PackageScopes(t *testing.T) {
	m := NewScopeMatcher(MatchExact, nil, map[string][]string{
		"acme-jwt": {"jwt", "token", "auth"},
	})
	names := []string{"gate", "acme-jwt"}

	assert.Equal(t, 1, m.FindProject("token", names))
	assert.Equal(t, 1, m.FindProject("auth", names))
	assert.Equal(t, 0, m.FindProject("gate", names))
}
