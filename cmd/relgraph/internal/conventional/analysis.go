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
	"fmt"
	"strings"

	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/version"
)

// Analysis counts commit kinds and the bump they call for.
type Analysis struct {
	Recommendation version.BumpKind `json:"recommendation"`
	Total          int              `json:"total"`
	Features       int              `json:"features"`
	Fixes          int              `json:"fixes"`
	Breaking       int              `json:"breaking"`
	Other          int              `json:"other"`
}

// Analyze classifies each message: breaking changes call for a major bump,
// "feat" for minor, "fix" and "perf" for patch. Anything else, including
// non-conventional messages, counts as other.
func Analyze(messages []string) Analysis {
	a := Analysis{Total: len(messages)}

	for _, msg := range messages {
		c, err := Parse(msg)
		if err != nil {
			a.Other++
			continue
		}

		var rec version.BumpKind
		switch {
		case c.Breaking:
			a.Breaking++
			rec = version.BumpMajor
		case c.Type == "feat":
			a.Features++
			rec = version.BumpMinor
		case c.Type == "fix" || c.Type == "perf":
			a.Fixes++
			rec = version.BumpPatch
		default:
			a.Other++
		}
		a.Recommendation = a.Recommendation.Max(rec)
	}
	return a
}

// Summary renders e.g. "3 commits: 1 feat, 2 fix -> suggests MINOR".
func (a Analysis) Summary() string {
	if a.Total == 0 {
		return "no commits to analyze"
	}

	var parts []string
	if a.Features > 0 {
		parts = append(parts, fmt.Sprintf("%d feat", a.Features))
	}
	if a.Fixes > 0 {
		parts = append(parts, fmt.Sprintf("%d fix", a.Fixes))
	}
	if a.Breaking > 0 {
		parts = append(parts, fmt.Sprintf("%d BREAKING", a.Breaking))
	}
	if a.Other > 0 {
		parts = append(parts, fmt.Sprintf("%d other", a.Other))
	}

	noun := "commits"
	if a.Total == 1 {
		noun = "commit"
	}

	suggestion := "NO BUMP"
	if a.Recommendation != version.BumpNone {
		suggestion = strings.ToUpper(a.Recommendation.String())
	}
	return fmt.Sprintf("%d %s: %s -> suggests %s", a.Total, noun, strings.Join(parts, ", "), suggestion)
}
