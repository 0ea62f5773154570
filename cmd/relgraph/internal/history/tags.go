// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package history

import (
	"sort"
	"strings"

	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/gitrepo"
	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/version"
)

// BaselineTagName marks the shared starting point for projects that have
// never been released.
const BaselineTagName = "relgraph-baseline"

// ReleaseTagInfo identifies the release marker a history is bounded by.
type ReleaseTagInfo struct {
	Commit  gitrepo.CommitID `json:"commit"`
	TagName string           `json:"tag"`
	Version version.Version  `json:"version"`
}

// ReleaseTagName formats the tag a project release is published under.
// Single-project repositories use a bare "v" prefix.
func ReleaseTagName(projectName string, v version.Version, singleProject bool) string {
	if singleProject {
		return "v" + v.String()
	}
	return releaseTagPrefix(projectName) + v.String()
}

// releaseTagPrefix is "<name>-v" with the ":" name delimiter, which git
// forbids in ref names, written as "/". "go:core" is tagged "go/core-v1.0.0".
func releaseTagPrefix(projectName string) string {
	return strings.ReplaceAll(projectName, ":", "/") + "-v"
}

// latestTag picks the highest-versioned release tag for a project.
//
// # Description
//
// "<name>-v<digit>..." tags always qualify; the version is read from the
// text after the prefix only, so "web-vue-v2.0.0" is not a release of "web".
// Bare "v<digit>..." tags qualify only when the repository holds exactly one
// project. Tags whose version does not parse rank as 0.0.0; ties keep the
// lexically smallest name.
//
// # Outputs
//
//   - *ReleaseTagInfo: The winning tag, or nil if none qualifies.
func latestTag(tags []gitrepo.Tag, projectName string, singleProject bool) *ReleaseTagInfo {
	prefix := releaseTagPrefix(projectName)

	var candidates []ReleaseTagInfo
	for _, t := range tags {
		var v version.Version
		switch {
		case strings.HasPrefix(t.Name, prefix) && startsWithDigit(t.Name[len(prefix):]):
			v, _ = version.FromTag(t.Name, prefix)
		case singleProject && isBareVersionTag(t.Name):
			v, _ = version.FromTag(t.Name, "v")
		default:
			continue
		}
		candidates = append(candidates, ReleaseTagInfo{Commit: t.Commit, TagName: t.Name, Version: v})
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if c := version.Compare(candidates[i].Version, candidates[j].Version); c != 0 {
			return c > 0
		}
		return candidates[i].TagName < candidates[j].TagName
	})
	best := candidates[0]
	return &best
}

func isBareVersionTag(name string) bool {
	return len(name) > 1 && name[0] == 'v' && startsWithDigit(name[1:])
}

func startsWithDigit(s string) bool {
	return s != "" && s[0] >= '0' && s[0] <= '9'
}

func baselineTag(tags []gitrepo.Tag) *ReleaseTagInfo {
	for _, t := range tags {
		if t.Name == BaselineTagName {
			return &ReleaseTagInfo{Commit: t.Commit, TagName: t.Name, Version: version.Zero()}
		}
	}
	return nil
}
