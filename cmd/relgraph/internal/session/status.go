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

	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/conventional"
	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/history"
	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/version"
)

// DependencyStatus describes one internal dependency as declared.
type DependencyStatus struct {
	Target      string `json:"target"`
	Literal     string `json:"literal,omitempty"`
	Requirement string `json:"requirement"`
}

// ProjectStatus is the pending-release summary of one project.
type ProjectStatus struct {
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Prefix   string `json:"prefix"`

	Version version.Version `json:"version"`

	// ReleaseTag is the marker the history is bounded by, if any.
	ReleaseTag *history.ReleaseTagInfo `json:"release_tag,omitempty"`

	// Commits counts commits affecting the project since ReleaseTag.
	Commits int `json:"commits"`

	Analysis conventional.Analysis `json:"analysis"`

	// Suggested is the next version under the auto bump scheme, or nil
	// when the commits call for no release.
	Suggested *version.Version `json:"suggested,omitempty"`

	Dependencies []DependencyStatus `json:"dependencies,omitempty"`
	Dependents   []string           `json:"dependents,omitempty"`
}

// Status analyzes every project's history and reports what a release would
// contain, in topological order.
func (s *Session) Status(ctx context.Context) ([]ProjectStatus, error) {
	histories, err := s.AnalyzeHistories(ctx)
	if err != nil {
		return nil, err
	}

	g := s.graph
	out := make([]ProjectStatus, 0, g.Len())
	for _, id := range g.Toposorted() {
		p := g.Lookup(id)
		hist := histories.Lookup(id)

		analysis, err := s.analyzeCommits(ctx, hist)
		if err != nil {
			return nil, err
		}

		st := ProjectStatus{
			Name:       p.Name,
			FullName:   p.FullName(),
			Prefix:     p.Prefix,
			Version:    p.Version,
			ReleaseTag: hist.ReleaseTag,
			Commits:    hist.Len(),
			Analysis:   analysis,
		}
		if analysis.Recommendation != version.BumpNone {
			next := p.Version.Bump(s.cfg.Bump.Adjust(p.Version, analysis.Recommendation))
			st.Suggested = &next
		}
		for _, d := range p.InternalDeps {
			st.Dependencies = append(st.Dependencies, DependencyStatus{
				Target:      g.Lookup(d.Target).Name,
				Literal:     d.Literal,
				Requirement: d.Requirement.String(),
			})
		}
		for _, dep := range g.Dependents(id) {
			st.Dependents = append(st.Dependents, g.Lookup(dep).Name)
		}
		out = append(out, st)
	}
	return out, nil
}

func (s *Session) analyzeCommits(ctx context.Context, hist *history.RepoHistory) (conventional.Analysis, error) {
	messages, err := s.analyzer.Messages(ctx, hist.Commits)
	if err != nil {
		return conventional.Analysis{}, err
	}
	return conventional.Analyze(messages), nil
}
