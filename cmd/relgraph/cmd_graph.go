// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"github.com/spf13/cobra"

	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/graph"
	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/session"
	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/version"
)

// graphEntry is one project in `relgraph graph` output.
type graphEntry struct {
	Name         string                     `json:"name"`
	FullName     string                     `json:"full_name"`
	Prefix       string                     `json:"prefix"`
	Version      version.Version            `json:"version"`
	Dependencies []session.DependencyStatus `json:"dependencies,omitempty"`
	Dependents   []string                   `json:"dependents,omitempty"`
}

func newGraphCmd(opts *rootOptions) *cobra.Command {
	var projectType string

	cmd := &cobra.Command{
		Use:   "graph [names...]",
		Short: "Show projects and their internal dependencies",
		Long: `Lists projects dependees first. Names restrict the listing; --type keeps
only projects whose broadest qualified name matches.`,
		Example: `  relgraph graph
  relgraph graph core cli
  relgraph graph --type go --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.openSession(cmd.Context())
			if err != nil {
				return err
			}
			g := s.Graph()

			ids, err := g.Query(graph.Query{Names: args, ProjectType: projectType})
			if err != nil {
				return err
			}

			entries := make([]graphEntry, 0, len(ids))
			for _, id := range ids {
				entries = append(entries, newGraphEntry(g, id))
			}

			if opts.jsonOut {
				return opts.writeJSON(entries)
			}
			printGraph(opts, entries)
			return nil
		},
	}
	cmd.Flags().StringVar(&projectType, "type", "", "Only projects of this type, e.g. go")
	return cmd
}

func newGraphEntry(g *graph.ProjectGraph, id graph.ProjectID) graphEntry {
	p := g.Lookup(id)
	e := graphEntry{
		Name:     p.Name,
		FullName: p.FullName(),
		Prefix:   p.Prefix,
		Version:  p.Version,
	}
	for _, d := range p.InternalDeps {
		e.Dependencies = append(e.Dependencies, session.DependencyStatus{
			Target:      g.Lookup(d.Target).Name,
			Literal:     d.Literal,
			Requirement: d.Requirement.String(),
		})
	}
	for _, dep := range g.Dependents(id) {
		e.Dependents = append(e.Dependents, g.Lookup(dep).Name)
	}
	return e
}

func printGraph(opts *rootOptions, entries []graphEntry) {
	p := opts.printer()
	p.Title("Projects")
	if len(entries) == 0 {
		p.Warning("no matching projects")
		return
	}
	for _, e := range entries {
		p.Section(p.Bold(e.Name))
		p.KeyValue("full name", e.FullName)
		p.KeyValue("version", e.Version.String())
		p.KeyValue("prefix", displayPrefix(e.Prefix))
		for _, d := range e.Dependencies {
			p.Item("needs "+d.Target+" "+d.Literal, d.Requirement)
		}
		for _, name := range e.Dependents {
			p.Item("used by "+name, "")
		}
	}
}

func displayPrefix(prefix string) string {
	if prefix == "" {
		return "(repository root)"
	}
	return prefix
}
