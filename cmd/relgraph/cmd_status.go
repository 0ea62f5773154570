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
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/session"
)

// metricPrefix selects the process's own collectors from the default
// registry.
const metricPrefix = "relgraph_"

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var showMetrics bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show commits and suggested versions per project",
		Long: `Analyzes every project's history since its latest release tag and reports
the commit count, the conventional-commit breakdown and the version the auto
bump scheme would choose.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.openSession(cmd.Context())
			if err != nil {
				return err
			}
			statuses, err := s.Status(cmd.Context())
			if err != nil {
				return err
			}

			if opts.jsonOut {
				if err := opts.writeJSON(statuses); err != nil {
					return err
				}
			} else {
				printStatus(opts, statuses)
			}

			if showMetrics {
				return writeMetrics(opts.stderr)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "Dump history cache metrics to stderr in Prometheus text format")
	return cmd
}

func printStatus(opts *rootOptions, statuses []session.ProjectStatus) {
	p := opts.printer()
	p.Title("Release status")

	pending := 0
	for _, st := range statuses {
		p.Section(p.Bold(st.Name))
		p.KeyValue("version", st.Version.String())
		if st.ReleaseTag != nil {
			p.KeyValue("since", st.ReleaseTag.TagName+" "+p.Muted(st.ReleaseTag.Commit.Short()))
		} else {
			p.KeyValue("since", p.Muted("beginning of history"))
		}
		p.KeyValue("commits", strconv.Itoa(st.Commits))
		if st.Commits > 0 {
			p.KeyValue("analysis", st.Analysis.Summary())
		}
		if st.Suggested != nil {
			pending++
			p.KeyValue("suggested", p.Change(st.Version.String(), st.Suggested.String()))
		}
		for _, d := range st.Dependencies {
			p.Item("needs "+d.Target, d.Requirement)
		}
	}

	fmt.Fprintln(opts.stdout)
	p.Box("Summary", fmt.Sprintf("%s %s",
		p.Bold(fmt.Sprintf("%d projects", len(statuses))),
		p.Muted(fmt.Sprintf("(%d with releasable changes)", pending))))
}

// writeMetrics writes the relgraph_ metric families in the Prometheus text
// exposition format.
func writeMetrics(w io.Writer) error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), metricPrefix) {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}
