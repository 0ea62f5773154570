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
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/session"
)

var errNoBumpSpecs = errors.New("no bump specs given (try '*=auto')")

func newApplyCmd(opts *rootOptions) *cobra.Command {
	var (
		pinExact   bool
		createTags bool
	)

	cmd := &cobra.Command{
		Use:   "apply name=scheme...",
		Short: "Decide new versions and resolve internal requirements",
		Long: `Applies a bump scheme to each named project, dependees first, and checks
that every released project's internal dependencies are satisfied by an
existing release or by a release in the same run.

Schemes are major, minor, patch, auto (from conventional commits) or an exact
version. The name '*' applies to every project with commits since its last
release; explicit names take precedence.`,
		Example: `  relgraph apply '*=auto'
  relgraph apply core=minor cli=auto --tag
  relgraph apply core=2.0.0 --pin-exact --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return &usageError{err: errNoBumpSpecs}
			}
			specs, err := session.ParseBumpSpecs(args)
			if err != nil {
				return err
			}

			s, err := opts.openSession(cmd.Context())
			if err != nil {
				return err
			}
			report, err := s.ApplyVersions(cmd.Context(), session.ApplyOptions{
				Specs:      specs,
				PinExact:   pinExact,
				CreateTags: createTags,
			})
			if err != nil {
				return err
			}

			if opts.jsonOut {
				return opts.writeJSON(report)
			}
			printApply(opts, report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&pinExact, "pin-exact", false, "Rewrite internal requirements to the exact final dependee versions")
	cmd.Flags().BoolVar(&createTags, "tag", false, "Create a local release tag at HEAD for every released project")
	return cmd
}

func printApply(opts *rootOptions, report *session.ApplyReport) {
	p := opts.printer()
	p.Title("Release plan")

	released := 0
	for _, ap := range report.Projects {
		if !ap.Released {
			p.Item(ap.Name, "unchanged at "+ap.Version.String())
			continue
		}
		released++
		p.Item(p.Bold(ap.Name)+" "+p.Change(ap.Previous.String(), ap.Version.String()), ap.Tag)
		for _, d := range ap.Dependencies {
			resolved := d.Requirement
			if d.Resolved != "" {
				resolved += " = " + d.Resolved
			}
			p.KeyValue(d.Target, resolved)
		}
	}

	for _, u := range report.Unmet {
		p.Warning(fmt.Sprintf("%s needs newer %s (not released, ignored)", u.Project, strings.Join(u.Dependees, ", ")))
	}
	for _, tag := range report.TagsCreated {
		p.Success("created tag " + tag)
	}

	fmt.Fprintln(opts.stdout)
	if released == 0 {
		p.Warning("nothing to release")
		return
	}
	p.Success(fmt.Sprintf("%d of %d projects released", released, len(report.Projects)))
}
