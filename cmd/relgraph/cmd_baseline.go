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

	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/history"
	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/session"
)

type baselineResult struct {
	Tag     string `json:"tag"`
	Created bool   `json:"created"`
}

func newBaselineCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "baseline",
		Short: "Tag HEAD as the history baseline",
		Long: `Creates the ` + history.BaselineTagName + ` tag at HEAD. Projects that have never
been released count their commits from the baseline instead of from the
beginning of history.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, _, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			created, err := session.CreateBaseline(cmd.Context(), repo, opts.logger.Slog())
			if err != nil {
				return err
			}

			if opts.jsonOut {
				return opts.writeJSON(baselineResult{Tag: history.BaselineTagName, Created: created})
			}
			p := opts.printer()
			if created {
				p.Success("created tag " + history.BaselineTagName)
			} else {
				p.Warning(history.BaselineTagName + " already exists")
			}
			return nil
		},
	}
}
