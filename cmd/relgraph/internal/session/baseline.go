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
	"log/slog"

	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/gitrepo"
	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/history"
)

// CreateBaseline tags HEAD as the shared starting point for history
// analysis of never-released projects. An existing baseline is left in
// place with a warning and reported as not created.
func CreateBaseline(ctx context.Context, repo *gitrepo.Repo, logger *slog.Logger) (bool, error) {
	if logger == nil {
		logger = slog.Default()
	}
	created, err := repo.CreateTag(ctx, history.BaselineTagName)
	if err != nil {
		return false, err
	}
	if !created {
		logger.Warn("baseline tag already exists; leaving it in place", slog.String("tag", history.BaselineTagName))
		return false, nil
	}
	logger.Info("created baseline tag", slog.String("tag", history.BaselineTagName))
	return true, nil
}
