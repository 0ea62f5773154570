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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	commitCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relgraph_history_commit_cache_total",
		Help: "Commit hit-vector cache lookups by result",
	}, []string{"result"})

	treeCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relgraph_history_tree_cache_total",
		Help: "Tree cache lookups by result",
	}, []string{"result"})

	attributionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relgraph_history_attributions_total",
		Help: "Commits classified, by the signal that decided them",
	}, []string{"source"})

	commitsVisited = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "relgraph_history_commits_per_project",
		Help:    "Commits walked per project history",
		Buckets: []float64{0, 1, 10, 50, 100, 500, 1000, 5000},
	})
)

func cacheResult(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}
