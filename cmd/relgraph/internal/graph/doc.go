// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph builds the project dependency graph of a monorepo.
//
// Construction is two-phase. A Builder collects projects and dependency
// edges while the repository is scanned; CompleteLoading then assigns
// collision-free names, rejects cycles, fixes a topological order and makes
// path matchers disjoint. The resulting ProjectGraph never exposes a
// half-built state.
//
// # Architecture
//
//	┌─────────────┐   TryAddProject    ┌─────────────┐  CompleteLoading  ┌──────────────┐
//	│  scanners   │ ─────────────────▶ │   Builder   │ ────────────────▶ │ ProjectGraph │
//	│ (loaders)   │   AddDependency    │             │  names, toposort, │  (by id)     │
//	└─────────────┘                    └─────────────┘  disjoint paths   └──────────────┘
//
// Names are built from each project's qualified names, narrowest first, by
// taking as many as needed to be unique and joining them broadest first:
// two projects "core" in ecosystems "go" and "npm" become "go:core" and
// "npm:core".
package graph
