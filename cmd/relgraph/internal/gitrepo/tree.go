// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package gitrepo

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Tree is a flattened tree: repository-relative path to "<mode> <object>".
// A nil Tree is the empty tree.
type Tree map[string]string

// LoadTree lists every entry of a tree object recursively.
func (r *Repo) LoadTree(ctx context.Context, treeID string) (Tree, error) {
	out, err := r.run(ctx, "ls-tree", "-r", "-z", "--full-tree", treeID)
	if err != nil {
		return nil, err
	}

	tree := make(Tree)
	for _, rec := range strings.Split(out, "\x00") {
		if rec == "" {
			continue
		}
		// "<mode> SP <type> SP <object> TAB <path>"
		meta, path, ok := strings.Cut(rec, "\t")
		if !ok {
			return nil, fmt.Errorf("unexpected ls-tree record in %s: %q", treeID, rec)
		}
		fields := strings.Fields(meta)
		if len(fields) != 3 {
			return nil, fmt.Errorf("unexpected ls-tree record in %s: %q", treeID, rec)
		}
		tree[path] = fields[0] + " " + fields[2]
	}
	return tree, nil
}

// ChangedPaths returns the sorted set of paths added, removed or modified
// between two trees. Either side may be nil.
func ChangedPaths(oldTree, newTree Tree) []string {
	var paths []string
	for p, entry := range newTree {
		if prev, ok := oldTree[p]; !ok || prev != entry {
			paths = append(paths, p)
		}
	}
	for p := range oldTree {
		if _, ok := newTree[p]; !ok {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths
}
