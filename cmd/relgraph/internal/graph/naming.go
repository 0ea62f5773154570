// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"strings"
)

// nameWithWindow joins the narrowest n qualified names, broadest first.
// With qnames ["core", "go"] and n = 2 the result is "go:core".
func nameWithWindow(qnames []string, n int) string {
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = qnames[n-1-i]
	}
	return strings.Join(parts, ":")
}

// assignNames computes unique user-facing names.
//
// # Description
//
// Every project starts with a window of one qualified name. When two
// candidates collide, both windows grow to cover the first index at which
// their qualified names differ. If one list is a strict prefix of the other
// the longer project grows past the shorter list's length. Passes repeat
// until one completes without a collision; windows only grow and are bounded
// by list length, so the loop terminates.
//
// # Inputs
//
//   - qnames: Qualified names per project, indexed by ProjectID.
//
// # Outputs
//
//   - []string: User-facing names indexed by ProjectID.
//   - error: *NamingClashError when two projects have identical lists.
func assignNames(qnames [][]string) ([]string, error) {
	windows := make([]int, len(qnames))
	for i := range windows {
		windows[i] = 1
	}

	for {
		taken := make(map[string]int, len(qnames))
		again := false

		for i := range qnames {
			candidate := nameWithWindow(qnames[i], windows[i])
			j, clash := taken[candidate]
			if !clash {
				taken[candidate] = i
				continue
			}

			delete(taken, candidate)
			if err := widen(qnames, windows, i, j); err != nil {
				return nil, err
			}

			for _, id := range [2]int{j, i} {
				name := nameWithWindow(qnames[id], windows[id])
				if _, dup := taken[name]; dup {
					again = true
					continue
				}
				taken[name] = id
			}
		}

		if !again {
			break
		}
	}

	names := make([]string, len(qnames))
	for i := range qnames {
		names[i] = nameWithWindow(qnames[i], windows[i])
	}
	return names, nil
}

// widen grows the windows of two colliding projects just enough to tell
// them apart. A clash is reported under the full name of project a.
func widen(qnames [][]string, windows []int, a, b int) error {
	qa, qb := qnames[a], qnames[b]
	na, nb := len(qa), len(qb)
	beforeA, beforeB := windows[a], windows[b]

	diverged := false
	for k := 0; k < min(na, nb); k++ {
		if qa[k] != qb[k] {
			windows[a] = max(windows[a], k+1)
			windows[b] = max(windows[b], k+1)
			diverged = true
			break
		}
	}

	if !diverged {
		switch {
		case na > nb:
			windows[a] = max(windows[a], nb+1)
		case nb > na:
			windows[b] = max(windows[b], na+1)
		default:
			return &NamingClashError{Name: fullName(qa)}
		}
	}

	// Names that collide without any window growing can never be separated,
	// e.g. a qualified name that itself contains the ":" delimiter.
	if windows[a] == beforeA && windows[b] == beforeB {
		return &NamingClashError{Name: fullName(qa)}
	}
	return nil
}
