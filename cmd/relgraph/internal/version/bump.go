// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package version

import (
	"fmt"
	"strings"
)

// BumpKind is the size of a version increment. Larger values dominate.
type BumpKind int

const (
	BumpNone BumpKind = iota
	BumpPatch
	BumpMinor
	BumpMajor
)

// String returns the lower-case name of the bump.
func (b BumpKind) String() string {
	switch b {
	case BumpPatch:
		return "patch"
	case BumpMinor:
		return "minor"
	case BumpMajor:
		return "major"
	default:
		return "none"
	}
}

// MarshalText renders the bump by name.
func (b BumpKind) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// Max returns the larger of two bumps.
func (b BumpKind) Max(o BumpKind) BumpKind {
	if o > b {
		return o
	}
	return b
}

// Bump applies kind to v. BumpNone returns v unchanged.
func (v Version) Bump(kind BumpKind) Version {
	in := v.inner()
	switch kind {
	case BumpMajor:
		n := in.IncMajor()
		return Version{v: &n}
	case BumpMinor:
		n := in.IncMinor()
		return Version{v: &n}
	case BumpPatch:
		n := in.IncPatch()
		return Version{v: &n}
	default:
		return v
	}
}

// BumpPolicy tunes how recommendations apply to pre-1.0 versions.
type BumpPolicy struct {
	// FeaturesAlwaysBumpMinor keeps feature commits at minor on 0.x.
	// When false they bump patch.
	FeaturesAlwaysBumpMinor bool `yaml:"features_always_bump_minor"`

	// BreakingAlwaysBumpMajor keeps breaking changes at major on 0.x.
	// When false they bump minor.
	BreakingAlwaysBumpMajor bool `yaml:"breaking_always_bump_major"`
}

// DefaultBumpPolicy returns the policy used when nothing is configured.
func DefaultBumpPolicy() BumpPolicy {
	return BumpPolicy{FeaturesAlwaysBumpMinor: true, BreakingAlwaysBumpMajor: true}
}

// Adjust downgrades kind for pre-1.0 versions according to the policy.
func (p BumpPolicy) Adjust(current Version, kind BumpKind) BumpKind {
	if current.Major() != 0 {
		return kind
	}
	switch {
	case kind == BumpMajor && !p.BreakingAlwaysBumpMajor:
		return BumpMinor
	case kind == BumpMinor && !p.FeaturesAlwaysBumpMinor:
		return BumpPatch
	}
	return kind
}

// SchemeKind identifies how a Scheme computes the next version.
type SchemeKind int

const (
	// SchemeBump increments by a fixed BumpKind.
	SchemeBump SchemeKind = iota

	// SchemeAuto increments by the recommendation derived from commits.
	SchemeAuto

	// SchemeExact sets a literal version.
	SchemeExact
)

// Scheme is a parsed bump specification such as "minor", "auto" or "2.0.0".
type Scheme struct {
	Kind  SchemeKind
	Bump  BumpKind
	Exact Version
}

// ParseScheme parses "major", "minor", "patch", "auto" or an exact version.
func ParseScheme(raw string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "major":
		return Scheme{Kind: SchemeBump, Bump: BumpMajor}, nil
	case "minor":
		return Scheme{Kind: SchemeBump, Bump: BumpMinor}, nil
	case "patch", "micro":
		return Scheme{Kind: SchemeBump, Bump: BumpPatch}, nil
	case "auto":
		return Scheme{Kind: SchemeAuto}, nil
	}
	v, err := Parse(raw)
	if err != nil {
		return Scheme{}, fmt.Errorf("unrecognized bump scheme %q: %w", raw, err)
	}
	return Scheme{Kind: SchemeExact, Exact: v}, nil
}

// Apply computes the next version.
//
// # Inputs
//
//   - current: The version being released from.
//   - recommended: The commit-derived bump, used by SchemeAuto.
//   - policy: Pre-1.0 adjustments applied to SchemeAuto.
//
// # Outputs
//
//   - Version: The next version.
//   - error: Non-nil when an exact version does not move forward.
func (s Scheme) Apply(current Version, recommended BumpKind, policy BumpPolicy) (Version, error) {
	switch s.Kind {
	case SchemeExact:
		if Compare(s.Exact, current) < 0 {
			return Version{}, fmt.Errorf("requested version %s is older than current %s", s.Exact, current)
		}
		return s.Exact, nil
	case SchemeAuto:
		return current.Bump(policy.Adjust(current, recommended)), nil
	default:
		return current.Bump(s.Bump), nil
	}
}

// String renders the scheme in the form ParseScheme accepts.
func (s Scheme) String() string {
	switch s.Kind {
	case SchemeAuto:
		return "auto"
	case SchemeExact:
		return s.Exact.String()
	default:
		return s.Bump.String()
	}
}
