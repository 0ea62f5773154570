// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package version wraps semantic versions for project releases and tags.
//
// This is a thin layer over github.com/Masterminds/semver/v3 adding release
// tag parsing and bump arithmetic.
package version

import (
	"fmt"
	"strings"

	mm "github.com/Masterminds/semver/v3"
)

// Version is a semantic version. The zero value reads as 0.0.0.
type Version struct {
	v *mm.Version
}

// Zero returns version 0.0.0.
func Zero() Version {
	return Version{v: mm.New(0, 0, 0, "", "")}
}

// New builds a release version from its numeric components.
func New(major, minor, patch uint64) Version {
	return Version{v: mm.New(major, minor, patch, "", "")}
}

// Parse parses a version leniently ("1.2", "v1.2.3" are accepted).
func Parse(raw string) (Version, error) {
	v, err := mm.NewVersion(strings.TrimSpace(raw))
	if err != nil {
		return Version{}, fmt.Errorf("version: parse %q: %w", raw, err)
	}
	return Version{v: v}, nil
}

// MustParse is Parse that panics on error. For tests and constants.
func MustParse(raw string) Version {
	v, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// parseStrict accepts only complete MAJOR.MINOR.PATCH versions.
func parseStrict(raw string) (Version, bool) {
	v, err := mm.StrictNewVersion(raw)
	if err != nil {
		return Version{}, false
	}
	return Version{v: v}, true
}

// FromTag extracts the version carried by a release tag name.
//
// # Description
//
// The version is the text after prefix, e.g. prefix "core-v" for
// "core-v1.2.3" or "v" for "v1.2.3". Only that text is parsed, so a tag of
// another project sharing the prefix ("core-vue-v2.0.0") does not yield a
// version. Tags that carry no parsable version yield 0.0.0 rather than an
// error: tags are discovered heuristically and must not abort history
// analysis.
//
// # Inputs
//
//   - tag: Short tag name, without "refs/tags/".
//   - prefix: The text preceding the version.
//
// # Outputs
//
//   - Version: The parsed version or 0.0.0.
//   - bool: False when the tag lacks prefix or could not be parsed.
func FromTag(tag, prefix string) (Version, bool) {
	raw, ok := strings.CutPrefix(tag, prefix)
	if !ok {
		return Zero(), false
	}
	if v, ok := parseStrict(raw); ok {
		return v, true
	}
	return Zero(), false
}

func (v Version) inner() *mm.Version {
	if v.v == nil {
		return mm.New(0, 0, 0, "", "")
	}
	return v.v
}

// Major returns the major component.
func (v Version) Major() uint64 { return v.inner().Major() }

// Minor returns the minor component.
func (v Version) Minor() uint64 { return v.inner().Minor() }

// Patch returns the patch component.
func (v Version) Patch() uint64 { return v.inner().Patch() }

// IsZero reports whether v is 0.0.0 with no prerelease.
func (v Version) IsZero() bool {
	in := v.inner()
	return in.Major() == 0 && in.Minor() == 0 && in.Patch() == 0 && in.Prerelease() == ""
}

// String renders the version without a leading "v".
func (v Version) String() string {
	return v.inner().String()
}

// Compare returns -1, 0 or 1 as a is less than, equal to or greater than b.
func Compare(a, b Version) int {
	return a.inner().Compare(b.inner())
}

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
