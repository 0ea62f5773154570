// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation for values that end up in
// git subprocess arguments.
//
// Project names become part of release tag names, and tag names are passed
// to `git tag` and `git rev-parse`. A name that starts with "-" would be read
// as an option; names that break git's ref rules fail late with an unhelpful
// message. Validate at configuration load and again before any ref is
// written.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidName is wrapped by every validation failure.
var ErrInvalidName = errors.New("invalid name")

// projectNamePattern matches qualified project names: a letter or digit,
// then letters, digits, '.', '_', '-', '/' or '@', at most 128 characters.
var projectNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._@/\-]{0,127}$`)

// ValidateProjectName checks one qualified project name.
//
// Valid names:
//   - 1-128 characters
//   - Start with a letter or digit
//   - Contain only letters, digits, '.', '_', '-', '/' and '@'
//   - Form a valid tag name once a version suffix is appended
//
// Example:
//
//	if err := validation.ValidateProjectName(name); err != nil {
//	    return fmt.Errorf("project %d: %w", i, err)
//	}
func ValidateProjectName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: project name cannot be empty", ErrInvalidName)
	}
	if !projectNamePattern.MatchString(name) {
		return fmt.Errorf("%w: project name %q (must start with a letter or digit and use only letters, digits, '.', '_', '-', '/', '@')", ErrInvalidName, name)
	}
	return ValidateTagName(name + "-v0.0.0")
}

// ValidateTagName checks a tag name against the rules of
// git check-ref-format, plus a ban on a leading '-'.
func ValidateTagName(tag string) error {
	if tag == "" {
		return fmt.Errorf("%w: tag name cannot be empty", ErrInvalidName)
	}
	if reason := refNameProblem(tag); reason != "" {
		return fmt.Errorf("%w: tag %q %s", ErrInvalidName, tag, reason)
	}
	return nil
}

// ValidateTagNames validates multiple tag names.
// Returns an error listing all invalid names if any fail validation.
func ValidateTagNames(tags []string) error {
	var invalid []string
	for _, t := range tags {
		if err := ValidateTagName(t); err != nil {
			invalid = append(invalid, t)
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("%w: tags %q", ErrInvalidName, invalid)
	}
	return nil
}

func refNameProblem(name string) string {
	switch {
	case strings.HasPrefix(name, "-"):
		return "starts with '-'"
	case name == "@":
		return "is '@'"
	case strings.HasSuffix(name, "/"), strings.HasSuffix(name, "."):
		return "ends with '/' or '.'"
	case strings.Contains(name, ".."):
		return "contains '..'"
	case strings.Contains(name, "@{"):
		return "contains '@{'"
	case strings.Contains(name, "//"):
		return "contains '//'"
	}

	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return "contains a control character"
		}
		switch r {
		case ' ', '~', '^', ':', '?', '*', '[', '\\':
			return fmt.Sprintf("contains %q", r)
		}
	}

	for _, part := range strings.Split(name, "/") {
		if strings.HasPrefix(part, ".") {
			return "has a component starting with '.'"
		}
		if strings.HasSuffix(part, ".lock") {
			return "has a component ending with '.lock'"
		}
	}
	return ""
}
