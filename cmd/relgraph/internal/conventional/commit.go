// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package conventional parses Conventional Commits messages.
//
// Only the parts the release engine consumes are modelled: type, scope,
// breaking marker and description. Scopes drive commit attribution and
// types drive bump recommendations.
package conventional

import (
	"errors"
	"regexp"
	"strings"
)

// ErrNotConventional is returned for messages without a "type(scope): desc"
// header.
var ErrNotConventional = errors.New("not a conventional commit")

var headerRe = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9_-]*)(?:\(([^()\r\n]+)\))?(!)?: +(\S.*)$`)

// Commit is the parsed form of a commit message.
type Commit struct {
	// Type is lower-cased, e.g. "feat" or "fix".
	Type string

	// Scope is empty when the header had none.
	Scope string

	// Breaking is set by "!" in the header or a BREAKING CHANGE footer.
	Breaking bool

	Description string
	Body        string
}

// Parse parses a full commit message.
//
// # Inputs
//
//   - message: The raw message. Only the first line is the header.
//
// # Outputs
//
//   - Commit: The parsed commit.
//   - error: ErrNotConventional if the header does not parse.
func Parse(message string) (Commit, error) {
	header, body, _ := strings.Cut(message, "\n")
	header = strings.TrimRight(header, " \r")

	m := headerRe.FindStringSubmatch(header)
	if m == nil {
		return Commit{}, ErrNotConventional
	}

	c := Commit{
		Type:        strings.ToLower(m[1]),
		Scope:       strings.TrimSpace(m[2]),
		Breaking:    m[3] == "!",
		Description: m[4],
		Body:        strings.TrimSpace(body),
	}
	if !c.Breaking {
		c.Breaking = hasBreakingFooter(c.Body)
	}
	return c, nil
}

func hasBreakingFooter(body string) bool {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "BREAKING CHANGE:") || strings.HasPrefix(line, "BREAKING-CHANGE:") {
			return true
		}
	}
	return false
}

// ExtractScope returns the scope of a conventional commit message, or "" when
// the message is not conventional or has no scope.
func ExtractScope(message string) string {
	c, err := Parse(message)
	if err != nil {
		return ""
	}
	return c.Scope
}
