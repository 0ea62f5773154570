// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/conventional"
	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/history"
	"github.com/AleutianAI/relgraph/cmd/relgraph/internal/version"
	"github.com/AleutianAI/relgraph/pkg/validation"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// configValidate checks the struct tags. Field names in its errors are the
// YAML keys.
var configValidate *validator.Validate

func init() {
	configValidate = validator.New(validator.WithRequiredStructEnabled())
	configValidate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := configValidate.RegisterValidation("projectname", validateProjectName); err != nil {
		panic(err)
	}
}

func validateProjectName(fl validator.FieldLevel) bool {
	return validation.ValidateProjectName(fl.Field().String()) == nil
}

// structError reports the first tag failure as "<yaml path> failed <tag>".
func structError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	fe := verrs[0]
	_, path, _ := strings.Cut(fe.Namespace(), ".")
	if fe.Tag() == "projectname" {
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, validation.ValidateProjectName(fmt.Sprint(fe.Value())))
	}
	return fmt.Errorf("%w: %s failed the %q check", ErrInvalidConfig, path, fe.Tag())
}

type RelgraphConfig struct {
	// Log: verbosity and format of diagnostics
	Log LogConfig `yaml:"log"`

	// Analysis: history walk cache sizes
	Analysis AnalysisConfig `yaml:"analysis"`

	// CommitAttribution: how conventional-commit scopes name projects
	CommitAttribution AttributionConfig `yaml:"commit_attribution"`

	// Bump: pre-1.0 adjustments to recommended bumps
	Bump version.BumpPolicy `yaml:"bump"`

	// Projects: every releasable project, in registration order
	Projects []ProjectConfig `yaml:"projects" validate:"dive"`
}

type LogConfig struct {
	Level string `yaml:"level"` // debug|info|warn|error
	JSON  bool   `yaml:"json"`
}

type AnalysisConfig struct {
	CommitCacheSize int `yaml:"commit_cache_size" validate:"gte=1"`
	TreeCacheSize   int `yaml:"tree_cache_size" validate:"gte=1"`
}

type AttributionConfig struct {
	ScopeMatching string              `yaml:"scope_matching"` // smart|exact|suffix|contains
	ScopeMappings map[string]string   `yaml:"scope_mappings,omitempty"`
	PackageScopes map[string][]string `yaml:"package_scopes,omitempty"`
}

// ProjectConfig declares one project.
type ProjectConfig struct {
	// QualifiedNames are narrowest first, e.g. [core, go].
	QualifiedNames []string `yaml:"qualified_names" validate:"required,min=1,dive,projectname"`

	// Prefix is the directory owning the project, "" for the repo root.
	Prefix string `yaml:"prefix"`

	Version string `yaml:"version"`

	// Ignore drops the project before the graph is built.
	Ignore bool `yaml:"ignore,omitempty"`

	Dependencies []DependencyConfig `yaml:"dependencies,omitempty" validate:"dive"`
}

// DependencyConfig declares an internal dependency of a project.
type DependencyConfig struct {
	// Target is the dependee's user-facing name.
	Target string `yaml:"target" validate:"required"`

	// Literal is the requirement as written in the project's manifest.
	Literal string `yaml:"literal,omitempty"`

	// Requirement is a history reference: a commit sha,
	// "thiscommit:<salt>" or "manual:<text>". Empty means unavailable.
	Requirement string `yaml:"requirement,omitempty"`
}

// DirPrefix returns Prefix as a directory prefix: "" for the repository
// root, otherwise slash-separated with a single trailing "/", so "lib" owns
// "lib/x.go" but not "libfoo.txt".
func (p ProjectConfig) DirPrefix() string {
	prefix := strings.Trim(path.Clean("/"+filepath.ToSlash(p.Prefix)), "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

// FullName joins the qualified names broadest first.
func (p ProjectConfig) FullName() string {
	n := len(p.QualifiedNames)
	parts := make([]string, n)
	for i, q := range p.QualifiedNames {
		parts[n-1-i] = q
	}
	return strings.Join(parts, ":")
}

func DefaultConfig() RelgraphConfig {
	return RelgraphConfig{
		Log: LogConfig{Level: "info"},
		Analysis: AnalysisConfig{
			CommitCacheSize: history.DefaultCommitCacheSize,
			TreeCacheSize:   history.DefaultTreeCacheSize,
		},
		CommitAttribution: AttributionConfig{ScopeMatching: string(conventional.MatchSmart)},
		Bump:              version.DefaultBumpPolicy(),
	}
}

// Validate checks the configuration for values the engine would reject
// later with less context.
func (c *RelgraphConfig) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: log.level %q", ErrInvalidConfig, c.Log.Level)
	}

	if err := configValidate.Struct(c); err != nil {
		return structError(err)
	}

	switch conventional.MatchMode(strings.ToLower(c.CommitAttribution.ScopeMatching)) {
	case conventional.MatchSmart, conventional.MatchExact, conventional.MatchSuffix, conventional.MatchContains:
	default:
		return fmt.Errorf("%w: commit_attribution.scope_matching %q", ErrInvalidConfig, c.CommitAttribution.ScopeMatching)
	}

	seen := make(map[string]int, len(c.Projects))
	for i, p := range c.Projects {
		full := p.FullName()
		if j, dup := seen[full]; dup {
			return fmt.Errorf("%w: projects[%d] and projects[%d] are both %q", ErrInvalidConfig, j, i, full)
		}
		seen[full] = i

		if p.Version != "" {
			if _, err := version.Parse(p.Version); err != nil {
				return fmt.Errorf("%w: project %s: %v", ErrInvalidConfig, full, err)
			}
		}
		if strings.HasPrefix(p.Prefix, "/") {
			return fmt.Errorf("%w: project %s: prefix must be relative to the repository root", ErrInvalidConfig, full)
		}
		for _, seg := range strings.Split(filepath.ToSlash(p.Prefix), "/") {
			if seg == ".." {
				return fmt.Errorf("%w: project %s: prefix must stay inside the repository", ErrInvalidConfig, full)
			}
		}
	}
	return nil
}

// ScopeMatcher builds the conventional-commit scope matcher described by the
// commit_attribution section.
func (c *RelgraphConfig) ScopeMatcher() *conventional.ScopeMatcher {
	a := c.CommitAttribution
	return conventional.NewScopeMatcher(conventional.ParseMatchMode(a.ScopeMatching), a.ScopeMappings, a.PackageScopes)
}

// HistoryOptions converts the analysis section into analyzer options.
func (c *RelgraphConfig) HistoryOptions() history.Options {
	return history.Options{
		CommitCacheSize: c.Analysis.CommitCacheSize,
		TreeCacheSize:   c.Analysis.TreeCacheSize,
		Scopes:          c.ScopeMatcher(),
	}
}
