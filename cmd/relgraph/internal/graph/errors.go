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
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for graph construction and queries.
var (
	// Configuration errors
	ErrNamingClash       = errors.New("multiple projects with the same name")
	ErrUnknownDependency = errors.New("dependency on an unrecognized project")
	ErrNoSuchProject     = errors.New("no such project")
	ErrIncompleteProject = errors.New("project is missing required fields")

	// Structural errors
	ErrDependencyCycle = errors.New("internal dependency cycle")

	// Lifecycle errors
	ErrBuilderConsumed = errors.New("project graph builder already completed")
)

// NamingClashError names a user-facing name two projects cannot be told apart by.
type NamingClashError struct {
	Name string
}

// Error implements the error interface.
func (e *NamingClashError) Error() string {
	return fmt.Sprintf("multiple projects with same name `%s`", e.Name)
}

// Unwrap returns the sentinel error.
func (e *NamingClashError) Unwrap() error {
	return ErrNamingClash
}

// DependencyCycleError names one project that participates in a cycle.
type DependencyCycleError struct {
	Name string
}

// Error implements the error interface.
func (e *DependencyCycleError) Error() string {
	return fmt.Sprintf("detected an internal dependency cycle associated with project `%s`", e.Name)
}

// Unwrap returns the sentinel error.
func (e *DependencyCycleError) Unwrap() error {
	return ErrDependencyCycle
}

// UnknownDependencyError reports a textual dependency target that matches
// no project.
type UnknownDependencyError struct {
	Depender string
	Target   string
}

// Error implements the error interface.
func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("project `%s` states a dependency on an unrecognized project name: `%s`", e.Depender, e.Target)
}

// Unwrap returns the sentinel error.
func (e *UnknownDependencyError) Unwrap() error {
	return ErrUnknownDependency
}

// NoSuchProjectError reports a requested project name that is not in the graph.
type NoSuchProjectError struct {
	Name string
}

// Error implements the error interface.
func (e *NoSuchProjectError) Error() string {
	return fmt.Sprintf("no such project with the name `%s`", e.Name)
}

// Unwrap returns the sentinel error.
func (e *NoSuchProjectError) Unwrap() error {
	return ErrNoSuchProject
}

// IncompleteProjectError reports a project registered without a version or
// prefix.
type IncompleteProjectError struct {
	QualifiedNames []string
	Missing        string
}

// Error implements the error interface.
func (e *IncompleteProjectError) Error() string {
	return fmt.Sprintf("project `%s` has no %s", strings.Join(e.QualifiedNames, ":"), e.Missing)
}

// Unwrap returns the sentinel error.
func (e *IncompleteProjectError) Unwrap() error {
	return ErrIncompleteProject
}
