// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package content

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// CONTENT SELECTORS
// =============================================================================

// Selector values for the dialog's content source dropdown.
const (
	// SelectorNone leaves the source field untouched.
	SelectorNone = "-"
	// SelectorWidget uses the original content of the edited field.
	SelectorWidget = "widget"
	// SelectorComponent retrieves the component the field belongs to.
	SelectorComponent = "component"
	// SelectorPage retrieves the page containing the component.
	SelectorPage = "page"
	// SelectorLastOutput copies the current response into the source.
	SelectorLastOutput = "lastoutput"
)

// Selectors lists the selector values in display order.
var Selectors = []string{SelectorWidget, SelectorComponent, SelectorPage, SelectorLastOutput, SelectorNone}

// IsKnownSelector reports whether s is one of the Selectors.
func IsKnownSelector(s string) bool {
	for _, v := range Selectors {
		if v == s {
			return true
		}
	}
	return false
}

// =============================================================================
// RETRIEVER
// =============================================================================

// Errors returned by retrievers.
var (
	ErrNotFound    = errors.New("content not found")
	ErrInvalidPath = errors.New("invalid content path")
)

// Retriever resolves a content path to approximate markdown.
type Retriever interface {
	Retrieve(ctx context.Context, path string) (string, error)
}

// RetrieverFunc adapts a function to the Retriever interface.
type RetrieverFunc func(ctx context.Context, path string) (string, error)

// Retrieve calls f(ctx, path).
func (f RetrieverFunc) Retrieve(ctx context.Context, path string) (string, error) {
	return f(ctx, path)
}

// PagePath returns the page that contains the resource at path: everything
// up to and including the last "/jcr:content" segment, or failing that the
// last "_jcr_content" segment. A path without either marker is returned
// unchanged.
func PagePath(path string) string {
	if i := strings.LastIndex(path, "/jcr:content"); i > 0 {
		return path[:i+len("/jcr:content")]
	}
	if i := strings.LastIndex(path, "_jcr_content"); i > 0 {
		return path[:i+len("_jcr_content")]
	}
	return path
}

// Normalize applies NFC normalization and trims surrounding whitespace.
func Normalize(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

func validatePath(path string) error {
	if path == "" || !strings.HasPrefix(path, "/") {
		return ErrInvalidPath
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == ".." {
			return ErrInvalidPath
		}
	}
	return nil
}
