// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package content

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// indexNames are tried in order when a path names a directory.
var indexNames = []string{"index.md", "index.txt", "index.html", "index.htm"}

// FileRetriever reads content from files below a root directory. Content
// paths map to files by appending them to the root; a path without an
// extension also tries the supported extensions.
type FileRetriever struct {
	root string
}

// NewFileRetriever creates a retriever rooted at dir.
func NewFileRetriever(dir string) *FileRetriever {
	return &FileRetriever{root: dir}
}

// Root returns the root directory.
func (r *FileRetriever) Root() string {
	return r.root
}

// Retrieve implements Retriever.
func (r *FileRetriever) Retrieve(ctx context.Context, path string) (string, error) {
	if err := validatePath(path); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	file, err := r.resolve(path)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	text := string(data)
	switch strings.ToLower(filepath.Ext(file)) {
	case ".html", ".htm":
		if text, err = HTMLToMarkdown(text, ""); err != nil {
			return "", err
		}
	}
	return Normalize(text), nil
}

// resolve maps a content path to the file to read.
func (r *FileRetriever) resolve(path string) (string, error) {
	// jcr:content has no meaning on disk
	path = strings.ReplaceAll(path, "/jcr:content", "")
	path = strings.ReplaceAll(path, "/_jcr_content", "")

	base := filepath.Join(r.root, filepath.FromSlash(path))
	candidates := []string{base}
	if filepath.Ext(base) == "" {
		for _, ext := range []string{".md", ".txt", ".html"} {
			candidates = append(candidates, base+ext)
		}
	}

	for _, c := range candidates {
		info, err := os.Stat(c)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", path, err)
		}
		if !info.IsDir() {
			return c, nil
		}
		for _, name := range indexNames {
			idx := filepath.Join(c, name)
			if st, err := os.Stat(idx); err == nil && !st.IsDir() {
				return idx, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, path)
}
