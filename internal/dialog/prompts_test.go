// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dialog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLibrary(t *testing.T) {
	lib := DefaultLibrary()
	require.NotEmpty(t, lib.Prompts)
	require.NotEmpty(t, lib.TextLengths)

	values := lib.PromptValues()
	assert.Equal(t, None, values[0])
	assert.Len(t, values, len(lib.Prompts)+1)
	assert.Equal(t, lib.Prompts[0].Title, lib.PromptTitle(lib.Prompts[0].Text))
	assert.Equal(t, None, lib.PromptTitle(""))
}

func TestParseLibrary(t *testing.T) {
	lib, err := ParseLibrary([]byte("prompts:\n  - text: Write a haiku about the text.\n"))
	require.NoError(t, err)
	assert.Equal(t, "Write a haiku about the text.", lib.Prompts[0].Title)

	_, err = ParseLibrary([]byte("prompts:\n  - title: Empty\n"))
	assert.Error(t, err)

	_, err = ParseLibrary([]byte("prompts: [unclosed"))
	assert.Error(t, err)
}

func TestLoadLibrary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("prompts:\n  - title: Mine\n    text: My prompt.\n"), 0600))

	lib, err := LoadLibrary(path)
	require.NoError(t, err)
	require.Len(t, lib.Prompts, 1)
	assert.Equal(t, "Mine", lib.PromptTitle("My prompt."))
	assert.Equal(t, DefaultLibrary().TextLengths, lib.TextLengths, "missing sections fall back to defaults")

	_, err = LoadLibrary(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	def, err := LoadLibrary("")
	require.NoError(t, err)
	assert.Equal(t, DefaultLibrary(), def)
}

func TestTruncateTitle(t *testing.T) {
	assert.Equal(t, "short", truncateTitle("  short \n"))
	long := truncateTitle("this prompt text is certainly longer than thirty characters")
	assert.Len(t, []rune(long), 30)
}

func TestLibrary_TextLengthTitle(t *testing.T) {
	lib := &Library{TextLengths: []TextLength{{Title: "Tiny", Value: "10|tiny"}}}
	assert.Equal(t, "Tiny", lib.TextLengthTitle("10|tiny"))
	assert.Equal(t, "other", lib.TextLengthTitle("other"))
}
