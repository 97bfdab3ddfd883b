// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dialog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// None is the selector value meaning "no selection".
const None = "-"

//go:embed prompts.yaml
var defaultLibraryYAML []byte

// Prompt is a predefined prompt.
type Prompt struct {
	Title string `yaml:"title" json:"title"`
	Text  string `yaml:"text" json:"text"`
}

// TextLength is a text length option. Value uses the "N | instruction"
// form understood by generate.BuildPrompt.
type TextLength struct {
	Title string `yaml:"title" json:"title"`
	Value string `yaml:"value" json:"value"`
}

// Library holds the predefined prompts and text length options.
type Library struct {
	Prompts     []Prompt     `yaml:"prompts" json:"prompts"`
	TextLengths []TextLength `yaml:"text_lengths" json:"text_lengths"`
}

// DefaultLibrary returns the built-in library.
func DefaultLibrary() *Library {
	lib, err := ParseLibrary(defaultLibraryYAML)
	if err != nil {
		panic(fmt.Sprintf("dialog: invalid built-in prompt library: %v", err))
	}
	return lib
}

// ParseLibrary parses a YAML library document.
func ParseLibrary(data []byte) (*Library, error) {
	var lib Library
	if err := yaml.Unmarshal(data, &lib); err != nil {
		return nil, fmt.Errorf("parse prompt library: %w", err)
	}
	for i, p := range lib.Prompts {
		if strings.TrimSpace(p.Text) == "" {
			return nil, fmt.Errorf("prompt %d (%q) has no text", i+1, p.Title)
		}
		if p.Title == "" {
			lib.Prompts[i].Title = truncateTitle(p.Text)
		}
	}
	return &lib, nil
}

// LoadLibrary reads a library from path. Sections missing from the file
// are taken from the built-in library; an empty path returns the built-in
// library.
func LoadLibrary(path string) (*Library, error) {
	def := DefaultLibrary()
	if path == "" {
		return def, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt library: %w", err)
	}
	lib, err := ParseLibrary(data)
	if err != nil {
		return nil, err
	}
	if len(lib.Prompts) == 0 {
		lib.Prompts = def.Prompts
	}
	if len(lib.TextLengths) == 0 {
		lib.TextLengths = def.TextLengths
	}
	return lib, nil
}

// Marshal renders the library as YAML.
func (l *Library) Marshal() ([]byte, error) {
	return yaml.Marshal(l)
}

// PromptValues returns the predefined prompt selector values, None first.
func (l *Library) PromptValues() []string {
	values := make([]string, 0, len(l.Prompts)+1)
	values = append(values, None)
	for _, p := range l.Prompts {
		values = append(values, p.Text)
	}
	return values
}

// PromptTitle returns the title for a selector value.
func (l *Library) PromptTitle(value string) string {
	if value == None || value == "" {
		return None
	}
	for _, p := range l.Prompts {
		if p.Text == value {
			return p.Title
		}
	}
	return truncateTitle(value)
}

// TextLengthTitle returns the title for a text length value.
func (l *Library) TextLengthTitle(value string) string {
	for _, t := range l.TextLengths {
		if t.Value == value {
			return t.Title
		}
	}
	return value
}

func truncateTitle(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > 30 {
		return string(r[:29]) + "…"
	}
	return s
}
