// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/quill-tui/internal/config"
	"github.com/jeranaias/quill-tui/internal/content"
	"github.com/jeranaias/quill-tui/internal/dialog"
	"github.com/jeranaias/quill-tui/internal/generate"
	"github.com/jeranaias/quill-tui/internal/history"
	"github.com/jeranaias/quill-tui/internal/storage"
)

// =============================================================================
// PARSING
// =============================================================================

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		argv  []string
		cmd   Command
		check func(t *testing.T, a Args)
	}{
		{"no args opens", nil, CmdOpen, func(t *testing.T, a Args) {
			assert.Equal(t, "text", a.Property)
		}},
		{"open flags", []string{"--path", "/content/a/jcr:content/text", "--property=body", "--rich", "--out", "x.html"}, CmdOpen, func(t *testing.T, a Args) {
			assert.Equal(t, "/content/a/jcr:content/text", a.Path)
			assert.Equal(t, "body", a.Property)
			assert.True(t, a.Rich)
			assert.Equal(t, "x.html", a.Out)
		}},
		{"bool flag keeps positional", []string{"open", "--line", "extra"}, CmdOpen, func(t *testing.T, a Args) {
			assert.True(t, a.Line)
			assert.Equal(t, "extra", a.Subcommand)
		}},
		{"serve addr", []string{"serve", "--addr", ":9000"}, CmdServe, func(t *testing.T, a Args) {
			assert.Equal(t, ":9000", a.Addr)
		}},
		{"history default list", []string{"history"}, CmdHistory, func(t *testing.T, a Args) {
			assert.Equal(t, "list", a.Subcommand)
		}},
		{"history show key", []string{"history", "show", "/content/a#text", "--json"}, CmdHistory, func(t *testing.T, a Args) {
			assert.Equal(t, "show", a.Subcommand)
			assert.Equal(t, "/content/a#text", a.Path)
			assert.True(t, a.JSON)
		}},
		{"config set joins value", []string{"config", "set", "generation.system_prompt", "You", "write", "copy"}, CmdConfig, func(t *testing.T, a Args) {
			assert.Equal(t, "generation.system_prompt", a.ConfigKey)
			assert.Equal(t, "You write copy", a.ConfigVal)
		}},
		{"config default show", []string{"config"}, CmdConfig, func(t *testing.T, a Args) {
			assert.Equal(t, "show", a.Subcommand)
		}},
		{"version flag", []string{"--version"}, CmdVersion, nil},
		{"help flag", []string{"serve", "-h"}, CmdHelp, nil},
		{"prompts", []string{"prompts", "--json"}, CmdPrompts, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args, err := Parse(tt.argv)
			require.NoError(t, err)
			assert.Equal(t, tt.cmd, cmd)
			if tt.check != nil {
				tt.check(t, args)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	_, _, err := Parse([]string{"frobnicate"})
	var usage *UsageError
	require.True(t, errors.As(err, &usage))
	assert.Equal(t, ExitUsageError, ExitCode(err))

	_, _, err = Parse([]string{"--content", "a", "--content-file", "b"})
	assert.True(t, errors.As(err, &usage))
}

func TestArgParser(t *testing.T) {
	p := NewArgParser([]string{"show", "--lines", "50", "--since=2024-01-01", "--json", "--rich=no", "--", "--literal"}, "json", "rich")

	assert.Equal(t, "show", p.Positional(0))
	assert.Equal(t, "--literal", p.Positional(1))
	assert.Equal(t, 2, p.PositionalCount())
	assert.Equal(t, "50", p.Flag("lines"))
	assert.Equal(t, 50, p.FlagIntOrDefault("lines", 1))
	assert.Equal(t, 7, p.FlagIntOrDefault("missing", 7))
	assert.Equal(t, "2024-01-01", p.Flag("--since"))
	assert.True(t, p.BoolFlag("json"))
	assert.False(t, p.BoolFlag("rich"))
	assert.True(t, p.HasFlag("rich"))
	assert.Equal(t, "x", p.FlagOrDefault("nope", "x"))
	assert.Empty(t, p.PositionalFrom(5))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitSuccess},
		{ErrCanceled, ExitCanceled},
		{fmt.Errorf("wrap: %w", storage.ErrNotFound), ExitNotFoundError},
		{config.ValidateErrors{{Field: "ui.theme", Message: "bad"}}, ExitConfigError},
		{generate.ErrNoBackend, ExitNetworkError},
		{errors.New("boom"), ExitGeneralError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExitCode(tt.err), "%v", tt.err)
	}
}

// =============================================================================
// LINE DIALOG
// =============================================================================

// scriptedBackend streams fixed deltas.
type scriptedBackend struct {
	deltas []string
	reason string
	block  chan struct{}
}

func (b *scriptedBackend) Name() string  { return "scripted" }
func (b *scriptedBackend) Model() string { return "scripted-1" }

func (b *scriptedBackend) Stream(ctx context.Context, _ []generate.Message, _ int, onDelta func(string)) (string, error) {
	for _, d := range b.deltas {
		onDelta(d)
	}
	if b.block != nil {
		select {
		case <-b.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return b.reason, nil
}

func newTestRuntime(t *testing.T, backend generate.Backend, retriever content.Retriever) *Runtime {
	t.Helper()
	store, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return &Runtime{
		Config:    config.Default(),
		Service:   generate.NewService(backend, retriever),
		Retriever: retriever,
		Store:     store,
		Library:   dialog.DefaultLibrary(),
	}
}

func TestLineDialog_GenerateAndSubmit(t *testing.T) {
	rt := newTestRuntime(t, &scriptedBackend{deltas: []string{"Hello", " world"}, reason: "stop"}, nil)

	var accepted string
	var out bytes.Buffer
	opts := dialog.Options{
		ComponentPath:   "/content/site/jcr:content/teaser",
		Property:        "text",
		OriginalContent: "original text",
		Writeback:       func(text string) { accepted = text },
	}
	ld := NewLineDialog(context.Background(), rt, opts, &out)
	ctx := context.Background()

	assert.True(t, ld.Exec(ctx, "Write a greeting"))
	assert.Equal(t, "Write a greeting", ld.Controller().Prompt())

	assert.True(t, ld.Exec(ctx, "/generate"))
	assert.False(t, ld.Controller().Loading())
	assert.Equal(t, "Hello world", ld.Controller().Response())
	assert.Contains(t, out.String(), "Hello world")

	assert.False(t, ld.Exec(ctx, "/submit"))
	assert.Equal(t, "Hello world", accepted)

	stored, err := rt.Store.LoadHistory(ctx, opts.Key())
	require.NoError(t, err)
	require.NotEmpty(t, stored)
	assert.Equal(t, "Hello world", stored[len(stored)-1].Response)
}

func TestLineDialog_LengthWarning(t *testing.T) {
	rt := newTestRuntime(t, &scriptedBackend{deltas: []string{"cut"}, reason: "length"}, nil)
	var out bytes.Buffer
	ld := NewLineDialog(context.Background(), rt, dialog.Options{ComponentPath: "/c", Property: "text"}, &out)

	ld.Exec(context.Background(), "/prompt go")
	ld.Exec(context.Background(), "/g")
	assert.Equal(t, dialog.LengthWarning, ld.Controller().Banner())
	assert.Contains(t, out.String(), dialog.LengthWarning)
}

func TestLineDialog_NoBackend(t *testing.T) {
	rt := newTestRuntime(t, nil, nil)
	var out bytes.Buffer
	ld := NewLineDialog(context.Background(), rt, dialog.Options{ComponentPath: "/c"}, &out)

	ld.Exec(context.Background(), "prompt")
	ld.Exec(context.Background(), "/generate")
	assert.Contains(t, out.String(), generate.ErrNoBackend.Error())
	assert.False(t, ld.Controller().Loading())
}

func TestLineDialog_CanceledContextStops(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	rt := newTestRuntime(t, &scriptedBackend{deltas: []string{"partial"}, block: block}, nil)
	var out bytes.Buffer
	ld := NewLineDialog(context.Background(), rt, dialog.Options{ComponentPath: "/c"}, &out)

	ld.Exec(context.Background(), "prompt")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ld.Exec(ctx, "/generate")
	assert.False(t, ld.Controller().Loading())
	assert.Empty(t, ld.Controller().Banner())
}

func TestLineDialog_SelectorsAndHistory(t *testing.T) {
	retriever := content.RetrieverFunc(func(ctx context.Context, path string) (string, error) {
		return "retrieved " + path, nil
	})
	rt := newTestRuntime(t, &scriptedBackend{deltas: []string{"v1"}, reason: "stop"}, retriever)
	var out bytes.Buffer
	ctx := context.Background()
	ld := NewLineDialog(ctx, rt, dialog.Options{
		ComponentPath:   "/content/site/jcr:content/par/text",
		OriginalContent: "orig",
	}, &out)
	ctrl := ld.Controller()

	ld.Exec(ctx, "/preset 1")
	assert.Equal(t, rt.Library.Prompts[0].Text, ctrl.Prompt())

	ld.Exec(ctx, "/content page")
	assert.Equal(t, "retrieved /content/site/jcr:content", ctrl.Source())

	ld.Exec(ctx, "/content component")
	assert.Equal(t, "retrieved /content/site/jcr:content/par/text", ctrl.Source())

	ld.Exec(ctx, "/source typed")
	assert.Equal(t, content.SelectorNone, ctrl.ContentSelector())

	ld.Exec(ctx, "/length 2")
	assert.Equal(t, rt.Library.TextLengths[1].Value, ctrl.TextLength())

	ld.Exec(ctx, "/g")
	assert.Equal(t, "v1", ctrl.Response())
	assert.True(t, ctrl.Enablement().Back)

	ld.Exec(ctx, "/back")
	assert.Equal(t, "retrieved /content/site/jcr:content", ctrl.Source())
	assert.Empty(t, ctrl.Response())
	ld.Exec(ctx, "/forward")
	assert.Equal(t, "retrieved /content/site/jcr:content/par/text", ctrl.Source())
	ld.Exec(ctx, "/forward")
	assert.Equal(t, "typed", ctrl.Source())
	assert.Equal(t, "v1", ctrl.Response())

	ld.Exec(ctx, "/clear")
	assert.Equal(t, history.Enablement{}, ctrl.Enablement())

	ld.Exec(ctx, "/nonsense")
	assert.Contains(t, out.String(), "unknown command /nonsense")

	assert.False(t, ld.Exec(ctx, "/cancel"))
	assert.True(t, ctrl.Closed())
}

func TestWriteAccepted(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeAccepted("", "text", &buf))
	assert.Equal(t, "text\n", buf.String())

	path := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, writeAccepted(path, "<p>x</p>", &buf))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<p>x</p>", string(data))
}

func TestReadOriginalContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.txt")
	require.NoError(t, os.WriteFile(path, []byte("from file"), 0600))

	got, err := readOriginalContent(Args{ContentFile: path})
	require.NoError(t, err)
	assert.Equal(t, "from file", got)

	got, err = readOriginalContent(Args{Content: "inline"})
	require.NoError(t, err)
	assert.Equal(t, "inline", got)

	_, err = readOriginalContent(Args{ContentFile: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}

// =============================================================================
// COMMANDS
// =============================================================================

func isolateConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("QUILL_HOME", dir)
	t.Setenv("QUILL_DB", "")
	t.Setenv("QUILL_BACKEND", "")
	return dir
}

func TestHandleConfig(t *testing.T) {
	dir := isolateConfig(t)
	var out bytes.Buffer

	require.NoError(t, HandleConfig(Args{Subcommand: "set", ConfigKey: "ollama.model", ConfigVal: "phi3"}, &out))
	require.NoError(t, HandleConfig(Args{Subcommand: "set", ConfigKey: "openrouter.key", ConfigVal: "sk-or-secret"}, &out))
	assert.NotContains(t, out.String(), "sk-or-secret")

	out.Reset()
	require.NoError(t, HandleConfig(Args{Subcommand: "get", ConfigKey: "ollama.model"}, &out))
	assert.Equal(t, "phi3\n", out.String())

	out.Reset()
	require.NoError(t, HandleConfig(Args{Subcommand: "get", ConfigKey: "openrouter.key"}, &out))
	assert.Equal(t, "[REDACTED]\n", out.String())

	out.Reset()
	require.NoError(t, HandleConfig(Args{Subcommand: "path"}, &out))
	assert.Equal(t, filepath.Join(dir, "config.toml")+"\n", out.String())

	err := HandleConfig(Args{Subcommand: "set", ConfigKey: "ui.theme", ConfigVal: "neon"}, &out)
	assert.Equal(t, ExitConfigError, ExitCode(err))

	err = HandleConfig(Args{Subcommand: "set", ConfigKey: "ui.nope", ConfigVal: "x"}, &out)
	assert.Equal(t, ExitUsageError, ExitCode(err))
}

func TestHandleHistory(t *testing.T) {
	dir := isolateConfig(t)
	ctx := context.Background()

	store, err := storage.Open(ctx, filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	key := storage.Key{Path: "/content/a", Property: "text"}
	require.NoError(t, store.SaveHistory(ctx, key, []history.Snapshot{{Prompt: "p1", Response: "r1"}}))
	require.NoError(t, store.Close())

	var out bytes.Buffer
	require.NoError(t, HandleHistory(ctx, Args{Subcommand: "list"}, &out))
	assert.Contains(t, out.String(), "/content/a#text")

	out.Reset()
	require.NoError(t, HandleHistory(ctx, Args{Subcommand: "show", Path: "/content/a#text", JSON: true}, &out))
	var resp struct {
		Success bool               `json:"success"`
		Data    []history.Snapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "r1", resp.Data[0].Response)

	err = HandleHistory(ctx, Args{Subcommand: "clear"}, &out)
	assert.Equal(t, ExitUsageError, ExitCode(err))

	require.NoError(t, HandleHistory(ctx, Args{Subcommand: "delete", Path: "/content/a"}, &out))
	err = HandleHistory(ctx, Args{Subcommand: "delete", Path: "/content/a"}, &out)
	assert.Equal(t, ExitNotFoundError, ExitCode(err))

	out.Reset()
	require.NoError(t, HandleHistory(ctx, Args{Subcommand: "clear", Confirm: true}, &out))
	assert.Contains(t, out.String(), "removed 0 histories")
}

func TestHandlePrompts_JSON(t *testing.T) {
	isolateConfig(t)
	var out bytes.Buffer
	require.NoError(t, HandlePrompts(Args{JSON: true}, &out))

	var resp struct {
		Data dialog.Library `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, len(dialog.DefaultLibrary().Prompts), len(resp.Data.Prompts))
}

func TestNewBackend(t *testing.T) {
	cfg := config.Default()
	b, err := newBackend(cfg)
	require.NoError(t, err)
	assert.Equal(t, "ollama", b.Name())
	assert.Equal(t, "llama3.2:3b", b.Model())

	cfg.Generation.Backend = "openrouter"
	_, err = newBackend(cfg)
	assert.Error(t, err)

	cfg.OpenRouter.Key = "sk-or-test-abcdefghijklmnopqrstuvwxyz0123456789"
	cfg.Generation.Model = "meta-llama/llama-3-8b-instruct"
	b, err = newBackend(cfg)
	require.NoError(t, err)
	assert.Equal(t, "openrouter", b.Name())
	assert.Equal(t, "meta-llama/llama-3-8b-instruct", b.Model())
}

func TestNewRetriever(t *testing.T) {
	cfg := config.Default()
	assert.Nil(t, newRetriever(cfg))

	cfg.Content.RootDir = t.TempDir()
	_, ok := newRetriever(cfg).(*content.FileRetriever)
	assert.True(t, ok)

	cfg.Content.BaseURL = "http://localhost:4502"
	_, ok = newRetriever(cfg).(*content.HTTPRetriever)
	assert.True(t, ok)
}

func TestPrintUsage(t *testing.T) {
	var out bytes.Buffer
	PrintUsage(&out)
	assert.True(t, strings.HasPrefix(out.String(), "quill"))
	assert.Contains(t, out.String(), Version)
}
