// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/quill-tui/internal/config"
	"github.com/jeranaias/quill-tui/internal/dialog"
	"github.com/jeranaias/quill-tui/internal/ui/editor"
	"github.com/jeranaias/quill-tui/internal/ui/styles"
	"github.com/jeranaias/quill-tui/internal/util"
)

// =============================================================================
// OPEN COMMAND
// =============================================================================

// HandleOpen opens the dialog for the field described by args. The accepted
// text goes to --out or stdout; a canceled dialog returns ErrCanceled.
func HandleOpen(ctx context.Context, args Args) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	original, err := readOriginalContent(args)
	if err != nil {
		return err
	}

	fullScreen := !args.Line && CanRunFullScreen()
	if fullScreen {
		// Logging must not reach the alternate screen.
		if err := config.EnsureConfigDir(); err == nil {
			if logPath, err := config.LogPath(); err == nil {
				if f, err := tea.LogToFile(logPath, "quill"); err == nil {
					defer f.Close()
				}
			}
		}
	} else if !args.Verbose {
		log.SetOutput(io.Discard)
	}

	rt, err := NewRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	var accepted *string
	opts := dialog.Options{
		ComponentPath:   args.Path,
		Property:        args.Property,
		OriginalContent: original,
		RichText:        args.Rich || cfg.Dialog.RichText,
		TextLength:      args.TextLength,
		Writeback:       func(text string) { accepted = &text },
	}
	if opts.TextLength == "" {
		opts.TextLength = cfg.Dialog.TextLength
	}

	if fullScreen {
		err = runFullScreen(ctx, rt, opts)
	} else {
		out := io.Writer(os.Stdout)
		if args.Out == "" && !IsStdoutTTY() {
			// stdout carries the accepted text
			out = os.Stderr
		}
		err = RunLineDialog(ctx, rt, opts, out)
	}
	if err != nil {
		return err
	}
	if accepted == nil {
		return ErrCanceled
	}
	return writeAccepted(args.Out, *accepted, os.Stdout)
}

// runFullScreen runs the Bubble Tea dialog until it is submitted or
// canceled.
func runFullScreen(ctx context.Context, rt *Runtime, opts dialog.Options) error {
	bridge := editor.NewBridge()
	ctrl := dialog.New(ctx, opts, rt.DialogGenerator(), rt.Retriever, rt.DialogStore(), rt.Library, bridge.Post)

	settings := editor.Settings{
		MarkdownStyle: rt.Config.UI.MarkdownStyle,
		CodeStyle:     rt.Config.UI.CodeStyle,
		Preview:       rt.Config.UI.Preview,
	}
	model := editor.New(ctrl, bridge, themeFor(rt.Config.UI.Theme), settings)

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if !ctrl.Closed() {
		// program killed or context canceled
		ctrl.Cancel()
	}
	if err != nil && err != tea.ErrProgramKilled {
		return fmt.Errorf("dialog failed: %w", err)
	}
	return nil
}

// themeFor creates the UI theme; "dark" and "light" override the detected
// terminal background.
func themeFor(name string) *styles.Theme {
	switch name {
	case "dark":
		lipgloss.SetHasDarkBackground(true)
	case "light":
		lipgloss.SetHasDarkBackground(false)
	}
	return styles.NewTheme()
}

// readOriginalContent returns --content, the contents of --content-file,
// or "".
func readOriginalContent(args Args) (string, error) {
	switch args.ContentFile {
	case "":
		return args.Content, nil
	case "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read content from stdin: %w", err)
		}
		return strings.TrimRight(string(data), "\n"), nil
	default:
		data, err := os.ReadFile(args.ContentFile)
		if err != nil {
			return "", fmt.Errorf("failed to read content file: %w", err)
		}
		return string(data), nil
	}
}

// writeAccepted writes text to path atomically, or to w when path is empty.
func writeAccepted(path, text string, w io.Writer) error {
	if path == "" {
		_, err := fmt.Fprintln(w, text)
		return err
	}
	if err := util.AtomicWriteFile(path, []byte(text), 0644); err != nil {
		return &CommandError{Command: "open", Action: "write output", Err: err}
	}
	return nil
}
