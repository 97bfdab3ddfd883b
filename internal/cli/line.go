// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/jeranaias/quill-tui/internal/config"
	"github.com/jeranaias/quill-tui/internal/content"
	"github.com/jeranaias/quill-tui/internal/dialog"
	"github.com/jeranaias/quill-tui/internal/ui/styles"
	"github.com/jeranaias/quill-tui/internal/util"
)

// retrieveWait bounds how long a command waits for selected content.
const retrieveWait = 35 * time.Second

const lineHelp = `Plain text replaces the prompt. Commands:
  /prompt TEXT        Set the prompt
  /preset [N]         List predefined prompts, or select number N (0 = none)
  /source TEXT        Set the source text
  /content [NAME]     Show or select the content source: - widget component page lastoutput
  /length [N]         List text lengths, or select number N (0 = none)
  /generate, /g       Generate (Ctrl+C stops)
  /response TEXT      Edit the response
  /back, /forward     Walk the history
  /reset              Reset the fields
  /clear              Reset the history
  /show               Show all fields
  /submit             Accept the response and close
  /cancel, /quit      Close without accepting
`

// =============================================================================
// LINE DIALOG
// =============================================================================

// LineDialog drives a dialog.Controller from typed commands. Asynchronous
// controller events are received on a channel and applied between
// commands, keeping the controller on one goroutine.
type LineDialog struct {
	ctrl    *dialog.Controller
	events  chan dialog.Event
	out     io.Writer
	printed string // response text already written during a generation

	canRetrieve bool
}

// NewLineDialog opens a controller for opts writing to out.
func NewLineDialog(ctx context.Context, rt *Runtime, opts dialog.Options, out io.Writer) *LineDialog {
	ld := &LineDialog{
		events:      make(chan dialog.Event, 256),
		out:         out,
		canRetrieve: rt.Retriever != nil,
	}
	ld.ctrl = dialog.New(ctx, opts, rt.DialogGenerator(), rt.Retriever, rt.DialogStore(), rt.Library, ld.post)
	return ld
}

func (ld *LineDialog) post(ev dialog.Event) {
	ld.events <- ev
}

// Controller returns the underlying controller.
func (ld *LineDialog) Controller() *dialog.Controller {
	return ld.ctrl
}

// RunLineDialog runs the line mode dialog until it is submitted or
// canceled. Input history is kept in the config directory.
func RunLineDialog(ctx context.Context, rt *Runtime, opts dialog.Options, out io.Writer) error {
	ld := NewLineDialog(ctx, rt, opts, out)

	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	defer line.Close()

	historyFile := ""
	if dir, err := config.ConfigDir(); err == nil {
		historyFile = filepath.Join(dir, "line_history")
		if f, err := os.Open(historyFile); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
	}
	defer func() {
		if historyFile == "" || config.EnsureConfigDir() != nil {
			return
		}
		if f, err := os.OpenFile(historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	ld.printHeader()
	for !ld.ctrl.Closed() {
		input, err := line.Prompt("quill> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(out)
				ld.ctrl.Cancel()
				return nil
			}
			ld.ctrl.Cancel()
			return err
		}
		if strings.TrimSpace(input) != "" {
			line.AppendHistory(input)
		}
		ld.Exec(ctx, input)
	}
	return nil
}

// Exec runs one line of input and waits for the asynchronous work it
// started. It returns false once the dialog is closed.
func (ld *LineDialog) Exec(ctx context.Context, input string) bool {
	ld.drain()
	input = strings.TrimSpace(input)
	if input == "" {
		return true
	}
	if !strings.HasPrefix(input, "/") {
		ld.ctrl.SetPrompt(input)
		return true
	}

	cmd, rest, _ := strings.Cut(input[1:], " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(cmd) {
	case "prompt", "p":
		ld.ctrl.SetPrompt(rest)
	case "preset":
		ld.selectPreset(rest)
	case "source", "s":
		ld.ctrl.SetSource(rest)
	case "content", "c":
		ld.selectContent(ctx, rest)
	case "length", "l":
		ld.selectLength(rest)
	case "generate", "g":
		ld.generate(ctx)
	case "stop":
		ld.ctrl.Stop()
	case "response", "r":
		ld.ctrl.SetResponse(rest)
	case "back", "b":
		ld.ctrl.Back()
		ld.printFields()
	case "forward", "f":
		ld.ctrl.Forward()
		ld.printFields()
	case "reset":
		ld.ctrl.ResetFields()
		ld.waitRetrieval(ctx)
		ld.printFields()
	case "clear":
		ld.ctrl.ResetHistory()
		fmt.Fprintln(ld.out, styles.RenderInfo("History cleared."))
	case "show":
		ld.printFields()
	case "submit", "ok":
		ld.ctrl.Submit()
	case "cancel", "quit", "exit", "q":
		ld.ctrl.Cancel()
	case "help", "h", "?":
		fmt.Fprint(ld.out, lineHelp)
	default:
		fmt.Fprintf(ld.out, "%s unknown command /%s (try /help)\n", WarningStyle.Render("[?]"), cmd)
	}
	return !ld.ctrl.Closed()
}

// drain applies events that arrived while waiting for input.
func (ld *LineDialog) drain() {
	for {
		select {
		case ev := <-ld.events:
			ld.ctrl.Handle(ev)
		default:
			return
		}
	}
}

func (ld *LineDialog) selectPreset(arg string) {
	values := ld.ctrl.Library().PromptValues()
	if arg == "" {
		for i, v := range values {
			fmt.Fprintf(ld.out, "  %2d  %s\n", i, ld.ctrl.Library().PromptTitle(v))
		}
		return
	}
	i, err := strconv.Atoi(arg)
	if err != nil || i < 0 || i >= len(values) {
		fmt.Fprintf(ld.out, "%s no predefined prompt %q\n", WarningStyle.Render("[?]"), arg)
		return
	}
	ld.ctrl.SelectPredefinedPrompt(values[i])
	fmt.Fprintf(ld.out, "%s %s\n", RenderLabel("Prompt"), ld.ctrl.Prompt())
}

func (ld *LineDialog) selectLength(arg string) {
	lengths := ld.ctrl.Library().TextLengths
	if arg == "" {
		fmt.Fprintf(ld.out, "  %2d  %s\n", 0, dialog.None)
		for i, tl := range lengths {
			fmt.Fprintf(ld.out, "  %2d  %s\n", i+1, tl.Title)
		}
		return
	}
	i, err := strconv.Atoi(arg)
	if err != nil || i < 0 || i > len(lengths) {
		fmt.Fprintf(ld.out, "%s no text length %q\n", WarningStyle.Render("[?]"), arg)
		return
	}
	if i == 0 {
		ld.ctrl.SetTextLength("")
		return
	}
	ld.ctrl.SetTextLength(lengths[i-1].Value)
}

func (ld *LineDialog) selectContent(ctx context.Context, arg string) {
	if arg == "" {
		fmt.Fprintf(ld.out, "%s %s\n", RenderLabel("Content"), ld.ctrl.ContentSelector())
		return
	}
	if !content.IsKnownSelector(arg) {
		fmt.Fprintf(ld.out, "%s unknown content source %q\n", WarningStyle.Render("[?]"), arg)
		return
	}
	ld.ctrl.SelectContent(arg)
	ld.waitRetrieval(ctx)
	fmt.Fprintf(ld.out, "%s %s\n", RenderLabel("Source"), util.TruncateWidth(oneLine(ld.ctrl.Source()), 70))
}

// waitRetrieval waits for the content retrieval a selector change started.
func (ld *LineDialog) waitRetrieval(ctx context.Context) {
	sel := ld.ctrl.ContentSelector()
	if sel != content.SelectorComponent && sel != content.SelectorPage {
		return
	}
	if !ld.canRetrieve {
		return
	}
	timer := time.NewTimer(retrieveWait)
	defer timer.Stop()
	for {
		select {
		case ev := <-ld.events:
			ld.ctrl.Handle(ev)
			if _, ok := ev.(dialog.RetrievedEvent); ok {
				return
			}
		case <-timer.C:
			fmt.Fprintln(ld.out, WarningStyle.Render("content retrieval timed out"))
			return
		case <-ctx.Done():
			return
		}
	}
}

// generate starts a generation and streams the response until it is done.
// An interrupt stops the generation instead of exiting.
func (ld *LineDialog) generate(ctx context.Context) {
	if !ld.ctrl.Generate() {
		if b := ld.ctrl.Banner(); b != "" {
			fmt.Fprintln(ld.out, styles.RenderError(b))
		}
		return
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	defer signal.Stop(sig)

	ld.printed = ""
	for ld.ctrl.Loading() {
		select {
		case ev := <-ld.events:
			ld.ctrl.Handle(ev)
			ld.printProgress()
		case <-sig:
			ld.ctrl.Stop()
			fmt.Fprintln(ld.out, "\n"+WarningStyle.Render("[Stopped]"))
			return
		case <-ctx.Done():
			ld.ctrl.Stop()
			return
		}
	}
	ld.printProgress()
	fmt.Fprintln(ld.out)
	if b := ld.ctrl.Banner(); b != "" {
		fmt.Fprintln(ld.out, styles.RenderWarning(b))
	}
}

// printProgress writes the part of the response that is new since the last
// call. A response that no longer extends the printed text is rewritten on
// a new line.
func (ld *LineDialog) printProgress() {
	resp := ld.ctrl.Response()
	if strings.HasPrefix(resp, ld.printed) {
		fmt.Fprint(ld.out, resp[len(ld.printed):])
	} else {
		fmt.Fprint(ld.out, "\n"+resp)
	}
	ld.printed = resp
}

func (ld *LineDialog) printHeader() {
	opts := ld.ctrl.Options()
	fmt.Fprintln(ld.out, TitleStyle.Render("quill")+" "+DimStyle.Render(opts.Key().String()))
	fmt.Fprintln(ld.out, DimStyle.Render("Type a prompt, /generate to run it, /submit to accept. /help lists commands."))
}

func (ld *LineDialog) printFields() {
	lib := ld.ctrl.Library()
	en := ld.ctrl.Enablement()
	rows := []struct{ label, value string }{
		{"Prompt", ld.ctrl.Prompt()},
		{"Preset", lib.PromptTitle(ld.ctrl.PredefinedPrompt())},
		{"Content", ld.ctrl.ContentSelector()},
		{"Source", ld.ctrl.Source()},
		{"Text length", lib.TextLengthTitle(ld.ctrl.TextLength())},
		{"Response", ld.ctrl.Response()},
	}
	fmt.Fprintln(ld.out, RenderSeparator(60))
	for _, r := range rows {
		fmt.Fprintf(ld.out, "%s %s\n", RenderLabel(r.label), ValueStyle.Render(util.TruncateWidth(oneLine(r.value), 70)))
	}
	fmt.Fprintf(ld.out, "%s back=%v forward=%v reset=%v\n", RenderLabel("History"), en.Back, en.Forward, en.Reset)
	if b := ld.ctrl.Banner(); b != "" {
		fmt.Fprintln(ld.out, styles.RenderWarning(b))
	}
	fmt.Fprintln(ld.out, RenderSeparator(60))
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
