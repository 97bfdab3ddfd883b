// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command line parsing for quill.
package cli

import (
	"fmt"
	"io"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdOpen Command = iota
	CmdServe
	CmdHistory
	CmdConfig
	CmdPrompts
	CmdVersion
	CmdHelp
)

// String returns the command name.
func (c Command) String() string {
	switch c {
	case CmdOpen:
		return "open"
	case CmdServe:
		return "serve"
	case CmdHistory:
		return "history"
	case CmdConfig:
		return "config"
	case CmdPrompts:
		return "prompts"
	case CmdVersion:
		return "version"
	default:
		return "help"
	}
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigFile string // --config FILE replaces the default config lookup
	Verbose    bool
	JSON       bool

	// Dialog (open)
	Path        string
	Property    string
	Content     string
	ContentFile string
	TextLength  string
	Out         string
	Rich        bool
	Line        bool

	// serve
	Addr string

	// history / config
	Subcommand string
	Prefix     string
	Limit      int
	ConfigKey  string
	ConfigVal  string
	Confirm    bool
	Reveal     bool

	// Raw args after the command name
	Raw []string
}

// boolFlags never take a value.
var boolFlags = []string{"rich", "line", "json", "confirm", "reveal", "verbose", "v", "help", "h"}

const usageText = `quill - AI content creation dialog for the terminal

Usage:
  quill [open] [flags]          Open the dialog for a content field (default)
  quill serve [--addr ADDR]     Run the HTTP service
  quill history list [--prefix P]
  quill history show PATH#PROPERTY
  quill history outputs PATH#PROPERTY [--limit N]
  quill history delete PATH#PROPERTY
  quill history clear --confirm
  quill prompts                 List predefined prompts and text lengths
  quill config show|path
  quill config get KEY [--reveal]
  quill config set KEY VALUE
  quill version
  quill help

Open flags:
  --path PATH           Content path of the edited component
  --property NAME       Edited property (default: text)
  --content TEXT        Current value of the field
  --content-file FILE   Read the current value from FILE ("-" for stdin)
  --text-length VALUE   Initial text length selection
  --rich                The field holds HTML
  --out FILE            Write the accepted text to FILE instead of stdout
  --line                Use the line mode dialog instead of the full screen one

Global flags:
  --config FILE         Load configuration from FILE
  --json                JSON output for history, prompts and config
  -v, --verbose         Log to stderr in line mode

Dialog keys:
  tab / shift+tab       Move between fields
  left / right          Change the selected option of a selector field
  ctrl+g                Generate        esc      Stop, then cancel
  alt+left / alt+right  History back / forward
  ctrl+r                Reset fields    alt+r    Reset history
  ctrl+s                Accept          f1       Help

Configuration: ~/.quill/config.toml (QUILL_HOME moves the directory)

Version: %s
`

// PrintUsage writes the usage text.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// PrintVersion writes version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "quill version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
}

// Parse parses command-line arguments (without the program name) and returns
// the command and its args.
func Parse(argv []string) (Command, Args, error) {
	cmd := CmdOpen
	rest := argv
	if len(argv) > 0 && !strings.HasPrefix(argv[0], "-") {
		switch strings.ToLower(argv[0]) {
		case "open", "edit":
			cmd = CmdOpen
		case "serve", "server":
			cmd = CmdServe
		case "history", "hist":
			cmd = CmdHistory
		case "config", "cfg":
			cmd = CmdConfig
		case "prompts":
			cmd = CmdPrompts
		case "version":
			cmd = CmdVersion
		case "help":
			cmd = CmdHelp
		default:
			return CmdHelp, Args{}, &UsageError{Message: fmt.Sprintf("unknown command %q", argv[0])}
		}
		rest = argv[1:]
	}

	p := NewArgParser(rest, boolFlags...)
	args := Args{
		ConfigFile:  p.Flag("config"),
		Verbose:     p.BoolFlag("verbose") || p.BoolFlag("v"),
		JSON:        p.BoolFlag("json"),
		Path:        p.Flag("path"),
		Property:    p.Flag("property"),
		Content:     p.Flag("content"),
		ContentFile: p.Flag("content-file"),
		TextLength:  p.Flag("text-length"),
		Out:         p.Flag("out"),
		Rich:        p.BoolFlag("rich"),
		Line:        p.BoolFlag("line"),
		Addr:        p.Flag("addr"),
		Prefix:      p.Flag("prefix"),
		Limit:       p.FlagIntOrDefault("limit", 10),
		Confirm:     p.BoolFlag("confirm"),
		Reveal:      p.BoolFlag("reveal"),
		Subcommand:  p.Positional(0),
		Raw:         rest,
	}
	if p.BoolFlag("help") || p.BoolFlag("h") {
		return CmdHelp, args, nil
	}
	if p.HasFlag("version") {
		return CmdVersion, args, nil
	}

	switch cmd {
	case CmdOpen:
		if args.Property == "" {
			args.Property = "text"
		}
		if args.Content != "" && args.ContentFile != "" {
			return cmd, args, &UsageError{Message: "--content and --content-file are mutually exclusive"}
		}
	case CmdConfig:
		if args.Subcommand == "" {
			args.Subcommand = "show"
		}
		args.ConfigKey = p.Positional(1)
		args.ConfigVal = strings.Join(p.PositionalFrom(2), " ")
	case CmdHistory:
		if args.Subcommand == "" {
			args.Subcommand = "list"
		}
		if key := p.Positional(1); key != "" && args.Path == "" {
			args.Path = key
		}
	}
	return cmd, args, nil
}
