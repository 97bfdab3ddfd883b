// quill - AI content creation dialog for the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"os"

	"github.com/jeranaias/quill-tui/internal/cli"
	"github.com/jeranaias/quill-tui/internal/server"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
	server.Version = Version
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:]))
}

func run(ctx context.Context, argv []string) int {
	cmd, args, err := cli.Parse(argv)
	if err != nil {
		cli.DisplayError(os.Stderr, err)
		return cli.ExitCode(err)
	}

	switch cmd {
	case cli.CmdOpen:
		err = cli.HandleOpen(ctx, args)
	case cli.CmdServe:
		err = cli.HandleServe(ctx, args, os.Stdout)
	case cli.CmdHistory:
		err = cli.HandleHistory(ctx, args, os.Stdout)
	case cli.CmdConfig:
		err = cli.HandleConfig(args, os.Stdout)
	case cli.CmdPrompts:
		err = cli.HandlePrompts(args, os.Stdout)
	case cli.CmdVersion:
		cli.PrintVersion(os.Stdout)
	default:
		cli.PrintUsage(os.Stdout)
	}

	if err != nil {
		cli.DisplayError(os.Stderr, err)
	}
	return cli.ExitCode(err)
}
