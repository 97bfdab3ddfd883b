// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/jeranaias/quill-tui/internal/config"
)

// =============================================================================
// CONFIG COMMAND
// =============================================================================

// HandleConfig shows, reads or changes configuration values.
func HandleConfig(args Args, w io.Writer) error {
	switch args.Subcommand {
	case "show":
		cfg, err := loadConfig(args)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, cfg.String())
		return nil

	case "path":
		path := args.ConfigFile
		if path == "" {
			var err error
			if path, err = config.ConfigPathTOML(); err != nil {
				return err
			}
		}
		fmt.Fprintln(w, path)
		return nil

	case "keys":
		for _, key := range config.GetAllKeys() {
			fmt.Fprintln(w, key)
		}
		return nil

	case "get":
		if args.ConfigKey == "" {
			return &UsageError{Message: "usage: quill config get KEY"}
		}
		cfg, err := loadConfig(args)
		if err != nil {
			return err
		}
		v, err := cfg.Get(args.ConfigKey)
		if err != nil {
			return &UsageError{Message: err.Error()}
		}
		if config.IsSecretKey(args.ConfigKey) && !args.Reveal && v != "" {
			v = "[REDACTED]"
		}
		fmt.Fprintln(w, v)
		return nil

	case "set":
		if args.ConfigKey == "" {
			return &UsageError{Message: "usage: quill config set KEY VALUE"}
		}
		return setConfigValue(args, w)

	default:
		return &UsageError{Message: fmt.Sprintf("unknown config subcommand %q", args.Subcommand)}
	}
}

// setConfigValue changes one key in the config file. Only the file's own
// values are written back, never environment overrides.
func setConfigValue(args Args, w io.Writer) error {
	path := args.ConfigFile
	if path == "" {
		if err := config.EnsureConfigDir(); err != nil {
			return err
		}
		var err error
		if path, err = config.ConfigPathTOML(); err != nil {
			return err
		}
	}

	cfg := config.Default()
	if _, err := os.Stat(path); err == nil {
		if err := config.LoadTOML(cfg, path); err != nil {
			return &CommandError{Command: "config", Action: "set", Err: err}
		}
	}
	if err := cfg.Set(args.ConfigKey, args.ConfigVal); err != nil {
		return &UsageError{Message: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.SaveTOML(cfg, path); err != nil {
		return &CommandError{Command: "config", Action: "set", Err: err}
	}

	shown := args.ConfigVal
	if config.IsSecretKey(args.ConfigKey) {
		shown = "[REDACTED]"
	}
	fmt.Fprintf(w, "%s %s = %s\n", SuccessStyle.Render("[OK]"), args.ConfigKey, shown)
	return nil
}
