// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/jeranaias/quill-tui/internal/storage"
	"github.com/jeranaias/quill-tui/internal/ui/styles"
	"github.com/jeranaias/quill-tui/internal/util"
)

// =============================================================================
// HISTORY COMMAND
// =============================================================================

// HandleHistory lists, shows, deletes or clears stored dialog histories.
func HandleHistory(ctx context.Context, args Args, w io.Writer) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	dbPath, err := cfg.ResolvedDBPath()
	if err != nil {
		return err
	}
	store, err := storage.Open(ctx, dbPath)
	if err != nil {
		return &CommandError{Command: "history", Action: "open", Err: err}
	}
	defer store.Close()

	switch args.Subcommand {
	case "list", "ls":
		return OutputJSON(w, args.JSON, "history list", func() (interface{}, error) {
			metas, err := store.ListHistories(ctx, args.Prefix)
			if err != nil || args.JSON {
				return metas, err
			}
			if len(metas) == 0 {
				fmt.Fprintln(w, DimStyle.Render("No stored histories."))
				return metas, nil
			}
			for _, m := range metas {
				fmt.Fprintf(w, "%-60s %3d  %s\n", util.TruncateWidth(m.Key.String(), 60), m.EntryCount, m.UpdatedAt.Format("2006-01-02 15:04"))
			}
			return metas, nil
		})

	case "show":
		key, err := historyKeyArg(args)
		if err != nil {
			return err
		}
		return OutputJSON(w, args.JSON, "history show", func() (interface{}, error) {
			entries, err := store.LoadHistory(ctx, key)
			if err != nil || args.JSON {
				return entries, err
			}
			fmt.Fprintln(w, TitleStyle.Render(key.String()))
			for i, e := range entries {
				fmt.Fprintln(w, RenderSeparator(60))
				fmt.Fprintf(w, "%s %d\n", RenderLabel("Entry"), i+1)
				fmt.Fprintf(w, "%s %s\n", RenderLabel("Prompt"), util.TruncateWidth(oneLine(e.Prompt), 70))
				fmt.Fprintf(w, "%s %s\n", RenderLabel("Source"), util.TruncateWidth(oneLine(e.SourceContent), 70))
				fmt.Fprintf(w, "%s %s\n", RenderLabel("Response"), util.TruncateWidth(oneLine(e.Response), 70))
			}
			return entries, nil
		})

	case "outputs":
		key, err := historyKeyArg(args)
		if err != nil {
			return err
		}
		return OutputJSON(w, args.JSON, "history outputs", func() (interface{}, error) {
			outputs, err := store.Outputs(ctx, key, args.Limit)
			if err != nil || args.JSON {
				return outputs, err
			}
			for _, o := range outputs {
				fmt.Fprintf(w, "%s  %s\n", DimStyle.Render(o.CreatedAt.Format("2006-01-02 15:04")), util.TruncateWidth(oneLine(o.Text), 80))
			}
			return outputs, nil
		})

	case "delete", "rm":
		key, err := historyKeyArg(args)
		if err != nil {
			return err
		}
		if err := store.DeleteHistory(ctx, key); err != nil {
			return &CommandError{Command: "history", Action: "delete", Err: err}
		}
		fmt.Fprintln(w, styles.RenderSuccess("deleted "+key.String()))
		return nil

	case "clear":
		if !args.Confirm {
			return &UsageError{Message: "history clear removes every stored history; add --confirm"}
		}
		n, err := store.ClearHistories(ctx)
		if err != nil {
			return &CommandError{Command: "history", Action: "clear", Err: err}
		}
		fmt.Fprintln(w, styles.RenderSuccess(fmt.Sprintf("removed %d histories", n)))
		return nil

	default:
		return &UsageError{Message: fmt.Sprintf("unknown history subcommand %q", args.Subcommand)}
	}
}

// historyKeyArg reads PATH#PROPERTY from the positional argument or --path
// and --property.
func historyKeyArg(args Args) (storage.Key, error) {
	key := storage.ParseKey(args.Path)
	if key.Property == "" {
		key.Property = args.Property
	}
	if key.Property == "" {
		key.Property = "text"
	}
	if key.Path == "" {
		return key, &UsageError{Message: "a content path is required (PATH#PROPERTY or --path)"}
	}
	return key, nil
}
