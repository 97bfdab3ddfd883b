// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"

	"github.com/jeranaias/quill-tui/internal/util"
)

// HandlePrompts lists the predefined prompts and text length options.
func HandlePrompts(args Args, w io.Writer) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	lib, err := loadLibrary(cfg)
	if err != nil {
		return err
	}
	return OutputJSON(w, args.JSON, "prompts", func() (interface{}, error) {
		if args.JSON {
			return lib, nil
		}
		fmt.Fprintln(w, TitleStyle.Render("Predefined prompts"))
		for i, p := range lib.Prompts {
			fmt.Fprintf(w, "  %2d  %s\n", i+1, util.TruncateWidth(p.Title, 70))
		}
		fmt.Fprintln(w, TitleStyle.Render("Text lengths"))
		for i, tl := range lib.TextLengths {
			fmt.Fprintf(w, "  %2d  %-24s %s\n", i+1, tl.Title, DimStyle.Render(util.TruncateWidth(tl.Value, 50)))
		}
		return lib, nil
	})
}
