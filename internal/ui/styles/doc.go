// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the quill dialog.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection.

# Colors (colors.go)

  - Purple - focus and primary accent
  - Cyan - brand, keys and selector values
  - Emerald - success and the enabled state of history buttons
  - Amber - warnings such as the length restriction banner
  - Rose - errors

# Theme (theme.go)

Theme groups the styles of the dialog: header, field boxes (with a focused
variant), selectors, history buttons, the banner and the status bar.

# Rendering (render.go)

  - Highlight renders source code with a chroma style. Rich text responses
    are shown as highlighted HTML.
  - MarkdownRenderer wraps a glamour renderer for plain text responses.

Accessibility: status messages always carry an ASCII indicator ([OK], [X],
[!], [i]) in addition to color.
*/
package styles
