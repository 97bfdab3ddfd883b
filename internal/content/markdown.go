// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package content

import (
	"fmt"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// htmlConverter is safe for concurrent use once built.
var htmlConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(),
	),
)

// HTMLToMarkdown converts an HTML document or fragment to markdown.
// domain, when non-empty, is used to absolutize relative links.
func HTMLToMarkdown(html, domain string) (string, error) {
	var (
		md  string
		err error
	)
	if domain != "" {
		md, err = htmlConverter.ConvertString(html, converter.WithDomain(domain))
	} else {
		md, err = htmlConverter.ConvertString(html)
	}
	if err != nil {
		return "", fmt.Errorf("convert html: %w", err)
	}
	return md, nil
}
