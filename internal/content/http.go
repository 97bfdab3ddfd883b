// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package content

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"strings"
	"time"
)

// ApproximatedMarkdownPath is the servlet path that renders a resource as
// approximate markdown. The content path is appended to it.
const ApproximatedMarkdownPath = "/bin/cpm/ai/approximated.markdown.md"

// maxResponseSize bounds how much of a remote response is read.
const maxResponseSize = 4 << 20

// HTTPRetriever fetches approximated markdown from a remote site.
type HTTPRetriever struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPRetriever creates a retriever for the site at baseURL.
// A zero timeout defaults to 30 seconds.
func NewHTTPRetriever(baseURL string, timeout time.Duration) *HTTPRetriever {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPRetriever{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// URL returns the address queried for path.
func (r *HTTPRetriever) URL(path string) string {
	return r.baseURL + ApproximatedMarkdownPath + path
}

// Retrieve implements Retriever.
func (r *HTTPRetriever) Retrieve(ctx context.Context, path string) (string, error) {
	if err := validatePath(path); err != nil {
		return "", err
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL(path), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/markdown, text/plain;q=0.9, text/html;q=0.5")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("retrieve %s: %w", path, err)
	}
	defer resp.Body.Close()

	log.Printf("CONTENT_FETCH | path=%s status=%d duration=%v", path, resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("%w: %s", ErrNotFound, path)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("retrieve %s: unexpected status %s", path, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	text := string(body)
	if mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mediaType == "text/html" {
		if text, err = HTMLToMarkdown(text, r.baseURL); err != nil {
			return "", err
		}
	}
	return Normalize(text), nil
}
