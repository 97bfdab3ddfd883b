// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package generate

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/quill-tui/internal/content"
)

// =============================================================================
// TEXT HELPER TESTS
// =============================================================================

func TestShorten(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxWords int
		want     string
	}{
		{"short text", "This is a short text.", 10, "This is a short text."},
		{"long text", "This is a very long text that should be shortened. Well, not really very long, but long enough.", 4, "This is ... enough."},
		{"odd max words", "This is a text with odd max words which we shorten.", 3, "This ... shorten."},
		{"even max words", "This is a text with even max words which we shorten.", 4, "This is ... shorten."},
		{"odd word count", "This is a text with odd wordcount.", 4, "This is ... wordcount."},
		{"even word count", "This is a text with even number of words.", 4, "This is ... words."},
		{"empty", "", 10, ""},
		{"no limit", "a b c", 0, "a b c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Shorten(tt.text, tt.maxWords))
		})
	}
}

func TestParseKeywords(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   []string
	}{
		{"lines with markers", "1. Go\n2) Concurrency\n- \"Channels\"\n* go\n\n", []string{"Go", "Concurrency", "Channels"}},
		{"comma list", "alpha, beta,gamma.", []string{"alpha", "beta", "gamma"}},
		{"empty", "  ", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseKeywords(tt.answer))
		})
	}

	var many []string
	for i := 0; i < MaxKeywords+5; i++ {
		many = append(many, strings.Repeat("k", i+1))
	}
	assert.Len(t, ParseKeywords(strings.Join(many, "\n")), MaxKeywords)
}

// =============================================================================
// OPERATION TESTS
// =============================================================================

func TestService_Keywords(t *testing.T) {
	backend := &fakeBackend{deltas: []string{"- <b>Go</b>\n- Tom &amp; Jerry\n"}, reason: FinishStop}
	svc := NewService(backend, nil)

	keywords, err := svc.Keywords(context.Background(), strings.Repeat("word ", KeywordInputWords+10))
	require.NoError(t, err)

	assert.Equal(t, []string{"Go", "Tom & Jerry"}, keywords)
	require.Len(t, backend.messages, 3)
	assert.Contains(t, backend.messages[1].Content, " ... ")
	assert.Equal(t, KeywordsPrompt, backend.messages[2].Content)

	_, err = svc.Keywords(context.Background(), " ")
	assert.ErrorIs(t, err, ErrTextRequired)
}

func TestService_Description(t *testing.T) {
	backend := &fakeBackend{deltas: []string{"  A short <script>x</script>description. "}, reason: FinishStop}
	svc := NewService(backend, nil)

	desc, err := svc.Description(context.Background(), "Some long text.", 10)
	require.NoError(t, err)

	assert.Equal(t, "A short description.", desc)
	assert.Contains(t, backend.messages[2].Content, "at most 10 words")
	assert.Equal(t, 50, backend.maxTokens)

	_, err = svc.Description(context.Background(), "text", 0)
	require.NoError(t, err)
	assert.NotContains(t, backend.messages[2].Content, "at most")
	assert.Equal(t, DefaultMaxTokens, backend.maxTokens)
}

func TestService_ExecutePrompt(t *testing.T) {
	backend := &fakeBackend{deltas: []string{"done"}, reason: FinishStop}
	svc := NewService(backend, nil)

	res, err := svc.ExecutePrompt(context.Background(), PromptRequest{Prompt: "Say done.", MaxTokens: 5})
	require.NoError(t, err)
	assert.Equal(t, "done", res.Text)
	assert.Equal(t, 5, backend.maxTokens)
	require.Len(t, backend.messages, 2)

	_, err = svc.ExecutePrompt(context.Background(), PromptRequest{Prompt: "Fix it.", Text: "teh text"})
	require.NoError(t, err)
	require.Len(t, backend.messages, 3)
	assert.Equal(t, "teh text", backend.messages[1].Content)
	assert.Equal(t, DefaultMaxTokens, backend.maxTokens)

	_, err = svc.ExecutePrompt(context.Background(), PromptRequest{Text: "t"})
	assert.ErrorIs(t, err, ErrPromptRequired)
}

func TestService_Translate(t *testing.T) {
	backend := &fakeBackend{deltas: []string{"<p>Hallo ", "Welt</p>"}, reason: FinishStop}
	retriever := content.RetrieverFunc(func(ctx context.Context, path string) (string, error) {
		return "<p>Hello world</p>", nil
	})
	svc := NewService(backend, retriever)

	res, err := svc.Translate(context.Background(), TranslateRequest{
		Path: "/content/page", SourceLanguage: "en", TargetLanguage: "de", RichText: true,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "<p>Hallo Welt</p>", res.Text)
	assert.Equal(t, "<p>Hello world</p>", backend.messages[1].Content)
	assert.Contains(t, backend.messages[2].Content, "from en to de")
	assert.Contains(t, backend.messages[2].Content, "HTML")
}

func TestTranslateRequest_Validate(t *testing.T) {
	tests := []struct {
		name string
		req  TranslateRequest
		want error
	}{
		{"ok", TranslateRequest{Text: "hi", SourceLanguage: "en", TargetLanguage: "de"}, nil},
		{"path only", TranslateRequest{Path: "/a", SourceLanguage: "en", TargetLanguage: "de"}, nil},
		{"no text", TranslateRequest{SourceLanguage: "en", TargetLanguage: "de"}, ErrTextRequired},
		{"no source", TranslateRequest{Text: "hi", TargetLanguage: "de"}, ErrSourceLanguage},
		{"no target", TranslateRequest{Text: "hi", SourceLanguage: "en"}, ErrTargetLanguage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, IsInvalidRequest(err))
		})
	}
}
