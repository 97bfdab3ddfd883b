// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jeranaias/quill-tui/internal/generate"
)

// ============================================================================
// TEXT OPERATIONS
// ============================================================================

type keywordsRequest struct {
	Text string `json:"text"`
}

type keywordsResult struct {
	Keywords []string `json:"keywords"`
}

type descriptionRequest struct {
	Text     string `json:"text"`
	MaxWords int    `json:"maxwords,omitempty"`
}

type descriptionResult struct {
	Description string `json:"description"`
}

type translationResult struct {
	Translation  []string `json:"translation"`
	FinishReason string   `json:"finishreason"`
}

// handleKeywords handles POST /api/keywords.
func (s *Server) handleKeywords(w http.ResponseWriter, r *http.Request) {
	var req keywordsRequest
	if !s.decode(w, r, "keywords", &req, func(f url.Values) { req.Text = f.Get("text") }) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.writeGenerateError(w, generate.ErrTextRequired)
		return
	}
	a, ok := s.assistant(w)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.GenerateTimeout)
	defer cancel()
	keywords, err := a.Keywords(ctx, req.Text)
	if err != nil {
		s.writeGenerateError(w, err)
		return
	}
	s.writeResult(w, http.StatusOK, keywordsResult{Keywords: keywords})
}

// handleDescription handles POST /api/description.
func (s *Server) handleDescription(w http.ResponseWriter, r *http.Request) {
	var req descriptionRequest
	if !s.decode(w, r, "description", &req, func(f url.Values) {
		req.Text = f.Get("text")
		req.MaxWords, _ = strconv.Atoi(f.Get("maxwords"))
	}) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.writeGenerateError(w, generate.ErrTextRequired)
		return
	}
	a, ok := s.assistant(w)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.GenerateTimeout)
	defer cancel()
	desc, err := a.Description(ctx, req.Text, req.MaxWords)
	if err != nil {
		s.writeGenerateError(w, err)
		return
	}
	s.writeResult(w, http.StatusOK, descriptionResult{Description: desc})
}

// handlePrompt handles POST /api/prompt. With a text the prompt runs on it.
func (s *Server) handlePrompt(w http.ResponseWriter, r *http.Request) {
	var req generate.PromptRequest
	if !s.decode(w, r, "prompt", &req, func(f url.Values) {
		req.Prompt = f.Get("prompt")
		req.Text = f.Get("text")
		req.MaxTokens, _ = strconv.Atoi(f.Get("maxtokens"))
	}) {
		return
	}
	if err := req.Validate(); err != nil {
		s.writeGenerateError(w, err)
		return
	}
	a, ok := s.assistant(w)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.GenerateTimeout)
	defer cancel()
	result, err := a.ExecutePrompt(ctx, req)
	if err != nil {
		s.writeGenerateError(w, err)
		return
	}
	s.writeResult(w, http.StatusOK, result)
}

// handleTranslate handles POST /api/translate, streaming when asked to.
func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req generate.TranslateRequest
	if !s.decode(w, r, "translate", &req, func(f url.Values) {
		req.Text = f.Get("text")
		req.Path = f.Get("path")
		req.SourceLanguage = f.Get("sourceLanguage")
		req.TargetLanguage = f.Get("targetLanguage")
		req.RichText, _ = strconv.ParseBool(f.Get("richText"))
		req.Streaming, _ = strconv.ParseBool(f.Get("streaming"))
	}) {
		return
	}
	if err := req.Validate(); err != nil {
		s.writeGenerateError(w, err)
		return
	}
	if strings.TrimSpace(req.Text) == "" && !s.pathAllowed(req.Path) {
		s.forbidden(w, req.Path)
		return
	}
	a, ok := s.assistant(w)
	if !ok {
		return
	}

	if req.Streaming {
		s.runStream(w, "translate", req.SourceLanguage+">"+req.TargetLanguage, func(ctx context.Context, onPartial generate.PartialFunc) (*generate.Result, error) {
			return a.Translate(ctx, req, onPartial)
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.GenerateTimeout)
	defer cancel()
	result, err := a.Translate(ctx, req, nil)
	if err != nil {
		s.writeGenerateError(w, err)
		return
	}
	s.writeResult(w, http.StatusOK, translationResult{
		Translation:  []string{result.Text},
		FinishReason: result.FinishReason,
	})
}

// ============================================================================
// HELPERS
// ============================================================================

// assistant returns the generator's text operations. It writes the error
// response and returns false when they are unavailable.
func (s *Server) assistant(w http.ResponseWriter) (Assistant, bool) {
	if s.generator == nil {
		s.writeGenerateError(w, generate.ErrNoBackend)
		return nil, false
	}
	a, ok := s.generator.(Assistant)
	if !ok {
		s.writeError(w, http.StatusNotImplemented, "Operation not supported by the configured generator")
		return nil, false
	}
	return a, true
}

// decode reads a JSON body into v, or form values through fromForm. It
// writes the error response and returns false on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, op string, v any, fromForm func(url.Values)) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err = r.ParseForm(); err == nil {
			fromForm(r.PostForm)
		}
	} else {
		err = json.NewDecoder(r.Body).Decode(v)
	}
	if err == nil {
		return true
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		s.writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Request body exceeds maximum size of %d bytes", MaxRequestBodySize))
		return false
	}
	log.Printf("REQUEST_BAD_FORMAT | op=%s error=%v", op, err)
	s.writeError(w, http.StatusBadRequest, "Invalid request format")
	return false
}
