// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package generate

import (
	"context"
	"errors"

	"github.com/jeranaias/quill-tui/internal/cloud"
	"github.com/jeranaias/quill-tui/internal/ollama"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorType categorizes generation errors for display and HTTP mapping.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeInvalidRequest
	ErrTypeNotRunning
	ErrTypeModelNotFound
	ErrTypeTimeout
	ErrTypeAuth
	ErrTypeRateLimit
	ErrTypeCanceled
	ErrTypeContent
)

// String returns a short label for the error type.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeInvalidRequest:
		return "invalid request"
	case ErrTypeNotRunning:
		return "backend not running"
	case ErrTypeModelNotFound:
		return "model not found"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeAuth:
		return "authentication failed"
	case ErrTypeRateLimit:
		return "rate limited"
	case ErrTypeCanceled:
		return "canceled"
	case ErrTypeContent:
		return "content unavailable"
	default:
		return "unknown"
	}
}

// Error is returned by the Service for every failure.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches sentinel errors by type and message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type && t.Message == e.Message
}

// Request validation errors.
var (
	ErrPromptRequired   = &Error{Type: ErrTypeInvalidRequest, Message: "No prompt given"}
	ErrConflictingInput = &Error{Type: ErrTypeInvalidRequest, Message: "Both inputPath and inputText given, only one of them is allowed"}
	ErrTextRequired     = &Error{Type: ErrTypeInvalidRequest, Message: "No text given"}
	ErrSourceLanguage   = &Error{Type: ErrTypeInvalidRequest, Message: "No sourceLanguage given"}
	ErrTargetLanguage   = &Error{Type: ErrTypeInvalidRequest, Message: "No targetLanguage given"}
	ErrNoBackend        = &Error{Type: ErrTypeNotRunning, Message: "no generation backend configured"}
)

// =============================================================================
// CLASSIFICATION
// =============================================================================

// classify wraps a backend error in an *Error with the matching type.
func classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	var genErr *Error
	if errors.As(err, &genErr) {
		return err
	}

	t := ErrTypeUnknown
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) || ollama.IsCanceled(err):
		t = ErrTypeCanceled
	case errors.Is(err, context.DeadlineExceeded) || ollama.IsTimeout(err):
		t = ErrTypeTimeout
	case ollama.IsNotRunning(err) || errors.Is(err, cloud.ErrNotConfigured):
		t = ErrTypeNotRunning
	case ollama.IsModelNotFound(err) || errors.Is(err, cloud.ErrModelNotFound):
		t = ErrTypeModelNotFound
	case errors.Is(err, cloud.ErrAuthFailed) || errors.Is(err, cloud.ErrInsufficientCredits):
		t = ErrTypeAuth
	case errors.Is(err, cloud.ErrRateLimited):
		t = ErrTypeRateLimit
	}
	return &Error{Type: t, Message: "generation failed", Cause: err}
}

// TypeOf returns the ErrorType of err, or ErrTypeUnknown.
func TypeOf(err error) ErrorType {
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr.Type
	}
	return ErrTypeUnknown
}

// IsInvalidRequest reports whether err is a request validation error.
func IsInvalidRequest(err error) bool {
	return TypeOf(err) == ErrTypeInvalidRequest
}

// IsCanceled reports whether err is a cancellation.
func IsCanceled(err error) bool {
	return TypeOf(err) == ErrTypeCanceled
}
