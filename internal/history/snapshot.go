// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is the full editable state of the dialog at one moment.
// All fields are comparable so two snapshots built independently from the
// same values are equal under ==.
type Snapshot struct {
	Prompt           string `json:"prompt,omitempty"`
	PredefinedPrompt string `json:"predefinedPrompt,omitempty"`
	ContentSelector  string `json:"contentSelector,omitempty"`
	SourceContent    string `json:"sourceContent,omitempty"`
	TextLength       string `json:"textLength,omitempty"`
	Response         string `json:"response,omitempty"`
}

// Equal reports whether s and other hold the same field values.
func (s Snapshot) Equal(other Snapshot) bool {
	return s == other
}

// IsEmpty reports whether s is the zero snapshot written by Reset.
func (s Snapshot) IsEmpty() bool {
	return s == Snapshot{}
}

// =============================================================================
// ACCESSOR
// =============================================================================

// Accessor reads and replaces the observable dialog state.
// SetStatus must update every dependent field before it returns.
type Accessor interface {
	GetStatus() Snapshot
	SetStatus(Snapshot)
}

// AccessorFuncs adapts a pair of functions to the Accessor interface.
type AccessorFuncs struct {
	Get func() Snapshot
	Set func(Snapshot)
}

// GetStatus calls f.Get.
func (f AccessorFuncs) GetStatus() Snapshot {
	return f.Get()
}

// SetStatus calls f.Set.
func (f AccessorFuncs) SetStatus(s Snapshot) {
	f.Set(s)
}
