// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Gibson

package slogs

// Structured logging keys.
const (
	// Core keys
	Component = "component"
	Error     = "error"
	Count     = "count"

	// Option keys
	Option = "option"
	Value  = "value"
	Old    = "old"
	New    = "new"
	Color  = "color"

	// Console keys
	Command = "command"
)
