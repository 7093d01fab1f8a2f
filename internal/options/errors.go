// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Gibson

package options

import (
	"errors"
	"fmt"
)

// Error codes carried by the option errors.
const (
	CodeMissingArgument    = "MISSING_ARGUMENT"
	CodeInvalidArgument    = "INVALID_ARGUMENT"
	CodeParseFailed        = "PARSE_FAILED"
	CodeUnknownOption      = "UNKNOWN_OPTION"
	CodeInvalidOption      = "INVALID_OPTION"
	CodeInvalidOptionValue = "INVALID_OPTION_VALUE"
)

// ErrListenerNotFound is returned when removing a listener that was never subscribed.
var ErrListenerNotFound = errors.New("listener not found")

// MissingArgumentError reports that none of the inputs the tool can act on was given.
type MissingArgumentError struct {
	Arg string
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("Missing argument: %s", e.Arg)
}

// Code returns the error code.
func (e *MissingArgumentError) Code() string { return CodeMissingArgument }

// ArgumentError reports a command-line value that failed a structural check.
type ArgumentError struct {
	Arg     string
	Value   string
	Message string
}

func (e *ArgumentError) Error() string { return e.Message }

// Code returns the error code.
func (e *ArgumentError) Code() string { return CodeInvalidArgument }

// ParseError wraps a failure of the command-line parser.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return e.Err.Error() }

func (e *ParseError) Unwrap() error { return e.Err }

// Code returns the error code.
func (e *ParseError) Code() string { return CodeParseFailed }

// UnknownOptionError reports a read of a name that was never stored.
type UnknownOptionError struct {
	Name string
}

func (e *UnknownOptionError) Error() string {
	return fmt.Sprintf("Unknown option: %s", e.Name)
}

// Code returns the error code.
func (e *UnknownOptionError) Code() string { return CodeUnknownOption }

// InvalidOptionError reports a governed read or write of a name without a validator.
type InvalidOptionError struct {
	Name string
}

func (e *InvalidOptionError) Error() string {
	return fmt.Sprintf("Invalid option: %s", e.Name)
}

// Code returns the error code.
func (e *InvalidOptionError) Code() string { return CodeInvalidOption }

// InvalidOptionValueError reports a value rejected by an option's validator.
type InvalidOptionValueError struct {
	Name  string
	Value string
}

func (e *InvalidOptionValueError) Error() string {
	return fmt.Sprintf("Invalid value for option %s: %s", e.Name, e.Value)
}

// Code returns the error code.
func (e *InvalidOptionValueError) Code() string { return CodeInvalidOptionValue }

// ErrorCode returns the code of an option error anywhere in err's chain, or "" if none.
func ErrorCode(err error) string {
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return ""
}
