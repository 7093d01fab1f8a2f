// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Gibson

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string `json:"field"`
	Value   string `json:"value"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation error for '%s': %s", e.Field, e.Message)
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var messages []string
	for _, err := range e {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("multiple validation errors: %s", strings.Join(messages, "; "))
}

// ValidationRule defines a validation rule for a settings field
type ValidationRule struct {
	Required      bool
	AllowedValues []string
	Custom        func(value string) error
}

// SettingsValidator validates Settings field by field.
type SettingsValidator struct {
	rules map[string]ValidationRule
}

// NewSettingsValidator returns a validator with the rules for every field.
func NewSettingsValidator() *SettingsValidator {
	sv := &SettingsValidator{rules: make(map[string]ValidationRule)}
	sv.AddRule("log_level", ValidationRule{
		Required:      true,
		AllowedValues: LogLevels,
	})
	sv.AddRule("log_file", ValidationRule{
		Custom: validateLogFile,
	})
	sv.AddRule("audit_file", ValidationRule{
		Custom: validateLogFile,
	})
	return sv
}

// AddRule adds a validation rule for a field
func (sv *SettingsValidator) AddRule(field string, rule ValidationRule) {
	sv.rules[field] = rule
}

// Validate checks s against every rule. Fields are reported in name order.
func (sv *SettingsValidator) Validate(s *Settings) ValidationErrors {
	values := map[string]string{
		"log_level":  s.LogLevel,
		"log_file":   s.LogFile,
		"audit_file": s.AuditFile,
	}

	fields := make([]string, 0, len(sv.rules))
	for field := range sv.rules {
		fields = append(fields, field)
	}
	slices.Sort(fields)

	var errors ValidationErrors
	for _, field := range fields {
		rule := sv.rules[field]
		value := values[field]

		if value == "" {
			if rule.Required {
				errors = append(errors, ValidationError{
					Field:   field,
					Message: "required field is missing",
					Code:    "REQUIRED_FIELD_MISSING",
				})
			}
			continue
		}

		if len(rule.AllowedValues) > 0 && !slices.Contains(rule.AllowedValues, value) {
			errors = append(errors, ValidationError{
				Field:   field,
				Value:   value,
				Message: fmt.Sprintf("value must be one of: %s", strings.Join(rule.AllowedValues, ", ")),
				Code:    "INVALID_VALUE",
			})
			continue
		}

		if rule.Custom != nil {
			if err := rule.Custom(value); err != nil {
				errors = append(errors, ValidationError{
					Field:   field,
					Value:   value,
					Message: err.Error(),
					Code:    "VALIDATION_ERROR",
				})
			}
		}
	}
	return errors
}

// validateLogFile requires the parent directory of the log file to exist.
func validateLogFile(path string) error {
	dir := filepath.Dir(os.ExpandEnv(path))
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("log directory %s does not exist", dir)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}
