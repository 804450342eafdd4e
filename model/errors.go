package model

import (
	"fmt"
	"strings"
)

// maxRawSample bounds the raw payload carried by a ValidationError so
// log lines stay readable.
const maxRawSample = 200

// FieldError describes a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Missing bool   `json:"missing,omitempty"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%v: %v", e.Field, e.Message)
}

// ValidationError reports that a well-formed property map violates the
// domain schema. It carries field-level detail so callers can
// distinguish a recoverable bad record from a systemic schema mismatch.
type ValidationError struct {
	Message string       `json:"message"`
	Raw     string       `json:"raw,omitempty"`
	Fields  []FieldError `json:"fields,omitempty"`
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("validation error: %v", e.Message)
	if len(e.Fields) > 0 {
		details := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			details = append(details, f.Error())
		}
		msg += fmt.Sprintf(" (%v)", strings.Join(details, "; "))
	}
	if e.Raw != "" {
		msg += fmt.Sprintf("\nraw data sample: %v", e.Raw)
	}
	return msg
}

// MissingFields returns the names of required fields that were absent.
func (e *ValidationError) MissingFields() []string {
	var missing []string
	for _, f := range e.Fields {
		if f.Missing {
			missing = append(missing, f.Field)
		}
	}
	return missing
}

// truncateSample shortens raw payloads to maxRawSample runes.
func truncateSample(raw string) string {
	runes := []rune(raw)
	if len(runes) <= maxRawSample {
		return raw
	}
	return string(runes[:maxRawSample])
}
