package common

import (
	"fmt"
	"strings"
)

// FieldError is one invalid configuration key.
type FieldError struct {
	Key     string
	Value   any
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %s (got %q)", e.Key, e.Message, fmt.Sprint(e.Value))
}

// Rule returns a message when value is invalid and "" otherwise.
type Rule func(value any) string

// Validator collects FieldErrors across keys.
type Validator struct {
	errs []FieldError
}

func NewValidator() *Validator {
	return &Validator{}
}

// Field applies rules to value and records the first one that fails.
func (v *Validator) Field(key string, value any, rules ...Rule) *Validator {
	for _, rule := range rules {
		if msg := rule(value); msg != "" {
			v.errs = append(v.errs, FieldError{Key: key, Value: value, Message: msg})
			break
		}
	}
	return v
}

func (v *Validator) HasErrors() bool {
	return len(v.errs) > 0
}

// Err returns nil, or a CONFIG_ERROR listing every invalid key.
func (v *Validator) Err() error {
	if !v.HasErrors() {
		return nil
	}
	msgs := make([]string, 0, len(v.errs))
	for _, e := range v.errs {
		msgs = append(msgs, e.Error())
	}
	return NewAppError(CodeConfig, strings.Join(msgs, "; "), ErrInvalidInput)
}

// Required rejects nil and blank strings.
func Required(value any) string {
	if value == nil {
		return "is required"
	}
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		return "is required"
	}
	return ""
}

// Positive rejects integers below 1.
func Positive(value any) string {
	switch n := value.(type) {
	case int:
		if n >= 1 {
			return ""
		}
	case int32:
		if n >= 1 {
			return ""
		}
	}
	return "must be a positive integer"
}

// OneOf accepts only the listed strings.
func OneOf(allowed ...string) Rule {
	return func(value any) string {
		s, _ := value.(string)
		for _, a := range allowed {
			if s == a {
				return ""
			}
		}
		quoted := make([]string, len(allowed))
		for i, a := range allowed {
			quoted[i] = fmt.Sprintf("%q", a)
		}
		return "must be one of " + strings.Join(quoted, ", ")
	}
}
