package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrDecode is matched by every DecodeError.
var ErrDecode = errors.New("model output is not a json object")

// Decode failure reasons.
const (
	ReasonEmpty       = "empty"
	ReasonNoObject    = "no_object"
	ReasonInvalidJSON = "invalid_json"
)

// DecodeError reports model text that could not be recovered as one JSON
// object. Raw is the untouched generator output.
type DecodeError struct {
	Reason string
	Raw    string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode model output (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("decode model output (%s)", e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

var reFence = regexp.MustCompile("(?i)```json|```")

// DecodeObject recovers a single JSON object from free model text.
//
// Fence markers are removed and the span from the first '{' to the last '}'
// is parsed. The span is greedy: prose before and after the object is
// tolerated, but two objects in one response are captured together and
// fail to parse. That case is not recovered.
// Numbers are kept as json.Number so values round-trip exactly.
func DecodeObject(text string) (map[string]any, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, &DecodeError{Reason: ReasonEmpty, Raw: text}
	}
	trimmed = strings.TrimSpace(reFence.ReplaceAllString(trimmed, ""))

	start := strings.IndexByte(trimmed, '{')
	end := strings.LastIndexByte(trimmed, '}')
	if start < 0 || end <= start {
		return nil, &DecodeError{Reason: ReasonNoObject, Raw: text}
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(trimmed[start : end+1])))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, &DecodeError{Reason: ReasonInvalidJSON, Raw: text, Err: err}
	}
	if dec.More() {
		return nil, &DecodeError{Reason: ReasonInvalidJSON, Raw: text, Err: errors.New("trailing data after object")}
	}
	return out, nil
}
