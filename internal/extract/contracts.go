// Package extract maps a normalized document to a schema-shaped record for
// its document type. One generic extractor serves every type.
package extract

import (
	"context"
	"encoding/json"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/ocr"
	"github.com/joseph-ayodele/tradedocs/internal/schema"
)

// Extractor never fails outward: problems become a failure record.
type Extractor interface {
	Extract(ctx context.Context, doc ocr.NormalizedDocument) ExtractionRecord
}

// Failure is the audit record kept when extraction produced no usable object.
type Failure struct {
	Error          constants.ErrorKind `json:"error"`
	RawModelOutput string              `json:"raw_model_output"`
	Detail         string              `json:"detail,omitempty"`
}

// ExtractionRecord is either a conformed record or a failure, never both.
type ExtractionRecord struct {
	fields  *schema.Record
	failure *Failure
}

// Succeeded wraps a conformed record.
func Succeeded(r schema.Record) ExtractionRecord { return ExtractionRecord{fields: &r} }

// Failed wraps a failure.
func Failed(f Failure) ExtractionRecord { return ExtractionRecord{failure: &f} }

func (r ExtractionRecord) OK() bool { return r.fields != nil }

// Fields returns the conformed record; ok is false for failures.
func (r ExtractionRecord) Fields() (schema.Record, bool) {
	if r.fields == nil {
		return schema.Record{}, false
	}
	return *r.fields, true
}

// Failure returns the failure; ok is false for successful records.
func (r ExtractionRecord) Failure() (Failure, bool) {
	if r.failure == nil {
		return Failure{}, false
	}
	return *r.failure, true
}

func (r ExtractionRecord) MarshalJSON() ([]byte, error) {
	switch {
	case r.fields != nil:
		return json.Marshal(*r.fields)
	case r.failure != nil:
		return json.Marshal(*r.failure)
	default:
		return []byte("null"), nil
	}
}
