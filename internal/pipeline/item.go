package pipeline

import (
	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/extract"
)

// BatchItem is the per-file outcome of a run. It is built once and never
// mutated afterwards.
type BatchItem struct {
	FileName            string                    `json:"file_name"`
	DocType             *constants.DocumentType   `json:"doc_type"`
	ExtractedData       *extract.ExtractionRecord `json:"extracted_data"`
	ClassificationError *ClassificationFailure    `json:"classification_error"`
}

// ClassificationFailure keeps the generator answer that named no known type.
type ClassificationFailure struct {
	Error          constants.ErrorKind `json:"error"`
	RawModelOutput string              `json:"raw_model_output"`
}

// Type returns the resolved document type, if any.
func (b BatchItem) Type() (constants.DocumentType, bool) {
	if b.DocType == nil {
		return "", false
	}
	return *b.DocType, true
}

// Record returns the extraction record, if any.
func (b BatchItem) Record() (extract.ExtractionRecord, bool) {
	if b.ExtractedData == nil {
		return extract.ExtractionRecord{}, false
	}
	return *b.ExtractedData, true
}

func resolvedItem(name string, dt constants.DocumentType, rec extract.ExtractionRecord) BatchItem {
	return BatchItem{FileName: name, DocType: &dt, ExtractedData: &rec}
}

func unresolvedItem(name, raw string) BatchItem {
	return BatchItem{
		FileName: name,
		ClassificationError: &ClassificationFailure{
			Error:          constants.ErrClassificationFailed,
			RawModelOutput: raw,
		},
	}
}

// SkippedFile is a file that produced no usable text.
type SkippedFile struct {
	FileName string              `json:"file_name"`
	Reason   constants.ErrorKind `json:"reason"`
	Detail   string              `json:"detail,omitempty"`
}

// RunStats counts file outcomes for one run.
type RunStats struct {
	Scanned    int `json:"scanned"`
	Skipped    int `json:"skipped"`
	Classified int `json:"classified"`
	Unresolved int `json:"unresolved"`
	Failed     int `json:"failed"`
}

// RunResult holds the items of a run in input order.
type RunResult struct {
	RunID   string        `json:"run_id"`
	Items   []BatchItem   `json:"items"`
	Skipped []SkippedFile `json:"skipped"`
	Stats   RunStats      `json:"stats"`
}

// Types returns the set of resolved document types in the batch.
func (r RunResult) Types() map[constants.DocumentType]bool {
	set := make(map[constants.DocumentType]bool, len(r.Items))
	for _, it := range r.Items {
		if dt, ok := it.Type(); ok {
			set[dt] = true
		}
	}
	return set
}
