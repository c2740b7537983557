// Package summarize joins a batch into one compliance report checked against
// the Letter of Credit in the batch.
package summarize

import (
	"errors"
	"fmt"

	"github.com/joseph-ayodele/tradedocs/constants"
)

// ComplianceReport always carries all five keys; sequences are never null.
type ComplianceReport struct {
	OverallStatus       string   `json:"overall_status"`
	Summary             []string `json:"summary"`
	LCValidationSummary []string `json:"lc_validation_summary"`
	DetailedFindings    []string `json:"detailed_findings"`
	MissingDocuments    []string `json:"missing_documents"`
}

// Compliant reports whether the overall status is COMPLIANT.
func (r ComplianceReport) Compliant() bool {
	return r.OverallStatus == constants.StatusCompliant
}

func emptyReport() ComplianceReport {
	return ComplianceReport{
		Summary:             []string{},
		LCValidationSummary: []string{},
		DetailedFindings:    []string{},
		MissingDocuments:    []string{},
	}
}

// ErrSummaryDecode is matched by every SummaryDecodeError.
var ErrSummaryDecode = errors.New("compliance summary is not a JSON object")

// SummaryDecodeError keeps the generator output that could not be decoded.
type SummaryDecodeError struct {
	Raw string
	Err error
}

func (e *SummaryDecodeError) Error() string {
	return fmt.Sprintf("%s: %v", constants.ErrSummaryDecode, e.Err)
}

func (e *SummaryDecodeError) Unwrap() error { return e.Err }

func (e *SummaryDecodeError) Is(target error) bool { return target == ErrSummaryDecode }
