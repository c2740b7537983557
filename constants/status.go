package constants

// ErrorKind is the stable code recorded for a per-file or run-level failure.
type ErrorKind string

const (
	ErrNormalizationEmpty   ErrorKind = "NORMALIZATION_EMPTY"
	ErrClassificationFailed ErrorKind = "CLASSIFICATION_FAILED"
	ErrSchemaViolation      ErrorKind = "SCHEMA_VIOLATION" // soft, logged only
	ErrSummaryDecode        ErrorKind = "SUMMARY_DECODE_FAILED"

	ErrInvoiceExtraction      ErrorKind = "INVOICE_EXTRACTION_FAILED"
	ErrAirWaybillExtraction   ErrorKind = "AWB_EXTRACTION_FAILED"
	ErrCourierExtraction      ErrorKind = "COURIER_DISPATCH_ADVICE_EXTRACTION_FAILED"
	ErrLetterOfCreditExtract  ErrorKind = "LC_EXTRACTION_FAILED"
	ErrCertOfOriginExtraction ErrorKind = "CERTIFICATE_OF_ORIGIN_EXTRACTION_FAILED"
)

// OverallStatus values written into the compliance report.
const (
	StatusCompliant          = "COMPLIANT"
	StatusDiscrepanciesFound = "DISCREPANCIES FOUND"
)

// ProcessingStatus is stored with each persisted report.
type ProcessingStatus string

const (
	ProcessingCompleted ProcessingStatus = "Completed"
	ProcessingFailed    ProcessingStatus = "Failed"
)
