package constants

import "strings"

// DocumentType is the closed set of trade-finance document labels.
type DocumentType string

const (
	Invoice               DocumentType = "INVOICE"
	AirWaybill            DocumentType = "AIR_WAYBILL"
	CourierDispatchAdvice DocumentType = "COURIER_DISPATCH_ADVICE"
	LetterOfCredit        DocumentType = "LETTER_OF_CREDIT"
	CertificateOfOrigin   DocumentType = "CERTIFICATE_OF_ORIGIN"
)

var allDocumentTypes = []DocumentType{
	Invoice,
	AirWaybill,
	CourierDispatchAdvice,
	LetterOfCredit,
	CertificateOfOrigin,
}

// AllDocumentTypes returns every DocumentType in declaration order.
func AllDocumentTypes() []DocumentType {
	out := make([]DocumentType, len(allDocumentTypes))
	copy(out, allDocumentTypes)
	return out
}

func AsStringSlice() []string {
	result := make([]string, len(allDocumentTypes))
	for i, dt := range allDocumentTypes {
		result[i] = string(dt)
	}
	return result
}

// ParseDocumentType matches s against the closed set exactly, after trimming
// surrounding whitespace. There is no case folding and no fallback type.
func ParseDocumentType(s string) (DocumentType, bool) {
	s = strings.TrimSpace(s)
	for _, dt := range allDocumentTypes {
		if s == string(dt) {
			return dt, true
		}
	}
	return "", false
}

func (d DocumentType) String() string { return string(d) }

// Label is the human-readable title used in reports.
func (d DocumentType) Label() string {
	switch d {
	case Invoice:
		return "Commercial Invoice"
	case AirWaybill:
		return "Air Waybill"
	case CourierDispatchAdvice:
		return "Courier Dispatch Advice"
	case LetterOfCredit:
		return "Letter of Credit"
	case CertificateOfOrigin:
		return "Certificate of Origin"
	default:
		return string(d)
	}
}
