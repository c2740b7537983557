package summarize

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/pipeline"
	"github.com/joseph-ayodele/tradedocs/internal/schema"
)

type Severity string

const (
	Major Severity = "Major discrepancy"
	Minor Severity = "Minor discrepancy"
)

// Finding is one document-based discrepancy against the LC.
type Finding struct {
	Severity Severity
	Document constants.DocumentType
	Message  string
}

func (f Finding) String() string {
	return fmt.Sprintf("%s (%s): %s", f.Severity, f.Document.Label(), f.Message)
}

// Findings is the outcome of the rule-based checks.
type Findings struct {
	Discrepancies []Finding
	LCLines       []string
	Missing       []string

	// SpecialCertificates are the LC's extra certificate names, used to
	// admit generated missing-document entries.
	SpecialCertificates []string
}

// HasIssues reports whether any discrepancy or missing document was found.
func (f Findings) HasIssues() bool {
	return len(f.Discrepancies) > 0 || len(f.Missing) > 0
}

// Strings renders the discrepancies in report form.
func (f Findings) Strings() []string {
	out := make([]string, 0, len(f.Discrepancies))
	for _, d := range f.Discrepancies {
		out = append(out, d.String())
	}
	return out
}

// requiredFlags maps documents_required flags to the type that satisfies
// them. packing_list has no type in the closed set.
var requiredFlags = []struct {
	flag  string
	label string
	dt    constants.DocumentType
}{
	{"commercial_invoice", constants.Invoice.Label(), constants.Invoice},
	{"packing_list", "Packing List", ""},
	{"air_waybill", constants.AirWaybill.Label(), constants.AirWaybill},
	{"certificate_of_origin", constants.CertificateOfOrigin.Label(), constants.CertificateOfOrigin},
}

// batchView indexes the first successfully extracted record per type.
type batchView struct {
	types   map[constants.DocumentType]bool
	records map[constants.DocumentType]schema.Record
}

func newBatchView(items []pipeline.BatchItem) batchView {
	v := batchView{
		types:   map[constants.DocumentType]bool{},
		records: map[constants.DocumentType]schema.Record{},
	}
	for _, it := range items {
		dt, ok := it.Type()
		if !ok {
			continue
		}
		v.types[dt] = true
		if _, seen := v.records[dt]; seen {
			continue
		}
		if rec, ok := it.Record(); ok {
			if fields, ok := rec.Fields(); ok {
				v.records[dt] = fields
			}
		}
	}
	return v
}

// CrossCheck runs the deterministic LC checks over the batch.
func CrossCheck(items []pipeline.BatchItem) Findings {
	v := newBatchView(items)
	var f Findings

	lc, ok := v.records[constants.LetterOfCredit]
	if !ok {
		if v.types[constants.LetterOfCredit] {
			f.LCLines = append(f.LCLines, "Letter of Credit could not be extracted; LC terms were not validated")
		} else {
			f.LCLines = append(f.LCLines, "No Letter of Credit in the batch; LC terms were not validated")
		}
		return f
	}
	lcNo := text(lc, "lc_number")
	f.LCLines = append(f.LCLines, lcHeadline(lc))

	f.checkMissing(v, lc, lcNo)
	if inv, ok := v.records[constants.Invoice]; ok {
		f.checkInvoice(lc, inv)
	}
	if awb, ok := v.records[constants.AirWaybill]; ok {
		f.checkShipmentDate(lc, constants.AirWaybill, "flight date", text(awb, "flight_date"))
	}
	if co, ok := v.records[constants.CertificateOfOrigin]; ok {
		f.checkShipmentDate(lc, constants.CertificateOfOrigin, "date of departure", text(co, "date_of_departure"))
		if coLC := text(co, "lc_number"); coLC != "" && lcNo != "" && !sameReference(coLC, lcNo) {
			f.add(Minor, constants.CertificateOfOrigin,
				fmt.Sprintf("LC number %q differs from LC %s", coLC, lcNo))
		}
	}
	return f
}

func (f *Findings) add(sev Severity, dt constants.DocumentType, msg string) {
	f.Discrepancies = append(f.Discrepancies, Finding{Severity: sev, Document: dt, Message: msg})
}

func lcHeadline(lc schema.Record) string {
	var parts []string
	if no := text(lc, "lc_number"); no != "" {
		parts = append(parts, "LC "+no)
	} else {
		parts = append(parts, "LC (number not stated)")
	}
	if amt := text(lc, "lc_amount"); amt != "" {
		parts = append(parts, strings.TrimSpace(text(lc, "currency")+" "+amt))
	}
	if d := text(lc, "latest_shipment_date"); d != "" {
		parts = append(parts, "latest shipment "+d)
	}
	if d := text(lc, "lc_expiry_date"); d != "" {
		parts = append(parts, "expiry "+d)
	}
	return strings.Join(parts, ", ")
}

func (f *Findings) checkMissing(v batchView, lc schema.Record, lcNo string) {
	req, ok := lc.Object("documents_required")
	if !ok {
		return
	}
	ref := "required by LC"
	if lcNo != "" {
		ref += " " + lcNo
	}
	for _, rf := range requiredFlags {
		if !req.Bool(rf.flag) {
			continue
		}
		if rf.dt != "" && v.types[rf.dt] {
			continue
		}
		f.Missing = append(f.Missing, fmt.Sprintf("%s (%s)", rf.label, ref))
	}
	f.SpecialCertificates = req.Strings("special_certificates")
}

func (f *Findings) checkInvoice(lc, inv schema.Record) {
	if name, seller := text(lc, "beneficiary_name"), text(inv, "seller_name"); name != "" && seller != "" && !sameParty(name, seller) {
		f.add(Minor, constants.Invoice,
			fmt.Sprintf("seller %q does not match LC beneficiary %q", seller, name))
	}

	lcCur := strings.ToUpper(text(lc, "currency"))
	invCur := strings.ToUpper(text(inv, "currency"))
	if lcCur != "" && invCur != "" && lcCur != invCur {
		f.add(Major, constants.Invoice,
			fmt.Sprintf("invoice currency %s differs from LC currency %s", invCur, lcCur))
		return
	}
	cur := lcCur
	if cur == "" {
		cur = invCur
	}

	lcRaw, invRaw := text(lc, "lc_amount"), text(inv, "total_amount")
	if lcRaw == "" || invRaw == "" {
		return
	}
	lcAmt, okLC := parseAmount(lcRaw)
	invAmt, okInv := parseAmount(invRaw)
	if !okLC || !okInv {
		f.LCLines = append(f.LCLines,
			fmt.Sprintf("Amount check skipped: could not read invoice amount %q or LC amount %q", invRaw, lcRaw))
		return
	}

	money := func(a float64) string { return strings.TrimSpace(cur + " " + formatAmount(a)) }
	tol := parseTolerance(text(lc, "tolerance"))
	ceiling := lcAmt * (1 + tol/100)
	switch {
	case invAmt > ceiling:
		msg := fmt.Sprintf("invoice amount %s exceeds LC amount %s by %s", money(invAmt), money(lcAmt), money(invAmt-lcAmt))
		if tol > 0 {
			msg += fmt.Sprintf(" (beyond %s%% tolerance)", formatAmount(tol))
		}
		f.add(Major, constants.Invoice, msg)
	case invAmt > lcAmt:
		f.LCLines = append(f.LCLines,
			fmt.Sprintf("Invoice amount %s exceeds LC amount %s by %s, within %s%% tolerance",
				money(invAmt), money(lcAmt), money(invAmt-lcAmt), formatAmount(tol)))
	case invAmt < lcAmt:
		f.LCLines = append(f.LCLines,
			fmt.Sprintf("Invoice amount %s is below LC amount %s by %s",
				money(invAmt), money(lcAmt), money(lcAmt-invAmt)))
	default:
		f.LCLines = append(f.LCLines,
			fmt.Sprintf("Invoice amount %s is consistent with LC amount", money(invAmt)))
	}
}

func (f *Findings) checkShipmentDate(lc schema.Record, dt constants.DocumentType, what, raw string) {
	latestRaw := text(lc, "latest_shipment_date")
	if latestRaw == "" || raw == "" {
		return
	}
	latest, ok1 := parseDate(latestRaw)
	shipped, ok2 := parseDate(raw)
	if !ok1 || !ok2 {
		f.LCLines = append(f.LCLines,
			fmt.Sprintf("Shipment date check skipped for %s: could not read %q or LC latest shipment date %q",
				dt.Label(), raw, latestRaw))
		return
	}
	if shipped.After(latest) {
		f.add(Major, dt, fmt.Sprintf("%s %s is after LC latest shipment date %s", what, raw, latestRaw))
		return
	}
	f.LCLines = append(f.LCLines,
		fmt.Sprintf("%s %s %s is within LC latest shipment date %s", dt.Label(), what, raw, latestRaw))
}
