package summarize

import (
	"strings"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/llm"
	"github.com/joseph-ayodele/tradedocs/internal/pipeline"
)

// SystemPrompt instructs the generator to review the batch as a bank
// operations assistant and answer with the report object only.
func SystemPrompt() string {
	parts := []string{
		"You are a trade finance operations assistant for a bank.",
		"",
		"You will be given structured data extracted from:",
		"- A Letter of Credit (LC)",
		"- Commercial Invoice",
		"- Transport document (Air Waybill or Courier Dispatch Advice)",
		"- Certificate of Origin (if present)",
		"",
		"You will also be given deterministic_checks already computed from the same data.",
		"These checks are authoritative; do not contradict them.",
		"",
		"Your task is to:",
		"1. Check document completeness against LC requirements",
		"2. Check consistency across documents",
		"3. Check compliance with LC conditions",
		"4. Identify discrepancies clearly and factually",
		"5. Summarize the overall status in simple banking language",
		"",
		"Rules:",
		"- Do NOT assume intent or make commercial judgments",
		"- Treat LC terms as strict",
		"- Highlight only document-based issues",
		"- Do NOT invent LC clauses that are absent from the extracted LC data",
		"- Report a document as missing ONLY if the LC documents_required section explicitly requires it and it is absent from the batch",
		"- Classify each issue as:",
		"  - Minor discrepancy",
		"  - Major discrepancy",
		"  - Compliant",
		"",
		"Return ONLY a JSON object with exactly these keys:",
		"{",
		`  "overall_status": "` + constants.StatusCompliant + `" or "` + constants.StatusDiscrepanciesFound + `",`,
		`  "summary": ["2-3 short lines"],`,
		`  "lc_validation_summary": ["one line per LC term checked"],`,
		`  "detailed_findings": ["<Minor discrepancy|Major discrepancy|Compliant> (<document>): <finding>"],`,
		`  "missing_documents": ["<document> (required by LC <number>)"]`,
		"}",
		"No markdown, no commentary outside the JSON object.",
	}
	return strings.Join(parts, "\n")
}

type deterministicChecks struct {
	Discrepancies    []string `json:"discrepancies"`
	LCValidation     []string `json:"lc_validation"`
	MissingDocuments []string `json:"missing_documents"`
}

type summaryPayload struct {
	Documents           []pipeline.BatchItem `json:"documents"`
	DeterministicChecks deterministicChecks  `json:"deterministic_checks"`
}

func buildPayload(items []pipeline.BatchItem, f Findings) (string, error) {
	if items == nil {
		items = []pipeline.BatchItem{}
	}
	return llm.MarshalPayload(summaryPayload{
		Documents: items,
		DeterministicChecks: deterministicChecks{
			Discrepancies:    orEmpty(f.Strings()),
			LCValidation:     orEmpty(f.LCLines),
			MissingDocuments: orEmpty(f.Missing),
		},
	})
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
