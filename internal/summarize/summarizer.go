package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/common"
	"github.com/joseph-ayodele/tradedocs/internal/llm"
	"github.com/joseph-ayodele/tradedocs/internal/pipeline"
)

type Summarizer struct {
	gen    llm.Generator
	system string
	logger *slog.Logger
}

func New(gen llm.Generator, logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{gen: gen, system: SystemPrompt(), logger: logger}
}

// Summarize builds the report for a complete batch. Undecodable generator
// output is returned as *SummaryDecodeError; a generator failure as a
// collaborator AppError.
func (s *Summarizer) Summarize(ctx context.Context, items []pipeline.BatchItem) (ComplianceReport, error) {
	start := time.Now()
	log := common.LoggerFrom(ctx, s.logger)

	findings := CrossCheck(items)
	log.Info("summarize.crosscheck",
		"discrepancies", len(findings.Discrepancies),
		"missing", len(findings.Missing),
		"lc_lines", len(findings.LCLines),
	)

	payload, err := buildPayload(items, findings)
	if err != nil {
		return ComplianceReport{}, err
	}
	out, err := s.gen.Generate(ctx, s.system, payload)
	if err != nil {
		log.Error("summarize.generate.failed", "error", err)
		return ComplianceReport{}, common.CollaboratorError("generator", fmt.Errorf("summarize: %w", err))
	}

	obj, err := llm.DecodeObject(out)
	if err != nil {
		log.Error("summarize.decode.failed", "error", err, "raw", out)
		return ComplianceReport{}, &SummaryDecodeError{Raw: out, Err: err}
	}

	report := merge(obj, findings, log)
	log.Info("summarize.ok",
		"overall_status", report.OverallStatus,
		"findings", len(report.DetailedFindings),
		"missing", len(report.MissingDocuments),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return report, nil
}

// merge combines the generated object with the deterministic findings.
// Deterministic entries come first and decide the status when present.
func merge(obj map[string]any, f Findings, log *slog.Logger) ComplianceReport {
	r := emptyReport()

	r.Summary = toLines(obj["summary"])
	r.LCValidationSummary = dedupe(append(append([]string{}, f.LCLines...), toLines(obj["lc_validation_summary"])...))
	r.DetailedFindings = dedupe(append(f.Strings(), toLines(obj["detailed_findings"])...))

	missing := append([]string{}, f.Missing...)
	for _, m := range toLines(obj["missing_documents"]) {
		if namesAny(m, f.SpecialCertificates) {
			missing = append(missing, m)
			continue
		}
		if !containsFold(f.Missing, m) {
			log.Warn("summarize.missing.dropped", "entry", m)
		}
	}
	r.MissingDocuments = dedupe(missing)

	modelStatus := toText(obj["overall_status"])
	switch {
	case f.HasIssues() || len(r.MissingDocuments) > 0:
		r.OverallStatus = constants.StatusDiscrepanciesFound
	default:
		r.OverallStatus = normalizeStatus(modelStatus)
	}
	if r.OverallStatus != normalizeStatus(modelStatus) {
		log.Info("summarize.status.overridden", "model", modelStatus, "status", r.OverallStatus)
	}
	return r
}

var reStatusLabel = regexp.MustCompile(`^(?:OVERALL(?:\s+STATUS)?\s*:\s*)`)

// normalizeStatus maps free-form status text onto the two report values.
// Only text that reads exactly COMPLIANT counts as compliant; any other
// verdict, including qualified ones, counts as discrepant. An absent status
// stays empty.
func normalizeStatus(s string) string {
	up := strings.ToUpper(strings.Join(strings.Fields(s), " "))
	up = reStatusLabel.ReplaceAllString(up, "")
	up = strings.Trim(up, ` ."'!`)
	switch up {
	case "":
		return ""
	case constants.StatusCompliant:
		return constants.StatusCompliant
	default:
		return constants.StatusDiscrepanciesFound
	}
}

// toLines coerces a decoded value into a list of non-empty strings. A lone
// scalar is wrapped; nested objects are rendered as compact JSON.
func toLines(v any) []string {
	switch t := v.(type) {
	case nil:
		return []string{}
	case []any:
		out := make([]string, 0, len(t))
		for _, it := range t {
			if s := toText(it); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		if s := toText(t); s != "" {
			return []string{s}
		}
		return []string{}
	}
}

// toText coerces a decoded value into one string. Lists are joined.
func toText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case bool:
		return fmt.Sprint(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, it := range t {
			if s := toText(it); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

func namesAny(entry string, names []string) bool {
	e := strings.ToLower(entry)
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" && strings.Contains(e, n) {
			return true
		}
	}
	return false
}

func containsFold(list []string, s string) bool {
	for _, l := range list {
		if strings.EqualFold(strings.TrimSpace(l), strings.TrimSpace(s)) {
			return true
		}
	}
	return false
}
