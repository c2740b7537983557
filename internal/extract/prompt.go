package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/tradedocs/internal/schema"
)

// baseRules apply to every document type.
var baseRules = []string{
	"Extract values ONLY if explicitly present in the document",
	"DO NOT guess, infer, interpolate, or complete partial values",
	"Any field not found must keep its default exactly as shown in the schema (null, false or [])",
	"Return every key of the schema and no other keys",
	"Output MUST be exactly one valid JSON object",
	"No explanations, summaries, or commentary",
}

// BuildSystemPrompt renders the instructions for one document type.
func BuildSystemPrompt(cfg schema.Config) (string, error) {
	parts := []string{cfg.Role, "", "Document Type: " + cfg.Label}

	if len(cfg.Purpose) > 0 {
		parts = append(parts, "", "Purpose:")
		for _, p := range cfg.Purpose {
			parts = append(parts, "- "+p)
		}
	}

	parts = append(parts, "", "Extraction Rules:")
	for _, r := range baseRules {
		parts = append(parts, "- "+r)
	}
	for _, r := range cfg.Rules {
		parts = append(parts, "- "+r)
	}

	defaults, err := json.MarshalIndent(schema.DefaultRecord(cfg.Schema), "", "  ")
	if err != nil {
		return "", fmt.Errorf("render %s schema: %w", cfg.Type, err)
	}
	parts = append(parts, "", "Required JSON Schema:", string(defaults))
	return strings.Join(parts, "\n"), nil
}
