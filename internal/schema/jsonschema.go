package schema

// JSONSchema derives a strict JSON Schema for records of s: every key is
// required and no other key is allowed.
func JSONSchema(s *FieldSchema) map[string]any {
	props := make(map[string]any, len(s.fields))
	for _, f := range s.fields {
		switch f.Kind {
		case KindObject:
			props[f.Name] = JSONSchema(f.Nested)
		case KindSequence:
			props[f.Name] = map[string]any{
				"type":  "array",
				"items": map[string]any{"type": []string{"string", "number", "boolean"}},
			}
		case KindFalse:
			props[f.Name] = map[string]any{"type": "boolean"}
		default:
			props[f.Name] = map[string]any{"type": []string{"string", "number", "boolean", "null"}}
		}
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             s.Keys(),
		"properties":           props,
	}
}
