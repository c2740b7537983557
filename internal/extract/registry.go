package extract

import (
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/llm"
	"github.com/joseph-ayodele/tradedocs/internal/schema"
)

// Registry maps each document type to its extractor. It is read-only after
// construction and safe for concurrent use.
type Registry struct {
	byType map[constants.DocumentType]Extractor
}

// NewRegistry builds one extractor per config and requires every document
// type to be covered.
func NewRegistry(cfgs map[constants.DocumentType]schema.Config, gen llm.Generator, logger *slog.Logger) (*Registry, error) {
	r := &Registry{byType: make(map[constants.DocumentType]Extractor, len(cfgs))}
	for _, dt := range constants.AllDocumentTypes() {
		cfg, ok := cfgs[dt]
		if !ok {
			return nil, fmt.Errorf("extract: no schema configured for %s", dt)
		}
		ex, err := New(cfg, gen, logger)
		if err != nil {
			return nil, err
		}
		r.byType[dt] = ex
	}
	return r, nil
}

// NewBuiltinRegistry uses the embedded schema configuration.
func NewBuiltinRegistry(gen llm.Generator, logger *slog.Logger) (*Registry, error) {
	cfgs, err := schema.Builtin()
	if err != nil {
		return nil, err
	}
	return NewRegistry(cfgs, gen, logger)
}

// For returns the extractor for dt.
func (r *Registry) For(dt constants.DocumentType) (Extractor, bool) {
	ex, ok := r.byType[dt]
	return ex, ok
}
