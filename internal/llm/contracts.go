package llm

import "context"

// Generator is a deterministic text-generation service: one system
// instruction block and one user payload in, free text out. Implementations
// must not assume any structured-output mode.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func(ctx context.Context, system, user string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, system, user string) (string, error) {
	return f(ctx, system, user)
}
