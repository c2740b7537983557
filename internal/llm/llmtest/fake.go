// Package llmtest provides scripted generators for tests.
package llmtest

import (
	"context"
	"sync"
)

// Call is one recorded Generate invocation.
type Call struct {
	System string
	User   string
}

// Fake is a concurrency-safe llm.Generator driven by Respond.
type Fake struct {
	Respond func(system, user string) (string, error)

	mu    sync.Mutex
	calls []Call
}

func (f *Fake) Generate(ctx context.Context, system, user string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{System: system, User: user})
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.Respond == nil {
		return "", nil
	}
	return f.Respond(system, user)
}

// Calls returns a copy of the recorded calls.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// Static always answers out.
func Static(out string) *Fake {
	return &Fake{Respond: func(string, string) (string, error) { return out, nil }}
}

// Failing always returns err.
func Failing(err error) *Fake {
	return &Fake{Respond: func(string, string) (string, error) { return "", err }}
}
