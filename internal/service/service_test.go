package service

import (
	"context"
	"sync"

	"github.com/vhlong/readpulse-api/internal/generation"
)

// fakeGenerator returns scripted outputs in order, then keeps returning the
// last one. A nil error paired with an empty output simulates degenerate
// model behavior.
type fakeGenerator struct {
	mu      sync.Mutex
	outputs []string
	err     error
	calls   int
	prompts []string
	cfgs    []generation.Config
}

func (g *fakeGenerator) GenerateText(ctx context.Context, prompt string, cfg generation.Config) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.prompts = append(g.prompts, prompt)
	g.cfgs = append(g.cfgs, cfg)
	if g.err != nil {
		return "", g.err
	}
	if len(g.outputs) == 0 {
		return "", nil
	}
	out := g.outputs[0]
	if len(g.outputs) > 1 {
		g.outputs = g.outputs[1:]
	}
	return out, nil
}
