package generation

import (
	"context"
	"fmt"
)

// TextGenerator defines the interface for producing free-form text from a
// prompt. This interface is the boundary between the feature adapters and
// the multi-key orchestration layer, following the hexagonal architecture
// pattern: feature code depends on this interface, never on the credential
// pool, scheduler, or HTTP client behind it.
type TextGenerator interface {
	// GenerateText produces text for the given prompt. Implementations are
	// expected to absorb transient remote failures internally (retry,
	// credential rotation) and to return an error only when the remote
	// path is exhausted or the context is cancelled.
	//
	// The returned string has provider markdown artifacts already stripped,
	// so callers can parse it as close-to-plain prose or JSON.
	GenerateText(ctx context.Context, prompt string, cfg Config) (string, error)
}

// Config carries the generation tuning parameters forwarded to the provider
// inside the request envelope. The zero value for a field means "omit and
// let the provider default apply", except MaxOutputTokens which should
// always be set by callers to bound response size.
type Config struct {
	Temperature     float64
	TopP            float64
	TopK            int
	MaxOutputTokens int
}

// DefaultConfig returns the generation parameters used by the feature
// adapters when the caller does not override them.
func DefaultConfig() Config {
	return Config{
		Temperature:     0.7,
		TopP:            0.95,
		TopK:            40,
		MaxOutputTokens: 4096,
	}
}

// Validate checks the parameter ranges the provider accepts.
func (c Config) Validate() error {
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: temperature %v out of range [0, 2]", ErrInvalidConfig, c.Temperature)
	}
	if c.TopP < 0 || c.TopP > 1 {
		return fmt.Errorf("%w: topP %v out of range [0, 1]", ErrInvalidConfig, c.TopP)
	}
	if c.TopK < 0 {
		return fmt.Errorf("%w: topK %d must be non-negative", ErrInvalidConfig, c.TopK)
	}
	if c.MaxOutputTokens < 0 {
		return fmt.Errorf("%w: maxOutputTokens %d must be non-negative", ErrInvalidConfig, c.MaxOutputTokens)
	}
	return nil
}
