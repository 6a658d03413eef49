package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vhlong/readpulse-api/internal/generation"
)

// remoteCaller performs exactly one HTTP exchange with the provider using
// the given credential. Implementations classify the outcome into a
// generation.RequestError; they never retry or rotate on their own.
type remoteCaller interface {
	Call(ctx context.Context, cred Credential, prompt string, cfg generation.Config) (string, error)
}

// ServiceConfig holds the facade tunables.
type ServiceConfig struct {
	// MaxAttempts bounds the credential-rotation loop: each attempt uses a
	// freshly selected credential.
	MaxAttempts int
}

// DefaultServiceConfig returns the production tunables.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{MaxAttempts: 5}
}

// Service is the orchestration facade: the single entry point feature code
// uses to run a prompt against the remote provider. It owns the outer
// credential-rotation loop, delegates call serialization and transient
// retries to the RequestScheduler, and keeps the KeyRegistry's health view
// current with per-call outcome reports.
type Service struct {
	registry  *KeyRegistry
	scheduler *RequestScheduler
	caller    remoteCaller
	cfg       ServiceConfig
	logger    *slog.Logger

	done     chan struct{}
	wg       sync.WaitGroup
	startMu  sync.Mutex
	started  bool
	stopOnce sync.Once
}

// New assembles the facade. Call Start before submitting prompts.
func New(registry *KeyRegistry, scheduler *RequestScheduler, caller remoteCaller, cfg ServiceConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultServiceConfig().MaxAttempts
	}
	return &Service{
		registry:  registry,
		scheduler: scheduler,
		caller:    caller,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "llm_orchestrator")),
		done:      make(chan struct{}),
	}
}

// Start launches the scheduler drain loop and the background sweeper that
// reactivates quota-suspended credentials whose window has passed.
func (s *Service) Start() {
	s.startMu.Lock()
	defer s.startMu.Unlock()
	if s.started {
		return
	}
	s.started = true

	s.scheduler.Start()

	interval := s.registry.cfg.SweepInterval
	if interval <= 0 {
		interval = DefaultRegistryConfig().SweepInterval
	}
	s.wg.Add(1)
	go s.sweep(interval)
}

// Stop shuts down the sweeper, the scheduler, and the registry's pending
// reactivation timers. Safe to call more than once.
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
		s.scheduler.Stop()
		s.registry.Close()
	})
}

func (s *Service) sweep(interval time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if n := s.registry.SweepExpiredQuotas(); n > 0 {
				s.logger.Info("quota suspensions lifted", slog.Int("count", n))
			}
		}
	}
}

// GenerateText implements generation.TextGenerator. Each attempt selects
// the next healthy credential and funnels one call through the scheduler;
// retryable failures (quota, transient server, network) move on to the
// next credential, anything else fails fast.
func (s *Service) GenerateText(ctx context.Context, prompt string, cfg generation.Config) (string, error) {
	if prompt == "" {
		return "", generation.ErrEmptyPrompt
	}
	if err := cfg.Validate(); err != nil {
		return "", err
	}

	var lastErr error

	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		cred := s.registry.SelectNext()

		if err := s.pace(ctx, cred.ID); err != nil {
			return "", err
		}

		text, err := s.scheduler.Enqueue(ctx, func(callCtx context.Context) (string, error) {
			out, callErr := s.caller.Call(callCtx, cred, prompt, cfg)
			if callErr != nil {
				s.registry.ReportFailure(cred.ID, generation.KindOf(callErr))
				return "", callErr
			}
			s.registry.ReportSuccess(cred.ID)
			return out, nil
		})
		if err == nil {
			return text, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		kind := generation.KindOf(err)
		if !kind.Retryable() {
			s.logger.Warn("call failed without rotation",
				slog.Int("attempt", attempt),
				slog.Int("credential", cred.ID),
				slog.String("failure_kind", kind.String()),
				slog.String("error", err.Error()))
			return "", err
		}

		s.logger.Info("rotating credential after retryable failure",
			slog.Int("attempt", attempt),
			slog.Int("credential", cred.ID),
			slog.String("failure_kind", kind.String()))
	}

	return "", fmt.Errorf("%w after %d attempts: %v", generation.ErrAllKeysExhausted, s.cfg.MaxAttempts, lastErr)
}

// pace waits out the remainder of the selected credential's cooldown before
// the call is handed to the scheduler. A fallback-selected credential can
// come back before its spacing interval has elapsed; without this wait two
// attempts in a row could hit the provider with the same key.
func (s *Service) pace(ctx context.Context, id int) error {
	if s.registry.Eligible(id) {
		return nil
	}
	wait := s.registry.cfg.MinSpacing - s.registry.SinceLastUse(id)
	if wait <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrSchedulerClosed
	case <-time.After(wait):
		return nil
	}
}

// KeySnapshot exposes the registry's redacted health view for the admin
// endpoint.
func (s *Service) KeySnapshot() []CredentialState {
	return s.registry.Snapshot()
}
