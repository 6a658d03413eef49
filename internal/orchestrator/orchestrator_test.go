package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vhlong/readpulse-api/internal/generation"
)

// scriptedCaller fails with the configured kind until the call count
// reaches succeedAt, then returns text. It records every credential used.
type scriptedCaller struct {
	mu        sync.Mutex
	calls     int
	credsUsed []int
	failKind  generation.FailureKind
	succeedAt int
	text      string
}

func (c *scriptedCaller) Call(ctx context.Context, cred Credential, prompt string, cfg generation.Config) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.credsUsed = append(c.credsUsed, cred.ID)
	if c.succeedAt > 0 && c.calls >= c.succeedAt {
		return c.text, nil
	}
	return "", &generation.RequestError{Kind: c.failKind, Message: "scripted failure"}
}

func newTestService(t *testing.T, keys int, caller remoteCaller) *Service {
	t.Helper()
	cfg := DefaultRegistryConfig()
	cfg.MinSpacing = time.Millisecond
	registry, err := NewKeyRegistry(testSecrets(keys), cfg, nil)
	require.NoError(t, err)
	return newTestServiceWithRegistry(t, registry, caller)
}

func newTestServiceWithRegistry(t *testing.T, registry *KeyRegistry, caller remoteCaller) *Service {
	t.Helper()
	scheduler := NewRequestScheduler(fastSchedulerConfig(), nil)
	svc := New(registry, scheduler, caller, ServiceConfig{MaxAttempts: 5}, nil)
	svc.Start()
	t.Cleanup(svc.Stop)
	return svc
}

func TestGenerateTextSuccess(t *testing.T) {
	t.Parallel()

	caller := &scriptedCaller{succeedAt: 1, text: "generated"}
	svc := newTestService(t, 3, caller)

	text, err := svc.GenerateText(context.Background(), "a prompt", generation.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "generated", text)
	assert.Equal(t, []int{0}, caller.credsUsed)
}

func TestGenerateTextRotatesOnQuota(t *testing.T) {
	t.Parallel()

	// First two credentials trip their quota; the third succeeds.
	caller := &scriptedCaller{failKind: generation.FailureQuota, succeedAt: 3, text: "third time lucky"}
	svc := newTestService(t, 5, caller)

	text, err := svc.GenerateText(context.Background(), "a prompt", generation.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "third time lucky", text)

	require.Len(t, caller.credsUsed, 3)
	seen := map[int]bool{}
	for _, id := range caller.credsUsed {
		assert.False(t, seen[id], "quota-suspended credential %d must not be reused", id)
		seen[id] = true
	}
}

func TestGenerateTextExhaustsAttempts(t *testing.T) {
	t.Parallel()

	caller := &scriptedCaller{failKind: generation.FailureQuota}
	svc := newTestService(t, 3, caller)

	_, err := svc.GenerateText(context.Background(), "a prompt", generation.DefaultConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, generation.ErrAllKeysExhausted)
	assert.Equal(t, 5, caller.calls, "one call per attempt")
}

func TestGenerateTextTransientRetriesWithoutRotation(t *testing.T) {
	t.Parallel()

	// Three 503s then success: all four calls happen inside one scheduler
	// slot against the same credential.
	caller := &scriptedCaller{failKind: generation.FailureUnavailable, succeedAt: 4, text: "after retries"}
	svc := newTestService(t, 3, caller)

	text, err := svc.GenerateText(context.Background(), "a prompt", generation.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "after retries", text)
	assert.Equal(t, []int{0, 0, 0, 0}, caller.credsUsed, "transient retries stay on the same credential")
}

func TestGenerateTextNonRetryableFailsFast(t *testing.T) {
	t.Parallel()

	caller := &scriptedCaller{failKind: generation.FailureBadFormat}
	svc := newTestService(t, 3, caller)

	_, err := svc.GenerateText(context.Background(), "a prompt", generation.DefaultConfig())
	require.Error(t, err)
	assert.Equal(t, generation.FailureBadFormat, generation.KindOf(err))
	assert.Equal(t, 1, caller.calls, "malformed responses do not burn further credentials")
}

func TestGenerateTextEmptyPrompt(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, 1, &scriptedCaller{succeedAt: 1, text: "x"})

	_, err := svc.GenerateText(context.Background(), "", generation.DefaultConfig())
	assert.ErrorIs(t, err, generation.ErrEmptyPrompt)
}

func TestGenerateTextInvalidConfig(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, 1, &scriptedCaller{succeedAt: 1, text: "x"})

	cfg := generation.DefaultConfig()
	cfg.Temperature = 5
	_, err := svc.GenerateText(context.Background(), "a prompt", cfg)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
}

func TestGenerateTextPacesRecentlyUsedCredential(t *testing.T) {
	t.Parallel()

	cfg := DefaultRegistryConfig()
	cfg.MinSpacing = 50 * time.Millisecond
	registry, err := NewKeyRegistry(testSecrets(1), cfg, nil)
	require.NoError(t, err)

	caller := &scriptedCaller{succeedAt: 1, text: "paced"}
	svc := newTestServiceWithRegistry(t, registry, caller)

	// The sole credential was just used, so its cooldown has not elapsed.
	registry.ReportSuccess(0)

	start := time.Now()
	text, err := svc.GenerateText(context.Background(), "a prompt", generation.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "paced", text)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond,
		"call must wait out the credential cooldown")
}

func TestGenerateTextPacingHonorsContext(t *testing.T) {
	t.Parallel()

	cfg := DefaultRegistryConfig()
	cfg.MinSpacing = time.Minute
	registry, err := NewKeyRegistry(testSecrets(1), cfg, nil)
	require.NoError(t, err)

	caller := &scriptedCaller{succeedAt: 1, text: "never"}
	svc := newTestServiceWithRegistry(t, registry, caller)

	registry.ReportSuccess(0)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = svc.GenerateText(ctx, "a prompt", generation.DefaultConfig())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, caller.calls, "no call is dispatched while waiting out the cooldown")
}

func TestKeySnapshotAfterTraffic(t *testing.T) {
	t.Parallel()

	caller := &scriptedCaller{succeedAt: 1, text: "ok"}
	svc := newTestService(t, 2, caller)

	_, err := svc.GenerateText(context.Background(), "a prompt", generation.DefaultConfig())
	require.NoError(t, err)

	snap := svc.KeySnapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, 1, snap[0].RequestCount)
	assert.Equal(t, 0, snap[1].RequestCount)
}
