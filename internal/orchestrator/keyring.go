package orchestrator

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/vhlong/readpulse-api/internal/generation"
)

// Credential is the value handed to callers by the registry: the stable
// ordinal identifier plus the opaque secret. The secret is never logged in
// full; use MaskedSecret for log output.
type Credential struct {
	ID     int
	Secret string
}

// MaskedSecret returns a redacted form of the secret safe for logs.
func (c Credential) MaskedSecret() string {
	if len(c.Secret) <= 8 {
		return "****"
	}
	return c.Secret[:4] + "…" + c.Secret[len(c.Secret)-2:]
}

// CredentialState tracks the process-lifetime health of one credential.
// All fields are guarded by the registry mutex; a copy is returned by
// Snapshot for read-only inspection.
type CredentialState struct {
	ID            int
	Secret        string
	RequestCount  int
	ErrorCount    int
	LastUsedAt    time.Time
	Active        bool
	QuotaExceeded bool
	QuotaResetAt  time.Time
}

// RegistryConfig holds the tunables of the credential pool.
type RegistryConfig struct {
	// DisableThreshold is the accumulated error count at which a credential
	// is temporarily deactivated.
	DisableThreshold int

	// ReactivateAfter is how long a deactivated credential stays out of the
	// pool before its timed reactivation fires.
	ReactivateAfter time.Duration

	// QuotaWindow is how long a quota-flagged credential stays suspended.
	QuotaWindow time.Duration

	// MinSpacing is the per-credential cooldown between uses, distinct from
	// the provider's minute/hour quota windows.
	MinSpacing time.Duration

	// SweepInterval is how often expired quota suspensions are cleared.
	SweepInterval time.Duration
}

// DefaultRegistryConfig returns the production tunables.
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		DisableThreshold: 3,
		ReactivateAfter:  5 * time.Minute,
		QuotaWindow:      time.Hour,
		MinSpacing:       time.Second,
		SweepInterval:    5 * time.Minute,
	}
}

// KeyRegistry owns the pool of credentials and the selection policy over
// them. It performs no I/O: callers report call outcomes back via
// ReportSuccess/ReportFailure and the registry degrades selection quality
// before it ever fails outright. Selection methods never return an error;
// the empty-pool edge case triggers a full reset instead.
type KeyRegistry struct {
	mu     sync.Mutex
	creds  []*CredentialState
	cursor int
	cfg    RegistryConfig
	logger *slog.Logger
	closed bool

	// now is the clock used for every timestamp decision; replaced in tests
	// to simulate quota-window expiry without sleeping.
	now func() time.Time

	// reactivations tracks the pending per-credential reactivation timers so
	// Close can cancel them instead of leaving callbacks dangling against a
	// disposed registry.
	reactivations map[int]*time.Timer
}

// ErrNoCredentials is returned when a registry is constructed over an empty
// secret list. Selection assumes at least one configured credential.
var ErrNoCredentials = errors.New("credential pool cannot be empty")

// NewKeyRegistry creates a registry over the given secrets, all credentials
// starting active and healthy. Secrets are assigned ordinal IDs in order.
func NewKeyRegistry(secrets []string, cfg RegistryConfig, logger *slog.Logger) (*KeyRegistry, error) {
	if len(secrets) == 0 {
		return nil, ErrNoCredentials
	}
	if logger == nil {
		logger = slog.Default()
	}
	creds := make([]*CredentialState, len(secrets))
	for i, s := range secrets {
		creds[i] = &CredentialState{ID: i, Secret: s, Active: true}
	}
	return &KeyRegistry{
		creds:         creds,
		cfg:           cfg,
		logger:        logger.With(slog.String("component", "key_registry")),
		now:           time.Now,
		reactivations: make(map[int]*time.Timer),
	}, nil
}

// Size returns the number of configured credentials.
func (r *KeyRegistry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.creds)
}

// SelectNext returns the next credential in round-robin order over the
// currently eligible subset (active and not quota-suspended). The cursor
// advances modulo the eligible-set size, so with a stable subset each
// eligible credential is picked equally often. If no credential is
// eligible, selection degrades to SelectFallback.
func (r *KeyRegistry) SelectNext() Credential {
	r.mu.Lock()
	defer r.mu.Unlock()

	eligible := r.eligibleLocked()
	if len(eligible) == 0 {
		return r.selectFallbackLocked()
	}

	cs := eligible[r.cursor%len(eligible)]
	r.cursor++
	return Credential{ID: cs.ID, Secret: cs.Secret}
}

// SelectFallback returns the best degraded choice when normal selection has
// nothing to offer: the active, non-suspended credential with the lowest
// error count, ties broken by the least recently used one. If literally no
// credential qualifies, the whole pool is reset and credential 0 returned,
// so the registry can never leave a caller without a credential.
func (r *KeyRegistry) SelectFallback() Credential {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selectFallbackLocked()
}

func (r *KeyRegistry) selectFallbackLocked() Credential {
	var best *CredentialState
	for _, cs := range r.creds {
		if !cs.Active || r.quotaSuspendedLocked(cs) {
			continue
		}
		if best == nil ||
			cs.ErrorCount < best.ErrorCount ||
			(cs.ErrorCount == best.ErrorCount && cs.LastUsedAt.Before(best.LastUsedAt)) {
			best = cs
		}
	}

	if best != nil {
		r.logger.Warn("degraded credential selection",
			slog.Int("key_id", best.ID),
			slog.Int("error_count", best.ErrorCount))
		return Credential{ID: best.ID, Secret: best.Secret}
	}

	// Nothing usable at all: full reset, start over from credential 0.
	r.logger.Warn("no usable credential, resetting pool",
		slog.Int("pool_size", len(r.creds)))
	r.resetAllLocked()
	first := r.creds[0]
	return Credential{ID: first.ID, Secret: first.Secret}
}

// ReportSuccess records a successful call with the credential: the request
// counter advances, the error counter decays toward zero, and the last-used
// timestamp is refreshed.
func (r *KeyRegistry) ReportSuccess(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cs := r.credLocked(id)
	if cs == nil {
		return
	}
	cs.RequestCount++
	if cs.ErrorCount > 0 {
		cs.ErrorCount--
	}
	cs.LastUsedAt = r.now()
}

// ReportFailure records a failed call with the credential and applies the
// health policy for the failure kind:
//
//   - FailureQuota suspends the credential for the quota window.
//   - FailureUnavailable and FailureServer are transient and never disable
//     a credential; the retry loops above absorb them.
//   - Every other kind counts toward the disable threshold; crossing it
//     deactivates the credential with a timed reactivation that halves the
//     error count.
func (r *KeyRegistry) ReportFailure(id int, kind generation.FailureKind) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cs := r.credLocked(id)
	if cs == nil {
		return
	}
	cs.ErrorCount++
	cs.LastUsedAt = r.now()

	switch {
	case kind == generation.FailureQuota:
		cs.QuotaExceeded = true
		cs.QuotaResetAt = r.now().Add(r.cfg.QuotaWindow)
		r.logger.Warn("credential quota exceeded",
			slog.Int("key_id", cs.ID),
			slog.Time("quota_reset_at", cs.QuotaResetAt))

	case kind.Transient() && kind != generation.FailureNetwork:
		// 503/500: transient by contract, no disablement.

	default:
		if cs.Active && cs.ErrorCount >= r.cfg.DisableThreshold {
			r.disableLocked(cs)
		}
	}
}

// disableLocked deactivates the credential and schedules its reactivation.
// Caller holds the mutex.
func (r *KeyRegistry) disableLocked(cs *CredentialState) {
	cs.Active = false
	id := cs.ID
	r.logger.Warn("credential disabled after repeated failures",
		slog.Int("key_id", id),
		slog.Int("error_count", cs.ErrorCount),
		slog.Duration("reactivate_after", r.cfg.ReactivateAfter))

	if prev, ok := r.reactivations[id]; ok {
		prev.Stop()
	}
	r.reactivations[id] = time.AfterFunc(r.cfg.ReactivateAfter, func() {
		r.reactivate(id)
	})
}

// reactivate is the timed re-enable callback: the credential returns to the
// pool with its error count halved.
func (r *KeyRegistry) reactivate(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	delete(r.reactivations, id)
	cs := r.credLocked(id)
	if cs == nil || cs.Active {
		return
	}
	cs.Active = true
	cs.ErrorCount /= 2
	r.logger.Info("credential reactivated",
		slog.Int("key_id", id),
		slog.Int("error_count", cs.ErrorCount))
}

// Eligible reports whether the credential may be used right now: it must
// not be quota-suspended and its per-credential cooldown must have elapsed.
func (r *KeyRegistry) Eligible(id int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cs := r.credLocked(id)
	if cs == nil {
		return false
	}
	if r.quotaSuspendedLocked(cs) {
		return false
	}
	return r.now().Sub(cs.LastUsedAt) >= r.cfg.MinSpacing
}

// SinceLastUse returns how long ago the credential was last used. Unknown
// credentials report a very large duration so callers skip pacing.
func (r *KeyRegistry) SinceLastUse(id int) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	cs := r.credLocked(id)
	if cs == nil || cs.LastUsedAt.IsZero() {
		return time.Duration(1<<62 - 1)
	}
	return r.now().Sub(cs.LastUsedAt)
}

// SweepExpiredQuotas clears the quota suspension of every credential whose
// reset time has passed and returns how many were cleared. Invoked
// periodically by the orchestration facade.
func (r *KeyRegistry) SweepExpiredQuotas() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	cleared := 0
	for _, cs := range r.creds {
		if cs.QuotaExceeded && !now.Before(cs.QuotaResetAt) {
			cs.QuotaExceeded = false
			cs.QuotaResetAt = time.Time{}
			cleared++
			r.logger.Info("credential quota window expired",
				slog.Int("key_id", cs.ID))
		}
	}
	return cleared
}

// Snapshot returns a copy of every credential's state with secrets redacted
// to their masked form. Intended for the operational health endpoint.
func (r *KeyRegistry) Snapshot() []CredentialState {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]CredentialState, len(r.creds))
	for i, cs := range r.creds {
		c := *cs
		c.Secret = Credential{ID: c.ID, Secret: c.Secret}.MaskedSecret()
		out[i] = c
	}
	return out
}

// Close cancels every pending reactivation timer. The registry remains
// usable for selection afterwards but no timed state change will fire.
func (r *KeyRegistry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	for id, t := range r.reactivations {
		t.Stop()
		delete(r.reactivations, id)
	}
}

// eligibleLocked returns the credentials normal selection may use. Caller
// holds the mutex.
func (r *KeyRegistry) eligibleLocked() []*CredentialState {
	var out []*CredentialState
	for _, cs := range r.creds {
		if cs.Active && !r.quotaSuspendedLocked(cs) {
			out = append(out, cs)
		}
	}
	return out
}

func (r *KeyRegistry) quotaSuspendedLocked(cs *CredentialState) bool {
	return cs.QuotaExceeded && r.now().Before(cs.QuotaResetAt)
}

func (r *KeyRegistry) credLocked(id int) *CredentialState {
	if id < 0 || id >= len(r.creds) {
		return nil
	}
	return r.creds[id]
}

// resetAllLocked clears every counter, flag, and pending timer. Caller
// holds the mutex.
func (r *KeyRegistry) resetAllLocked() {
	for id, t := range r.reactivations {
		t.Stop()
		delete(r.reactivations, id)
	}
	for _, cs := range r.creds {
		cs.RequestCount = 0
		cs.ErrorCount = 0
		cs.LastUsedAt = time.Time{}
		cs.Active = true
		cs.QuotaExceeded = false
		cs.QuotaResetAt = time.Time{}
	}
	r.cursor = 0
}
