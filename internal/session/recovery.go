package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/sofiabaracatlj/fiap-farms/internal/apierror"
)

// Outcome describes how the last recovery attempt ended.
type Outcome string

const (
	OutcomeNone          Outcome = ""
	OutcomeLive          Outcome = "live"
	OutcomeNoCache       Outcome = "no_cache"
	OutcomeExpired       Outcome = "expired"
	OutcomeRefreshed     Outcome = "refreshed"
	OutcomeAnonymous     Outcome = "anonymous"
	OutcomeMisconfigured Outcome = "misconfigured"
	OutcomeFailed        Outcome = "failed"
)

const recoveryTimeout = 15 * time.Second

// Recovery rebuilds a live identity from the cached session when the provider
// has none. Concurrent callers share a single in-flight attempt.
type Recovery struct {
	provider    IdentityProvider
	cache       Cache
	configValid bool
	now         func() time.Time

	flight singleflight.Group

	mu          sync.Mutex
	lastOutcome Outcome
	lastAttempt time.Time
}

type Option func(*Recovery)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Recovery) { r.now = now }
}

// WithConfigValid marks the provider credentials as unusable when false;
// recovery is then skipped and the process runs unauthenticated.
func WithConfigValid(ok bool) Option {
	return func(r *Recovery) { r.configValid = ok }
}

func NewRecovery(provider IdentityProvider, cache Cache, opts ...Option) *Recovery {
	r := &Recovery{provider: provider, cache: cache, configValid: true, now: time.Now}
	for _, o := range opts {
		o(r)
	}
	return r
}

// IsAuthenticated reports a live session, attempting one recovery first if
// the provider has none.
func (r *Recovery) IsAuthenticated(ctx context.Context) bool {
	if r.provider.CurrentUser() != nil {
		return true
	}
	r.InitializeFromCache(ctx)
	return r.provider.CurrentUser() != nil
}

// InitializeFromCache attempts recovery from the cached session. It never
// fails: expiry, absence and provider errors end as logged outcomes.
func (r *Recovery) InitializeFromCache(ctx context.Context) {
	// Detach from the first caller's cancellation since the result is shared.
	shared := context.WithoutCancel(ctx)
	_, _, _ = r.flight.Do("recover", func() (any, error) {
		attemptCtx, cancel := context.WithTimeout(shared, recoveryTimeout)
		defer cancel()
		r.record(r.recover(attemptCtx))
		return nil, nil
	})
}

func (r *Recovery) recover(ctx context.Context) Outcome {
	if r.provider.CurrentUser() != nil {
		return OutcomeLive
	}
	if !r.configValid {
		log.Warn().Msg("session: identity provider config invalid, running unauthenticated")
		return OutcomeMisconfigured
	}

	cached, err := r.loadCached(ctx)
	if errors.Is(err, ErrCacheMiss) {
		return OutcomeNoCache
	}
	if err != nil {
		log.Warn().Err(err).Msg("session: unreadable cached session")
		return OutcomeNoCache
	}
	if !cached.Valid(r.now()) {
		log.Debug().Str("uid", cached.UID).Time("expired_at", cached.ExpiresAt()).Msg("session: cached token expired")
		return OutcomeExpired
	}

	if rt := cached.StsTokenManager.RefreshToken; rt != "" {
		_, err := r.provider.SignInWithRefreshToken(ctx, rt)
		if err == nil {
			log.Info().Str("uid", cached.UID).Msg("session: restored with refresh token")
			return OutcomeRefreshed
		}
		if errors.Is(err, apierror.ErrInvalidCredentialConfig) {
			log.Warn().Err(err).Msg("session: provider rejected credentials, running unauthenticated")
			return OutcomeMisconfigured
		}
		log.Warn().Err(err).Str("uid", cached.UID).Msg("session: refresh token sign-in failed, falling back to anonymous")
	}

	if _, err := r.provider.SignInAnonymously(ctx); err != nil {
		if errors.Is(err, apierror.ErrInvalidCredentialConfig) {
			log.Warn().Err(err).Msg("session: provider rejected credentials, running unauthenticated")
			return OutcomeMisconfigured
		}
		log.Error().Err(err).Msg("session: anonymous sign-in failed")
		return OutcomeFailed
	}
	log.Info().Msg("session: continuing with anonymous session")
	return OutcomeAnonymous
}

// CurrentToken returns the live provider token, else the cached access token
// while it is unexpired. It never fails.
func (r *Recovery) CurrentToken(ctx context.Context) (string, bool) {
	if r.provider.CurrentUser() != nil {
		tok, err := r.provider.FreshToken(ctx)
		if err == nil && tok != "" {
			return tok, true
		}
		if err != nil {
			log.Debug().Err(err).Msg("session: fresh token unavailable")
		}
	}
	cached, err := r.loadCached(ctx)
	if err != nil || !cached.Valid(r.now()) || cached.StsTokenManager.AccessToken == "" {
		return "", false
	}
	return cached.StsTokenManager.AccessToken, true
}

// Remember writes id to the cache so a restart can recover it.
func (r *Recovery) Remember(ctx context.Context, id *Identity) {
	b, err := json.Marshal(FromIdentity(id))
	if err != nil {
		log.Error().Err(err).Msg("session: marshal cached session")
		return
	}
	ttl := id.ExpiresAt.Sub(r.now())
	if ttl < time.Minute {
		ttl = time.Minute
	}
	if err := r.cache.Set(ctx, CacheKey, b, ttl); err != nil {
		log.Warn().Err(err).Msg("session: failed to write cached session")
	}
}

// Forget signs out and clears the cached session.
func (r *Recovery) Forget(ctx context.Context) {
	r.provider.SignOut()
	if err := r.cache.Delete(ctx, CacheKey); err != nil {
		log.Warn().Err(err).Msg("session: failed to clear cached session")
	}
}

func (r *Recovery) loadCached(ctx context.Context) (CachedSession, error) {
	raw, err := r.cache.Get(ctx, CacheKey)
	if errors.Is(err, ErrCacheMiss) {
		key, findErr := r.cache.FindKey(ctx, LegacyKeyMarker)
		if findErr != nil {
			return CachedSession{}, findErr
		}
		raw, err = r.cache.Get(ctx, key)
	}
	if err != nil {
		return CachedSession{}, err
	}
	return ParseCachedSession(raw)
}

func (r *Recovery) record(o Outcome) {
	recoveryOutcomes.WithLabelValues(string(o)).Inc()
	r.mu.Lock()
	r.lastOutcome = o
	r.lastAttempt = r.now()
	r.mu.Unlock()
}

// Diagnostics summarizes the session state for operators.
type Diagnostics struct {
	Authenticated bool      `json:"authenticated"`
	UID           string    `json:"uid,omitempty"`
	Email         string    `json:"email,omitempty"`
	Anonymous     bool      `json:"anonymous"`
	ConfigValid   bool      `json:"configValid"`
	CachePresent  bool      `json:"cachePresent"`
	CacheExpired  bool      `json:"cacheExpired"`
	LastOutcome   Outcome   `json:"lastOutcome,omitempty"`
	LastAttempt   time.Time `json:"lastAttempt,omitempty"`
}

func (r *Recovery) Diagnostics(ctx context.Context) Diagnostics {
	d := Diagnostics{ConfigValid: r.configValid}
	if u := r.provider.CurrentUser(); u != nil {
		d.Authenticated = true
		d.UID = u.UID
		d.Email = u.Email
		d.Anonymous = u.Anonymous
	}
	if cached, err := r.loadCached(ctx); err == nil {
		d.CachePresent = true
		d.CacheExpired = !cached.Valid(r.now())
	}
	r.mu.Lock()
	d.LastOutcome = r.lastOutcome
	d.LastAttempt = r.lastAttempt
	r.mu.Unlock()
	return d
}
