package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

const (
	// CacheKey is where the last signed-in user is stored.
	CacheKey = "firebaseUser"
	// LegacyKeyMarker matches keys written by the provider SDK itself.
	LegacyKeyMarker = "firebase:authUser"
)

// ErrCacheMiss is returned by Cache implementations when a key is absent.
var ErrCacheMiss = errors.New("session: cache miss")

// Cache is the ephemeral store holding CachedSession blobs.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// FindKey returns the first key containing substr.
	FindKey(ctx context.Context, substr string) (string, error)
}

// TokenManager mirrors the provider SDK's stsTokenManager.
type TokenManager struct {
	AccessToken    string `json:"accessToken"`
	RefreshToken   string `json:"refreshToken"`
	ExpirationTime int64  `json:"expirationTime"` // epoch milliseconds
}

// CachedSession is a non-authoritative snapshot of provider credentials.
type CachedSession struct {
	UID             string       `json:"uid"`
	Email           string       `json:"email,omitempty"`
	StsTokenManager TokenManager `json:"stsTokenManager"`
}

// Valid reports whether the cached token is still unexpired at now.
// The comparison is strict: a token expiring exactly at now is expired.
func (c CachedSession) Valid(now time.Time) bool {
	return c.StsTokenManager.ExpirationTime > now.UnixMilli()
}

// ExpiresAt returns the token expiry as a time.
func (c CachedSession) ExpiresAt() time.Time {
	return time.UnixMilli(c.StsTokenManager.ExpirationTime)
}

// FromIdentity builds the cache record for a live identity.
func FromIdentity(id *Identity) CachedSession {
	return CachedSession{
		UID:   id.UID,
		Email: id.Email,
		StsTokenManager: TokenManager{
			AccessToken:    id.IDToken,
			RefreshToken:   id.RefreshToken,
			ExpirationTime: id.ExpiresAt.UnixMilli(),
		},
	}
}

// ParseCachedSession decodes a cache blob.
func ParseCachedSession(raw []byte) (CachedSession, error) {
	var c CachedSession
	if err := json.Unmarshal(raw, &c); err != nil {
		return CachedSession{}, err
	}
	if c.UID == "" && c.StsTokenManager.AccessToken == "" {
		return CachedSession{}, errors.New("session: cached record has no uid or token")
	}
	return c, nil
}
