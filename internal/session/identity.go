package session

import (
	"context"
	"time"
)

// Identity is a live identity-provider session.
type Identity struct {
	UID          string    `json:"uid"`
	Email        string    `json:"email,omitempty"`
	Anonymous    bool      `json:"anonymous"`
	IDToken      string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// PersistenceMode controls whether sign-ins are written to the session cache.
type PersistenceMode string

const (
	PersistSession PersistenceMode = "session"
	PersistNone    PersistenceMode = "none"
)

// IdentityProvider is the hosted identity service as seen by this process.
type IdentityProvider interface {
	// CurrentUser returns the live session or nil.
	CurrentUser() *Identity
	SignInAnonymously(ctx context.Context) (*Identity, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Identity, error)
	SignInWithRefreshToken(ctx context.Context, refreshToken string) (*Identity, error)
	// FreshToken returns a valid ID token for the current user, refreshing it if needed.
	FreshToken(ctx context.Context) (string, error)
	SetPersistence(mode PersistenceMode)
	SignOut()
}
