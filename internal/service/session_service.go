package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/sofiabaracatlj/fiap-farms/internal/dto"
	"github.com/sofiabaracatlj/fiap-farms/internal/session"
)

type SessionService interface {
	Status(ctx context.Context) dto.SessionResponse
	Login(ctx context.Context, req dto.LoginRequest) (dto.SessionResponse, error)
	Anonymous(ctx context.Context) (dto.SessionResponse, error)
	Logout(ctx context.Context)
	Token(ctx context.Context) (string, bool)
}

type sessionService struct {
	provider session.IdentityProvider
	recovery *session.Recovery
}

func NewSessionService(provider session.IdentityProvider, recovery *session.Recovery) SessionService {
	return &sessionService{provider: provider, recovery: recovery}
}

// Sign-ins are written to the session cache by the provider's persistence
// hook, not here.

// Status attempts a recovery when there is no live session, then reports.
func (s *sessionService) Status(ctx context.Context) dto.SessionResponse {
	s.recovery.IsAuthenticated(ctx)
	d := s.recovery.Diagnostics(ctx)
	return dto.SessionResponse{
		Authenticated: d.Authenticated,
		UID:           d.UID,
		Email:         d.Email,
		Anonymous:     d.Anonymous,
		Diagnostics:   d,
	}
}

func (s *sessionService) Login(ctx context.Context, req dto.LoginRequest) (dto.SessionResponse, error) {
	id, err := s.provider.SignInWithPassword(ctx, req.Email, req.Password)
	if err != nil {
		return dto.SessionResponse{}, err
	}
	log.Info().Str("uid", id.UID).Msg("session: signed in")
	return dto.SessionResponse{Authenticated: true, UID: id.UID, Email: id.Email}, nil
}

func (s *sessionService) Anonymous(ctx context.Context) (dto.SessionResponse, error) {
	id, err := s.provider.SignInAnonymously(ctx)
	if err != nil {
		return dto.SessionResponse{}, err
	}
	return dto.SessionResponse{Authenticated: true, UID: id.UID, Anonymous: true}, nil
}

func (s *sessionService) Logout(ctx context.Context) {
	s.recovery.Forget(ctx)
}

func (s *sessionService) Token(ctx context.Context) (string, bool) {
	return s.recovery.CurrentToken(ctx)
}
