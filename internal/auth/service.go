package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/petite-maison/internal/audit"
	"github.com/vasiliy-maslov/petite-maison/internal/user"
)

// Session is the result of a successful register/login/refresh.
type Session struct {
	Tokens TokenPair
	User   *user.User
}

type Service interface {
	Register(ctx context.Context, email, password string, displayName *string, ip string) (*Session, error)
	Login(ctx context.Context, email, password, ip string) (*Session, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	Logout(ctx context.Context, refreshToken string) error
}

type service struct {
	users    user.Service
	provider IdentityProvider
	sessions SessionStore
	audit    audit.Recorder
}

func NewService(users user.Service, provider IdentityProvider, sessions SessionStore, recorder audit.Recorder) Service {
	return &service{
		users:    users,
		provider: provider,
		sessions: sessions,
		audit:    recorder,
	}
}

func (s *service) issue(ctx context.Context, u *user.User) (*Session, error) {
	sessionID, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}

	tokens, err := s.provider.IssueTokens(u, sessionID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}

	if err := s.sessions.Save(ctx, sessionID.String(), u.ID, s.provider.RefreshTTL()); err != nil {
		return nil, err
	}

	return &Session{Tokens: tokens, User: u}, nil
}

func (s *service) Register(ctx context.Context, email, password string, displayName *string, ip string) (*Session, error) {
	u, err := s.users.CreateUser(ctx, email, password, displayName)
	if err != nil {
		return nil, err
	}

	sess, err := s.issue(ctx, u)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", u.ID).Msg("auth: failed to open session after registration")
		return nil, err
	}

	s.audit.Record(ctx, audit.Entry{
		UserID:     u.ID,
		Action:     audit.ActionUserRegister,
		EntityType: "user",
		EntityID:   u.ID.String(),
		IPAddress:  ip,
	})

	return sess, nil
}

func (s *service) Login(ctx context.Context, email, password, ip string) (*Session, error) {
	u, err := s.users.VerifyCredentials(ctx, email, password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) || errors.Is(err, user.ErrInactive) {
			log.Warn().Err(err).Msg("auth: login rejected")
		}
		return nil, err
	}

	sess, err := s.issue(ctx, u)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Entry{
		UserID:     u.ID,
		Action:     audit.ActionUserLogin,
		EntityType: "user",
		EntityID:   u.ID.String(),
		IPAddress:  ip,
	})

	return sess, nil
}

// Refresh rotates a refresh token: the presented session is consumed and a
// new pair is issued.
func (s *service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := s.provider.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	ok, err := s.sessions.Consume(ctx, claims.SessionID, claims.UserID)
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Warn().Stringer("user_id", claims.UserID).Msg("auth: refresh with unknown or reused session")
		return nil, ErrSessionRevoked
	}

	u, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, user.ErrInactive
	}

	return s.issue(ctx, u)
}

func (s *service) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.provider.VerifyRefresh(refreshToken)
	if err != nil {
		return err
	}
	return s.sessions.Revoke(ctx, claims.SessionID)
}
