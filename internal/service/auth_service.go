package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/counsel-vault/internal/dto"
	"github.com/noah-isme/counsel-vault/internal/models"
	"github.com/noah-isme/counsel-vault/internal/repository"
)

var (
	// ErrInvalidCredentials indicates an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSessionNotFound indicates the session has ended or never existed.
	ErrSessionNotFound = errors.New("session not found")
)

// AuthService signs local accounts in and out.
type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (dto.LoginResponse, error)
	Logout(ctx context.Context, sessionID string) error
	Active(sessionID string) bool
}

type authService struct {
	users     repository.Collection[models.User]
	sessions  *SessionTable
	secret    []byte
	ttl       time.Duration
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewAuthService constructs the auth service over the users collection.
func NewAuthService(store repository.RecordStore, sessions *SessionTable, secret string, ttl time.Duration, validate *validator.Validate, logger zerolog.Logger) AuthService {
	if sessions == nil {
		sessions = NewSessionTable()
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &authService{
		users:     repository.NewCollection[models.User](store, repository.CollectionUsers),
		sessions:  sessions,
		secret:    []byte(secret),
		ttl:       ttl,
		validator: validate,
		logger:    logger.With().Str("component", "auth_service").Logger(),
		now:       time.Now,
	}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (dto.LoginResponse, error) {
	if s.validator != nil {
		if err := s.validator.Struct(req); err != nil {
			return dto.LoginResponse{}, fmt.Errorf("%w: %w", ErrValidationFailure, err)
		}
	}

	user, _, err := s.users.FindByKey(ctx, models.UserKey(req.Email))
	if errors.Is(err, repository.ErrNotFound) {
		return dto.LoginResponse{}, ErrInvalidCredentials
	}
	if err != nil {
		return dto.LoginResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		s.logger.Warn().Str("email", models.UserKey(req.Email)).Msg("rejected login")
		return dto.LoginResponse{}, ErrInvalidCredentials
	}

	now := s.now().UTC()
	session := Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Role:      user.Role,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  session.UserID,
		"role": session.Role,
		"sid":  session.ID,
		"iat":  now.Unix(),
		"exp":  session.ExpiresAt.Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return dto.LoginResponse{}, fmt.Errorf("sign token: %w", err)
	}

	s.sessions.Prune(now)
	s.sessions.Add(session)
	s.logger.Info().Str("user_id", user.ID).Str("role", user.Role).Msg("session opened")

	return dto.LoginResponse{
		Token:     signed,
		SessionID: session.ID,
		UserID:    user.ID,
		Role:      user.Role,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

func (s *authService) Logout(_ context.Context, sessionID string) error {
	if !s.sessions.Remove(sessionID) {
		return ErrSessionNotFound
	}
	s.logger.Info().Str("session_id", sessionID).Msg("session closed")
	return nil
}

func (s *authService) Active(sessionID string) bool {
	_, ok := s.sessions.Get(sessionID, s.now().UTC())
	return ok
}
