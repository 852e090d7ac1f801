// Package service holds the business rules, between the HTTP handlers and
// the repositories:
//
//	AuthHandler     → AuthService     → UserRepository
//	                                  ↘ TokenService / PasswordService
//	MealPlanHandler → MealPlanService → PlanRepository
//	                                  ↘ ai.Generator
//
// Services validate their own inputs, return *apperror.AppError for every
// failure a client may see, and know nothing about HTTP.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/meal-planner/internal/apperror"
	"github.com/sakif/meal-planner/internal/auth"
	"github.com/sakif/meal-planner/internal/model"
	"github.com/sakif/meal-planner/internal/repository"
	"github.com/sakif/meal-planner/internal/validate"
)

// AuthService handles registration, login and token verification.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users      repository.UserRepository  → read/write credential records
//   - tokens     *auth.TokenService         → mint/verify JWTs
//   - passwords  *auth.PasswordService      → bcrypt hashing
//   - validator  *validate.Validator        → payload schema checks
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	validator *validate.Validator
	logger    *slog.Logger
}

var _ auth.Verifier = (*AuthService)(nil)

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	validator *validate.Validator,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		validator: validator,
		logger:    logger,
	}
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Token string           `json:"token"`
	User  model.PublicUser `json:"user"`
}

// Register creates a credential record and signs the new user in.
func (s *AuthService) Register(ctx context.Context, in validate.Registration) (*AuthResult, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	// Fast path for the common case; the unique index still guards the race.
	_, err := s.users.GetUserByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, apperror.DuplicateEmail()
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/auth: checking email: %w", err)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user := &model.User{
		Email:        in.Email,
		PasswordHash: hash,
		Name:         in.Name,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrDuplicateEmail) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user registered", slog.String("userID", user.ID))

	return s.issue(user)
}

// Login verifies the credentials. An unknown email and a wrong password
// produce the same error so accounts cannot be enumerated.
func (s *AuthService) Login(ctx context.Context, in validate.Login) (*AuthResult, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, in.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: verifying password for user %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))

	return s.issue(user)
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{Token: token, User: user.Public()}, nil
}

// VerifyToken checks signature and expiry. Malformed, forged and expired
// tokens all collapse into apperror.ErrInvalidToken.
func (s *AuthService) VerifyToken(token string) (*auth.Claims, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		s.logger.Debug("token rejected", slog.String("reason", err.Error()))
		return nil, apperror.InvalidToken()
	}
	return claims, nil
}

// WhoAmI re-reads the caller's record so the current name is returned.
func (s *AuthService) WhoAmI(ctx context.Context, id auth.Identity) (model.PublicUser, error) {
	user, err := s.users.GetUserByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return model.PublicUser{}, apperror.UserNotFound()
		}
		return model.PublicUser{}, fmt.Errorf("service/auth: fetching user %s: %w", id.UserID, err)
	}
	return user.Public(), nil
}
