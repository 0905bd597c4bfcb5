package services

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/isdelr/taskflow-be/internal/auth"
	"github.com/isdelr/taskflow-be/internal/models"
)

// AuthService issues session tokens and announces sign-ins and sign-outs.
type AuthService struct {
	users  UserServiceProvider
	tokens *auth.TokenManager
	events EventPublisher
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserServiceProvider, tokens *auth.TokenManager, events EventPublisher) *AuthService {
	if events == nil {
		events = LogPublisher{}
	}
	return &AuthService{users: users, tokens: tokens, events: events}
}

// Tokens exposes the token manager for cookie handling.
func (s *AuthService) Tokens() *auth.TokenManager { return s.tokens }

// Register creates an account and signs the new user in.
func (s *AuthService) Register(ctx context.Context, username, password string) (models.User, string, error) {
	user, err := s.users.CreateUser(ctx, username, password)
	if err != nil {
		return models.User{}, "", err
	}
	return s.signIn(user)
}

// Login verifies credentials and returns a fresh token.
func (s *AuthService) Login(ctx context.Context, username, password string) (models.User, string, error) {
	user, err := s.users.AuthenticateUser(ctx, username, password)
	if err != nil {
		return models.User{}, "", err
	}
	return s.signIn(user)
}

// Logout announces the sign-out when token identifies an existing user.
func (s *AuthService) Logout(ctx context.Context, token string) {
	if token == "" {
		return
	}
	user, err := s.Identify(ctx, token)
	if err != nil {
		log.Debug().Err(err).Msg("Logout with unusable token")
		return
	}
	s.events.Publish(models.EventUserLogout, models.UserLogoutEvent{Username: user.Username})
}

// Identify validates token and loads the user it was issued for.
func (s *AuthService) Identify(ctx context.Context, token string) (models.User, error) {
	claims, err := s.tokens.ValidateJWT(token)
	if err != nil {
		return models.User{}, err
	}
	return s.users.GetUserByID(ctx, claims.UserID)
}

func (s *AuthService) signIn(user models.User) (models.User, string, error) {
	token, err := s.tokens.GenerateJWT(user)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to generate JWT")
		return models.User{}, "", err
	}
	s.events.Publish(models.EventUserLogin, models.UserLoginEvent{ID: user.ID, Username: user.Username})
	return user, token, nil
}
