package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Sivaraj16/medicals/internal/auth"
	apperrors "github.com/Sivaraj16/medicals/pkg/errors"
)

// Token is an issued operator access token.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// AuthService logs in the configured till operator. There is no user store:
// the single operator's username and bcrypt password hash come from config.
type AuthService struct {
	jwt          *auth.JWTManager
	username     string
	passwordHash []byte
	operatorID   string
	logger       *slog.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(jwt *auth.JWTManager, username, passwordHash string, logger *slog.Logger) *AuthService {
	return &AuthService{
		jwt:          jwt,
		username:     username,
		passwordHash: []byte(passwordHash),
		operatorID:   uuid.NewSHA1(uuid.NameSpaceOID, []byte("medicals-operator:"+username)).String(),
		logger:       logger,
	}
}

// Login checks the credentials and issues an operator token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*Token, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	passErr := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password))
	if !userOK || passErr != nil {
		s.logger.WarnContext(ctx, "operator login failed", slog.String("username", username))
		return nil, apperrors.Unauthorized("invalid username or password")
	}

	token, err := s.jwt.GenerateAccessToken(s.operatorID, s.username, auth.RoleOperator)
	if err != nil {
		return nil, fmt.Errorf("issue operator token: %w", err)
	}

	s.logger.InfoContext(ctx, "operator logged in", slog.String("operator_id", s.operatorID))
	return &Token{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.jwt.AccessExpiry().Seconds()),
	}, nil
}
