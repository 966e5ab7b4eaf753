package service

import (
	"crypto/subtle"
	"fmt"

	"go.uber.org/zap"
)

// AuthService authenticates the single operator account.
// This is a single-operator tool: one admin, credentials from config.
type AuthService struct {
	log      *zap.Logger
	username string
	password string

	UserSession *UserSessionService
}

func NewAuthService(log *zap.Logger, isDev bool, redisAddr, username, password string, sessionKey []byte) (*AuthService, error) {
	usrSessionSvc, err := NewUserSessionService(isDev, redisAddr, sessionKey)
	if err != nil {
		return nil, fmt.Errorf("new user session service: %w", err)
	}

	return &AuthService{
		log:         log.Named("auth_service"),
		username:    username,
		password:    password,
		UserSession: usrSessionSvc,
	}, nil
}

// AuthenticateWithPassword verifies operator credentials.
func (s *AuthService) AuthenticateWithPassword(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.password)) == 1
	return userOK && passOK
}
