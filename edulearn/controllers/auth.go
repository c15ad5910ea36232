// edulearn/controllers/auth.go
package controllers

import (
	"context"
	"fmt"
	"time"

	"edulearn/edulearn/config"
	"edulearn/edulearn/services/auth"
	"edulearn/edulearn/services/chatsession"
	"edulearn/edulearn/utils/logging"
	"edulearn/edulearn/utils/types"

	"go.uber.org/zap"
)

type AuthController struct {
	registry *chatsession.Registry
	cfg      config.Config
}

func NewAuthController(registry *chatsession.Registry, cfg config.Config) *AuthController {
	return &AuthController{
		registry: registry,
		cfg:      cfg,
	}
}

type LoginResponse struct {
	Token string    `json:"token"`
	User  auth.User `json:"user"`
}

// Login signs the user in, which loads (and on first visit seeds) their sessions.
func (c *AuthController) Login(ctx context.Context, req types.LoginRequest) (LoginResponse, error) {
	if err := types.Validate(req); err != nil {
		return LoginResponse{}, fmt.Errorf("%w: %v", chatsession.ErrValidationFailed, err)
	}
	user := auth.UserFromEmail(req.Email)
	if _, err := c.registry.Open(ctx, user); err != nil {
		return LoginResponse{}, err
	}
	token, err := auth.IssueToken(c.cfg.JWTSecret, user, time.Now())
	if err != nil {
		return LoginResponse{}, err
	}
	logging.AppLogger.Info("user signed in", zap.String("owner", user.ID))
	return LoginResponse{Token: token, User: user}, nil
}

// Logout clears the user's in-memory sessions and drops their store.
func (c *AuthController) Logout(ctx context.Context, u auth.User) {
	c.registry.Close(u.ID)
	logging.AppLogger.Info("user signed out", zap.String("owner", u.ID))
}
