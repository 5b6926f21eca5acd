package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sakif/image-feed/internal/apperror"
	"github.com/sakif/image-feed/internal/auth"
	"github.com/sakif/image-feed/internal/credential"
	"github.com/sakif/image-feed/internal/executor"
	"github.com/sakif/image-feed/internal/model"
)

// OAuthService trades authorization codes for bearer tokens.
//
// At most one exchange is outstanding:
//
//	Exchange("A") while "A" pending → the pending request is cancelled and
//	                                  a fresh one is sent; the superseded
//	                                  caller gets a cancelled Transport error
//	Exchange("B") while "A" pending → CancelledByAnotherRequest, "A" untouched
type OAuthService struct {
	provider *auth.Provider
	exec     *executor.Executor
	creds    credential.Store
	logger   *slog.Logger

	mu            sync.Mutex
	gen           uint64
	pendingCode   string
	pendingCancel context.CancelFunc // non-nil while an exchange is in flight
}

func NewOAuthService(provider *auth.Provider, exec *executor.Executor, creds credential.Store, logger *slog.Logger) *OAuthService {
	return &OAuthService{
		provider: provider,
		exec:     exec,
		creds:    creds,
		logger:   logger,
	}
}

// Exchange sends code to the token endpoint, stores the returned token in
// the credential store and returns it.
func (s *OAuthService) Exchange(ctx context.Context, code string) (string, error) {
	if code == "" {
		return "", apperror.InvalidRequest("code", "must not be empty")
	}

	s.mu.Lock()
	if s.pendingCancel != nil && s.pendingCode != code {
		s.mu.Unlock()
		s.logger.Warn("oauth: exchange rejected, another code is pending")
		return "", apperror.CancelledByAnotherRequest()
	}

	reqCtx, cancel := context.WithCancel(ctx)
	req, err := s.provider.TokenRequest(reqCtx, code)
	if err != nil {
		s.mu.Unlock()
		cancel()
		return "", apperror.InvalidRequest("token_url", err.Error())
	}

	if s.pendingCancel != nil {
		s.logger.Debug("oauth: retrying pending exchange")
		s.pendingCancel()
	}
	s.gen++
	gen := s.gen
	s.pendingCode = code
	s.pendingCancel = cancel
	s.mu.Unlock()

	resp, err := executor.DoJSON[model.OAuthTokenResponse](s.exec, req)

	s.mu.Lock()
	if s.gen == gen {
		s.pendingCode = ""
		s.pendingCancel = nil
	}
	s.mu.Unlock()
	cancel()

	if err != nil {
		s.logger.Error("oauth: token exchange failed", slog.String("error", err.Error()))
		return "", err
	}
	token := resp.Token()
	if !token.Valid() {
		return "", apperror.Decode(errors.New("token response has no access_token"))
	}

	if err := s.creds.Set(ctx, token.AccessToken); err != nil {
		return "", fmt.Errorf("service/oauth: storing credential: %w", err)
	}

	s.logger.Info("oauth: token exchanged",
		slog.String("token_type", token.TokenType),
		slog.Any("scope", token.Extra("scope")),
	)
	return token.AccessToken, nil
}

// Pending reports whether an exchange is in flight.
func (s *OAuthService) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingCancel != nil
}
