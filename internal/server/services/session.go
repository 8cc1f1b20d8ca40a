package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/lifecycle"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type LoginResult struct {
	Session *auth.SessionPair
	Account *models.Account
}

// Login checks credentials and opens a session. An unknown email and a wrong
// password both yield common.ErrAuthenticationFailed. An account that is not
// active yields common.ErrAccountNotActive whatever the password.
func (s *AccountService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	repo := s.repo()

	a, err := repo.GetByEmail(ctx, models.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.hasher.DummyVerify(password)
			return nil, common.ErrAuthenticationFailed
		}
		return nil, s.internal(ctx, "load account", err)
	}

	if _, err := s.machine.Apply(ctx, a, lifecycle.ActionAuthenticate); err != nil {
		s.hasher.DummyVerify(password)
		return nil, err
	}

	ok, err := s.hasher.Verify(password, a.PasswordHash)
	if err != nil {
		return nil, s.internal(ctx, "verify password", err, "account_id", a.ID)
	}
	if !ok {
		s.logger.Info(ctx, "login rejected", "account_id", a.ID)
		return nil, common.ErrAuthenticationFailed
	}

	now := s.now().UTC()
	if err := repo.TouchLastLogin(ctx, a.ID, now); err != nil {
		return nil, s.internal(ctx, "update last login", err, "account_id", a.ID)
	}
	a.LastLogin = &now

	pair, err := s.sessions.IssueSessionPair(a)
	if err != nil {
		return nil, s.internal(ctx, "issue session", err, "account_id", a.ID)
	}

	s.logger.Info(ctx, "login", "account_id", a.ID)
	return &LoginResult{Session: pair, Account: a}, nil
}

// RefreshSession exchanges a refresh token for a new session pair. The
// account must still exist and be active.
func (s *AccountService) RefreshSession(ctx context.Context, refreshToken string) (*auth.SessionPair, error) {
	claims, err := s.sessions.ParseRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	a, err := s.activeAccount(ctx, claims.AccountID)
	if err != nil {
		return nil, err
	}

	pair, err := s.sessions.IssueSessionPair(a)
	if err != nil {
		return nil, s.internal(ctx, "issue session", err, "account_id", a.ID)
	}
	return pair, nil
}

// Authenticate resolves an access token to its account.
func (s *AccountService) Authenticate(ctx context.Context, accessToken string) (*models.Account, error) {
	claims, err := s.sessions.ParseAccess(accessToken)
	if err != nil {
		return nil, err
	}
	return s.activeAccount(ctx, claims.AccountID)
}

func (s *AccountService) activeAccount(ctx context.Context, id int64) (*models.Account, error) {
	a, err := s.repo().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: account no longer exists", common.ErrUnauthenticated)
		}
		return nil, s.internal(ctx, "load account", err, "account_id", id)
	}
	if !a.IsActive() {
		return nil, fmt.Errorf("%w: account is not active", common.ErrUnauthenticated)
	}
	return a, nil
}
