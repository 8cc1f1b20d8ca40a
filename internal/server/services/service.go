// Package services contains server-side business logic. AccountService
// drives an account through its lifecycle: signup, email verification,
// login, profile edits, password change and reset, and deletion.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/credentials"
	"github.com/dmitrijs2005/gophauth/internal/server/lifecycle"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/notify"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/tokens"
)

// AvatarStore keeps avatar images outside the database.
type AvatarStore interface {
	PresignUpload(ctx context.Context, accountID int64) (key string, uploadURL string, err error)
	PresignDownload(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// ErrAvatarsDisabled is returned by avatar operations when no store is
// configured.
var ErrAvatarsDisabled = fmt.Errorf("%w: avatar storage is not configured", common.ErrNotFound)

// Collaborators bundles what AccountService needs besides storage.
// Avatars may be nil. Now defaults to time.Now.
type Collaborators struct {
	Hasher   *credentials.Hasher
	Policy   *credentials.Policy
	Tokens   *tokens.Generator
	Sessions *auth.Issuer
	Machine  *lifecycle.Machine
	Notifier notify.Notifier
	Avatars  AvatarStore
	Logger   logging.Logger
	Now      func() time.Time
}

type AccountService struct {
	db          dbx.TxRunner
	repomanager repomanager.RepositoryManager

	hasher   *credentials.Hasher
	policy   *credentials.Policy
	tokens   *tokens.Generator
	sessions *auth.Issuer
	machine  *lifecycle.Machine
	notifier notify.Notifier
	avatars  AvatarStore
	logger   logging.Logger
	now      func() time.Time

	links    links
	tokenTTL time.Duration
}

// NewAccountService wires an AccountService from configuration and its
// collaborators.
func NewAccountService(db dbx.TxRunner, m repomanager.RepositoryManager, cfg *config.Config, c Collaborators) *AccountService {
	now := c.Now
	if now == nil {
		now = time.Now
	}
	return &AccountService{
		db:          db,
		repomanager: m,
		hasher:      c.Hasher,
		policy:      c.Policy,
		tokens:      c.Tokens,
		sessions:    c.Sessions,
		machine:     c.Machine,
		notifier:    c.Notifier,
		avatars:     c.Avatars,
		logger:      c.Logger.With("module", "accounts"),
		now:         now,
		links: links{
			base:       strings.TrimRight(cfg.PublicBaseURL, "/"),
			apiVersion: cfg.APIVersion,
			resetPage:  cfg.PasswordResetURL,
		},
		tokenTTL: cfg.AccountTokenValidityDuration,
	}
}

func (s *AccountService) repo() accounts.Repository {
	return s.repomanager.Accounts(s.db.Conn())
}

// internal logs err and hides it behind common.ErrInternal.
func (s *AccountService) internal(ctx context.Context, op string, err error, args ...any) error {
	s.logger.Error(ctx, op+" failed", append(args, "error", err)...)
	return fmt.Errorf("%w: %s", common.ErrInternal, op)
}

// passThrough returns domain errors unchanged and masks anything else.
func (s *AccountService) passThrough(ctx context.Context, op string, err error, args ...any) error {
	for _, known := range []error{
		common.ErrNotFound, common.ErrAlreadyExists, common.ErrValidation, common.ErrWeakPassword,
		common.ErrAuthenticationFailed, common.ErrAccountNotActive, common.ErrInvalidCredentials,
		common.ErrPreconditionFailed, common.ErrInvalidToken, common.ErrUnauthenticated,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return s.internal(ctx, op, err, args...)
}

func subjectOf(email string, p models.Profile) credentials.Subject {
	return credentials.Subject{Email: email, FirstName: p.FirstName, LastName: p.LastName, NickName: p.NickName}
}

func displayName(a *models.Account) string {
	if a.Profile.FirstName != "" {
		return a.Profile.FirstName
	}
	return a.Profile.NickName
}

// links builds the URLs put into emails.
type links struct {
	base       string
	apiVersion string
	resetPage  string
}

func (l links) verifyEmail(uid, token string) string {
	return fmt.Sprintf("%s/api/%s/user/verify-email/%s/%s/", l.base, l.apiVersion, url.PathEscape(uid), url.PathEscape(token))
}

// resetPassword points at the frontend page when one is configured, passing
// uid and token as query parameters, and at the API otherwise.
func (l links) resetPassword(uid, token string) string {
	if l.resetPage == "" {
		return fmt.Sprintf("%s/api/%s/user/reset-password-confirm/%s/%s/", l.base, l.apiVersion, url.PathEscape(uid), url.PathEscape(token))
	}
	u, err := url.Parse(l.resetPage)
	if err != nil {
		return l.resetPage
	}
	q := u.Query()
	q.Set("uid", uid)
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}
