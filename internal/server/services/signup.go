package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/lifecycle"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/notify"
	"github.com/dmitrijs2005/gophauth/internal/server/tokens"
)

// SignupInput is what a prospective user submits. Email is the login
// identity.
type SignupInput struct {
	Email    string
	Password string
	Profile  models.Profile
}

// Signup registers a pending account and mails a verification link. Field
// problems, the password policy included, come back as *common.FieldErrors
// wrapping common.ErrValidation; a taken email yields
// common.ErrAlreadyExists.
func (s *AccountService) Signup(ctx context.Context, in SignupInput) (*models.Account, error) {
	in.Email = models.NormalizeEmail(in.Email)
	in.Profile.AvatarKey = ""

	fe := validateSignup(in)
	if in.Password != "" {
		fe.Add("password", s.policy.Validate(in.Password, subjectOf(in.Email, in.Profile))...)
	}
	if err := fe.OrNil(); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, s.internal(ctx, "hash password", err)
	}

	account := &models.Account{
		Email:        in.Email,
		PasswordHash: hash,
		Status:       models.StatusPending,
		Profile:      in.Profile,
	}

	err = s.db.RunInTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		created, err := s.repomanager.Accounts(tx).Create(ctx, account)
		if err != nil {
			return err
		}
		account = created
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: the provided email address already has an account", common.ErrAlreadyExists)
		}
		return nil, s.internal(ctx, "create account", err)
	}

	s.logger.Info(ctx, "account created", "account_id", account.ID)
	s.sendVerification(ctx, account)

	return account, nil
}

func (s *AccountService) sendVerification(ctx context.Context, a *models.Account) {
	uid := tokens.EncodeID(a.ID)
	token := s.tokens.Issue(tokens.PurposeVerifyEmail, a.ID, a.Fingerprint())

	err := s.notifier.SendVerification(ctx, notify.Message{
		AccountID: a.ID,
		Email:     a.Email,
		Name:      displayName(a),
		Link:      s.links.verifyEmail(uid, token),
		ExpiresIn: s.tokenTTL,
	})
	if err != nil {
		s.logger.Error(ctx, "verification email not sent", "account_id", a.ID, "error", err)
	}
}

// VerifyEmail activates the account identified by encodedID when token is a
// valid verification token for its current state. Anything wrong with the
// id or token is reported as common.ErrInvalidToken; a second call with the
// same token fails the same way because activation changes the state the
// token was bound to.
func (s *AccountService) VerifyEmail(ctx context.Context, encodedID, token string) (*models.Account, error) {
	id, err := tokens.DecodeID(encodedID)
	if err != nil {
		return nil, err
	}

	var account *models.Account
	err = s.db.RunInTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)

		a, err := repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return fmt.Errorf("%w: unknown account", common.ErrInvalidToken)
			}
			return err
		}

		if err := s.tokens.Validate(tokens.PurposeVerifyEmail, token, a.ID, a.Fingerprint()); err != nil {
			return err
		}

		tr, err := s.machine.Apply(ctx, a, lifecycle.ActionVerify)
		if err != nil {
			return err
		}
		if err := repo.UpdateStatus(ctx, a.ID, tr.From, tr.To); err != nil {
			return err
		}
		account = a
		return nil
	})
	if err != nil {
		return nil, s.passThrough(ctx, "verify email", err, "account_id", id)
	}
	return account, nil
}
