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

// weakPassword reports policy violations for a new password as
// *common.FieldErrors wrapping common.ErrWeakPassword, or nil.
func (s *AccountService) weakPassword(field, password string, a *models.Account) error {
	fe := common.NewFieldErrors(common.ErrWeakPassword)
	if password == "" {
		fe.Add(field, "This field may not be blank.")
		return fe
	}
	fe.Add(field, s.policy.Validate(password, subjectOf(a.Email, a.Profile))...)
	return fe.OrNil()
}

// ChangePassword replaces the password of an authenticated account. A wrong
// old password yields common.ErrInvalidCredentials; a weak new one leaves
// the stored password untouched.
func (s *AccountService) ChangePassword(ctx context.Context, accountID int64, oldPassword, newPassword string) error {
	err := s.db.RunInTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)

		a, err := repo.GetByIDForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		if err := s.machine.Permit(a.Status, lifecycle.ActionChangePassword); err != nil {
			return err
		}

		ok, err := s.hasher.Verify(oldPassword, a.PasswordHash)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: old password is incorrect", common.ErrInvalidCredentials)
		}

		if err := s.weakPassword("new_password", newPassword, a); err != nil {
			return err
		}
		return s.setPassword(ctx, repo.UpdatePassword, a, newPassword)
	})
	if err != nil {
		return s.passThrough(ctx, "change password", err, "account_id", accountID)
	}

	s.logger.Info(ctx, "password changed", "account_id", accountID)
	return nil
}

func (s *AccountService) setPassword(ctx context.Context, update func(context.Context, int64, string) error, a *models.Account, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	if err := update(ctx, a.ID, hash); err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

// RequestPasswordReset mails a reset link to an active account. Unknown
// emails and accounts that are not active yield common.ErrNotFound; callers
// facing the public decide whether to reveal that.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	if err := validateEmail(email).OrNil(); err != nil {
		return err
	}

	a, err := s.repo().GetByEmail(ctx, models.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("%w: no active account with this email", common.ErrNotFound)
		}
		return s.internal(ctx, "load account", err)
	}
	if !a.IsActive() {
		return fmt.Errorf("%w: no active account with this email", common.ErrNotFound)
	}

	uid := tokens.EncodeID(a.ID)
	token := s.tokens.Issue(tokens.PurposeResetPassword, a.ID, a.Fingerprint())

	err = s.notifier.SendPasswordReset(ctx, notify.Message{
		AccountID: a.ID,
		Email:     a.Email,
		Name:      displayName(a),
		Link:      s.links.resetPassword(uid, token),
		ExpiresIn: s.tokenTTL,
	})
	if err != nil {
		s.logger.Error(ctx, "password reset email not sent", "account_id", a.ID, "error", err)
		return nil
	}

	s.logger.Info(ctx, "password reset requested", "account_id", a.ID)
	return nil
}

// ConfirmPasswordReset sets a new password using a reset token. The token
// contract matches VerifyEmail: any problem with id or token is
// common.ErrInvalidToken, and a used token stops working because the
// password hash it was bound to changes.
func (s *AccountService) ConfirmPasswordReset(ctx context.Context, encodedID, token, newPassword string) error {
	id, err := tokens.DecodeID(encodedID)
	if err != nil {
		return err
	}

	err = s.db.RunInTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)

		a, err := repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return fmt.Errorf("%w: unknown account", common.ErrInvalidToken)
			}
			return err
		}
		if err := s.tokens.Validate(tokens.PurposeResetPassword, token, a.ID, a.Fingerprint()); err != nil {
			return err
		}
		if err := s.machine.Permit(a.Status, lifecycle.ActionResetPassword); err != nil {
			return err
		}
		if err := s.weakPassword("new_password", newPassword, a); err != nil {
			return err
		}
		return s.setPassword(ctx, repo.UpdatePassword, a, newPassword)
	})
	if err != nil {
		return s.passThrough(ctx, "reset password", err, "account_id", id)
	}

	s.logger.Info(ctx, "password reset", "account_id", id)
	return nil
}
