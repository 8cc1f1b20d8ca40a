package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/avatars"
	"github.com/dmitrijs2005/gophauth/internal/server/lifecycle"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

func (s *AccountService) GetProfile(ctx context.Context, accountID int64) (*models.Account, error) {
	a, err := s.repo().GetByID(ctx, accountID)
	if err != nil {
		return nil, s.passThrough(ctx, "load account", err, "account_id", accountID)
	}
	return a, nil
}

// UpdateProfile merges the non-nil fields of patch into the profile. An
// empty patch, or one that changes nothing, writes nothing.
func (s *AccountService) UpdateProfile(ctx context.Context, accountID int64, patch models.ProfilePatch) (*models.Account, error) {
	if err := validatePatch(patch).OrNil(); err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return s.GetProfile(ctx, accountID)
	}

	var account *models.Account
	err := s.db.RunInTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)

		a, err := repo.GetByIDForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		if err := s.machine.Permit(a.Status, lifecycle.ActionUpdateProfile); err != nil {
			return err
		}

		updated := patch.Apply(a.Profile)
		if updated != a.Profile {
			if err := repo.UpdateProfile(ctx, a.ID, updated); err != nil {
				return err
			}
			a.Profile = updated
			a.UpdatedAt = s.now().UTC()
		}
		account = a
		return nil
	})
	if err != nil {
		return nil, s.passThrough(ctx, "update profile", err, "account_id", accountID)
	}
	return account, nil
}

// DeleteAccount removes the account for good. The avatar object, if any, is
// removed afterwards on a best-effort basis.
func (s *AccountService) DeleteAccount(ctx context.Context, accountID int64) error {
	var avatarKey string
	err := s.db.RunInTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)

		a, err := repo.GetByIDForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		if _, err := s.machine.Apply(ctx, a, lifecycle.ActionDelete); err != nil {
			return err
		}
		if err := repo.Delete(ctx, a.ID); err != nil {
			return err
		}
		avatarKey = a.Profile.AvatarKey
		return nil
	})
	if err != nil {
		return s.passThrough(ctx, "delete account", err, "account_id", accountID)
	}

	s.logger.Info(ctx, "account deleted", "account_id", accountID)

	if avatarKey != "" && s.avatars != nil {
		if err := s.avatars.Delete(ctx, avatarKey); err != nil {
			s.logger.Warn(ctx, "avatar not removed", "account_id", accountID, "key", avatarKey, "error", err)
		}
	}
	return nil
}

// AvatarUpload is a presigned upload slot.
type AvatarUpload struct {
	Key       string
	UploadURL string
}

// RequestAvatarUpload records a new avatar key on the profile and returns a
// URL the client can upload the image to. The previous image is removed.
func (s *AccountService) RequestAvatarUpload(ctx context.Context, accountID int64) (*AvatarUpload, error) {
	if s.avatars == nil {
		return nil, ErrAvatarsDisabled
	}

	key, uploadURL, err := s.avatars.PresignUpload(ctx, accountID)
	if err != nil {
		return nil, s.internal(ctx, "presign avatar upload", err, "account_id", accountID)
	}

	var previous string
	err = s.db.RunInTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)

		a, err := repo.GetByIDForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		if err := s.machine.Permit(a.Status, lifecycle.ActionUpdateProfile); err != nil {
			return err
		}
		previous = a.Profile.AvatarKey

		p := a.Profile
		p.AvatarKey = key
		return repo.UpdateProfile(ctx, a.ID, p)
	})
	if err != nil {
		return nil, s.passThrough(ctx, "store avatar key", err, "account_id", accountID)
	}

	if previous != "" && previous != key {
		if err := s.avatars.Delete(ctx, previous); err != nil {
			s.logger.Warn(ctx, "previous avatar not removed", "account_id", accountID, "key", previous, "error", err)
		}
	}
	return &AvatarUpload{Key: key, UploadURL: uploadURL}, nil
}

// AvatarURL returns a download URL for the account's avatar, or "" when it
// has none or avatars are disabled.
func (s *AccountService) AvatarURL(ctx context.Context, a *models.Account) (string, error) {
	key := a.Profile.AvatarKey
	if key == "" || s.avatars == nil {
		return "", nil
	}
	if !avatars.OwnedBy(key, a.ID) {
		return "", s.internal(ctx, "avatar url", avatars.ErrForeignKey, "account_id", a.ID)
	}
	u, err := s.avatars.PresignDownload(ctx, key)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", s.internal(ctx, "presign avatar download", err, "account_id", a.ID)
	}
	return u, nil
}
