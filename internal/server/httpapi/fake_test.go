package httpapi

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

// fakeService answers with the configured functions; unset ones fail with
// common.ErrInternal.
type fakeService struct {
	signup        func(services.SignupInput) (*models.Account, error)
	verifyEmail   func(uid, token string) (*models.Account, error)
	login         func(email, password string) (*services.LoginResult, error)
	refresh       func(token string) (*auth.SessionPair, error)
	authenticate  func(token string) (*models.Account, error)
	getProfile    func(id int64) (*models.Account, error)
	updateProfile func(id int64, p models.ProfilePatch) (*models.Account, error)
	deleteAccount func(id int64) error
	avatarUpload  func(id int64) (*services.AvatarUpload, error)
	avatarURL     func(a *models.Account) (string, error)
	changePw      func(id int64, oldPw, newPw string) error
	resetPw       func(email string) error
	confirmReset  func(uid, token, pw string) error
}

func (f *fakeService) Signup(_ context.Context, in services.SignupInput) (*models.Account, error) {
	if f.signup == nil {
		return nil, common.ErrInternal
	}
	return f.signup(in)
}

func (f *fakeService) VerifyEmail(_ context.Context, uid, token string) (*models.Account, error) {
	if f.verifyEmail == nil {
		return nil, common.ErrInternal
	}
	return f.verifyEmail(uid, token)
}

func (f *fakeService) Login(_ context.Context, email, password string) (*services.LoginResult, error) {
	if f.login == nil {
		return nil, common.ErrInternal
	}
	return f.login(email, password)
}

func (f *fakeService) RefreshSession(_ context.Context, token string) (*auth.SessionPair, error) {
	if f.refresh == nil {
		return nil, common.ErrInternal
	}
	return f.refresh(token)
}

func (f *fakeService) Authenticate(_ context.Context, token string) (*models.Account, error) {
	if f.authenticate == nil {
		return nil, common.ErrUnauthenticated
	}
	return f.authenticate(token)
}

func (f *fakeService) GetProfile(_ context.Context, id int64) (*models.Account, error) {
	if f.getProfile == nil {
		return nil, common.ErrInternal
	}
	return f.getProfile(id)
}

func (f *fakeService) UpdateProfile(_ context.Context, id int64, p models.ProfilePatch) (*models.Account, error) {
	if f.updateProfile == nil {
		return nil, common.ErrInternal
	}
	return f.updateProfile(id, p)
}

func (f *fakeService) DeleteAccount(_ context.Context, id int64) error {
	if f.deleteAccount == nil {
		return common.ErrInternal
	}
	return f.deleteAccount(id)
}

func (f *fakeService) RequestAvatarUpload(_ context.Context, id int64) (*services.AvatarUpload, error) {
	if f.avatarUpload == nil {
		return nil, common.ErrInternal
	}
	return f.avatarUpload(id)
}

func (f *fakeService) AvatarURL(_ context.Context, a *models.Account) (string, error) {
	if f.avatarURL == nil {
		return "", nil
	}
	return f.avatarURL(a)
}

func (f *fakeService) ChangePassword(_ context.Context, id int64, oldPw, newPw string) error {
	if f.changePw == nil {
		return common.ErrInternal
	}
	return f.changePw(id, oldPw, newPw)
}

func (f *fakeService) RequestPasswordReset(_ context.Context, email string) error {
	if f.resetPw == nil {
		return common.ErrInternal
	}
	return f.resetPw(email)
}

func (f *fakeService) ConfirmPasswordReset(_ context.Context, uid, token, pw string) error {
	if f.confirmReset == nil {
		return common.ErrInternal
	}
	return f.confirmReset(uid, token, pw)
}

var _ AccountService = (*fakeService)(nil)
