package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/labstack/echo/v4"
)

const (
	msgSignup          = "A mail has been sent to your mail address. Please verify before login."
	msgVerified        = "Email verified successfully!"
	msgDeleted         = "Your Account Has Been Deleted Successfully!"
	msgPasswordChanged = "Password changed successfully."
	msgResetSent       = "Password reset email has been sent."
	msgResetDone       = "Password has been reset successfully."
)

func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Malformed request body.")
	}
	return nil
}

func (s *Server) userData(c echo.Context, a *models.Account) (userData, error) {
	avatar, err := s.svc.AvatarURL(c.Request().Context(), a)
	if err != nil {
		return userData{}, err
	}
	return newUserData(a, avatar), nil
}

func (s *Server) signup(c echo.Context) error {
	var req signupRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	a, err := s.svc.Signup(c.Request().Context(), services.SignupInput{
		Email:    req.Email,
		Password: req.Password,
		Profile:  req.profile(),
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, signupResponse{Message: msgSignup, UserData: newUserData(a, "")})
}

func (s *Server) verifyEmail(c echo.Context) error {
	if _, err := s.svc.VerifyEmail(c.Request().Context(), c.Param("uid"), c.Param("token")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: msgVerified})
}

func (s *Server) login(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	res, err := s.svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	c.Set(accountKey, res.Account)

	data, err := s.userData(c, res.Account)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, loginResponse{
		Token:    tokenPair{Refresh: res.Session.Refresh, Access: res.Session.Access},
		UserData: data,
	})
}

func (s *Server) refresh(c echo.Context) error {
	var req refreshRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.Refresh == "" {
		return c.JSON(http.StatusBadRequest, map[string][]string{"refresh": {"This field is required."}})
	}

	pair, err := s.svc.RefreshSession(c.Request().Context(), req.Refresh)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tokenPair{Refresh: pair.Refresh, Access: pair.Access})
}

func (s *Server) profile(c echo.Context) error {
	a, err := s.svc.GetProfile(c.Request().Context(), currentAccount(c).ID)
	if err != nil {
		return err
	}
	data, err := s.userData(c, a)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, data)
}

// updateProfile serves PUT and PATCH alike: only the fields present in the
// body change.
func (s *Server) updateProfile(c echo.Context) error {
	var req profileRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	a, err := s.svc.UpdateProfile(c.Request().Context(), currentAccount(c).ID, req.patch())
	if err != nil {
		return err
	}
	data, err := s.userData(c, a)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, data)
}

func (s *Server) deleteAccount(c echo.Context) error {
	if err := s.svc.DeleteAccount(c.Request().Context(), currentAccount(c).ID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: msgDeleted})
}

func (s *Server) avatarUpload(c echo.Context) error {
	up, err := s.svc.RequestAvatarUpload(c.Request().Context(), currentAccount(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, avatarResponse{Key: up.Key, UploadURL: up.UploadURL})
}

func (s *Server) changePassword(c echo.Context) error {
	var req changePasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	fe := common.NewFieldErrors(common.ErrValidation)
	if req.OldPassword == "" {
		fe.Add("old_password", "This field is required.")
	}
	if req.NewPassword == "" {
		fe.Add("new_password", "This field is required.")
	}
	if err := fe.OrNil(); err != nil {
		return err
	}

	if err := s.svc.ChangePassword(c.Request().Context(), currentAccount(c).ID, req.OldPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: msgPasswordChanged})
}

func (s *Server) requestPasswordReset(c echo.Context) error {
	var req resetPasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	err := s.svc.RequestPasswordReset(c.Request().Context(), req.Email)
	if err != nil && !(s.opts.MaskUnknownResetEmail && errors.Is(err, common.ErrNotFound)) {
		if errors.Is(err, common.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string][]string{"email": {"No active account is registered with this email address."}})
		}
		return err
	}
	return c.JSON(http.StatusOK, detailResponse{Detail: msgResetSent})
}

func (s *Server) confirmPasswordReset(c echo.Context) error {
	var req resetPasswordConfirmRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := s.svc.ConfirmPasswordReset(c.Request().Context(), c.Param("uid"), c.Param("token"), req.NewPassword); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, detailResponse{Detail: msgResetDone})
}
