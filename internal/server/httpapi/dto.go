package httpapi

import (
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type signupRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	NickName  string `json:"nick_name"`
	Address   string `json:"address"`
	State     string `json:"state"`
	City      string `json:"city"`
	Street    string `json:"street"`
	House     string `json:"house"`
}

func (r signupRequest) profile() models.Profile {
	return models.Profile{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		NickName:  r.NickName,
		Address:   r.Address,
		State:     r.State,
		City:      r.City,
		Street:    r.Street,
		House:     r.House,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type profileRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	NickName  *string `json:"nick_name"`
	Address   *string `json:"address"`
	State     *string `json:"state"`
	City      *string `json:"city"`
	Street    *string `json:"street"`
	House     *string `json:"house"`
}

func (r profileRequest) patch() models.ProfilePatch {
	return models.ProfilePatch(r)
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type resetPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordConfirmRequest struct {
	NewPassword string `json:"new_password"`
}

type userData struct {
	ID         int64      `json:"id"`
	Email      string     `json:"email"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	NickName   string     `json:"nick_name"`
	Address    string     `json:"address"`
	State      string     `json:"state"`
	City       string     `json:"city"`
	Street     string     `json:"street"`
	House      string     `json:"house"`
	AvatarURL  string     `json:"avatar_url,omitempty"`
	IsActive   bool       `json:"is_active"`
	DateJoined time.Time  `json:"date_joined"`
	LastLogin  *time.Time `json:"last_login"`
}

func newUserData(a *models.Account, avatarURL string) userData {
	return userData{
		ID:         a.ID,
		Email:      a.Email,
		FirstName:  a.Profile.FirstName,
		LastName:   a.Profile.LastName,
		NickName:   a.Profile.NickName,
		Address:    a.Profile.Address,
		State:      a.Profile.State,
		City:       a.Profile.City,
		Street:     a.Profile.Street,
		House:      a.Profile.House,
		AvatarURL:  avatarURL,
		IsActive:   a.IsActive(),
		DateJoined: a.DateJoined,
		LastLogin:  a.LastLogin,
	}
}

type signupResponse struct {
	Message  string   `json:"message"`
	UserData userData `json:"user_data"`
}

type tokenPair struct {
	Refresh string `json:"refresh"`
	Access  string `json:"access"`
}

type loginResponse struct {
	Token    tokenPair `json:"token"`
	UserData userData  `json:"user_data"`
}

type avatarResponse struct {
	Key       string `json:"key"`
	UploadURL string `json:"upload_url"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type detailResponse struct {
	Detail string `json:"detail"`
}
