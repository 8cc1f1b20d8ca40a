package services

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

const maxEmailLength = 254

var emailRules = []validation.Rule{
	validation.Required,
	validation.Length(3, maxEmailLength),
	is.Email,
}

type signupFields struct {
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

func validateSignup(in SignupInput) *common.FieldErrors {
	f := signupFields{
		Email:     in.Email,
		Password:  in.Password,
		FirstName: in.Profile.FirstName,
		LastName:  in.Profile.LastName,
		NickName:  in.Profile.NickName,
		Address:   in.Profile.Address,
		State:     in.Profile.State,
		City:      in.Profile.City,
		Street:    in.Profile.Street,
		House:     in.Profile.House,
	}
	err := validation.ValidateStruct(&f,
		validation.Field(&f.Email, emailRules...),
		validation.Field(&f.Password, validation.Required),
		validation.Field(&f.FirstName, validation.RuneLength(0, models.MaxNameLength)),
		validation.Field(&f.LastName, validation.RuneLength(0, models.MaxNameLength)),
		validation.Field(&f.NickName, validation.RuneLength(0, models.MaxNickNameLength)),
		validation.Field(&f.Address, validation.RuneLength(0, models.MaxAddressLength)),
		validation.Field(&f.State, validation.RuneLength(0, models.MaxRegionLength)),
		validation.Field(&f.City, validation.RuneLength(0, models.MaxRegionLength)),
		validation.Field(&f.Street, validation.RuneLength(0, models.MaxStreetLength)),
		validation.Field(&f.House, validation.RuneLength(0, models.MaxStreetLength)),
	)
	return toFieldErrors(err)
}

type profileFields struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	NickName  *string `json:"nick_name"`
	Address   *string `json:"address"`
	State     *string `json:"state"`
	City      *string `json:"city"`
	Street    *string `json:"street"`
	House     *string `json:"house"`
}

func validatePatch(p models.ProfilePatch) *common.FieldErrors {
	f := profileFields(p)
	err := validation.ValidateStruct(&f,
		validation.Field(&f.FirstName, validation.RuneLength(0, models.MaxNameLength)),
		validation.Field(&f.LastName, validation.RuneLength(0, models.MaxNameLength)),
		validation.Field(&f.NickName, validation.RuneLength(0, models.MaxNickNameLength)),
		validation.Field(&f.Address, validation.RuneLength(0, models.MaxAddressLength)),
		validation.Field(&f.State, validation.RuneLength(0, models.MaxRegionLength)),
		validation.Field(&f.City, validation.RuneLength(0, models.MaxRegionLength)),
		validation.Field(&f.Street, validation.RuneLength(0, models.MaxStreetLength)),
		validation.Field(&f.House, validation.RuneLength(0, models.MaxStreetLength)),
	)
	return toFieldErrors(err)
}

func validateEmail(email string) *common.FieldErrors {
	return toFieldErrors(validation.Errors{"email": validation.Validate(email, emailRules...)}.Filter())
}

func toFieldErrors(err error) *common.FieldErrors {
	fe := common.NewFieldErrors(common.ErrValidation)
	if err == nil {
		return fe
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		fe.Add("non_field_errors", err.Error())
		return fe
	}
	for field, e := range errs {
		if e != nil {
			fe.Add(field, e.Error())
		}
	}
	return fe
}
