package services

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// EnsureAdmin creates an active staff superuser unless the email is already
// registered. It reports whether an account was created. The password
// policy is not applied.
func (s *AccountService) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	email = models.NormalizeEmail(email)

	fe := validateEmail(email)
	if password == "" {
		fe.Add("password", "This field may not be blank.")
	}
	if err := fe.OrNil(); err != nil {
		return false, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return false, s.internal(ctx, "hash password", err)
	}

	created, err := s.repo().CreateIfAbsent(ctx, &models.Account{
		Email:        email,
		PasswordHash: hash,
		Status:       models.StatusActive,
		IsStaff:      true,
		IsSuperuser:  true,
	})
	if err != nil {
		return false, s.internal(ctx, "create admin", err)
	}

	if created {
		s.logger.Info(ctx, "admin account created", "email", email)
	} else {
		s.logger.Info(ctx, "admin account already exists", "email", email)
	}
	return created, nil
}
