// Package accounts is the persistent account store.
package accounts

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Repository persists accounts. Lookups by email are case-insensitive and
// email uniqueness is enforced by the store itself.
type Repository interface {
	// Create inserts a and fills in its ID and timestamps. A duplicate email
	// yields common.ErrAlreadyExists.
	Create(ctx context.Context, a *models.Account) (*models.Account, error)
	// CreateIfAbsent inserts a unless the email is taken and reports
	// whether a row was written.
	CreateIfAbsent(ctx context.Context, a *models.Account) (bool, error)

	GetByID(ctx context.Context, id int64) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	// GetByIDForUpdate locks the row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Account, error)

	// UpdateStatus moves the account from -> to and fails with
	// common.ErrPreconditionFailed if it is no longer in from.
	UpdateStatus(ctx context.Context, id int64, from, to models.Status) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	UpdateProfile(ctx context.Context, id int64, p models.Profile) error
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
	Delete(ctx context.Context, id int64) error
}
