package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const accountColumns = `id, email, password_hash, status, is_staff, is_superuser,
		first_name, last_name, nick_name, address, state, city, street, house, avatar_key,
		last_login, date_joined, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	query :=
		`INSERT INTO accounts (email, password_hash, status, is_staff, is_superuser,
		     first_name, last_name, nick_name, address, state, city, street, house)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING id, date_joined, updated_at`

	p := a.Profile
	err := r.db.QueryRowContext(ctx, query,
		a.Email, a.PasswordHash, a.Status, a.IsStaff, a.IsSuperuser,
		p.FirstName, p.LastName, p.NickName, p.Address, p.State, p.City, p.Street, p.House,
	).Scan(&a.ID, &a.DateJoined, &a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, common.ErrAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return a, nil
}

func (r *PostgresRepository) CreateIfAbsent(ctx context.Context, a *models.Account) (bool, error) {
	query :=
		`INSERT INTO accounts (email, password_hash, status, is_staff, is_superuser)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT DO NOTHING`

	res, err := r.db.ExecContext(ctx, query, a.Email, a.PasswordHash, a.Status, a.IsStaff, a.IsSuperuser)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE lower(email) = lower($1)`, email)
}

func (r *PostgresRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.Account, error) {
	a := &models.Account{}
	var lastLogin sql.NullTime

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&a.ID, &a.Email, &a.PasswordHash, &a.Status, &a.IsStaff, &a.IsSuperuser,
		&a.Profile.FirstName, &a.Profile.LastName, &a.Profile.NickName, &a.Profile.Address,
		&a.Profile.State, &a.Profile.City, &a.Profile.Street, &a.Profile.House, &a.Profile.AvatarKey,
		&lastLogin, &a.DateJoined, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if lastLogin.Valid {
		t := lastLogin.Time
		a.LastLogin = &t
	}
	return a, nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id int64, from, to models.Status) error {
	query :=
		`UPDATE accounts SET status = $3, updated_at = now()
		 WHERE id = $1 AND status = $2`

	res, err := r.db.ExecContext(ctx, query, id, from, to)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: account %d is not %s", common.ErrPreconditionFailed, id, from)
	}
	return nil
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return r.execOne(ctx,
		`UPDATE accounts SET password_hash = $2, updated_at = now() WHERE id = $1`,
		id, passwordHash)
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, id int64, p models.Profile) error {
	return r.execOne(ctx,
		`UPDATE accounts SET first_name = $2, last_name = $3, nick_name = $4, address = $5,
		     state = $6, city = $7, street = $8, house = $9, avatar_key = $10, updated_at = now()
		 WHERE id = $1`,
		id, p.FirstName, p.LastName, p.NickName, p.Address, p.State, p.City, p.Street, p.House, p.AvatarKey)
}

func (r *PostgresRepository) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	return r.execOne(ctx, `UPDATE accounts SET last_login = $2 WHERE id = $1`, id, at)
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	return r.execOne(ctx, `DELETE FROM accounts WHERE id = $1`, id)
}

// execOne runs a statement expected to touch exactly one row.
func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
