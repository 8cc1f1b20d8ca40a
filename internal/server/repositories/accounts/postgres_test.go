package accounts

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columns = []string{
	"id", "email", "password_hash", "status", "is_staff", "is_superuser",
	"first_name", "last_name", "nick_name", "address", "state", "city", "street", "house", "avatar_key",
	"last_login", "date_joined", "updated_at",
}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewPostgresRepository(db), mock
}

func TestCreate_Success(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	joined := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+accounts\s*\(email,.*RETURNING\s+id,\s*date_joined,\s*updated_at$`).
		WithArgs("a@x.com", "$argon2id$...", "pending", false, false,
			"Ann", "", "annie", "", "", "", "", "").
		WillReturnRows(sqlmock.NewRows([]string{"id", "date_joined", "updated_at"}).AddRow(int64(42), joined, joined))

	a := &models.Account{
		Email:        "a@x.com",
		PasswordHash: "$argon2id$...",
		Status:       models.StatusPending,
		Profile:      models.Profile{FirstName: "Ann", NickName: "annie"},
	}
	got, err := repo.Create(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.ID)
	assert.Equal(t, joined, got.DateJoined)
}

func TestCreate_DuplicateEmail(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT\s+INTO\s+accounts`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "accounts_email_key"})

	_, err := repo.Create(context.Background(), &models.Account{Email: "a@x.com", Status: models.StatusPending})
	assert.ErrorIs(t, err, common.ErrAlreadyExists)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT\s+INTO\s+accounts`).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.Account{Email: "a@x.com"})
	require.Error(t, err)
	assert.Regexp(t, regexp.MustCompile(`db error: .*db down`), err.Error())
	assert.False(t, errors.Is(err, common.ErrAlreadyExists))
}

func TestCreateIfAbsent(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	q := `(?s)^INSERT\s+INTO\s+accounts.*ON\s+CONFLICT\s+DO\s+NOTHING$`

	mock.ExpectExec(q).WithArgs("admin@x.com", "hash", "active", true, true).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(q).WithArgs("admin@x.com", "hash", "active", true, true).
		WillReturnResult(sqlmock.NewResult(0, 0))

	admin := &models.Account{Email: "admin@x.com", PasswordHash: "hash", Status: models.StatusActive, IsStaff: true, IsSuperuser: true}

	created, err := repo.CreateIfAbsent(context.Background(), admin)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.CreateIfAbsent(context.Background(), admin)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestGetByEmail_Found(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	login := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)
	joined := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`(?s)^SELECT\s+id,\s*email,.*FROM\s+accounts\s+WHERE\s+lower\(email\)\s*=\s*lower\(\$1\)$`).
		WithArgs("A@x.com").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			int64(7), "a@x.com", "hash", "active", false, false,
			"Ann", "Lee", "annie", "Main st 1", "CA", "LA", "Main", "1", "avatars/7.png",
			login, joined, joined,
		))

	got, err := repo.GetByEmail(context.Background(), "A@x.com")
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, models.StatusActive, got.Status)
	assert.Equal(t, "annie", got.Profile.NickName)
	assert.Equal(t, "avatars/7.png", got.Profile.AvatarKey)
	require.NotNil(t, got.LastLogin)
	assert.Equal(t, login, *got.LastLogin)
}

func TestGetByID_NullLastLogin(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	joined := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`(?s)^SELECT\s+id,.*FROM\s+accounts\s+WHERE\s+id\s*=\s*\$1$`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			int64(7), "a@x.com", "hash", "pending", false, false,
			"", "", "", "", "", "", "", "", "",
			nil, joined, joined,
		))

	got, err := repo.GetByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Nil(t, got.LastLogin)
	assert.Equal(t, models.StatusPending, got.Status)
}

func TestGetByIDForUpdate_LocksRow(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)^SELECT\s+id,.*FROM\s+accounts\s+WHERE\s+id\s*=\s*\$1\s+FOR\s+UPDATE$`).
		WithArgs(int64(7)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByIDForUpdate(context.Background(), 7)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGet_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT`).WillReturnError(errors.New("conn reset"))

	_, err := repo.GetByEmail(context.Background(), "a@x.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error: conn reset")
}

func TestUpdateStatus(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	q := `(?s)^UPDATE\s+accounts\s+SET\s+status\s*=\s*\$3,\s*updated_at\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$1\s+AND\s+status\s*=\s*\$2$`

	mock.ExpectExec(q).WithArgs(int64(7), "pending", "active").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs(int64(7), "pending", "active").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpdateStatus(context.Background(), 7, models.StatusPending, models.StatusActive))

	err := repo.UpdateStatus(context.Background(), 7, models.StatusPending, models.StatusActive)
	assert.ErrorIs(t, err, common.ErrPreconditionFailed)
}

func TestUpdatePassword(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`UPDATE\s+accounts\s+SET\s+password_hash\s*=\s*\$2`).
		WithArgs(int64(7), "new-hash").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdatePassword(context.Background(), 7, "new-hash"))
}

func TestUpdateProfile(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`(?s)UPDATE\s+accounts\s+SET\s+first_name\s*=\s*\$2,.*avatar_key\s*=\s*\$10`).
		WithArgs(int64(7), "Ann", "Lee", "annie", "", "", "", "", "", "k").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateProfile(context.Background(), 7, models.Profile{FirstName: "Ann", LastName: "Lee", NickName: "annie", AvatarKey: "k"})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestTouchLastLogin(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	at := time.Date(2026, 3, 3, 3, 3, 3, 0, time.UTC)

	mock.ExpectExec(`UPDATE\s+accounts\s+SET\s+last_login\s*=\s*\$2\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs(int64(7), at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.TouchLastLogin(context.Background(), 7, at))
}

func TestDelete(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`^DELETE\s+FROM\s+accounts\s+WHERE\s+id\s*=\s*\$1$`).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`^DELETE\s+FROM\s+accounts`).
		WithArgs(int64(8)).
		WillReturnError(errors.New("boom"))

	require.NoError(t, repo.Delete(context.Background(), 7))

	err := repo.Delete(context.Background(), 8)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error: boom")
}
