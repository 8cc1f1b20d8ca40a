package services

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/credentials"
	"github.com/dmitrijs2005/gophauth/internal/server/lifecycle"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/notify"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gophauth/internal/server/tokens"
	"github.com/stretchr/testify/require"
)

// --- in-memory store ---

type memRepo struct {
	mu     sync.Mutex
	rows   map[int64]models.Account
	nextID int64
	now    func() time.Time

	// failOn makes the named method fail with the given error.
	failOn map[string]error
	writes int
}

func newMemRepo(now func() time.Time) *memRepo {
	return &memRepo{rows: map[int64]models.Account{}, nextID: 1, now: now, failOn: map[string]error{}}
}

func (r *memRepo) fail(method string) error {
	return r.failOn[method]
}

func (r *memRepo) snapshot() (map[int64]models.Account, int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make(map[int64]models.Account, len(r.rows))
	for k, v := range r.rows {
		cp[k] = v
	}
	return cp, r.nextID
}

func (r *memRepo) restore(rows map[int64]models.Account, nextID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows, r.nextID = rows, nextID
}

func (r *memRepo) emailTaken(email string) bool {
	for _, a := range r.rows {
		if strings.EqualFold(a.Email, email) {
			return true
		}
	}
	return false
}

func (r *memRepo) insert(a *models.Account) *models.Account {
	cp := *a
	cp.ID = r.nextID
	r.nextID++
	cp.DateJoined = r.now().UTC()
	cp.UpdatedAt = cp.DateJoined
	r.rows[cp.ID] = cp
	r.writes++
	out := cp
	return &out
}

func (r *memRepo) Create(_ context.Context, a *models.Account) (*models.Account, error) {
	if err := r.fail("Create"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.emailTaken(a.Email) {
		return nil, common.ErrAlreadyExists
	}
	return r.insert(a), nil
}

func (r *memRepo) CreateIfAbsent(_ context.Context, a *models.Account) (bool, error) {
	if err := r.fail("CreateIfAbsent"); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.emailTaken(a.Email) {
		return false, nil
	}
	r.insert(a)
	return true, nil
}

func (r *memRepo) get(id int64) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rows[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &a, nil
}

func (r *memRepo) GetByID(_ context.Context, id int64) (*models.Account, error) {
	if err := r.fail("GetByID"); err != nil {
		return nil, err
	}
	return r.get(id)
}

func (r *memRepo) GetByIDForUpdate(_ context.Context, id int64) (*models.Account, error) {
	if err := r.fail("GetByIDForUpdate"); err != nil {
		return nil, err
	}
	return r.get(id)
}

func (r *memRepo) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	if err := r.fail("GetByEmail"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.rows {
		if strings.EqualFold(a.Email, email) {
			return &a, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memRepo) update(id int64, fn func(a *models.Account) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rows[id]
	if !ok {
		return common.ErrNotFound
	}
	if err := fn(&a); err != nil {
		return err
	}
	r.rows[id] = a
	r.writes++
	return nil
}

func (r *memRepo) UpdateStatus(_ context.Context, id int64, from, to models.Status) error {
	if err := r.fail("UpdateStatus"); err != nil {
		return err
	}
	return r.update(id, func(a *models.Account) error {
		if a.Status != from {
			return common.ErrPreconditionFailed
		}
		a.Status = to
		return nil
	})
}

func (r *memRepo) UpdatePassword(_ context.Context, id int64, hash string) error {
	if err := r.fail("UpdatePassword"); err != nil {
		return err
	}
	return r.update(id, func(a *models.Account) error {
		a.PasswordHash = hash
		return nil
	})
}

func (r *memRepo) UpdateProfile(_ context.Context, id int64, p models.Profile) error {
	if err := r.fail("UpdateProfile"); err != nil {
		return err
	}
	return r.update(id, func(a *models.Account) error {
		a.Profile = p
		return nil
	})
}

func (r *memRepo) TouchLastLogin(_ context.Context, id int64, at time.Time) error {
	if err := r.fail("TouchLastLogin"); err != nil {
		return err
	}
	return r.update(id, func(a *models.Account) error {
		a.LastLogin = &at
		return nil
	})
}

func (r *memRepo) Delete(_ context.Context, id int64) error {
	if err := r.fail("Delete"); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.rows, id)
	r.writes++
	return nil
}

var _ accounts.Repository = (*memRepo)(nil)

// memTx runs units of work against memRepo, restoring its contents when the
// function fails.
type memTx struct {
	mu        sync.Mutex
	repo      *memRepo
	commits   int
	rollbacks int
}

func (t *memTx) Conn() dbx.DBTX { return nil }

func (t *memTx) RunInTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rows, next := t.repo.snapshot()
	if err := fn(ctx, nil); err != nil {
		t.repo.restore(rows, next)
		t.rollbacks++
		return err
	}
	t.commits++
	return nil
}

type memManager struct{ repo *memRepo }

func (m memManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m memManager) Accounts(dbx.DBTX) accounts.Repository        { return m.repo }

// --- notifier and avatar store ---

type sentMessage struct {
	kind notify.Kind
	msg  notify.Message
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (n *recordingNotifier) record(kind notify.Kind, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentMessage{kind: kind, msg: msg})
	return nil
}

func (n *recordingNotifier) SendVerification(_ context.Context, msg notify.Message) error {
	return n.record(notify.KindVerification, msg)
}

func (n *recordingNotifier) SendPasswordReset(_ context.Context, msg notify.Message) error {
	return n.record(notify.KindPasswordReset, msg)
}

func (n *recordingNotifier) last(t *testing.T, kind notify.Kind) notify.Message {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.sent) - 1; i >= 0; i-- {
		if n.sent[i].kind == kind {
			return n.sent[i].msg
		}
	}
	t.Fatalf("no %s message sent", kind)
	return notify.Message{}
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type fakeAvatars struct {
	mu      sync.Mutex
	seq     int
	deleted []string
	err     error
	delErr  error
}

func (f *fakeAvatars) PresignUpload(_ context.Context, accountID int64) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", "", f.err
	}
	f.seq++
	key := "avatars/" + strconv.FormatInt(accountID, 10) + "/k" + strconv.Itoa(f.seq)
	return key, "https://s3.test/put/" + key, nil
}

func (f *fakeAvatars) PresignDownload(_ context.Context, key string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "https://s3.test/get/" + key, nil
}

func (f *fakeAvatars) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	return f.delErr
}

// --- fixture ---

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	svc      *AccountService
	repo     *memRepo
	tx       *memTx
	notifier *recordingNotifier
	avatars  *fakeAvatars
	clock    *testClock
	sessions *auth.Issuer
	tokens   *tokens.Generator
}

const testSecret = "test-secret-key-0123456789abcdefghijkl"

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := &testClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	repo := newMemRepo(clock.now)
	tx := &memTx{repo: repo}

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = testSecret
	cfg.PublicBaseURL = "https://auth.example.com/"

	hasher, err := credentials.NewHasher(credentials.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	require.NoError(t, err)

	gen, err := tokens.NewGenerator([]byte(testSecret), cfg.AccountTokenValidityDuration, tokens.WithClock(clock.now))
	require.NoError(t, err)

	issuer, err := auth.NewIssuer(auth.StaticSecret(testSecret), "gophauth",
		cfg.AccessTokenValidityDuration, cfg.RefreshTokenValidityDuration, clock.now)
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	av := &fakeAvatars{}

	svc := NewAccountService(tx, memManager{repo: repo}, cfg, Collaborators{
		Hasher:   hasher,
		Policy:   credentials.NewPolicy(cfg.MinPasswordLength),
		Tokens:   gen,
		Sessions: issuer,
		Machine:  lifecycle.New(logging.Nop(), lifecycle.WithClock(clock.now)),
		Notifier: notifier,
		Avatars:  av,
		Logger:   logging.Nop(),
		Now:      clock.now,
	})

	return &fixture{svc: svc, repo: repo, tx: tx, notifier: notifier, avatars: av, clock: clock, sessions: issuer, tokens: gen}
}

const strongPassword = "Str0ngP@ss!"

// signup registers email and returns the account together with the uid and
// token from the verification link.
func (f *fixture) signup(t *testing.T, email string) (*models.Account, string, string) {
	t.Helper()
	a, err := f.svc.Signup(context.Background(), SignupInput{Email: email, Password: strongPassword})
	require.NoError(t, err)
	uid, token := linkParts(t, f.notifier.last(t, notify.KindVerification).Link)
	return a, uid, token
}

// active registers and verifies email.
func (f *fixture) active(t *testing.T, email string) *models.Account {
	t.Helper()
	_, uid, token := f.signup(t, email)
	a, err := f.svc.VerifyEmail(context.Background(), uid, token)
	require.NoError(t, err)
	return a
}

// linkParts extracts uid and token from ".../<uid>/<token>/" or
// "...?uid=..&token=..".
func linkParts(t *testing.T, link string) (string, string) {
	t.Helper()
	if i := strings.Index(link, "?"); i >= 0 {
		var uid, token string
		for _, kv := range strings.Split(link[i+1:], "&") {
			k, v, _ := strings.Cut(kv, "=")
			switch k {
			case "uid":
				uid = v
			case "token":
				token = v
			}
		}
		return uid, token
	}
	parts := strings.Split(strings.TrimSuffix(link, "/"), "/")
	require.GreaterOrEqual(t, len(parts), 2, link)
	return parts[len(parts)-2], parts[len(parts)-1]
}

var errStore = errors.New("connection reset by peer")
