// Package tokens issues and checks the single-purpose tokens mailed to users
// for email verification and password reset.
//
// A token is "<issued-at base36>-<mac>". The MAC binds the purpose, the
// account id and the account fingerprint, so a token stops validating as soon
// as the account's security state changes (activation, new password, login).
// Nothing is stored server-side.
package tokens

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

// Purpose separates token families so one cannot stand in for another.
type Purpose string

const (
	PurposeVerifyEmail   Purpose = "verify-email"
	PurposeResetPassword Purpose = "reset-password"
)

// clockSkew tolerates issuers whose clocks run slightly ahead.
const clockSkew = time.Minute

// Generator issues and validates tokens.
type Generator struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Generator)

// WithClock injects a clock, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGenerator returns a Generator whose tokens expire after ttl.
func NewGenerator(secret []byte, ttl time.Duration, opts ...Option) (*Generator, error) {
	if len(secret) < common.MinSecretLength {
		return nil, common.ErrSecretTooShort
	}
	g := &Generator{secret: secret, ttl: ttl, now: time.Now}
	for _, o := range opts {
		o(g)
	}
	return g, nil
}

// Issue returns a token for the account identified by id in the state
// captured by fingerprint.
func (g *Generator) Issue(purpose Purpose, id int64, fingerprint []byte) string {
	ts := g.now().Unix()
	return strconv.FormatInt(ts, 36) + "-" + base64.RawURLEncoding.EncodeToString(g.mac(purpose, id, fingerprint, ts))
}

// Validate checks token against the account's current state. Every failure
// wraps common.ErrInvalidToken.
func (g *Generator) Validate(purpose Purpose, token string, id int64, fingerprint []byte) error {
	tsPart, macPart, ok := strings.Cut(token, "-")
	if !ok || tsPart == "" || macPart == "" {
		return fmt.Errorf("%w: malformed", common.ErrInvalidToken)
	}

	ts, err := strconv.ParseInt(tsPart, 36, 64)
	if err != nil || ts < 0 {
		return fmt.Errorf("%w: malformed timestamp", common.ErrInvalidToken)
	}

	got, err := base64.RawURLEncoding.DecodeString(macPart)
	if err != nil {
		return fmt.Errorf("%w: malformed signature", common.ErrInvalidToken)
	}
	if !hmac.Equal(got, g.mac(purpose, id, fingerprint, ts)) {
		return fmt.Errorf("%w: signature mismatch", common.ErrInvalidToken)
	}

	now := g.now()
	issued := time.Unix(ts, 0)
	if issued.After(now.Add(clockSkew)) {
		return fmt.Errorf("%w: issued in the future", common.ErrInvalidToken)
	}
	if now.Sub(issued) > g.ttl {
		return fmt.Errorf("%w: %w", common.ErrInvalidToken, common.ErrTokenExpired)
	}
	return nil
}

func (g *Generator) mac(purpose Purpose, id int64, fingerprint []byte, ts int64) []byte {
	m := hmac.New(sha256.New, g.secret)
	m.Write([]byte(purpose))
	m.Write([]byte{0})

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(id))
	m.Write(buf[:])
	m.Write(fingerprint)
	binary.BigEndian.PutUint64(buf[:], uint64(ts))
	m.Write(buf[:])

	return m.Sum(nil)
}

// EncodeID renders an account id for use in links: base64url, unpadded, of
// its decimal form.
func EncodeID(id int64) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatInt(id, 10)))
}

// DecodeID reverses EncodeID. Padded input is accepted.
func DecodeID(s string) (int64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return 0, fmt.Errorf("%w: bad encoded id", common.ErrInvalidToken)
	}
	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad encoded id", common.ErrInvalidToken)
	}
	return id, nil
}
