// Package auth issues and parses the JWT session pair handed out at login.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token types carried in the "typ" claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims are the session token claims.
type Claims struct {
	jwt.RegisteredClaims
	AccountID int64  `json:"uid"`
	IsStaff   bool   `json:"staff"`
	IsActive  bool   `json:"active"`
	TokenType string `json:"typ"`
}

// SessionPair is returned by login and refresh.
type SessionPair struct {
	Access  string
	Refresh string
}

// SecretProvider yields the signing secret.
type SecretProvider interface {
	SigningSecret() []byte
}

// StaticSecret is a SecretProvider over a fixed value.
type StaticSecret []byte

func (s StaticSecret) SigningSecret() []byte { return s }

// Issuer signs and parses session tokens with HS256.
type Issuer struct {
	secret     SecretProvider
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewIssuer fails when the secret is shorter than common.MinSecretLength.
func NewIssuer(secret SecretProvider, issuer string, accessTTL, refreshTTL time.Duration, now func() time.Time) (*Issuer, error) {
	if len(secret.SigningSecret()) < common.MinSecretLength {
		return nil, common.ErrSecretTooShort
	}
	if now == nil {
		now = time.Now
	}
	return &Issuer{secret: secret, issuer: issuer, accessTTL: accessTTL, refreshTTL: refreshTTL, now: now}, nil
}

// IssueSessionPair mints an access and a refresh token for account.
func (i *Issuer) IssueSessionPair(account *models.Account) (*SessionPair, error) {
	access, err := i.sign(account, TokenTypeAccess, i.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := i.sign(account, TokenTypeRefresh, i.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &SessionPair{Access: access, Refresh: refresh}, nil
}

func (i *Issuer) sign(account *models.Account, typ string, ttl time.Duration) (string, error) {
	now := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   strconv.FormatInt(account.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		AccountID: account.ID,
		IsStaff:   account.IsStaff,
		IsActive:  account.IsActive(),
		TokenType: typ,
	})

	s, err := token.SignedString(i.secret.SigningSecret())
	if err != nil {
		return "", fmt.Errorf("signing %s token: %w", typ, err)
	}
	return s, nil
}

// ParseAccess validates an access token.
func (i *Issuer) ParseAccess(token string) (*Claims, error) {
	return i.parse(token, TokenTypeAccess)
}

// ParseRefresh validates a refresh token.
func (i *Issuer) ParseRefresh(token string) (*Claims, error) {
	return i.parse(token, TokenTypeRefresh)
}

func (i *Issuer) parse(tokenString, typ string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return i.secret.SigningSecret(), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", common.ErrUnauthenticated, common.ErrTokenExpired)
		}
		return nil, fmt.Errorf("%w: %v", common.ErrUnauthenticated, err)
	}
	if !token.Valid || claims.TokenType != typ || claims.AccountID <= 0 {
		return nil, common.ErrUnauthenticated
	}

	return claims, nil
}
