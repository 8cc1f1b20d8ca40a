package models

import (
	"crypto/sha256"
	"encoding/binary"
	"strings"
	"time"
)

// Status is the lifecycle state of an account.
type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	// StatusDeleted is terminal and never persisted; the row is removed.
	StatusDeleted Status = "deleted"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusDeleted:
		return true
	}
	return false
}

// Account is a registered user.
type Account struct {
	ID           int64
	Email        string
	PasswordHash string
	Status       Status
	IsStaff      bool
	IsSuperuser  bool
	Profile      Profile
	LastLogin    *time.Time
	DateJoined   time.Time
	UpdatedAt    time.Time
}

// IsActive reports whether the account may authenticate.
func (a *Account) IsActive() bool {
	return a.Status == StatusActive
}

// Fingerprint digests the security-relevant state of the account. Any change
// to the email, password hash, status or last login produces a different
// value, which invalidates outstanding verification and reset tokens.
func (a *Account) Fingerprint() []byte {
	h := sha256.New()

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(a.ID))
	h.Write(buf[:])

	for _, s := range []string{a.Email, a.PasswordHash, string(a.Status)} {
		binary.BigEndian.PutUint64(buf[:], uint64(len(s)))
		h.Write(buf[:])
		h.Write([]byte(s))
	}

	var lastLogin int64
	if a.LastLogin != nil {
		lastLogin = a.LastLogin.UTC().Unix()
	}
	binary.BigEndian.PutUint64(buf[:], uint64(lastLogin))
	h.Write(buf[:])

	return h.Sum(nil)
}

// NormalizeEmail returns the canonical form used for identity lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
