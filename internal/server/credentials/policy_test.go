package credentials

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolicy_Validate(t *testing.T) {
	t.Parallel()

	p := NewPolicy(8)
	subject := Subject{Email: "thomas.anderson@matrix.io", FirstName: "Thomas", LastName: "Anderson", NickName: "neo"}

	tests := []struct {
		name     string
		password string
		want     []string
	}{
		{
			name:     "strong",
			password: "correct-Horse-42-battery",
		},
		{
			name:     "short numeric",
			password: "1234",
			want: []string{
				"This password is too short. It must contain at least 8 characters.",
				"This password is too common.",
				"This password is entirely numeric.",
			},
		},
		{
			name:     "common",
			password: "Password123",
			want:     []string{"This password is too common."},
		},
		{
			name:     "contains last name",
			password: "xx-anderson-99",
			want:     []string{"The password is too similar to the email address."},
		},
		{
			name:     "close to first name",
			password: "Thomas1!",
			want:     []string{"The password is too similar to the email address."},
		},
		{
			name:     "numeric long unusual",
			password: "90817263544536",
			want:     []string{"This password is entirely numeric."},
		},
		{
			name:     "too long",
			password: strings.Repeat("xY7!", 40),
			want:     []string{"This password is too long. It must contain at most 128 characters."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Validate(tt.password, subject))
		})
	}
}

func TestPolicy_SimilarityNamesAttribute(t *testing.T) {
	t.Parallel()

	p := NewPolicy(8)
	got := p.Validate("Zion-Morpheus-7", Subject{Email: "x@y.io", NickName: "morpheus"})
	assert.Equal(t, []string{"The password is too similar to the nick name."}, got)
}

func TestPolicy_ShortAttributesIgnored(t *testing.T) {
	t.Parallel()

	p := NewPolicy(8)
	assert.Empty(t, p.Validate("ab-Quartz-Lamp-9", Subject{FirstName: "ab"}))
}

func TestPolicy_EmailDomainNotEmbedded(t *testing.T) {
	t.Parallel()

	p := NewPolicy(8)
	subject := Subject{Email: "jane.doe@gmail.com"}

	for _, pw := range []string{"xK9#comQz7!vLp2", "Rf8!gmailz9Tq#3", "Welcome-to-the-jungle-42!"} {
		assert.Empty(t, p.Validate(pw, subject), pw)
	}

	got := p.Validate("Qz7!doe-vLp2", subject)
	assert.Equal(t, []string{"The password is too similar to the email address."}, got)
}

func TestPolicy_EmptyPassword(t *testing.T) {
	t.Parallel()

	got := NewPolicy(8).Validate("", Subject{})
	assert.Equal(t, []string{"This password is too short. It must contain at least 8 characters."}, got)
}

func TestSimilarity(t *testing.T) {
	t.Parallel()
	assert.InDelta(t, 1.0, similarity("abc", "abc"), 1e-9)
	assert.InDelta(t, 0.0, similarity("abc", "xyz"), 1e-9)
	assert.InDelta(t, 1.0, similarity("", ""), 1e-9)
}
