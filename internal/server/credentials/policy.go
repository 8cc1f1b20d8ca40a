package credentials

import (
	"bufio"
	"bytes"
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

//go:embed common_passwords.txt
var commonPasswordsRaw []byte

const (
	// MaxPasswordLength caps the input fed to the hasher.
	MaxPasswordLength = 128

	defaultMaxSimilarity = 0.7
	minAttributeLength   = 3
)

// Subject carries the account attributes a password must not resemble.
type Subject struct {
	Email     string
	FirstName string
	LastName  string
	NickName  string
}

type attribute struct {
	name  string
	value string
	// personal is the portion a password may not embed outright. For an
	// email address that is the local part; the domain only counts
	// through similarity.
	personal string
}

func (s Subject) attributes() []attribute {
	local := s.Email
	if i := strings.LastIndex(local, "@"); i >= 0 {
		local = local[:i]
	}
	return []attribute{
		{"email address", s.Email, local},
		{"first name", s.FirstName, s.FirstName},
		{"last name", s.LastName, s.LastName},
		{"nick name", s.NickName, s.NickName},
	}
}

// Policy checks candidate passwords. The zero value is not usable; build one
// with NewPolicy.
type Policy struct {
	minLength     int
	maxSimilarity float64
	common        map[string]struct{}
}

// NewPolicy returns a Policy requiring at least minLength characters.
func NewPolicy(minLength int) *Policy {
	return &Policy{
		minLength:     minLength,
		maxSimilarity: defaultMaxSimilarity,
		common:        loadCommonPasswords(commonPasswordsRaw),
	}
}

// MinLength returns the configured minimum length.
func (p *Policy) MinLength() int { return p.minLength }

// Validate returns every rule the password breaks, or nil.
func (p *Policy) Validate(password string, subject Subject) []string {
	var violations []string

	n := utf8.RuneCountInString(password)
	if n < p.minLength {
		violations = append(violations,
			fmt.Sprintf("This password is too short. It must contain at least %d characters.", p.minLength))
	}
	if n > MaxPasswordLength {
		violations = append(violations,
			fmt.Sprintf("This password is too long. It must contain at most %d characters.", MaxPasswordLength))
	}

	if attr, ok := p.similarAttribute(password, subject); ok {
		violations = append(violations, fmt.Sprintf("The password is too similar to the %s.", attr))
	}

	if _, ok := p.common[strings.ToLower(strings.TrimSpace(password))]; ok {
		violations = append(violations, "This password is too common.")
	}

	if password != "" && isNumeric(password) {
		violations = append(violations, "This password is entirely numeric.")
	}

	return violations
}

var nonWord = regexp.MustCompile(`\W+`)

func (p *Policy) similarAttribute(password string, subject Subject) (string, bool) {
	pw := strings.ToLower(password)
	if pw == "" {
		return "", false
	}

	for _, attr := range subject.attributes() {
		value := strings.ToLower(strings.TrimSpace(attr.value))
		if value == "" {
			continue
		}
		for _, part := range append([]string{value}, nonWord.Split(value, -1)...) {
			if utf8.RuneCountInString(part) >= minAttributeLength && similarity(pw, part) >= p.maxSimilarity {
				return attr.name, true
			}
		}

		personal := strings.ToLower(strings.TrimSpace(attr.personal))
		for _, part := range nonWord.Split(personal, -1) {
			if utf8.RuneCountInString(part) >= minAttributeLength && strings.Contains(pw, part) {
				return attr.name, true
			}
		}
	}
	return "", false
}

// similarity is 1 minus the normalised edit distance.
func similarity(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := max(la, lb)
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func loadCommonPasswords(raw []byte) map[string]struct{} {
	set := make(map[string]struct{}, 512)
	sc := bufio.NewScanner(bytes.NewReader(raw))
	for sc.Scan() {
		line := strings.ToLower(strings.TrimSpace(sc.Text()))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		set[line] = struct{}{}
	}
	return set
}
