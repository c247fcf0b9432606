// Package passwords hashes passwords and enforces the strength policy.
package passwords

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/apperr"
	"golang.org/x/crypto/bcrypt"
)

var ErrWeakPassword = apperr.Validation("new_password", "weak_password", "password is too weak")

// Hasher hashes and verifies passwords with bcrypt.
type Hasher struct {
	cost int
}

func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

func (h *Hasher) Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Matches reports whether plaintext matches hash. Malformed hashes never
// match.
func (h *Hasher) Matches(hash, plaintext string) bool {
	if hash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	return err == nil
}

// UserAttributes are compared against a candidate password.
type UserAttributes struct {
	Email     string
	Username  string
	FirstName string
	LastName  string
}

// MaxBytes is the longest password bcrypt will hash.
const MaxBytes = 72

// Policy checks length, numeric-only, common passwords and similarity to
// the user's own attributes.
type Policy struct {
	MinLength int
}

func NewPolicy(minLength int) *Policy {
	if minLength <= 0 {
		minLength = 8
	}
	return &Policy{MinLength: minLength}
}

// Validate returns ErrWeakPassword (with a rule-specific message) for the
// first violated rule, using field as the error field.
func (p *Policy) Validate(field, password string, attrs UserAttributes) error {
	if len([]rune(password)) < p.MinLength {
		return p.violation(field, "too_short", fmt.Sprintf("password must contain at least %d characters", p.MinLength))
	}
	if len(password) > MaxBytes {
		return p.violation(field, "too_long", fmt.Sprintf("password must be at most %d bytes", MaxBytes))
	}
	if isNumeric(password) {
		return p.violation(field, "entirely_numeric", "password cannot be entirely numeric")
	}
	if commonPasswords[strings.ToLower(password)] {
		return p.violation(field, "too_common", "password is too common")
	}
	if attr, ok := similarAttribute(password, attrs); ok {
		return p.violation(field, "too_similar", "password is too similar to the "+attr)
	}
	return nil
}

func (p *Policy) violation(field, rule, msg string) error {
	e := ErrWeakPassword.WithMessage(msg).WithValue(rule)
	e.Field = field
	return e
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

var nonWord = regexp.MustCompile(`\W+`)

// similarAttribute flags a password that is mostly made of one of the
// user's attribute values or their word-parts.
func similarAttribute(password string, attrs UserAttributes) (string, bool) {
	pw := strings.ToLower(password)
	candidates := []struct {
		name  string
		value string
	}{
		{"email", attrs.Email},
		{"username", attrs.Username},
		{"first name", attrs.FirstName},
		{"last name", attrs.LastName},
	}
	for _, c := range candidates {
		value := strings.ToLower(strings.TrimSpace(c.value))
		if value == "" {
			continue
		}
		parts := append([]string{value}, nonWord.Split(value, -1)...)
		for _, part := range parts {
			if len(part) < 3 {
				continue
			}
			if pw == part {
				return c.name, true
			}
			// the part covers at least 70% of the password
			if strings.Contains(pw, part) && len(part)*10 >= len(pw)*7 {
				return c.name, true
			}
		}
	}
	return "", false
}

var commonPasswords = map[string]bool{
	"password": true, "password1": true, "password123": true, "passw0rd": true,
	"12345678": true, "123456789": true, "1234567890": true, "qwerty123": true,
	"qwertyuiop": true, "iloveyou": true, "sunshine": true, "princess": true,
	"football": true, "baseball": true, "welcome1": true, "letmein1": true,
	"abc12345": true, "abcd1234": true, "11111111": true, "00000000": true,
	"superman": true, "trustno1": true, "starwars": true, "whatever": true,
	"dragon123": true, "monkey123": true, "qwerty12": true, "1q2w3e4r": true,
	"zaq12wsx": true, "asdfghjkl": true, "master123": true, "admin123": true,
}
