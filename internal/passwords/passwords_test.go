package passwords

import (
	"strings"
	"testing"

	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasherRoundTrip(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("NewStrongPass1")
	require.NoError(t, err)
	assert.NotEqual(t, "NewStrongPass1", hash)
	assert.True(t, h.Matches(hash, "NewStrongPass1"))
	assert.False(t, h.Matches(hash, "newstrongpass1"))
	assert.False(t, h.Matches("", ""))
	assert.False(t, h.Matches("not-a-hash", "x"))
}

func TestNewHasherClampsCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewHasher(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewHasher(99).cost)
}

func TestPolicyValidate(t *testing.T) {
	p := NewPolicy(8)
	attrs := UserAttributes{Email: "chef.mario@example.com", Username: "mariorossi", FirstName: "Bartholomew", LastName: "Rossi"}

	tests := []struct {
		password string
		rule     string
	}{
		{"abc", "too_short"},
		{"1234567", "too_short"},
		{"3141592653", "entirely_numeric"},
		{"password123", "too_common"},
		{"Qwertyuiop", "too_common"},
		{"mariorossi1", "too_similar"},
		{"Bartholomew9", "too_similar"},
		{strings.Repeat("Xy7!", 25), "too_long"},
		{strings.Repeat("Xy7!", 18), ""},
		{"NewStrongPass1", ""},
		{"tomato-basil-42", ""},
	}
	for _, tt := range tests {
		err := p.Validate("new_password", tt.password, attrs)
		if tt.rule == "" {
			assert.NoError(t, err, tt.password)
			continue
		}
		require.Error(t, err, tt.password)
		assert.ErrorIs(t, err, ErrWeakPassword, tt.password)
		ae := apperr.From(err)
		assert.Equal(t, apperr.KindValidation, ae.Kind)
		assert.Equal(t, "new_password", ae.Field)
		assert.Equal(t, tt.rule, ae.Value, tt.password)
	}
}

func TestPolicyDefaultsMinLength(t *testing.T) {
	assert.Equal(t, 8, NewPolicy(0).MinLength)
}
