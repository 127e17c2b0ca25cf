package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name       string
		password   string
		violations []string
	}{
		{
			name:     "valid",
			password: "Abc123!",
		},
		{
			name:     "too short",
			password: "Ab1!",
			violations: []string{
				"password must be at least 6 characters",
			},
		},
		{
			name:     "missing uppercase",
			password: "abc123!",
			violations: []string{
				"password must include an uppercase letter",
			},
		},
		{
			name:     "missing digit and special",
			password: "Abcdefgh",
			violations: []string{
				"password must include a digit",
				"password must include a special character",
			},
		},
		{
			name:     "predictable",
			password: "aaaaaa",
			violations: []string{
				"password is too predictable",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			violations := ValidatePassword(tt.password)
			if len(tt.violations) == 0 {
				assert.Empty(t, violations)
				return
			}
			for _, want := range tt.violations {
				assert.Contains(t, violations, want)
			}
		})
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := hashPassword("Abc123!")
	require.NoError(t, err)
	assert.NotEqual(t, "Abc123!", hash)

	assert.True(t, verifyPassword(hash, "Abc123!"))
	assert.False(t, verifyPassword(hash, "abc123!"))
}

func TestValidEmail(t *testing.T) {
	assert.True(t, validEmail("a@b.com"))
	assert.True(t, validEmail("first.last+tag@example.co.uk"))

	assert.False(t, validEmail(""))
	assert.False(t, validEmail("not-an-email"))
	assert.False(t, validEmail("a @b.com"))
	assert.False(t, validEmail("Name <a@b.com>"))
}
