package auth

import (
	"net/mail"
	"strings"
	"unicode"

	passwordvalidator "github.com/wagslane/go-password-validator"
	"golang.org/x/crypto/bcrypt"
)

const (
	passwordMinLength      = 6
	passwordMinEntropyBits = 30
	bcryptCost             = 10
)

// ValidatePassword checks the candidate against the account password policy
// and returns every violated rule, not just the first.
func ValidatePassword(pw string) []string {
	var violations []string

	if len(pw) < passwordMinLength {
		violations = append(violations, "password must be at least 6 characters")
	}

	var hasUpper, hasDigit, hasSpecial bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}
	if !hasUpper {
		violations = append(violations, "password must include an uppercase letter")
	}
	if !hasDigit {
		violations = append(violations, "password must include a digit")
	}
	if !hasSpecial {
		violations = append(violations, "password must include a special character")
	}

	if err := passwordvalidator.Validate(pw, passwordMinEntropyBits); err != nil {
		violations = append(violations, "password is too predictable")
	}

	return violations
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	return string(bytes), err
}

func verifyPassword(hashedPassword, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}

func validEmail(email string) bool {
	if email == "" || strings.ContainsAny(email, " \t") {
		return false
	}
	addr, err := mail.ParseAddress(email)
	// mail.ParseAddress accepts display names; only bare addresses are valid here.
	return err == nil && addr.Address == email
}
