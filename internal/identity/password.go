package identity

import (
	"errors"
	"regexp"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 8

var (
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrPasswordNoLetter = errors.New("password must contain at least one letter")
	ErrPasswordNoDigit  = errors.New("password must contain at least one digit")

	hasLetter = regexp.MustCompile(`[A-Za-z]`)
	hasDigit  = regexp.MustCompile(`[0-9]`)
)

// ValidatePassword enforces length, letter and digit rules, reporting the first rule broken.
func ValidatePassword(p string) error {
	switch {
	case utf8.RuneCountInString(p) < MinPasswordLength:
		return ErrPasswordTooShort
	case !hasLetter.MatchString(p):
		return ErrPasswordNoLetter
	case !hasDigit.MatchString(p):
		return ErrPasswordNoDigit
	}
	return nil
}

// IsPolicyError reports whether err is one of the password policy violations.
func IsPolicyError(err error) bool {
	return errors.Is(err, ErrPasswordTooShort) || errors.Is(err, ErrPasswordNoLetter) || errors.Is(err, ErrPasswordNoDigit)
}

func hashPassword(p string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(p), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func checkPassword(hash, p string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(p)) == nil
}
