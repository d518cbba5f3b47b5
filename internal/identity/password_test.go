package identity

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestValidatePassword(t *testing.T) {
	cases := map[string]error{
		"abc1":      ErrPasswordTooShort,
		"ção1234":   ErrPasswordTooShort,
		"ação1234":  nil,
		"abcdefgh":  ErrPasswordNoDigit,
		"12345678":  ErrPasswordNoLetter,
		"abcd1234":  nil,
		"Senha2024": nil,
	}
	for p, want := range cases {
		if got := ValidatePassword(p); got != want {
			t.Errorf("ValidatePassword(%q) = %v, want %v", p, got, want)
		}
		if want != nil && !IsPolicyError(want) {
			t.Errorf("%v should be a policy error", want)
		}
	}
}

func TestHashRoundTrip(t *testing.T) {
	hash, err := hashPassword("abcd1234", bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	if !checkPassword(hash, "abcd1234") || checkPassword(hash, "abcd12345") {
		t.Fatal("bcrypt check mismatch")
	}
}
