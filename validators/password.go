package validators

import (
	"errors"
	"unicode"
)

var (
	ErrPasswordEmpty    = errors.New("no password provided")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters long")
	ErrPasswordTooLong  = errors.New("password can't be longer than 20 characters")
	ErrPasswordTooWeak  = errors.New("password must contain an upper-case letter, a lower-case letter, a digit and a symbol")
)

// PasswordValidator enforces the registration password policy:
// 8 to 20 characters with all four character classes present
func PasswordValidator(p string) error {
	if p == "" {
		return ErrPasswordEmpty
	}

	if len(p) < 8 {
		return ErrPasswordTooShort
	}

	if len(p) > 20 {
		return ErrPasswordTooLong
	}

	var upper, lower, digit, symbol bool

	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}

	if !upper || !lower || !digit || !symbol {
		return ErrPasswordTooWeak
	}

	return nil
}

// IsPolicyError reports whether err came from the password policy,
// as opposed to an internal failure
func IsPolicyError(err error) bool {
	return errors.Is(err, ErrPasswordEmpty) ||
		errors.Is(err, ErrPasswordTooShort) ||
		errors.Is(err, ErrPasswordTooLong) ||
		errors.Is(err, ErrPasswordTooWeak)
}
