// Package token reads claims from management access tokens without
// verifying them. Verification is the API's job; the client only uses
// claims for defaults and diagnostics.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoSubject is returned when the token carries no sub claim.
var ErrNoSubject = errors.New("token has no subject")

func parse(raw string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	return claims, nil
}

// Subject returns the sub claim, which for user tokens is the user id.
func Subject(raw string) (string, error) {
	claims, err := parse(raw)
	if err != nil {
		return "", err
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return "", fmt.Errorf("read subject: %w", err)
	}
	if sub == "" {
		return "", ErrNoSubject
	}
	return sub, nil
}

// ExpiresAt returns the exp claim. ok is false when the token has none.
func ExpiresAt(raw string) (expiresAt time.Time, ok bool, err error) {
	claims, err := parse(raw)
	if err != nil {
		return time.Time{}, false, err
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read expiration: %w", err)
	}
	if exp == nil {
		return time.Time{}, false, nil
	}
	return exp.Time, true, nil
}

// IsExpired reports whether the token's exp claim is before now.
// Tokens without exp never expire.
func IsExpired(raw string, now time.Time) (bool, error) {
	exp, ok, err := ExpiresAt(raw)
	if err != nil || !ok {
		return false, err
	}
	return now.After(exp), nil
}
