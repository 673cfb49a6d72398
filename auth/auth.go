// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidPassword = errors.New("invalid admin password")
	ErrNoPassword      = errors.New("admin password not configured")
)

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateSessionToken creates a random secure token for a visitor device
func GenerateSessionToken() (string, error) {
	b := make([]byte, 24) // 24 bytes = 192 bits of entropy
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	// URL-safe base64 without padding
	return strings.TrimRight(base64.URLEncoding.EncodeToString(b), "="), nil
}

// GenerateIdentity creates an anonymous visitor identity, recorded as the
// claimant of any box the visitor takes
func GenerateIdentity() (string, error) {
	id, err := GenerateID(8)
	if err != nil {
		return "", err
	}
	return "anon-" + id, nil
}

// PasswordChecker verifies the shared admin password
type PasswordChecker struct {
	sum [sha256.Size]byte
	set bool
}

// NewPasswordChecker returns a checker for password. An empty password
// rejects every attempt.
func NewPasswordChecker(password string) *PasswordChecker {
	if password == "" {
		return &PasswordChecker{}
	}
	return &PasswordChecker{sum: sha256.Sum256([]byte(password)), set: true}
}

// Authenticate compares digests so the check takes the same time whatever
// the input length
func (c *PasswordChecker) Authenticate(_ context.Context, password string) error {
	if !c.set {
		return ErrNoPassword
	}
	got := sha256.Sum256([]byte(password))
	if !hmac.Equal(got[:], c.sum[:]) {
		return ErrInvalidPassword
	}
	return nil
}
