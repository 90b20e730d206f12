// Konfetti CRM Analytics - Cohort Revenue and Retention Analytics
// Copyright 2026 Konfetti
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/konfetti-app/konfetti-analytics

package auth

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost balances hash strength against login latency.
const bcryptCost = 12

// CredentialManager verifies the configured admin credential pair. The
// password is bcrypt-hashed once at startup so the plaintext never lives
// beyond construction.
type CredentialManager struct {
	username     string
	passwordHash []byte
}

// NewCredentialManager hashes the configured password and returns a manager.
func NewCredentialManager(username, password string) (*CredentialManager, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if password == "" {
		return nil, fmt.Errorf("password is required")
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	return &CredentialManager{
		username:     username,
		passwordHash: hash,
	}, nil
}

// Verify reports whether the given credentials match the configured pair.
// Both comparisons always run so a wrong username costs the same time as a
// wrong password.
func (m *CredentialManager) Verify(username, password string) bool {
	usernameMatch := subtle.ConstantTimeCompare([]byte(username), []byte(m.username)) == 1
	passwordMatch := bcrypt.CompareHashAndPassword(m.passwordHash, []byte(password)) == nil
	return usernameMatch && passwordMatch
}
