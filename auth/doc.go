// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides the admin password check and token generation utilities.

# Admin Password

There is one shared admin password, configured with ADMIN_PASSWORD:

	checker := auth.NewPasswordChecker(cfg.AdminPassword)
	err := checker.Authenticate(ctx, password)

The checker keeps only the SHA-256 digest and compares digests with
hmac.Equal, so the comparison time does not depend on where the inputs
differ. A checker built from an empty password rejects everything with
ErrNoPassword. PasswordChecker satisfies board.Authenticator.

# Session Tokens

Session tokens are random 24-byte (192-bit) secrets:

	token, err := auth.GenerateSessionToken()

Tokens are URL-safe base64 encoded and sent back in the X-Session-Token
header. Each visitor device gets one when it opens the board.

# Identities

Each session also gets an anonymous identity:

	identity, err := auth.GenerateIdentity()  // "anon-" + 16 hex characters

The identity is stored as the claimant reference of any box the visitor
claims and is what the one-box-per-identity rule counts.

# ID Generation

Random hex IDs:

	id, err := auth.GenerateID(16)  // 32 hex characters
*/
package auth
