// Package token inspects and mints the backend's HS256/EdDSA bearer tokens.
//
// A client cannot verify a token it did not sign, so [Inspect] reads claims without
// checking the signature and only uses them as hints (expiry at startup, identity for
// display). [Manager] issues and verifies tokens with a key and is used by the test
// backend and by tooling that holds the signing secret.
package token
