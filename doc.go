// Package shopauth is the identity, credential, and device-session core of a
// storefront backend. It owns registration, login, refresh-token rotation,
// logout (single device and all devices), email verification, and password
// reset; every other backend module consumes it through a verified user
// identity and a per-request access-token validity check.
//
// The engine composes five parts:
//
//   - a credential store holding Argon2id password hashes, one credential per
//     (user, provider) pair;
//   - token primitives: keyed digests for opaque tokens at rest, signed JWT
//     access tokens, crypto-random refresh/verification tokens and numeric
//     one-time codes;
//   - a verification ledger of single-use, purpose-scoped, time-boxed tokens
//     shared by email verification and password reset;
//   - a device-session registry tracking one session per (user, device) with
//     the current refresh-token digest, expiry, and revocation state;
//   - the orchestrating Engine, the only component with cross-entity
//     transactional workflows.
//
// Raw refresh and verification tokens are bearer secrets delivered to the
// client once; storage only ever sees their keyed digest. Refresh tokens
// rotate on every use, so a presented token is spent whether or not the
// response reaches the client.
package shopauth
