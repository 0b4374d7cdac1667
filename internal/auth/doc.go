// Package auth provides authentication and authorisation for ForestOS Core.
//
// It has five parts:
//   - TokenCodec issues and decodes HS256/384/512 JWT access tokens
//   - HashPassword / VerifyPassword use Argon2id PHC strings, with bcrypt
//     verification for digests imported from older deployments
//   - Gate resolves a principal: a user from a bearer token, or a device
//     from its device id plus opaque device token
//   - RequireActive, RequireSuperuser and RequireOwnership decide whether a
//     resolved principal may act
//   - UserRepository persists user accounts in SQLite
//
// Every failure the Gate or the policy functions report is an *Error whose
// Kind tells the transport layer which status to send. Store failures are
// never converted into an *Error; they propagate unchanged.
//
// Ownership is checked on every request and never cached. A missing
// resource is reported as NotFound before ownership is considered.
package auth
