// Package auth is the identity and accountability core of the job board.
//
// Credentials:
//   - TokenService issues HS256 JWTs carrying subject id, email and role with a
//     fixed seven day lifetime, and verifies them back into a Principal.
//     Expired, forged and malformed credentials fail with the same error so
//     callers learn nothing about credential internals.
//   - There is no revocation. A credential stays valid until it expires, even
//     after logout or a role change. Every credential carries a jti so a
//     denylist can be layered on later.
//
// Access:
//   - AccessGuard reads a credential from the Authorization header (Bearer
//     scheme) or, failing that, from the session cookie. RequireIdentity and
//     RequireRole are the only authorization entry points handlers should use.
//
// Accountability:
//   - AuditRecorder builds append-only AuditEntry records with denormalized
//     actor data and before/after snapshots and hands them to an AuditStore.
//     Persistence failures surface as ErrAuditWriteFailed, which callers log
//     and otherwise ignore. AuditDispatcher decorates a store with a bounded
//     asynchronous queue.
package auth
