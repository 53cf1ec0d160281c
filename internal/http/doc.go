// Package http provides HTTP handlers and middleware for the mediation
// platform API.
//
// The router exposes the following endpoints:
//   - POST /auth/login: issues a session token. Body: {"email","password"}.
//     Response: {"token","expires_at","user"} with the token also surfaced
//     via the `X-Session-Token` header.
//   - POST /auth/logout: revokes the token from the Authorization header.
//     Returns 204 No Content.
//   - GET /health, GET /api: unauthenticated service metadata.
//   - GET /cases, POST /cases, GET /cases/{id}, PUT /cases/{id},
//     DELETE /cases/{id}, POST /cases/{id}/parties: case lifecycle
//     endpoints exchanging the `caseDTO` payload defined in
//     case_handler.go. Listings are scoped to the caller's role; updates
//     and deletions enforce per-case access.
//   - GET /sessions/case/{caseId}, POST /sessions, PUT /sessions/{id},
//     POST /sessions/{id}/participants: mediation session endpoints
//     exchanging the `sessionDTO` payload defined in session_handler.go.
//
// Request/response DTOs live alongside their respective handlers so
// tests and documentation share the same ground truth.
package http
