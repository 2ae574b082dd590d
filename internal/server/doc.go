// Package server provides HTTP routing, middleware, and the group listening endpoints.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns internally.
//
// # Group Endpoints
//
// [GroupHandler] exposes the whole boundary surface:
//
//	GET  /          → health/status JSON
//	GET  /login     → begin a flow, redirect to the provider consent page
//	GET  /callback  → redeem the state token, exchange the code, fetch and merge top tracks
//	GET  /aggregate → group leaderboard in canonical order
//	GET  /roster    → participants by join time
//	POST /reset     → clear all group state
//
// The callback validates the state parameter (CSRF protection) through
// [flows.Registry], so each login attempt completes at most once. Upstream
// calls run before the board lock is taken; only the final ingest commit
// serializes against other participants.
//
// # App
//
// [App] wraps [http.Server] with context-driven graceful shutdown.
package server
