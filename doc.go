// Package auth is the CoachPro session core: credential storage, token
// refresh, inactivity expiry, route protection and the login/signup
// surface.
//
// The browser only holds an opaque visitor cookie. Everything a
// single page app would keep in localStorage or sessionStorage lives on
// the server, keyed by that visitor id:
//   - CredentialStore keeps the token, the refresh cookie and the Session
//     Record as one envelope in exactly one Scope. ScopePersistent backs
//     "remember me", ScopeSession lasts as long as the browser session.
//     Writing one scope always clears the other.
//   - TokenService talks to the auth API (login, register, profile,
//     refresh, logout) through APIClient and keeps the token fresh with
//     EnsureValidToken. IsTokenExpired decodes the exp claim without
//     verifying the signature; the auth API stays the authority.
//   - Monitor expires a session after a period without requests. Its
//     timer reschedules itself on every tick and is owned by the
//     MonitorRegistry, which stops it on logout, expiry or shutdown.
//   - Evaluate and RouteAuthenticator.ProtectedRoute gate protected pages
//     using local state only.
//   - LoginSurface applies validation and a cosmetic lockout before the
//     login call. It is a UX guard, not a security control.
//
// Manager wires all of it and AuthController exposes the routes on a
// go-router server backed by fiber. One-shot notices (login required,
// session expired, logged out) ride the go-router flash cookie across the
// redirect that raised them.
//
// Activity sinks:
//   - ActivitySink receives login, signup, logout, lockout, refresh and
//     expiry events. Sinks run best effort (errors are logged).
package auth
