// Package auth resolves who is calling and hands services an explicit
// Identity.
//
// Three modes are supported, selected with AUTH_MODE:
//
//   - "none": every request runs as AnonymousIdentity (default)
//   - "local": accounts in the local database; browsers use session
//     cookies guarded by CSRF tokens, scripts use bearer API tokens
//   - "supabase": bearer access tokens issued by Supabase Auth, verified
//     with SUPABASE_JWT_SECRET; the sub claim is the user id
//
// Local mode settings:
//
//	AUTH_SESSION_SECRET=<hex>      # CSRF key, generated per process if empty
//	AUTH_SESSION_LIFETIME=24h
//	AUTH_TOKEN_EXPIRY=720h
//	AUTH_BCRYPT_COST=12
//	AUTH_SECURE_COOKIES=true
//	AUTH_MAX_LOGIN_ATTEMPTS=5
//	AUTH_LOCKOUT_DURATION=30m
//
// # Usage
//
//	mw := auth.NewMiddleware(cfg.Auth, service, sessions, verifier)
//	router.Use(mw.Handler())
//
//	identity := auth.GetIdentity(c)
package auth
