package entrypoint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/mrlokans/shelf/internal/auth"
	"github.com/mrlokans/shelf/internal/config"
	"github.com/mrlokans/shelf/internal/database"
	"github.com/mrlokans/shelf/internal/database/users"
)

type authParts struct {
	middleware *auth.Middleware
	service    *auth.Service
	sessions   *auth.SessionManager
	csrfKey    []byte
}

func setupAuth(ctx context.Context, cfg *config.Config, db *database.Database) (authParts, error) {
	var a authParts

	switch cfg.Auth.Mode {
	case config.AuthModeLocal:
		a.service = auth.NewService(users.NewRepository(db.DB), cfg.Auth)

		sqlDB, err := db.SQLDB()
		if err != nil {
			return a, fmt.Errorf("session store: %w", err)
		}
		a.sessions, err = auth.NewSessionManager(sqlDB, cfg.Auth)
		if err != nil {
			return a, fmt.Errorf("initialize session manager: %w", err)
		}

		a.csrfKey, err = CSRFKey(cfg.Auth.SessionSecret)
		if err != nil {
			return a, err
		}
		if cfg.Auth.SessionSecret == "" {
			log.Warn("Generated CSRF key, set AUTH_SESSION_SECRET to keep it across restarts")
		}

		hasUsers, err := a.service.HasUsers(ctx)
		if err != nil {
			return a, fmt.Errorf("count users: %w", err)
		}
		if !hasUsers {
			log.Warn("No users found. Create one with `shelf create-user`.")
		}
		a.middleware = auth.NewMiddleware(cfg.Auth, a.service, a.sessions, nil)

	case config.AuthModeSupabase:
		if cfg.Auth.SupabaseJWTSecret == "" {
			return a, auth.ErrJWTSecretMissing
		}
		a.middleware = auth.NewMiddleware(cfg.Auth, nil, nil, auth.NewSupabaseVerifier(cfg.Auth.SupabaseJWTSecret))

	default:
		a.middleware = auth.NewMiddleware(cfg.Auth, nil, nil, nil)
	}

	log.WithField("mode", cfg.Auth.Mode).Info("Authentication configured")
	return a, nil
}

// CSRFKey derives the 32-byte CSRF key from the session secret. A 64-digit
// hex secret is used as is, anything else is hashed, and an empty secret
// yields a random key.
func CSRFKey(secret string) ([]byte, error) {
	if secret == "" {
		generated, err := auth.GenerateSessionSecret()
		if err != nil {
			return nil, fmt.Errorf("generate CSRF key: %w", err)
		}
		secret = generated
	}
	if key, err := hex.DecodeString(secret); err == nil && len(key) == 32 {
		return key, nil
	}
	sum := sha256.Sum256([]byte(secret))
	return sum[:], nil
}
