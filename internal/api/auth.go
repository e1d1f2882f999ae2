// SPDX-License-Identifier: MIT

package api

import (
	"net/http"

	"assistbridge/internal/auth"
	"assistbridge/internal/log"
)

// authMiddleware enforces API token authentication. With no token configured
// the middleware fails closed unless anonymous access was explicitly enabled.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cfg := s.snapshotConfig()

		if cfg.APIToken == "" {
			if cfg.AuthAnonymous {
				next.ServeHTTP(w, r)
				return
			}
			log.FromContext(r.Context()).Error().
				Str("event", "auth.fail_closed").
				Msg("AB_API_TOKEN not set and AB_AUTH_ANONYMOUS!=true, denying access")
			writeUnauthorized(w)
			return
		}

		reqToken := auth.ExtractToken(r)
		logger := log.WithComponentFromContext(r.Context(), "auth")

		if reqToken == "" {
			logger.Warn().Str("event", "auth.missing_header").Msg("authorization header missing")
			writeUnauthorized(w)
			return
		}

		if !auth.AuthorizeToken(reqToken, cfg.APIToken) {
			logger.Warn().Str("event", "auth.invalid_token").Msg("invalid api token")
			writeUnauthorized(w)
			return
		}

		// Opaque bearer tokens pass through; JWTs additionally get their
		// subject logged for audit trails. Claims are informational only.
		if auth.LooksLikeJWT(reqToken) {
			if claims, err := auth.DecodeClaims(reqToken); err == nil {
				logger.Debug().
					Str("event", "auth.claims").
					Str(log.FieldSubject, claims.Subject).
					Str("issuer", claims.Issuer).
					Msg("decoded bearer claims")
			}
		}

		next.ServeHTTP(w, r)
	})
}
