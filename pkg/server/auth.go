package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/tariffbuilder/tariffbuilder/pkg/log"
)

// authMiddleware verifies the client's ID token cookie when an OIDC
// audience is configured. Without one the builder runs open, which is
// the normal mode for local use.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	if s.oidcVerifier == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = log.With(ctx, log.Ctx(ctx).With(slog.String("reqPath", r.URL.Path)))

		authCookie, err := r.Cookie(authTokenCookie)
		if err != nil && !errors.Is(err, http.ErrNoCookie) {
			log.Ctx(ctx).ErrorContext(ctx, "failed to get auth cookie", slog.Any("error", err))
			writeJSONError(w, "missing auth cookie", http.StatusBadRequest)
			return
		}
		if authCookie == nil {
			log.Ctx(ctx).WarnContext(ctx, "no auth cookie found")
			writeJSONError(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		idToken, err := s.oidcVerifier(ctx, authCookie.Value)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "auth token validation failed", slog.Any("error", err))
			writeJSONError(w, "invalid auth token", http.StatusUnauthorized)
			return
		}
		ctx = log.With(ctx, log.Ctx(ctx).With(slog.String("authSubject", idToken.Subject)))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
