package server

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/azoguelabs/pvpcbill/pkg/log"
)

// authMiddleware validates the Bearer token on API requests when an OIDC
// audience is configured; otherwise the API is open.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = log.With(ctx, log.Ctx(ctx).With(slog.String("reqPath", r.URL.Path)))

		if s.oidcVerifier != nil {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeJSONError(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			token := strings.TrimPrefix(authHeader, "Bearer ")
			idToken, err := s.oidcVerifier(ctx, token)
			if err != nil {
				log.Ctx(ctx).WarnContext(ctx, "failed to verify token", slog.Any("error", err))
				writeJSONError(w, "invalid token", http.StatusUnauthorized)
				return
			}
			ctx = log.With(ctx, log.Ctx(ctx).With(slog.String("subject", idToken.Subject)))
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
