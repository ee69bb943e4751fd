package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/filebox/pkg/apikey"
)

type authCtxKey struct{}

// RequestIDExtractor surfaces the chi request ID on log lines emitted within
// a request's context. Pass it to the logger constructors at startup.
func RequestIDExtractor(ctx context.Context) (slog.Attr, bool) {
	if id := middleware.GetReqID(ctx); id != "" {
		return slog.String("request_id", id), true
	}
	return slog.Attr{}, false
}

// authFromContext returns the authenticated key context, nil if absent.
func authFromContext(ctx context.Context) *apikey.Context {
	auth, _ := ctx.Value(authCtxKey{}).(*apikey.Context)
	return auth
}

// authenticate resolves the bearer secret into an apikey.Context and stores
// it on the request context. Missing or bad credentials end the request.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		secret, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || secret == "" {
			writeErrorCode(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "missing bearer credentials")
			return
		}

		auth, err := s.keys.Authenticate(r.Context(), secret)
		if err != nil {
			writeErrorCode(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "invalid or expired credentials")
			return
		}

		ctx := context.WithValue(r.Context(), authCtxKey{}, auth)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
