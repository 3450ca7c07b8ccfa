package handler

import (
	"net/http"
	"strings"

	"github.com/paycore/payroll-backend/internal/auth/jwt"
	"github.com/paycore/payroll-backend/pkg/actor"
	"github.com/paycore/payroll-backend/pkg/errors"
	"github.com/paycore/payroll-backend/pkg/httputil"
)

// Authenticator verifies the bearer token and attaches the acting user
// to the request context.
func Authenticator(jwtMgr *jwt.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				httputil.Error(w, errors.Unauthorized("missing bearer token"))
				return
			}

			claims, err := jwtMgr.Validate(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				httputil.Error(w, err)
				return
			}

			ctx := actor.WithActor(r.Context(), &actor.Actor{
				Username: claims.Username,
				Role:     claims.Role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects requests whose actor lacks the administrator role.
// Route-level guard; services re-check through actor.RequireAdmin so the
// policy holds even for callers that bypass HTTP.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := actor.RequireAdmin(r.Context()); err != nil {
			httputil.Error(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}
