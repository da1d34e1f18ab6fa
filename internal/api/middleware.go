package api

import (
	"context"
	"net/http"

	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
)

// Identity carries the authenticated owner account and the sub-actor
// (operator) within it, taken from the bearer token claims.
type Identity struct {
	Owner    string
	Operator string
}

type contextKey string

const identityKey contextKey = "identity"

// NewTokenAuth builds the HS256 verifier for bearer tokens carrying
// "username" and "operator" claims.
func NewTokenAuth(secret string) *jwtauth.JWTAuth {
	return jwtauth.New("HS256", []byte(secret), nil)
}

// IdentityMiddleware extracts the owner identity from a verified token and
// rejects requests without one before any handler runs.
func IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			unauthorized(w, r, "invalid token")
			return
		}

		owner, _ := claims["username"].(string)
		if owner == "" {
			unauthorized(w, r, "username is required")
			return
		}
		operator, _ := claims["operator"].(string)

		ctx := context.WithValue(r.Context(), identityKey, Identity{Owner: owner, Operator: operator})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IdentityFromContext returns the authenticated identity, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, map[string]string{"error": msg})
}
