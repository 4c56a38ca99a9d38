package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/careslot/careslot/internal/policy"
	"github.com/careslot/careslot/libs/auth"
)

const sessionCookie = "das-token"

type actorKey struct{}

// Actor is the authenticated caller attached to the request context.
type Actor struct {
	ID    string
	Role  string
	Email string
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}

// Authenticator verifies the session token from the cookie or the
// Authorization header and loads the caller into the request context.
type Authenticator struct {
	secret string
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: secret}
}

func (a *Authenticator) token(r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

// Require rejects unauthenticated requests. When roles are given, the
// caller's role must be one of them.
func (a *Authenticator) Require(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := a.token(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		claims, err := auth.ParseAndVerifyHS256(token, a.secret)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		if claims.Purpose != "" {
			// Purpose-scoped tokens (password reset) never grant a session.
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		actor := Actor{ID: claims.Sub, Role: claims.Role, Email: claims.Email}
		if len(roles) > 0 && !roleAllowed(actor.Role, roles) {
			writeError(w, http.StatusForbidden, "insufficient permissions")
			return
		}

		ctx := context.WithValue(r.Context(), actorKey{}, actor)
		next(w, r.WithContext(ctx))
	}
}

func roleAllowed(role string, roles []string) bool {
	for _, r := range roles {
		if role == r {
			return true
		}
	}
	return false
}

// allow is a shorthand over the policy table for handlers that already
// resolved ownership.
func allow(actor Actor, action policy.Action, owns bool) bool {
	return policy.Allowed(actor.Role, action, owns)
}
