package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
)

type ContextKey string

const ActorKey ContextKey = "actor"

const (
	HeaderActorID   = "X-Actor-Id"
	HeaderActorName = "X-Actor-Name"
	HeaderActorRole = "X-Actor-Role"
)

// LoadActor puts the caller described by the X-Actor-* headers into the
// request context. Requests without an actor id pass through unchanged.
// Unknown roles are treated as viewer.
func LoadActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(HeaderActorID))
		if id == "" {
			next.ServeHTTP(w, r)
			return
		}

		actor := &bracket.Actor{
			ID:   id,
			Name: strings.TrimSpace(r.Header.Get(HeaderActorName)),
			Role: parseRole(r.Header.Get(HeaderActorRole)),
		}
		ctx := context.WithValue(r.Context(), ActorKey, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireActor refuses requests that did not identify a caller.
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetActor(r.Context()) == nil {
			http.Error(w, "missing "+HeaderActorID+" header", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func GetActor(ctx context.Context) *bracket.Actor {
	val := ctx.Value(ActorKey)
	if val == nil {
		return nil
	}
	actor, ok := val.(*bracket.Actor)
	if !ok {
		return nil
	}
	return actor
}

func parseRole(s string) bracket.Role {
	switch role := bracket.Role(strings.ToLower(strings.TrimSpace(s))); role {
	case bracket.RoleAdmin, bracket.RoleStaff:
		return role
	}
	return bracket.RoleViewer
}
