// Package httpserver exposes the courtside core over a JSON HTTP API.
package httpserver

import (
	"context"

	"github.com/gofrs/uuid/v5"
)

// Principal is the authenticated caller as supplied by the external
// authentication collaborator: an ID, a display name, and a contact address.
type Principal struct {
	ID      uuid.UUID
	Name    string
	Contact string
}

type ctxKey string

const principalKey ctxKey = "courtside.principal"

// WithPrincipal stores the authenticated principal in context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromCtx fetches the principal from context.
func PrincipalFromCtx(ctx context.Context) (Principal, bool) {
	v := ctx.Value(principalKey)
	if v == nil {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}
