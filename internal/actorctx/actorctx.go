// Package actorctx carries the request's policy.Actor through a context.Context
// so code below the HTTP layer can read it without importing gin.
package actorctx

import (
	"context"

	"github.com/geocoder89/storejobs/internal/policy"
)

type ctxKey struct{}

func WithActor(ctx context.Context, actor policy.Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, actor)
}

// ActorFrom returns the anonymous actor when none was attached.
func ActorFrom(ctx context.Context) policy.Actor {
	a, _ := ctx.Value(ctxKey{}).(policy.Actor)
	return a
}

func UserIDFrom(ctx context.Context) (string, bool) {
	a := ActorFrom(ctx)
	return a.ID, a.IsAuthenticated()
}
