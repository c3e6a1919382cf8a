package service

import (
	"context"

	"complyhub/internal/lifecycle"
	"complyhub/pkg/requestcontext"
)

// ContextActorProvider reads the actor placed on the context by the auth middleware.
type ContextActorProvider struct{}

func (ContextActorProvider) CurrentActor(ctx context.Context) (lifecycle.Actor, error) {
	roles := requestcontext.Roles(ctx)
	actor := lifecycle.Actor{
		ID:    requestcontext.ActorID(ctx),
		Roles: make([]lifecycle.Role, 0, len(roles)),
	}
	for _, r := range roles {
		actor.Roles = append(actor.Roles, lifecycle.Role(r))
	}
	return actor, nil
}
