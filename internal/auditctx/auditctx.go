// Package auditctx carries who made a request down to the audit log.
package auditctx

import "context"

// Actor identifies the origin of a request. MemberID and TeamID stay empty
// for public endpoints such as the join page.
type Actor struct {
	MemberID  string
	TeamID    string
	IPAddress string
	UserAgent string
}

type actorContextKey struct{}

// WithActor returns a copy of ctx carrying actor.
func WithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// FromContext extracts the actor stored by WithActor.
func FromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}

// Merge fills the empty fields of actor from the one already in ctx.
func Merge(ctx context.Context, actor Actor) context.Context {
	if prev, ok := FromContext(ctx); ok {
		if actor.MemberID == "" {
			actor.MemberID = prev.MemberID
		}
		if actor.TeamID == "" {
			actor.TeamID = prev.TeamID
		}
		if actor.IPAddress == "" {
			actor.IPAddress = prev.IPAddress
		}
		if actor.UserAgent == "" {
			actor.UserAgent = prev.UserAgent
		}
	}
	return WithActor(ctx, actor)
}
