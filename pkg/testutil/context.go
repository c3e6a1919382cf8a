package testutil

import (
	"net/http"
	"time"

	id "complyhub/pkg/domain"
	"complyhub/pkg/requestcontext"
)

// WithActor authenticates req the way the auth middleware would. An actorID
// that is not a UUID leaves req anonymous.
func WithActor(req *http.Request, actorID string, roles ...string) *http.Request {
	parsed, err := id.ParseActorID(actorID)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithActor(req.Context(), parsed, roles...))
}

// WithTime pins the request-scoped clock.
func WithTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
