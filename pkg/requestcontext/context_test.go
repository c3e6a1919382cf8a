package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	id "complyhub/pkg/domain"
)

func TestActor(t *testing.T) {
	ctx := context.Background()
	assert.True(t, ActorID(ctx).IsNil())
	assert.Nil(t, Roles(ctx))

	actor := id.ActorID(id.NewControlID())
	ctx = WithActor(ctx, actor, " Manager", "reviewer", "manager", "")
	assert.Equal(t, actor, ActorID(ctx))
	assert.Equal(t, []string{"manager", "reviewer"}, Roles(ctx))
}

func TestNow(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, fixed, Now(WithTime(context.Background(), fixed)))
	assert.WithinDuration(t, time.Now(), Now(context.Background()), time.Second)
}

func TestClientMetadata(t *testing.T) {
	ctx := WithClientMetadata(context.Background(), "10.0.0.1", "Mozilla/5.0", "Firefox / Linux")
	ctx = WithRequestID(ctx, "req-1")
	assert.Equal(t, "10.0.0.1", ClientIP(ctx))
	assert.Equal(t, "Mozilla/5.0", UserAgent(ctx))
	assert.Equal(t, "Firefox / Linux", ClientSummary(ctx))
	assert.Equal(t, "req-1", RequestID(ctx))
}
