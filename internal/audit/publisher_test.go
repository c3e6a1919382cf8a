package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct{ err error }

func (f failingStore) Append(context.Context, Event) error { return f.err }

func TestPublisher_StoresEvents(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)

	err := pub.Emit(context.Background(), Event{
		Action:      ActionControlTransitioned,
		SubjectType: "control",
		SubjectID:   "c-1",
		From:        "draft",
		To:          "review",
	})
	require.NoError(t, err)

	events, err := store.ListBySubject(context.Background(), "control", "c-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, CategoryCompliance, events[0].Category)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestPublisher_ComplianceIsFailClosed(t *testing.T) {
	pub := NewPublisher(failingStore{err: errors.New("disk full")})

	err := pub.Emit(context.Background(), Event{Action: ActionControlTransitioned})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestPublisher_OperationsAreBestEffort(t *testing.T) {
	pub := NewPublisher(failingStore{err: errors.New("disk full")})
	assert.NoError(t, pub.Emit(context.Background(), Event{Action: ActionDomainCreated}))
}

func TestPublisher_RequiresAction(t *testing.T) {
	pub := NewPublisher(NewInMemoryStore())
	assert.Error(t, pub.Emit(context.Background(), Event{}))
}

func TestInMemoryStore_ListRecent(t *testing.T) {
	store := NewInMemoryStore()
	for _, a := range []Action{ActionStandardCreated, ActionDomainCreated, ActionControlCreated} {
		require.NoError(t, store.Append(context.Background(), Event{Action: a}))
	}
	recent, err := store.ListRecent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, ActionControlCreated, recent[1].Action)

	store.Clear()
	recent, err = store.ListRecent(context.Background(), 2)
	require.NoError(t, err)
	assert.Empty(t, recent)
}
