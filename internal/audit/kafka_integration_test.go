//go:build integration

package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"complyhub/internal/audit"
	"complyhub/pkg/testutil/containers"
)

type KafkaStoreSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
}

func TestKafkaStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaStoreSuite))
}

func (s *KafkaStoreSuite) SetupSuite() {
	s.redpanda = containers.GetManager().GetRedpanda(s.T())
}

func (s *KafkaStoreSuite) TestEnsureTopicIsIdempotent() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.Require().NoError(audit.EnsureTopic(ctx, s.redpanda.Brokers, "complyhub.audit.idempotent", 1, 1))
	s.Require().NoError(audit.EnsureTopic(ctx, s.redpanda.Brokers, "complyhub.audit.idempotent", 1, 1))
}

func (s *KafkaStoreSuite) TestPublishedEventIsConsumable() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	topic := "complyhub.audit.events"
	s.Require().NoError(audit.EnsureTopic(ctx, s.redpanda.Brokers, topic, 1, 1))

	store, err := audit.NewKafkaStore(s.redpanda.Brokers, topic, nil)
	s.Require().NoError(err)
	defer store.Close()

	pub := audit.NewPublisher(store)
	s.Require().NoError(pub.Emit(ctx, audit.Event{
		Action:      audit.ActionControlTransitioned,
		SubjectType: "control",
		SubjectID:   "c-42",
		From:        "draft",
		To:          "review",
	}))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().Empty(fetches.Errors())
	records := fetches.Records()
	s.Require().NotEmpty(records)

	s.Equal("control:c-42", string(records[0].Key))
	var got audit.Event
	s.Require().NoError(json.Unmarshal(records[0].Value, &got))
	s.Equal(audit.ActionControlTransitioned, got.Action)
	s.Equal(audit.CategoryCompliance, got.Category)
}
