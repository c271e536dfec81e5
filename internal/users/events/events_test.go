package events

//go:generate mockgen -source=events.go -destination=mocks/mocks.go -package=mocks Producer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"roster/internal/platform/kafka/producer"
	"roster/internal/users/events/mocks"
	"roster/internal/users/models"
)

type KafkaPublisherSuite struct {
	suite.Suite
	ctx       context.Context
	producer  *mocks.MockProducer
	publisher *KafkaPublisher
	now       time.Time
}

func TestKafkaPublisherSuite(t *testing.T) {
	suite.Run(t, new(KafkaPublisherSuite))
}

func (s *KafkaPublisherSuite) SetupTest() {
	s.ctx = context.Background()
	s.producer = mocks.NewMockProducer(gomock.NewController(s.T()))
	s.publisher = NewKafka(s.producer, "roster.users", nil)
	s.now = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	s.publisher.now = func() time.Time { return s.now }
}

func (s *KafkaPublisherSuite) decode(msg *producer.Message) Event {
	var e Event
	s.Require().NoError(json.Unmarshal(msg.Value, &e))
	return e
}

func (s *KafkaPublisherSuite) TestUserInsertedEvent() {
	passID := uuid.New()
	user := models.User{UserID: "42", FirstName: "moh", LastName: "salah", BirthTS: "1", ImagePath: "42.png"}

	s.producer.EXPECT().ProduceAsync(gomock.Any()).DoAndReturn(func(msg *producer.Message) error {
		s.Equal("roster.users", msg.Topic)
		s.Equal("42", string(msg.Key))
		s.Equal(TypeUserInserted, msg.Headers["event_type"])
		e := s.decode(msg)
		s.Equal(TypeUserInserted, e.Type)
		s.Equal(passID, e.PassID)
		s.Equal(s.now, e.OccurredAt)
		s.Require().NotNil(e.User)
		s.Equal(user, *e.User)
		return nil
	})

	s.publisher.UserReconciled(s.ctx, passID, models.Outcome{Action: models.ActionInserted, User: user})
}

func (s *KafkaPublisherSuite) TestUserUpdatedEvent() {
	s.producer.EXPECT().ProduceAsync(gomock.Any()).DoAndReturn(func(msg *producer.Message) error {
		s.Equal(TypeUserUpdated, s.decode(msg).Type)
		return nil
	})
	s.publisher.UserReconciled(s.ctx, uuid.New(), models.Outcome{Action: models.ActionUpdated, User: models.User{UserID: "1"}})
}

func (s *KafkaPublisherSuite) TestUnchangedUserEmitsNothing() {
	s.publisher.UserReconciled(s.ctx, uuid.New(), models.Outcome{Action: models.ActionUnchanged, User: models.User{UserID: "1"}})
}

func (s *KafkaPublisherSuite) TestProducerFailureIsSwallowed() {
	s.producer.EXPECT().ProduceAsync(gomock.Any()).Return(errors.New("producer is closed"))
	s.producer.EXPECT().Produce(s.ctx, gomock.Any()).Return(errors.New("broker down"))

	s.publisher.UserReconciled(s.ctx, uuid.New(), models.Outcome{Action: models.ActionInserted, User: models.User{UserID: "1"}})
	s.publisher.PassCompleted(s.ctx, models.PassResult{PassID: uuid.New()})
}

func (s *KafkaPublisherSuite) TestPassCompletedEvent() {
	result := models.PassResult{PassID: uuid.New(), Total: 3, Success: 2, Published: true}
	s.producer.EXPECT().Produce(s.ctx, gomock.Any()).DoAndReturn(func(_ context.Context, msg *producer.Message) error {
		s.Equal(result.PassID.String(), string(msg.Key))
		e := s.decode(msg)
		s.Equal(TypePassCompleted, e.Type)
		s.Require().NotNil(e.Pass)
		s.Equal(3, e.Pass.Total)
		s.Equal(2, e.Pass.Success)
		s.Nil(e.User)
		return nil
	})
	s.publisher.PassCompleted(s.ctx, result)
}
