package snapshot

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/suite"

	"roster/internal/platform/objectstore"
	"roster/internal/users/models"
	dErrors "roster/pkg/domain-errors"
)

const (
	bucket = "processeddata"
	key    = "output.csv"
)

type PublisherSuite struct {
	suite.Suite
	ctx       context.Context
	objects   *objectstore.InMemory
	publisher *Publisher
}

func TestPublisherSuite(t *testing.T) {
	suite.Run(t, new(PublisherSuite))
}

func (s *PublisherSuite) SetupTest() {
	s.ctx = context.Background()
	s.objects = objectstore.NewInMemory()
	_, err := s.objects.EnsureBucket(s.ctx, bucket)
	s.Require().NoError(err)
	s.publisher = New(s.objects, bucket, key, WithStagingDir(s.T().TempDir()))
}

func (s *PublisherSuite) published() string {
	data, err := s.objects.Get(s.ctx, bucket, key)
	s.Require().NoError(err)
	return string(data)
}

func (s *PublisherSuite) TestPublishesHeaderAndRowsInAppendOrder() {
	st, err := s.publisher.Begin("p1")
	s.Require().NoError(err)
	s.Require().NoError(st.Append(models.User{UserID: "2", FirstName: "b", LastName: "y", BirthTS: "2", ImagePath: "2.png"}))
	s.Require().NoError(st.Append(models.User{UserID: "1", FirstName: "a", LastName: "x", BirthTS: "-1"}))
	s.Equal(2, st.Rows())

	s.Require().NoError(s.publisher.Commit(s.ctx, st))

	s.Equal("user_id,first_name,last_name,birthts,img_path\n2,b,y,2,2.png\n1,a,x,-1,\n", s.published())
}

func (s *PublisherSuite) TestEmptyPassPublishesHeaderOnly() {
	st, err := s.publisher.Begin("p1")
	s.Require().NoError(err)
	s.Require().NoError(s.publisher.Commit(s.ctx, st))
	s.Equal("user_id,first_name,last_name,birthts,img_path\n", s.published())
}

func (s *PublisherSuite) TestQuotesValuesWithCommas() {
	st, err := s.publisher.Begin("p1")
	s.Require().NoError(err)
	s.Require().NoError(st.Append(models.User{UserID: "1", FirstName: "a,b", LastName: "x", BirthTS: "1"}))
	s.Require().NoError(s.publisher.Commit(s.ctx, st))
	s.Contains(s.published(), `1,"a,b",x,1,`)
}

func (s *PublisherSuite) TestCommitRemovesStagingState() {
	st, err := s.publisher.Begin("p1")
	s.Require().NoError(err)
	local := st.Path()
	s.Require().NoError(s.publisher.Commit(s.ctx, st))

	_, err = os.Stat(local)
	s.True(os.IsNotExist(err))

	ok, err := s.objects.Exists(s.ctx, bucket, s.publisher.StagingKey("p1"))
	s.Require().NoError(err)
	s.False(ok)
}

func (s *PublisherSuite) TestUploadFailureKeepsPreviousSnapshot() {
	s.objects.PutBytes(bucket, key, []byte("previous"))
	s.objects.SetFault(objectstore.OpPut, "", errors.New("disk full"))

	st, err := s.publisher.Begin("p2")
	s.Require().NoError(err)
	s.Require().NoError(st.Append(models.User{UserID: "1", FirstName: "a", LastName: "b", BirthTS: "1"}))

	err = s.publisher.Commit(s.ctx, st)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodePublishFault))
	s.Equal("previous", s.published())

	_, statErr := os.Stat(st.Path())
	s.True(os.IsNotExist(statErr))
}

func (s *PublisherSuite) TestSwapFailureKeepsPreviousSnapshotAndCleansStaging() {
	s.objects.PutBytes(bucket, key, []byte("previous"))
	s.objects.SetFault(objectstore.OpCopy, key, errors.New("copy refused"))

	st, err := s.publisher.Begin("p3")
	s.Require().NoError(err)

	err = s.publisher.Commit(s.ctx, st)
	s.True(dErrors.HasCode(err, dErrors.CodePublishFault))
	s.Equal("previous", s.published())

	ok, err := s.objects.Exists(s.ctx, bucket, s.publisher.StagingKey("p3"))
	s.Require().NoError(err)
	s.False(ok)
}

func (s *PublisherSuite) TestStagingCleanupFailureIsNotFatal() {
	s.objects.SetFault(objectstore.OpDelete, "", errors.New("delete refused"))

	st, err := s.publisher.Begin("p4")
	s.Require().NoError(err)
	s.Require().NoError(s.publisher.Commit(s.ctx, st))
	s.Contains(s.published(), "user_id")
}

func (s *PublisherSuite) TestMissingPreviousSnapshotIsTolerated() {
	ok, err := s.objects.Exists(s.ctx, bucket, key)
	s.Require().NoError(err)
	s.Require().False(ok)

	st, err := s.publisher.Begin("p5")
	s.Require().NoError(err)
	s.NoError(s.publisher.Commit(s.ctx, st))
}

func (s *PublisherSuite) TestDiscardedStagingCannotBeUsed() {
	st, err := s.publisher.Begin("p6")
	s.Require().NoError(err)
	st.Discard()
	st.Discard()

	s.Error(st.Append(models.User{UserID: "1"}))
	s.True(dErrors.HasCode(s.publisher.Commit(s.ctx, st), dErrors.CodePublishFault))
}

func (s *PublisherSuite) TestIdenticalPassesAreByteIdentical() {
	users := []models.User{
		{UserID: "1", FirstName: "a", LastName: "b", BirthTS: "1"},
		{UserID: "2", FirstName: "c", LastName: "d", BirthTS: "2", ImagePath: "2.png"},
	}
	var outputs []string
	for _, passID := range []string{"a", "b"} {
		st, err := s.publisher.Begin(passID)
		s.Require().NoError(err)
		for _, u := range users {
			s.Require().NoError(st.Append(u))
		}
		s.Require().NoError(s.publisher.Commit(s.ctx, st))
		outputs = append(outputs, s.published())
	}
	s.Equal(outputs[0], outputs[1])
}
