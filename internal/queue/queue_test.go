package queue

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-dsl/pkg/errors"
)

// fakeRedis is an in-memory list with the LPUSH/BRPOP contract. BRPOP never blocks.
type fakeRedis struct {
	mu      sync.Mutex
	lists   map[string][]string
	pushErr error
	popErr  error
	closed  bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{lists: make(map[string][]string)}
}

func (f *fakeRedis) LPush(_ context.Context, key string, values ...any) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.pushErr != nil {
		return redis.NewIntResult(0, f.pushErr)
	}

	for _, v := range values {
		var item string
		switch x := v.(type) {
		case []byte:
			item = string(x)
		case string:
			item = x
		}

		f.lists[key] = append([]string{item}, f.lists[key]...)
	}

	return redis.NewIntResult(int64(len(f.lists[key])), nil)
}

func (f *fakeRedis) BRPop(ctx context.Context, _ time.Duration, keys ...string) *redis.StringSliceCmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return redis.NewStringSliceResult(nil, err)
	}

	if f.popErr != nil {
		return redis.NewStringSliceResult(nil, f.popErr)
	}

	for _, key := range keys {
		list := f.lists[key]
		if len(list) == 0 {
			continue
		}

		last := list[len(list)-1]
		f.lists[key] = list[:len(list)-1]

		return redis.NewStringSliceResult([]string{key, last}, nil)
	}

	return redis.NewStringSliceResult(nil, redis.Nil)
}

func (f *fakeRedis) Ping(_ context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeRedis) Close() error {
	f.closed = true

	return nil
}

type QueueTestSuite struct {
	suite.Suite
	client *fakeRedis
	queue  *RedisQueue
}

func TestQueueSuite(t *testing.T) {
	suite.Run(t, new(QueueTestSuite))
}

func (suite *QueueTestSuite) SetupTest() {
	suite.client = newFakeRedis()
	suite.queue = NewRedisQueueWithClient(suite.client, "", time.Millisecond, nil)
}

func (suite *QueueTestSuite) TestDefaults() {
	suite.Equal(DefaultName, suite.queue.Name())
	suite.NoError(suite.queue.HealthCheck(context.Background()))
	suite.NoError(suite.queue.Close())
	suite.True(suite.client.closed)
}

func (suite *QueueTestSuite) TestPublishEncodesJob() {
	job := NewJob("parameters { a: 1 }")

	suite.Require().NoError(suite.queue.Publish(context.Background(), job))
	suite.Require().Len(suite.client.lists[DefaultName], 1)

	var decoded map[string]any
	suite.Require().NoError(json.Unmarshal([]byte(suite.client.lists[DefaultName][0]), &decoded))
	suite.Equal(job.ID.String(), decoded["id"])
	suite.Equal("parameters { a: 1 }", decoded["source_code"])
}

func (suite *QueueTestSuite) TestPublishRejectsInvalidJobs() {
	err := suite.queue.Publish(context.Background(), Job{ID: uuid.Nil, Source: "x"})
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidJob))

	err = suite.queue.Publish(context.Background(), NewJob(""))
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidJob))
	suite.Empty(suite.client.lists[DefaultName])
}

func (suite *QueueTestSuite) TestPublishFailure() {
	suite.client.pushErr = stderrors.New("connection refused")

	err := suite.queue.Publish(context.Background(), NewJob("x"))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeQueuePublishFailed))
	suite.Contains(err.Error(), "connection refused")
}

func (suite *QueueTestSuite) TestConsumeInOrderAndSkipsBadPayloads() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := NewJob("first")
	second := NewJob("second")

	suite.Require().NoError(suite.queue.Publish(ctx, first))
	suite.client.LPush(ctx, DefaultName, "{not json")
	suite.client.LPush(ctx, DefaultName, `{"id":"00000000-0000-0000-0000-000000000000","source_code":"x"}`)
	suite.Require().NoError(suite.queue.Publish(ctx, second))

	var seen []string

	err := suite.queue.Consume(ctx, func(_ context.Context, job Job) error {
		seen = append(seen, job.Source)
		if len(seen) == 2 {
			cancel()
		}

		return stderrors.New("handler errors do not stop the loop")
	})

	suite.NoError(err)
	suite.Equal([]string{"first", "second"}, seen)
}

func (suite *QueueTestSuite) TestConsumeStopsOnCancelledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := suite.queue.Consume(ctx, func(context.Context, Job) error {
		called = true

		return nil
	})

	suite.NoError(err)
	suite.False(called)
}

func (suite *QueueTestSuite) TestConsumeRedisFailure() {
	suite.client.popErr = stderrors.New("broken pipe")

	err := suite.queue.Consume(context.Background(), func(context.Context, Job) error { return nil })
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeQueueConsumeFailed))
}
