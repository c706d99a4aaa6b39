package notifications

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventuallyTimeout = time.Second
	testPollInterval      = 10 * time.Millisecond
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestTopicChannels(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "blogme:post:12", PostTopic(12).Channel())
	assert.Equal(t, "blogme:user:3", UserTopic(3).Channel())

	tests := []struct {
		channel string
		want    Topic
		ok      bool
	}{
		{"blogme:post:12", PostTopic(12), true},
		{"blogme:user:3", UserTopic(3), true},
		{"blogme:post:0", Topic{}, false},
		{"blogme:room:1", Topic{}, false},
		{"blogme:post:abc", Topic{}, false},
		{"notifications:user:1", Topic{}, false},
		{"blogme:post", Topic{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseChannel(tt.channel)
		assert.Equal(t, tt.ok, ok, tt.channel)
		assert.Equal(t, tt.want, got, tt.channel)
	}
}

func TestNotifier_NilRedisIsNoop(t *testing.T) {
	t.Parallel()
	n := NewNotifier(nil)
	assert.False(t, n.Enabled())
	assert.NoError(t, n.PublishEvent(context.Background(), PostTopic(1), Event{Type: "comment_created"}))
	assert.NoError(t, n.StartPatternSubscriber(context.Background(), func(Topic, string) {}))
}

func TestNotifier_PatternSubscriberRoutesTopics(t *testing.T) {
	t.Parallel()
	n := NewNotifier(newTestRedis(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Topic, 4)
	require.NoError(t, n.StartPatternSubscriber(ctx, func(topic Topic, _ string) {
		got <- topic
	}))

	require.NoError(t, n.PublishEvent(ctx, PostTopic(5), Event{Type: "post_reaction_updated"}))
	require.NoError(t, n.PublishEvent(ctx, UserTopic(9), Event{Type: "upload_progress"}))

	assert.Equal(t, PostTopic(5), <-got)
	assert.Equal(t, UserTopic(9), <-got)
}

func TestNotifier_SubscriberStopsOnCancel(t *testing.T) {
	t.Parallel()
	n := NewNotifier(newTestRedis(t))
	ctx, cancel := context.WithCancel(context.Background())

	var received int32
	require.NoError(t, n.StartPatternSubscriber(ctx, func(Topic, string) {
		atomic.AddInt32(&received, 1)
	}))

	require.NoError(t, n.Publish(context.Background(), PostTopic(1), []byte("before-cancel")))
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&received) == 1
	}, testEventuallyTimeout, testPollInterval)

	cancel()
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, n.Publish(context.Background(), PostTopic(1), []byte("after-cancel")))
	assert.Never(t, func() bool {
		return atomic.LoadInt32(&received) > 1
	}, 200*time.Millisecond, testPollInterval)
}

func TestHub_StartWiringDeliversAcrossRedis(t *testing.T) {
	t.Parallel()
	n := NewNotifier(newTestRedis(t))
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, hub.StartWiring(ctx, n))

	reader, err := hub.Register(1, nil)
	require.NoError(t, err)
	require.NoError(t, hub.Subscribe(reader, 42))

	pub := NewPublisher(n, hub)
	require.NoError(t, pub.Publish(ctx, PostTopic(42), Event{
		Type:    "comment_created",
		Payload: map[string]any{"post_id": 42},
	}))

	assert.Eventually(t, func() bool { return len(reader.Send) == 1 }, testEventuallyTimeout, testPollInterval)
	events := drain(reader)
	require.Len(t, events, 1)
	assert.Equal(t, "comment_created", events[0].Type)
}

func TestPublisher_LocalFallback(t *testing.T) {
	t.Parallel()
	hub := NewHub()
	c, err := hub.Register(2, nil)
	require.NoError(t, err)

	pub := NewPublisher(NewNotifier(nil), hub)
	require.NoError(t, pub.Publish(context.Background(), UserTopic(2), Event{Type: "upload_progress"}))

	events := drain(c)
	require.Len(t, events, 1)
	assert.Equal(t, "upload_progress", events[0].Type)

	var nilPub *Publisher
	assert.NoError(t, nilPub.Publish(context.Background(), UserTopic(2), Event{Type: "x"}))
}
