// Package notifications delivers real-time post and user events over Redis pub/sub and websockets.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"strings"

	"blogme/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "blogme:"

// TopicKind is the scope of a topic: a post's readers or a single user's sessions.
type TopicKind string

const (
	TopicPost TopicKind = "post"
	TopicUser TopicKind = "user"
)

// Topic names a set of interested websocket clients.
type Topic struct {
	Kind TopicKind
	ID   uint
}

func PostTopic(postID uint) Topic { return Topic{Kind: TopicPost, ID: postID} }

func UserTopic(userID uint) Topic { return Topic{Kind: TopicUser, ID: userID} }

// Channel returns the Redis channel for the topic, e.g. blogme:post:12.
func (t Topic) Channel() string {
	return channelPrefix + string(t.Kind) + ":" + strconv.FormatUint(uint64(t.ID), 10)
}

func (t Topic) String() string {
	return string(t.Kind) + ":" + strconv.FormatUint(uint64(t.ID), 10)
}

// ParseChannel is the inverse of Topic.Channel.
func ParseChannel(channel string) (Topic, bool) {
	rest, ok := strings.CutPrefix(channel, channelPrefix)
	if !ok {
		return Topic{}, false
	}
	kind, id, ok := strings.Cut(rest, ":")
	if !ok {
		return Topic{}, false
	}
	if kind != string(TopicPost) && kind != string(TopicUser) {
		return Topic{}, false
	}
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil || n == 0 {
		return Topic{}, false
	}
	return Topic{Kind: TopicKind(kind), ID: uint(n)}, true
}

// Event is the JSON envelope every client receives.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Encode marshals the event envelope.
func (e Event) Encode() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", e.Type, err)
	}
	return b, nil
}

// Notifier publishes events into Redis channels so every API instance can fan them out.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a Notifier. A nil client makes every publish a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether events leave the process.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// Publish sends an already encoded event to a topic's channel.
func (n *Notifier) Publish(ctx context.Context, topic Topic, payload []byte) error {
	if !n.Enabled() {
		return nil
	}
	return n.rdb.Publish(ctx, topic.Channel(), payload).Err()
}

// PublishEvent encodes and publishes an event.
func (n *Notifier) PublishEvent(ctx context.Context, topic Topic, event Event) error {
	b, err := event.Encode()
	if err != nil {
		return err
	}
	return n.Publish(ctx, topic, b)
}

// StartPatternSubscriber subscribes to every post and user channel and calls onMessage
// for each incoming message until ctx is cancelled.
func (n *Notifier) StartPatternSubscriber(
	ctx context.Context, onMessage func(topic Topic, payload string),
) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, channelPrefix+string(TopicPost)+":*", channelPrefix+string(TopicUser)+":*")
	// Wait for the subscription so messages published right after this call are not lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				topic, valid := ParseChannel(msg.Channel)
				if !valid {
					middleware.Logger.Warn("invalid notification channel", slog.String("channel", msg.Channel))
					continue
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in pattern subscriber",
								slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
						}
					}()
					onMessage(topic, msg.Payload)
				}()
			}
		}
	}()

	return nil
}
