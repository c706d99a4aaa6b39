package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/gofiber/websocket/v2"
)

const (
	maxConnsPerUser      = 12
	maxTotalConns        = 10000
	maxTopicsPerClient   = 50
	clientMsgSubscribe   = "subscribe"
	clientMsgUnsubscribe = "unsubscribe"
	clientMsgPing        = "ping"
)

var (
	ErrUserConnLimit   = errors.New("user connection limit reached")
	ErrServerConnLimit = errors.New("server connection limit reached")
	ErrTopicLimit      = errors.New("too many subscriptions")
	ErrInvalidTopic    = errors.New("invalid topic")
)

// ClientMessage is a frame sent by the browser, e.g. {"type":"subscribe","post_id":12}.
type ClientMessage struct {
	Type   string `json:"type"`
	PostID uint   `json:"post_id"`
}

// Hub maps topics to the websocket clients interested in them.
// Every client is joined to its own user topic on Register.
type Hub struct {
	mu      sync.RWMutex
	topics  map[Topic]map[*Client]struct{}
	subs    map[*Client]map[Topic]struct{}
	perUser map[uint]int
	total   int
	closed  bool
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		topics:  make(map[Topic]map[*Client]struct{}),
		subs:    make(map[*Client]map[Topic]struct{}),
		perUser: make(map[uint]int),
	}
}

// Name identifies the hub in metrics.
func (h *Hub) Name() string { return "blog events" }

// Register adds a connection for userID and joins it to the user's topic.
func (h *Hub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || h.total >= maxTotalConns {
		return nil, ErrServerConnLimit
	}
	if h.perUser[userID] >= maxConnsPerUser {
		return nil, ErrUserConnLimit
	}

	c := newClient(h, conn, userID)
	h.subs[c] = make(map[Topic]struct{})
	h.perUser[userID]++
	h.total++
	h.join(c, UserTopic(userID))
	return c, nil
}

// Unregister removes the client from every topic and closes its send queue.
// Calling it twice is harmless.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	topics, ok := h.subs[c]
	if !ok {
		return
	}
	for t := range topics {
		h.leave(c, t)
	}
	delete(h.subs, c)
	h.total--
	if h.perUser[c.UserID]--; h.perUser[c.UserID] <= 0 {
		delete(h.perUser, c.UserID)
	}
	close(c.Send)
}

// Subscribe joins a client to a post topic.
func (h *Hub) Subscribe(c *Client, postID uint) error {
	if postID == 0 {
		return ErrInvalidTopic
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	topics, ok := h.subs[c]
	if !ok {
		return ErrInvalidTopic
	}
	t := PostTopic(postID)
	if _, already := topics[t]; already {
		return nil
	}
	if len(topics) >= maxTopicsPerClient {
		return ErrTopicLimit
	}
	h.join(c, t)
	return nil
}

// Unsubscribe leaves a post topic. The user topic cannot be left.
func (h *Hub) Unsubscribe(c *Client, postID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[c]; ok {
		h.leave(c, PostTopic(postID))
	}
}

func (h *Hub) join(c *Client, t Topic) {
	m, ok := h.topics[t]
	if !ok {
		m = make(map[*Client]struct{})
		h.topics[t] = m
	}
	m[c] = struct{}{}
	h.subs[c][t] = struct{}{}
}

func (h *Hub) leave(c *Client, t Topic) {
	if m, ok := h.topics[t]; ok {
		delete(m, c)
		if len(m) == 0 {
			delete(h.topics, t)
		}
	}
	delete(h.subs[c], t)
}

// Deliver queues payload for every client on topic and returns how many were reached.
func (h *Hub) Deliver(t Topic, payload []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	clients := h.topics[t]
	for c := range clients {
		c.TrySend(payload)
	}
	return len(clients)
}

// Subscribers returns the number of clients on a topic.
func (h *Hub) Subscribers(t Topic) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[t])
}

// Connections returns the number of registered clients.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.total
}

// HandleMessage applies one client frame. Replies go to the client's own queue.
func (h *Hub) HandleMessage(c *Client, raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.reply(c, Event{Type: "error", Payload: map[string]string{"message": "invalid message"}})
		return
	}

	switch msg.Type {
	case clientMsgSubscribe:
		if err := h.Subscribe(c, msg.PostID); err != nil {
			h.reply(c, Event{Type: "error", Payload: map[string]string{"message": err.Error()}})
			return
		}
		h.reply(c, Event{Type: "subscribed", Payload: map[string]uint{"post_id": msg.PostID}})
	case clientMsgUnsubscribe:
		h.Unsubscribe(c, msg.PostID)
		h.reply(c, Event{Type: "unsubscribed", Payload: map[string]uint{"post_id": msg.PostID}})
	case clientMsgPing:
		h.reply(c, Event{Type: "pong"})
	default:
		h.reply(c, Event{Type: "error", Payload: map[string]string{"message": "unknown message type"}})
	}
}

func (h *Hub) reply(c *Client, e Event) {
	b, err := e.Encode()
	if err != nil {
		return
	}
	c.TrySend(b)
}

// StartWiring forwards every message from the Redis pattern subscription to local clients.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartPatternSubscriber(ctx, func(t Topic, payload string) {
		h.Deliver(t, []byte(payload))
	})
}

// Shutdown refuses new clients and closes every send queue. Each WritePump then
// writes a going-away frame and closes its connection, so WritePump stays the only writer.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	goingAway := websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")
	for c := range h.subs {
		c.closeFrame = goingAway
		close(c.Send)
	}
	h.topics = make(map[Topic]map[*Client]struct{})
	h.subs = make(map[*Client]map[Topic]struct{})
	h.perUser = make(map[uint]int)
	h.total = 0
	return nil
}
