package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/npezzotti/dealchat/internal/database"
	"github.com/npezzotti/dealchat/internal/stats"
	"github.com/npezzotti/dealchat/internal/types"
	"go.uber.org/zap"
)

var (
	ErrServerClosed = errors.New("chat server is shut down")
	ErrNotMember    = errors.New("user is not a member of this chat")
	ErrChatNotFound = errors.New("chat not found")
	ErrClientGone   = errors.New("client is no longer connected")
)

// ChatServer fans stored messages out to the websocket connections
// subscribed to their room.
type ChatServer struct {
	log          *zap.Logger
	db           database.ChatRepository
	stats        stats.StatsProvider
	reg          *registry
	storeTimeout time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewChatServer(logger *zap.Logger, db database.ChatRepository, su stats.StatsProvider, storeTimeout time.Duration) (*ChatServer, error) {
	if db == nil {
		return nil, errors.New("chat server requires a repository")
	}

	su.RegisterMetric(stats.ActiveClients)
	su.RegisterMetric(stats.Subscriptions)
	su.RegisterMetric(stats.MessagesPublished)
	su.RegisterMetric(stats.Deliveries)
	su.RegisterMetric(stats.DeliveriesDropped)

	return &ChatServer{
		log:          logger,
		db:           db,
		stats:        su,
		reg:          newRegistry(),
		storeTimeout: storeTimeout,
	}, nil
}

// RegisterClient adds a connection. It fails once Shutdown has started.
func (cs *ChatServer) RegisterClient(c *Client) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.closed {
		return ErrServerClosed
	}

	cs.wg.Add(1)
	cs.reg.add(c)
	cs.stats.Incr(stats.ActiveClients)
	cs.log.Debug("client registered", zap.String("client_id", c.id), zap.Stringer("user_id", c.userId))
	return nil
}

// DeregisterClient removes a connection and all of its subscriptions. It is
// safe to call more than once.
func (cs *ChatServer) DeregisterClient(c *Client) {
	ok, n := cs.reg.remove(c)
	if !ok {
		return
	}

	cs.stats.Decr(stats.ActiveClients)
	if n > 0 {
		cs.stats.Add(stats.Subscriptions, -n)
	}
	cs.log.Debug("client deregistered", zap.String("client_id", c.id), zap.Int("subscriptions", n))
	cs.wg.Done()
}

// Join subscribes c to a chat after checking that its user belongs to it.
// Joining a chat twice is a no-op.
func (cs *ChatServer) Join(ctx context.Context, c *Client, chatId uuid.UUID) error {
	if cs.reg.isSubscribed(c, chatId) {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, cs.storeTimeout)
	defer cancel()

	ok, err := cs.db.MembershipExists(ctx, chatId, c.userId)
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		if _, err := cs.db.GetChatRoom(ctx, chatId); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return ErrChatNotFound
			}
			return fmt.Errorf("get chat room: %w", err)
		}
		return ErrNotMember
	}

	added, registered := cs.reg.join(c, chatId)
	if !registered {
		return ErrClientGone
	}
	if added {
		cs.stats.Incr(stats.Subscriptions)
		cs.log.Debug("client joined chat", zap.String("client_id", c.id), zap.Stringer("chat_id", chatId))
	}
	return nil
}

// Leave unsubscribes c from a chat. Leaving a chat that was never joined is a
// no-op.
func (cs *ChatServer) Leave(c *Client, chatId uuid.UUID) {
	if cs.reg.leave(c, chatId) {
		cs.stats.Decr(stats.Subscriptions)
		cs.log.Debug("client left chat", zap.String("client_id", c.id), zap.Stringer("chat_id", chatId))
	}
}

// Publish queues msg as a newMessage event for every connection subscribed to
// its chat and returns the number of connections it was queued for.
// Connections with a full send buffer miss the event; they never block or
// affect the other recipients.
func (cs *ChatServer) Publish(ctx context.Context, msg types.Message) int {
	cs.stats.Incr(stats.MessagesPublished)

	recipients := cs.reg.subscribers(msg.ChatId)
	if len(recipients) == 0 {
		return 0
	}

	ev := NewMessageEvent(msg)
	delivered, dropped := 0, 0
	for _, c := range recipients {
		if c.queueMessage(ev) {
			delivered++
			continue
		}
		dropped++
		cs.log.Debug("delivery missed",
			zap.String("client_id", c.id),
			zap.Stringer("message_id", msg.Id),
			zap.Stringer("chat_id", msg.ChatId),
		)
	}

	cs.stats.Add(stats.Deliveries, delivered)
	if dropped > 0 {
		cs.stats.Add(stats.DeliveriesDropped, dropped)
	}
	return delivered
}

// Shutdown stops every connection and waits for them to deregister or for
// ctx to expire.
func (cs *ChatServer) Shutdown(ctx context.Context) error {
	cs.mu.Lock()
	cs.closed = true
	cs.mu.Unlock()

	clients := cs.reg.all()
	cs.log.Info("shutting down chat server", zap.Int("clients", len(clients)))
	for _, c := range clients {
		c.stopClient()
	}

	done := make(chan struct{})
	go func() {
		cs.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
