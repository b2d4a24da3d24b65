package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/npezzotti/dealchat/internal/server"
	"github.com/npezzotti/dealchat/internal/types"
	"go.uber.org/zap"
)

var ErrClosed = errors.New("realtime connection closed")

// Realtime is a websocket connection to the chat server. Requests are matched
// to their responses by frame id; newMessage events go to the current
// OnNewMessage callback.
type Realtime struct {
	conn *websocket.Conn
	log  *zap.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	nextId  int
	pending map[int]chan *server.Response
	sub     *Subscription

	done chan struct{}
	err  error
}

// Subscription is a registered event callback.
type Subscription struct {
	rt *Realtime
	fn func(types.Message)
}

// Unsubscribe removes the callback. It does nothing if the callback was
// already replaced by a later registration.
func (s *Subscription) Unsubscribe() {
	s.rt.mu.Lock()
	defer s.rt.mu.Unlock()
	if s.rt.sub == s {
		s.rt.sub = nil
	}
}

func Dial(ctx context.Context, wsURL, token string, logger *zap.Logger) (*Realtime, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", wsURL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}

	rt := &Realtime{
		conn:    conn,
		log:     logger,
		pending: make(map[int]chan *server.Response),
		done:    make(chan struct{}),
	}
	go rt.readLoop()
	return rt, nil
}

func (rt *Realtime) readLoop() {
	defer close(rt.done)

	for {
		var msg server.ServerMessage
		if err := rt.conn.ReadJSON(&msg); err != nil {
			rt.mu.Lock()
			rt.err = err
			for id, ch := range rt.pending {
				close(ch)
				delete(rt.pending, id)
			}
			rt.mu.Unlock()
			return
		}

		switch {
		case msg.Response != nil:
			rt.mu.Lock()
			ch, ok := rt.pending[msg.Id]
			delete(rt.pending, msg.Id)
			rt.mu.Unlock()
			if ok {
				ch <- msg.Response
			} else {
				rt.log.Debug("unmatched response", zap.Int("id", msg.Id), zap.Int("code", msg.Response.Code))
			}
		case msg.NewMessage != nil:
			rt.mu.Lock()
			sub := rt.sub
			rt.mu.Unlock()
			if sub != nil {
				sub.fn(*msg.NewMessage)
			}
		}
	}
}

// OnNewMessage registers fn for newMessage events, replacing any earlier
// callback. fn runs on the connection's read goroutine.
func (rt *Realtime) OnNewMessage(fn func(types.Message)) *Subscription {
	sub := &Subscription{rt: rt, fn: fn}
	rt.mu.Lock()
	rt.sub = sub
	rt.mu.Unlock()
	return sub
}

func (rt *Realtime) request(ctx context.Context, msg server.ClientMessage) error {
	ch := make(chan *server.Response, 1)

	rt.mu.Lock()
	if rt.err != nil {
		rt.mu.Unlock()
		return ErrClosed
	}
	rt.nextId++
	msg.Id = rt.nextId
	rt.pending[msg.Id] = ch
	rt.mu.Unlock()

	rt.writeMu.Lock()
	err := rt.conn.WriteJSON(msg)
	rt.writeMu.Unlock()
	if err != nil {
		rt.mu.Lock()
		delete(rt.pending, msg.Id)
		rt.mu.Unlock()
		return fmt.Errorf("write frame: %w", err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return ErrClosed
		}
		if resp.Code != http.StatusOK {
			return &APIError{StatusCode: resp.Code, Message: resp.Error}
		}
		return nil
	case <-ctx.Done():
		rt.mu.Lock()
		delete(rt.pending, msg.Id)
		rt.mu.Unlock()
		return ctx.Err()
	}
}

func (rt *Realtime) JoinChat(ctx context.Context, chatId uuid.UUID) error {
	return rt.request(ctx, server.ClientMessage{JoinChat: &server.ChatTarget{ChatId: chatId}})
}

func (rt *Realtime) LeaveChat(ctx context.Context, chatId uuid.UUID) error {
	return rt.request(ctx, server.ClientMessage{LeaveChat: &server.ChatTarget{ChatId: chatId}})
}

// Done is closed when the connection stops reading.
func (rt *Realtime) Done() <-chan struct{} {
	return rt.done
}

func (rt *Realtime) Close() error {
	rt.writeMu.Lock()
	rt.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	rt.writeMu.Unlock()

	err := rt.conn.Close()
	<-rt.done
	return err
}
