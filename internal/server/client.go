package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/teris-io/shortid"
	"go.uber.org/zap"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingInterval      = (pongWait * 9) / 10
	maxMessageSize    = 1024
	DefaultSendBuffer = 256
)

// Client is one websocket connection. Each connection is served by a read
// pump and a write pump; only the write pump touches the socket for writes.
type Client struct {
	id         string
	conn       *websocket.Conn
	chatServer *ChatServer
	log        *zap.Logger
	userId     uuid.UUID
	send       chan *ServerMessage
	stop       chan struct{}
	stopOnce   sync.Once
}

func newClientId() string {
	id, err := shortid.Generate()
	if err != nil {
		return uuid.NewString()
	}
	return id
}

func NewClient(userId uuid.UUID, conn *websocket.Conn, cs *ChatServer, l *zap.Logger, sendBuffer int) *Client {
	if sendBuffer <= 0 {
		sendBuffer = DefaultSendBuffer
	}

	id := newClientId()
	return &Client{
		id:         id,
		conn:       conn,
		chatServer: cs,
		log:        l.With(zap.String("client_id", id), zap.Stringer("user_id", userId)),
		userId:     userId,
		send:       make(chan *ServerMessage, sendBuffer),
		stop:       make(chan struct{}),
	}
}

func (c *Client) Id() string {
	return c.id
}

func (c *Client) UserId() uuid.UUID {
	return c.userId
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Debug("write pump exiting")
	}()

	for {
		select {
		case msg := <-c.send:
			bytes, err := serializeMessage(msg)
			if err != nil {
				c.log.Error("failed to serialize message", zap.Error(err))
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			c.sendMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		case <-ticker.C:
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
		c.log.Debug("read pump exiting")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Warn("websocket read failed", zap.Error(err))
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Debug("error parsing message", zap.Error(err))
			c.queueMessage(ErrInvalidMessage(-1))
			continue
		}

		c.handle(&msg)
	}
}

func (c *Client) handle(msg *ClientMessage) {
	switch {
	case msg.JoinChat != nil:
		c.joinChat(msg)
	case msg.LeaveChat != nil:
		c.chatServer.Leave(c, msg.LeaveChat.ChatId)
		c.queueMessage(NoErrOK(msg.Id, nil))
	default:
		c.queueMessage(ErrInvalidMessage(msg.Id))
	}
}

func (c *Client) joinChat(msg *ClientMessage) {
	err := c.chatServer.Join(context.Background(), c, msg.JoinChat.ChatId)
	switch {
	case err == nil:
		c.queueMessage(NoErrOK(msg.Id, nil))
	case errors.Is(err, ErrChatNotFound):
		c.queueMessage(ErrChatNotFoundResponse(msg.Id))
	case errors.Is(err, ErrNotMember):
		c.queueMessage(ErrForbidden(msg.Id))
	case errors.Is(err, ErrClientGone):
		c.log.Debug("join after disconnect", zap.Stringer("chat_id", msg.JoinChat.ChatId))
	default:
		c.log.Error("join failed", zap.Stringer("chat_id", msg.JoinChat.ChatId), zap.Error(err))
		c.queueMessage(ErrInternalError(msg.Id))
	}
}

// queueMessage hands msg to the write pump without blocking. It reports
// false when the send buffer is full or the connection is stopping.
func (c *Client) queueMessage(msg *ServerMessage) bool {
	select {
	case <-c.stop:
		return false
	default:
	}

	select {
	case c.send <- msg:
	default:
		c.log.Debug("send buffer full, dropping message")
		return false
	}

	return true
}

func serializeMessage(msg *ServerMessage) ([]byte, error) {
	return json.Marshal(msg)
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Debug("write message failed", zap.Error(err))
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

func (c *Client) cleanup() {
	c.chatServer.DeregisterClient(c)
	c.stopClient()
}
