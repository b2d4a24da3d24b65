package client

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/npezzotti/dealchat/internal/transcript"
	"github.com/npezzotti/dealchat/internal/types"
)

// HistoryLimit is the page size loaded when a session opens.
const HistoryLimit = 100

// Session is one open chat screen: history loaded once, live events merged
// as they arrive, and sends echoed into the same transcript.
type Session struct {
	rest     *Client
	rt       *Realtime
	chatId   uuid.UUID
	userId   uuid.UUID
	tr       *transcript.Transcript
	sub      *Subscription
	onUpdate func([]types.Message)
}

// Open loads the newest page of history, subscribes to new messages and joins
// the chat. onUpdate, if set, is called with the full transcript whenever a
// push event adds a message.
func Open(ctx context.Context, rest *Client, rt *Realtime, chatId, userId uuid.UUID, onUpdate func([]types.Message)) (*Session, error) {
	s := &Session{
		rest:     rest,
		rt:       rt,
		chatId:   chatId,
		userId:   userId,
		tr:       transcript.New(),
		onUpdate: onUpdate,
	}

	page, err := rest.ListMessages(ctx, &chatId, 1, HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	s.tr.Merge(page.Data...)

	s.sub = rt.OnNewMessage(s.handleEvent)
	if err := rt.JoinChat(ctx, chatId); err != nil {
		s.sub.Unsubscribe()
		return nil, fmt.Errorf("join chat: %w", err)
	}

	return s, nil
}

func (s *Session) handleEvent(msg types.Message) {
	if msg.ChatId != s.chatId {
		return
	}
	if s.tr.Merge(msg) > 0 && s.onUpdate != nil {
		s.onUpdate(s.tr.Messages())
	}
}

// Send posts a message as the session user and merges the stored copy. The
// push event for the same message is dropped as a duplicate.
func (s *Session) Send(ctx context.Context, content string) (types.Message, error) {
	msg, err := s.rest.CreateMessage(ctx, s.chatId, s.userId, content)
	if err != nil {
		return types.Message{}, err
	}
	s.tr.Merge(msg)
	return msg, nil
}

func (s *Session) Messages() []types.Message {
	return s.tr.Messages()
}

func (s *Session) ChatId() uuid.UUID {
	return s.chatId
}

func (s *Session) Close(ctx context.Context) error {
	s.sub.Unsubscribe()
	return s.rt.LeaveChat(ctx, s.chatId)
}
