package client

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/npezzotti/dealchat/internal/auth"
	"github.com/npezzotti/dealchat/internal/database"
	"github.com/npezzotti/dealchat/internal/testutil"
	"github.com/npezzotti/dealchat/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *stack) dial(t *testing.T, userId uuid.UUID) *Realtime {
	t.Helper()
	token, err := auth.IssueToken(testSigningKey, userId, time.Hour)
	require.NoError(t, err)

	rt, err := Dial(context.Background(), New(s.srv.URL, token).WebsocketURL(), token, testutil.TestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { rt.Close() })
	return rt
}

// collector gathers callback deliveries for assertions.
type collector struct {
	mu   sync.Mutex
	msgs []types.Message
}

func (c *collector) add(m types.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, m)
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

func TestRealtime_JoinAndReceive(t *testing.T) {
	st := newStack(t)
	userId, chatId := uuid.New(), uuid.New()
	st.repo.On("MembershipExists", chatId, userId).Return(true, nil)

	rt := st.dial(t, userId)
	got := &collector{}
	rt.OnNewMessage(got.add)

	require.NoError(t, rt.JoinChat(context.Background(), chatId))
	require.NoError(t, rt.JoinChat(context.Background(), chatId), "expected repeated join to succeed")

	msg := types.Message{Id: uuid.New(), ChatId: chatId, Content: "hi", Timestamp: time.Now().UTC()}
	assert.Equal(t, 1, st.cs.Publish(context.Background(), msg))
	assert.Eventually(t, func() bool { return got.len() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, rt.LeaveChat(context.Background(), chatId))
	assert.Equal(t, 0, st.cs.Publish(context.Background(), msg))
}

func TestRealtime_JoinRefused(t *testing.T) {
	st := newStack(t)
	userId, chatId, missingId := uuid.New(), uuid.New(), uuid.New()
	st.repo.On("MembershipExists", chatId, userId).Return(false, nil)
	st.repo.On("GetChatRoom", chatId).Return(database.ChatRoom{Id: chatId}, nil)
	st.repo.On("MembershipExists", missingId, userId).Return(false, nil)
	st.repo.On("GetChatRoom", missingId).Return(database.ChatRoom{}, database.ErrNotFound)

	rt := st.dial(t, userId)

	var apiErr *APIError
	err := rt.JoinChat(context.Background(), chatId)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)

	err = rt.JoinChat(context.Background(), missingId)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestRealtime_SingleCallback(t *testing.T) {
	st := newStack(t)
	userId, chatId := uuid.New(), uuid.New()
	st.repo.On("MembershipExists", chatId, userId).Return(true, nil)

	rt := st.dial(t, userId)
	first, second := &collector{}, &collector{}

	firstSub := rt.OnNewMessage(first.add)
	rt.OnNewMessage(second.add)
	firstSub.Unsubscribe()
	require.NoError(t, rt.JoinChat(context.Background(), chatId))

	st.cs.Publish(context.Background(), types.Message{Id: uuid.New(), ChatId: chatId})
	assert.Eventually(t, func() bool { return second.len() == 1 }, 2*time.Second, 10*time.Millisecond,
		"expected the latest callback to stay registered")
	assert.Equal(t, 0, first.len(), "expected the replaced callback to receive nothing")
}

func TestRealtime_ClosedConnection(t *testing.T) {
	st := newStack(t)
	rt := st.dial(t, uuid.New())

	require.NoError(t, st.cs.Shutdown(context.Background()))

	select {
	case <-rt.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("expected connection to stop after server shutdown")
	}
	assert.ErrorIs(t, rt.JoinChat(context.Background(), uuid.New()), ErrClosed)
}
