package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/npezzotti/dealchat/internal/types"
)

type BaseMessage struct {
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientMessage is a frame sent by a websocket client. Exactly one of the
// operation fields is set.
type ClientMessage struct {
	BaseMessage
	JoinChat  *ChatTarget `json:"joinChat,omitempty"`
	LeaveChat *ChatTarget `json:"leaveChat,omitempty"`
}

type ChatTarget struct {
	ChatId uuid.UUID `json:"chatId"`
}

type ServerMessage struct {
	BaseMessage
	Response   *Response      `json:"response,omitempty"`
	NewMessage *types.Message `json:"newMessage,omitempty"`
}

type Response struct {
	Code  int    `json:"code"`
	Error string `json:"error,omitempty"`
	Data  any    `json:"data,omitempty"`
}

func newResponse(id, code int, errMsg string) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			Code:  code,
			Error: errMsg,
		},
	}
}

func NoErrOK(id int, data any) *ServerMessage {
	msg := newResponse(id, http.StatusOK, "")
	msg.Response.Data = data
	return msg
}

func ErrChatNotFoundResponse(id int) *ServerMessage {
	return newResponse(id, http.StatusNotFound, "chat not found")
}

func ErrForbidden(id int) *ServerMessage {
	return newResponse(id, http.StatusForbidden, "not a member of this chat")
}

func ErrInternalError(id int) *ServerMessage {
	return newResponse(id, http.StatusInternalServerError, "internal server error")
}

func ErrServiceUnavailable(id int) *ServerMessage {
	return newResponse(id, http.StatusServiceUnavailable, "service unavailable")
}

func ErrInvalidMessage(id int) *ServerMessage {
	if id < 0 {
		id = 0
	}
	return newResponse(id, http.StatusBadRequest, "invalid message format")
}

// NewMessageEvent wraps a stored message for delivery to room subscribers.
func NewMessageEvent(msg types.Message) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		NewMessage:  &msg,
	}
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
