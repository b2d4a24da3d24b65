package types

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	Id    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  string    `json:"role"`
}

type ChatRef struct {
	Id         uuid.UUID  `json:"id"`
	ProjectId  *uuid.UUID `json:"projectId"`
	MlsId      *string    `json:"mlsId"`
	PropertyId *string    `json:"propertyId"`
}

type Project struct {
	Id          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
}

type ChatRoom struct {
	Id           uuid.UUID    `json:"id"`
	ProjectId    *uuid.UUID   `json:"projectId"`
	MlsId        *string      `json:"mlsId"`
	PropertyId   *string      `json:"propertyId"`
	Project      *Project     `json:"project,omitempty"`
	Members      []Membership `json:"groupChatUsers"`
	Messages     []Message    `json:"messages,omitempty"`
	MessageCount *int         `json:"messageCount,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
}

type Membership struct {
	ChatId    uuid.UUID `json:"chatId"`
	UserId    uuid.UUID `json:"userId"`
	User      *User     `json:"user,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Message is immutable once stored. Id is the idempotency key used by
// consumers to collapse duplicate deliveries; Seq orders messages that share
// a timestamp.
type Message struct {
	Id        uuid.UUID `json:"id"`
	Seq       int64     `json:"seq"`
	ChatId    uuid.UUID `json:"chatId"`
	SenderId  uuid.UUID `json:"senderId"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Sender    *User     `json:"sender,omitempty"`
	Chat      *ChatRef  `json:"chat,omitempty"`
}

// Before reports whether m sorts before o in transcript order.
func (m Message) Before(o Message) bool {
	if !m.Timestamp.Equal(o.Timestamp) {
		return m.Timestamp.Before(o.Timestamp)
	}
	return m.Seq < o.Seq
}

type Page[T any] struct {
	Data       []T `json:"data"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// NewPage builds the pagination envelope. totalPages is ceil(total/limit).
func NewPage[T any](data []T, total, page, limit int) Page[T] {
	if data == nil {
		data = []T{}
	}

	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}

	return Page[T]{
		Data:       data,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}
}
