package database

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type User struct {
	Id           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

type Project struct {
	Id          uuid.UUID
	Name        string
	Description string
	CreatedById uuid.NullUUID
	CreatedAt   time.Time
}

type ChatRoom struct {
	Id           uuid.UUID
	ProjectId    uuid.NullUUID
	MlsId        sql.NullString
	PropertyId   sql.NullString
	CreatedAt    time.Time
	Project      *Project
	Members      []Membership
	MessageCount int
}

type Membership struct {
	ChatId    uuid.UUID
	UserId    uuid.UUID
	CreatedAt time.Time
	User      User
}

type Message struct {
	Id        uuid.UUID
	Seq       int64
	ChatId    uuid.UUID
	SenderId  uuid.UUID
	Content   string
	CreatedAt time.Time
	Sender    User
	Chat      ChatRoom
}

type CreateUserParams struct {
	Name         string
	Email        string
	PasswordHash string
	Role         string
}

type CreateProjectParams struct {
	Name        string
	Description string
	CreatedById uuid.NullUUID
}

type CreateChatRoomParams struct {
	ProjectId  uuid.NullUUID
	MlsId      sql.NullString
	PropertyId sql.NullString
}

type CreateMessageParams struct {
	ChatId   uuid.UUID
	SenderId uuid.UUID
	Content  string
}

type ListMessagesParams struct {
	ChatId uuid.NullUUID
	Limit  int
	Offset int
}
