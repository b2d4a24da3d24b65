package database

import (
	"context"

	"github.com/google/uuid"
)

type ChatRepository interface {
	Ping(ctx context.Context) error
	CreateUser(ctx context.Context, params CreateUserParams) (User, error)
	GetUser(ctx context.Context, id uuid.UUID) (User, error)
	CreateProject(ctx context.Context, params CreateProjectParams) (Project, error)
	CreateChatRoom(ctx context.Context, params CreateChatRoomParams) (ChatRoom, error)
	GetChatRoom(ctx context.Context, id uuid.UUID) (ChatRoom, error)
	ListChatRooms(ctx context.Context) ([]ChatRoom, error)
	AddMember(ctx context.Context, chatId, userId uuid.UUID) (Membership, error)
	ListMembers(ctx context.Context, chatId uuid.UUID) ([]Membership, error)
	MembershipExists(ctx context.Context, chatId, userId uuid.UUID) (bool, error)
	CreateMessage(ctx context.Context, params CreateMessageParams) (Message, error)
	ListMessages(ctx context.Context, params ListMessagesParams) ([]Message, error)
	CountMessages(ctx context.Context, chatId uuid.NullUUID) (int, error)
}
