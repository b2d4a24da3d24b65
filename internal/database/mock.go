package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) Ping(ctx context.Context) error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockChatRepository) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatRepository) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	args := m.Called(id)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatRepository) CreateProject(ctx context.Context, params CreateProjectParams) (Project, error) {
	args := m.Called(params)
	return args.Get(0).(Project), args.Error(1)
}
func (m *MockChatRepository) CreateChatRoom(ctx context.Context, params CreateChatRoomParams) (ChatRoom, error) {
	args := m.Called(params)
	return args.Get(0).(ChatRoom), args.Error(1)
}
func (m *MockChatRepository) GetChatRoom(ctx context.Context, id uuid.UUID) (ChatRoom, error) {
	args := m.Called(id)
	return args.Get(0).(ChatRoom), args.Error(1)
}
func (m *MockChatRepository) ListChatRooms(ctx context.Context) ([]ChatRoom, error) {
	args := m.Called()
	return args.Get(0).([]ChatRoom), args.Error(1)
}
func (m *MockChatRepository) AddMember(ctx context.Context, chatId, userId uuid.UUID) (Membership, error) {
	args := m.Called(chatId, userId)
	return args.Get(0).(Membership), args.Error(1)
}
func (m *MockChatRepository) ListMembers(ctx context.Context, chatId uuid.UUID) ([]Membership, error) {
	args := m.Called(chatId)
	return args.Get(0).([]Membership), args.Error(1)
}
func (m *MockChatRepository) MembershipExists(ctx context.Context, chatId, userId uuid.UUID) (bool, error) {
	args := m.Called(chatId, userId)
	return args.Bool(0), args.Error(1)
}
func (m *MockChatRepository) CreateMessage(ctx context.Context, params CreateMessageParams) (Message, error) {
	args := m.Called(params)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockChatRepository) ListMessages(ctx context.Context, params ListMessagesParams) ([]Message, error) {
	args := m.Called(params)
	return args.Get(0).([]Message), args.Error(1)
}
func (m *MockChatRepository) CountMessages(ctx context.Context, chatId uuid.NullUUID) (int, error) {
	args := m.Called(chatId)
	return args.Int(0), args.Error(1)
}
