package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/npezzotti/dealchat/internal/database"
	"github.com/npezzotti/dealchat/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func (a *testApp) do(t *testing.T, method, target string, userId uuid.UUID, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch v := body.(type) {
	case nil:
	case string:
		buf.WriteString(v)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(v), "failed to marshal request body")
	}

	req := httptest.NewRequest(method, target, &buf)
	if userId != uuid.Nil {
		req.Header.Set("Authorization", bearer(t, userId))
	}

	rr := httptest.NewRecorder()
	a.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeApiError(t *testing.T, rr *httptest.ResponseRecorder) ApiError {
	t.Helper()
	var apiErr ApiError
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&apiErr), "failed to decode error response")
	return apiErr
}

func Test_healthCheck(t *testing.T) {
	tcases := []struct {
		name    string
		mockErr error
	}{
		{
			name:    "successful health check",
			mockErr: nil,
		},
		{
			name:    "failed health check",
			mockErr: errors.New("db error"),
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(t)
			defer app.repo.AssertExpectations(t)
			app.repo.On("Ping").Return(tc.mockErr).Once()

			rr := app.do(t, http.MethodGet, "/healthz", uuid.Nil, nil)

			if tc.mockErr != nil {
				assert.Equal(t, http.StatusInternalServerError, rr.Code, "expected status code to be 500")
			} else {
				assert.Equal(t, http.StatusOK, rr.Code, "expected status code to be 200")
				assert.Equal(t, "OK", rr.Body.String(), "expected response body to be 'OK'")
			}
		})
	}
}

func TestRoutesRequireAuth(t *testing.T) {
	app := newTestApp(t)

	routes := []struct {
		method string
		target string
	}{
		{http.MethodPost, "/api/messages"},
		{http.MethodGet, "/api/messages"},
		{http.MethodPost, "/api/group-chats"},
		{http.MethodGet, "/api/group-chats"},
		{http.MethodGet, "/api/group-chats/" + uuid.NewString()},
		{http.MethodPost, "/api/group-chats/" + uuid.NewString() + "/users"},
		{http.MethodGet, "/ws"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.target, func(t *testing.T) {
			rr := app.do(t, route.method, route.target, uuid.Nil, nil)
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
		})
	}
}

func TestCreateMessageHandler(t *testing.T) {
	userId := uuid.New()
	chatId := uuid.New()

	dbMsg := database.Message{
		Id:        uuid.New(),
		Seq:       1,
		ChatId:    chatId,
		SenderId:  userId,
		Content:   "Is the asking price negotiable?",
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		Sender:    database.User{Id: userId, Name: "Bea Buyer", Role: "buyer"},
		Chat:      database.ChatRoom{Id: chatId},
	}

	tcases := []struct {
		name         string
		body         any
		mockErr      error
		callRepo     bool
		expectedCode int
	}{
		{
			name:         "creates message",
			body:         CreateMessageRequest{ChatId: chatId.String(), SenderId: userId.String(), Content: dbMsg.Content},
			callRepo:     true,
			expectedCode: http.StatusCreated,
		},
		{
			name:         "fails with invalid json body",
			body:         "invalid json",
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "fails with missing content",
			body:         CreateMessageRequest{ChatId: chatId.String(), SenderId: userId.String()},
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "fails with malformed chat id",
			body:         CreateMessageRequest{ChatId: "42", SenderId: userId.String(), Content: "hi"},
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "fails when sender is not the caller",
			body:         CreateMessageRequest{ChatId: chatId.String(), SenderId: uuid.NewString(), Content: "hi"},
			expectedCode: http.StatusForbidden,
		},
		{
			name:         "fails with unknown chat",
			body:         CreateMessageRequest{ChatId: chatId.String(), SenderId: userId.String(), Content: dbMsg.Content},
			callRepo:     true,
			mockErr:      &database.ReferenceError{Constraint: database.MessagesChatFKey},
			expectedCode: http.StatusNotFound,
		},
		{
			name:         "fails with db error",
			body:         CreateMessageRequest{ChatId: chatId.String(), SenderId: userId.String(), Content: dbMsg.Content},
			callRepo:     true,
			mockErr:      errors.New("db error"),
			expectedCode: http.StatusInternalServerError,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(t)
			defer app.repo.AssertExpectations(t)

			if tc.callRepo {
				app.repo.On("CreateMessage", database.CreateMessageParams{
					ChatId:   chatId,
					SenderId: userId,
					Content:  dbMsg.Content,
				}).Return(dbMsg, tc.mockErr).Once()
			}

			rr := app.do(t, http.MethodPost, "/api/messages", userId, tc.body)
			assert.Equal(t, tc.expectedCode, rr.Code)

			if tc.expectedCode != http.StatusCreated {
				apiErr := decodeApiError(t, rr)
				assert.Equal(t, tc.expectedCode, apiErr.StatusCode)
				assert.NotEmpty(t, apiErr.Message)
				return
			}

			var msg types.Message
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&msg), "failed to decode response")
			assert.Equal(t, dbMsg.Id, msg.Id)
			assert.Equal(t, dbMsg.Content, msg.Content)
			assert.True(t, dbMsg.CreatedAt.Equal(msg.Timestamp))
			require.NotNil(t, msg.Sender)
			assert.Equal(t, "Bea Buyer", msg.Sender.Name)
		})
	}
}

func TestListMessagesHandler(t *testing.T) {
	userId := uuid.New()
	chatId := uuid.New()

	tcases := []struct {
		name         string
		query        string
		callRepo     bool
		filter       uuid.NullUUID
		limit        int
		offset       int
		total        int
		expectedCode int
		totalPages   int
	}{
		{
			name:         "second page of a chat",
			query:        "?chatId=" + chatId.String() + "&page=2&limit=2",
			callRepo:     true,
			filter:       uuid.NullUUID{UUID: chatId, Valid: true},
			limit:        2,
			offset:       2,
			total:        5,
			expectedCode: http.StatusOK,
			totalPages:   3,
		},
		{
			name:         "defaults",
			query:        "",
			callRepo:     true,
			limit:        50,
			total:        0,
			expectedCode: http.StatusOK,
			totalPages:   0,
		},
		{
			name:         "malformed chat id",
			query:        "?chatId=abc",
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "non-numeric page",
			query:        "?page=two",
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "limit above maximum",
			query:        "?limit=1000",
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "page whose offset overflows",
			query:        "?page=9223372036854775807",
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "page below one",
			query:        "?page=-1",
			expectedCode: http.StatusBadRequest,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(t)
			defer app.repo.AssertExpectations(t)

			if tc.callRepo {
				app.repo.On("CountMessages", tc.filter).Return(tc.total, nil).Once()
				app.repo.On("ListMessages", database.ListMessagesParams{
					ChatId: tc.filter,
					Limit:  tc.limit,
					Offset: tc.offset,
				}).Return([]database.Message{}, nil).Once()
			}

			rr := app.do(t, http.MethodGet, "/api/messages"+tc.query, userId, nil)
			require.Equal(t, tc.expectedCode, rr.Code)
			if tc.expectedCode != http.StatusOK {
				return
			}

			var page types.Page[types.Message]
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&page))
			assert.Equal(t, tc.total, page.Total)
			assert.Equal(t, tc.limit, page.Limit)
			assert.Equal(t, tc.totalPages, page.TotalPages)
			assert.NotNil(t, page.Data, "expected data to be an empty list")
		})
	}
}

func TestCreateGroupChatHandler(t *testing.T) {
	userId := uuid.New()
	projectId := uuid.New()
	mls := "MLS-2024-001"

	tcases := []struct {
		name         string
		body         any
		callRepo     bool
		mockErr      error
		expectedCode int
	}{
		{
			name:         "creates chat for a project",
			body:         CreateGroupChatRequest{ProjectId: &[]string{projectId.String()}[0], MlsId: &mls},
			callRepo:     true,
			expectedCode: http.StatusCreated,
		},
		{
			name:         "fails with unknown project",
			body:         CreateGroupChatRequest{ProjectId: &[]string{projectId.String()}[0], MlsId: &mls},
			callRepo:     true,
			mockErr:      &database.ReferenceError{Constraint: database.ChatRoomsProjectFKey},
			expectedCode: http.StatusNotFound,
		},
		{
			name:         "fails with malformed project id",
			body:         CreateGroupChatRequest{ProjectId: &[]string{"project-1"}[0]},
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "fails with invalid json body",
			body:         "{",
			expectedCode: http.StatusBadRequest,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(t)
			defer app.repo.AssertExpectations(t)

			if tc.callRepo {
				app.repo.On("CreateChatRoom", mock.MatchedBy(func(p database.CreateChatRoomParams) bool {
					return p.ProjectId.Valid && p.ProjectId.UUID == projectId && p.MlsId.String == mls && !p.PropertyId.Valid
				})).Return(database.ChatRoom{Id: uuid.New(), ProjectId: uuid.NullUUID{UUID: projectId, Valid: true}}, tc.mockErr).Once()
			}

			rr := app.do(t, http.MethodPost, "/api/group-chats", userId, tc.body)
			assert.Equal(t, tc.expectedCode, rr.Code)
			if tc.expectedCode == http.StatusCreated {
				var room types.ChatRoom
				require.NoError(t, json.NewDecoder(rr.Body).Decode(&room))
				require.NotNil(t, room.ProjectId)
				assert.Equal(t, projectId, *room.ProjectId)
			}
		})
	}
}

func TestAddGroupChatUserHandler(t *testing.T) {
	callerId := uuid.New()
	chatId := uuid.New()
	userId := uuid.New()

	tcases := []struct {
		name         string
		target       string
		body         any
		callRepo     bool
		mockErr      error
		expectedCode int
	}{
		{
			name:         "adds member",
			target:       "/api/group-chats/" + chatId.String() + "/users",
			body:         AddGroupChatUserRequest{UserId: userId.String()},
			callRepo:     true,
			expectedCode: http.StatusCreated,
		},
		{
			name:         "fails with duplicate member",
			target:       "/api/group-chats/" + chatId.String() + "/users",
			body:         AddGroupChatUserRequest{UserId: userId.String()},
			callRepo:     true,
			mockErr:      &database.DuplicateError{Constraint: database.MembersPKey},
			expectedCode: http.StatusConflict,
		},
		{
			name:         "fails with unknown user",
			target:       "/api/group-chats/" + chatId.String() + "/users",
			body:         AddGroupChatUserRequest{UserId: userId.String()},
			callRepo:     true,
			mockErr:      &database.ReferenceError{Constraint: database.MembersUserFKey},
			expectedCode: http.StatusNotFound,
		},
		{
			name:         "fails with malformed chat id",
			target:       "/api/group-chats/abc/users",
			body:         AddGroupChatUserRequest{UserId: userId.String()},
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "fails with missing user id",
			target:       "/api/group-chats/" + chatId.String() + "/users",
			body:         AddGroupChatUserRequest{},
			expectedCode: http.StatusBadRequest,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(t)
			defer app.repo.AssertExpectations(t)

			if tc.callRepo {
				app.repo.On("AddMember", chatId, userId).Return(database.Membership{
					ChatId: chatId,
					UserId: userId,
					User:   database.User{Id: userId, Name: "Rita Realtor", Role: "realtor"},
				}, tc.mockErr).Once()
			}

			rr := app.do(t, http.MethodPost, tc.target, callerId, tc.body)
			assert.Equal(t, tc.expectedCode, rr.Code)
			if tc.expectedCode == http.StatusCreated {
				var m types.Membership
				require.NoError(t, json.NewDecoder(rr.Body).Decode(&m))
				assert.Equal(t, userId, m.UserId)
				require.NotNil(t, m.User)
				assert.Equal(t, "Rita Realtor", m.User.Name)
			} else {
				assert.Equal(t, tc.expectedCode, decodeApiError(t, rr).StatusCode)
			}
		})
	}
}

func TestGetGroupChatHandler(t *testing.T) {
	userId := uuid.New()
	chatId := uuid.New()

	t.Run("returns chat", func(t *testing.T) {
		app := newTestApp(t)
		defer app.repo.AssertExpectations(t)

		app.repo.On("GetChatRoom", chatId).Return(database.ChatRoom{Id: chatId}, nil).Once()
		app.repo.On("ListMembers", chatId).Return([]database.Membership{}, nil).Once()
		app.repo.On("ListMessages", mock.Anything).Return([]database.Message{}, nil).Once()

		rr := app.do(t, http.MethodGet, "/api/group-chats/"+chatId.String(), userId, nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var room types.ChatRoom
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&room))
		assert.Equal(t, chatId, room.Id)
		assert.NotNil(t, room.Members, "expected members to be an empty list")
	})

	t.Run("fails with unknown chat", func(t *testing.T) {
		app := newTestApp(t)
		defer app.repo.AssertExpectations(t)

		app.repo.On("GetChatRoom", chatId).Return(database.ChatRoom{}, database.ErrNotFound).Once()

		rr := app.do(t, http.MethodGet, "/api/group-chats/"+chatId.String(), userId, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestListGroupChatsHandler(t *testing.T) {
	app := newTestApp(t)
	defer app.repo.AssertExpectations(t)

	app.repo.On("ListChatRooms").Return([]database.ChatRoom{
		{Id: uuid.New(), MessageCount: 2},
	}, nil).Once()

	rr := app.do(t, http.MethodGet, "/api/group-chats", uuid.New(), nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var rooms []types.ChatRoom
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&rooms))
	require.Len(t, rooms, 1)
	require.NotNil(t, rooms[0].MessageCount)
	assert.Equal(t, 2, *rooms[0].MessageCount)
}
