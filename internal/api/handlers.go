package api

import (
	"encoding/json"
	"net/http"
	"slices"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/npezzotti/dealchat/internal/auth"
	"github.com/npezzotti/dealchat/internal/chat"
	"github.com/npezzotti/dealchat/internal/server"
	"go.uber.org/zap"
)

type CreateMessageRequest struct {
	ChatId   string `json:"chatId" validate:"required,uuid"`
	SenderId string `json:"senderId" validate:"required,uuid"`
	Content  string `json:"content" validate:"required"`
}

type CreateGroupChatRequest struct {
	ProjectId  *string `json:"projectId" validate:"omitempty,uuid"`
	MlsId      *string `json:"mlsId" validate:"omitempty,max=64"`
	PropertyId *string `json:"propertyId" validate:"omitempty,max=64"`
}

type AddGroupChatUserRequest struct {
	UserId string `json:"userId" validate:"required,uuid"`
}

func (app *ChatApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		app.log.Error("json encode", zap.Error(err))
	}
}

func (app *ChatApp) writeError(w http.ResponseWriter, errResp *ApiError) {
	if errResp.StatusCode >= http.StatusInternalServerError {
		app.log.Error("request failed", zap.Error(errResp))
	}
	app.writeJson(w, errResp.StatusCode, errResp)
}

// decodeAndValidate reads a JSON body into v and runs its validate tags.
func (app *ChatApp) decodeAndValidate(r *http.Request, v any) *ApiError {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return NewBadRequestError()
	}
	if err := app.validate.Struct(v); err != nil {
		return NewBadRequestError(validationMessage(err))
	}
	return nil
}

func (app *ChatApp) healthCheck(w http.ResponseWriter, r *http.Request) {
	if err := app.db.Ping(r.Context()); err != nil {
		app.log.Error("health check failed", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (app *ChatApp) createMessage(w http.ResponseWriter, r *http.Request) {
	userId, ok := auth.UserId(r.Context())
	if !ok {
		app.writeError(w, NewUnauthorizedError())
		return
	}

	var req CreateMessageRequest
	if errResp := app.decodeAndValidate(r, &req); errResp != nil {
		app.writeError(w, errResp)
		return
	}

	senderId := uuid.MustParse(req.SenderId)
	if senderId != userId {
		app.writeError(w, NewForbiddenError("senderId must match the authenticated user"))
		return
	}

	msg, err := app.messages.CreateMessage(r.Context(), chat.AppendParams{
		ChatId:   uuid.MustParse(req.ChatId),
		SenderId: senderId,
		Content:  req.Content,
	})
	if err != nil {
		app.writeError(w, errorFromChat(err))
		return
	}

	app.writeJson(w, http.StatusCreated, msg)
}

func queryInt(r *http.Request, key string) (int, bool) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

func (app *ChatApp) listMessages(w http.ResponseWriter, r *http.Request) {
	var params chat.ListParams

	if s := r.URL.Query().Get("chatId"); s != "" {
		chatId, err := uuid.Parse(s)
		if err != nil {
			app.writeError(w, NewBadRequestError("invalid chatId: uuid"))
			return
		}
		params.ChatId = &chatId
	}

	var ok bool
	if params.Page, ok = queryInt(r, "page"); !ok {
		app.writeError(w, NewBadRequestError("invalid page: number"))
		return
	}
	if params.Limit, ok = queryInt(r, "limit"); !ok {
		app.writeError(w, NewBadRequestError("invalid limit: number"))
		return
	}

	page, err := app.messages.ListMessages(r.Context(), params)
	if err != nil {
		app.writeError(w, errorFromChat(err))
		return
	}

	app.writeJson(w, http.StatusOK, page)
}

func (app *ChatApp) createGroupChat(w http.ResponseWriter, r *http.Request) {
	var req CreateGroupChatRequest
	if errResp := app.decodeAndValidate(r, &req); errResp != nil {
		app.writeError(w, errResp)
		return
	}

	params := chat.CreateRoomParams{
		MlsId:      req.MlsId,
		PropertyId: req.PropertyId,
	}
	if req.ProjectId != nil {
		projectId := uuid.MustParse(*req.ProjectId)
		params.ProjectId = &projectId
	}

	room, err := app.rooms.Create(r.Context(), params)
	if err != nil {
		app.writeError(w, errorFromChat(err))
		return
	}

	app.writeJson(w, http.StatusCreated, room)
}

func (app *ChatApp) pathChatId(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	chatId, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		app.writeError(w, NewBadRequestError("invalid id: uuid"))
		return uuid.Nil, false
	}
	return chatId, true
}

func (app *ChatApp) addGroupChatUser(w http.ResponseWriter, r *http.Request) {
	chatId, ok := app.pathChatId(w, r)
	if !ok {
		return
	}

	var req AddGroupChatUserRequest
	if errResp := app.decodeAndValidate(r, &req); errResp != nil {
		app.writeError(w, errResp)
		return
	}

	m, err := app.rooms.AddMember(r.Context(), chatId, uuid.MustParse(req.UserId))
	if err != nil {
		app.writeError(w, errorFromChat(err))
		return
	}

	app.writeJson(w, http.StatusCreated, m)
}

func (app *ChatApp) listGroupChats(w http.ResponseWriter, r *http.Request) {
	rooms, err := app.rooms.List(r.Context())
	if err != nil {
		app.writeError(w, errorFromChat(err))
		return
	}

	app.writeJson(w, http.StatusOK, rooms)
}

func (app *ChatApp) getGroupChat(w http.ResponseWriter, r *http.Request) {
	chatId, ok := app.pathChatId(w, r)
	if !ok {
		return
	}

	room, err := app.rooms.Get(r.Context(), chatId)
	if err != nil {
		app.writeError(w, errorFromChat(err))
		return
	}

	app.writeJson(w, http.StatusOK, room)
}

func (app *ChatApp) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	return slices.Contains(app.allowedOrigins, origin)
}

func (app *ChatApp) serveWs(w http.ResponseWriter, r *http.Request) {
	userId, ok := auth.UserId(r.Context())
	if !ok {
		app.writeError(w, NewUnauthorizedError())
		return
	}

	upgrader := websocket.Upgrader{CheckOrigin: app.checkOrigin}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		app.log.Debug("error upgrading connection", zap.Error(err))
		return
	}

	client := server.NewClient(userId, conn, app.cs, app.log, app.sendBufferSize)
	if err := app.cs.RegisterClient(client); err != nil {
		app.log.Info("refusing connection", zap.Error(err))
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server shutting down"))
		conn.Close()
		return
	}

	go client.Write()
	go client.Read()
}
