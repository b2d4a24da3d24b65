package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/handlers"
	"github.com/npezzotti/dealchat/internal/chat"
	"github.com/npezzotti/dealchat/internal/config"
	"github.com/npezzotti/dealchat/internal/database"
	"github.com/npezzotti/dealchat/internal/server"
	"go.uber.org/zap"
)

type ChatApp struct {
	log            *zap.Logger
	db             database.ChatRepository
	cs             *server.ChatServer
	messages       *chat.Service
	rooms          *chat.Rooms
	validate       *validator.Validate
	srv            *http.Server
	signingKey     []byte
	allowedOrigins []string
	sendBufferSize int
}

func NewChatApp(
	mux *http.ServeMux,
	logger *zap.Logger,
	cs *server.ChatServer,
	messages *chat.Service,
	rooms *chat.Rooms,
	db database.ChatRepository,
	cfg *config.Config,
) *ChatApp {
	app := &ChatApp{
		log:            logger,
		db:             db,
		cs:             cs,
		messages:       messages,
		rooms:          rooms,
		validate:       newValidator(),
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
		sendBufferSize: cfg.SendBufferSize,
	}

	mux.HandleFunc("GET /healthz", app.healthCheck)
	mux.Handle("POST /api/messages", app.authMiddleware(app.createMessage))
	mux.Handle("GET /api/messages", app.authMiddleware(app.listMessages))
	mux.Handle("POST /api/group-chats", app.authMiddleware(app.createGroupChat))
	mux.Handle("GET /api/group-chats", app.authMiddleware(app.listGroupChats))
	mux.Handle("GET /api/group-chats/{id}", app.authMiddleware(app.getGroupChat))
	mux.Handle("POST /api/group-chats/{id}/users", app.authMiddleware(app.addGroupChatUser))
	mux.Handle("GET /ws", app.authMiddleware(app.serveWs))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Authorization"}),
		handlers.AllowCredentials(),
	)(mux)

	h = app.errorHandler(h)
	h = app.loggingHandler(h)

	app.srv = &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	return app
}

func (app *ChatApp) Handler() http.Handler {
	return app.srv.Handler
}

// Start serves until Shutdown is called. It returns nil after a clean
// shutdown.
func (app *ChatApp) Start() error {
	app.log.Info("starting server", zap.String("addr", app.srv.Addr))
	if err := app.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (app *ChatApp) Shutdown(ctx context.Context) error {
	app.log.Info("shutting down HTTP server")
	if err := app.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
