package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/npezzotti/dealchat/internal/auth"
	"github.com/npezzotti/dealchat/internal/chat"
	"github.com/npezzotti/dealchat/internal/config"
	"github.com/npezzotti/dealchat/internal/database"
	"github.com/npezzotti/dealchat/internal/server"
	"github.com/npezzotti/dealchat/internal/stats"
	"github.com/npezzotti/dealchat/internal/testutil"
	"github.com/stretchr/testify/require"
)

var testSigningKey = []byte("test-signing-key")

const testOrigin = "http://localhost:3000"

type testApp struct {
	*ChatApp
	repo *database.MockChatRepository
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	repo := &database.MockChatRepository{}
	logger := testutil.TestLogger(t)

	cs, err := server.NewChatServer(logger, repo, stats.NopStats{}, time.Second)
	require.NoError(t, err)

	svc := chat.NewService(chat.NewStore(repo, logger, time.Second, 4096), cs, logger)
	rooms := chat.NewRooms(repo, logger, time.Second)

	cfg := &config.Config{
		ServerAddr:     "localhost:0",
		SigningKey:     testSigningKey,
		AllowedOrigins: []string{testOrigin},
		SendBufferSize: 8,
	}

	app := NewChatApp(http.NewServeMux(), logger, cs, svc, rooms, repo, cfg)
	return &testApp{ChatApp: app, repo: repo}
}

func bearer(t *testing.T, userId uuid.UUID) string {
	t.Helper()
	token, err := auth.IssueToken(testSigningKey, userId, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}
