package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/npezzotti/dealchat/internal/auth"
	"go.uber.org/zap"
)

func (app *ChatApp) errorHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				var panicError error
				switch e := err.(type) {
				case error:
					panicError = e
				default:
					panicError = fmt.Errorf("%v", e)
				}
				app.log.Error("panic", zap.Error(panicError), zap.String("path", r.URL.Path))
				errResp := NewInternalServerError(panicError)
				w.Header().Set("Connection", "close")
				app.writeJson(w, errResp.StatusCode, errResp)
				return
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// loggingHandler writes one access log entry per request to the zap logger.
func (app *ChatApp) loggingHandler(next http.Handler) http.Handler {
	return handlers.CustomLoggingHandler(io.Discard, next, func(_ io.Writer, params handlers.LogFormatterParams) {
		app.log.Info("request",
			zap.String("method", params.Request.Method),
			zap.String("path", params.URL.Path),
			zap.Int("status", params.StatusCode),
			zap.Int("size", params.Size),
			zap.String("remote_addr", params.Request.RemoteAddr),
			zap.Time("ts", params.TimeStamp),
		)
	})
}

func (app *ChatApp) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.TokenFromRequest(r)
		if err != nil {
			errResp := NewUnauthorizedError()
			app.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		userId, err := auth.VerifyToken(app.signingKey, token)
		if err != nil {
			app.log.Debug("failed to verify token", zap.Error(err))
			errResp := NewUnauthorizedError()
			app.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		ctx := auth.WithUserId(r.Context(), userId)
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")

		next(w, r.WithContext(ctx))
	}
}
