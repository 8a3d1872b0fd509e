// Package middlewarectx содержит HTTP middleware: проверку bearer-токена
// мобильного пользователя, проверку cookie администратора и ограничение
// частоты запросов.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	libjwt "github.com/nanacrew/appgate/internal/lib/jwt"
	"github.com/nanacrew/appgate/internal/http/response"
	"github.com/nanacrew/appgate/internal/lib/sl"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// UserID — ключ идентификатора мобильного пользователя в контексте
	UserID Key = "user_id"
	// UserIdentifier — ключ логина пользователя в контексте
	UserIdentifier Key = "user_identifier"
	// AppID — ключ приложения в контексте
	AppID Key = "app_id"
	// AdminID — ключ идентификатора администратора в контексте
	AdminID Key = "admin_id"
)

// TokenParser описывает разбор и проверку JWT.
type TokenParser interface {
	ParseToken(tokenStr string) (*libjwt.CustomClaims, error)
}

// JWTMiddleware возвращает HTTP middleware, который проверяет bearer-токен
// мобильного пользователя в заголовке Authorization.
//
// Если токен валиден, добавляет в контекст id, логин и приложение
// пользователя, иначе возвращает HTTP 401 Unauthorized.
func JWTMiddleware(parser TokenParser, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"
			authHeader := r.Header.Get("Authorization")

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			if !strings.HasPrefix(authHeader, "Bearer ") {
				log.Error("missing or invalid authorization header")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing or invalid authorization header"))
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			claims, err := parser.ParseToken(tokenStr)
			if err != nil {
				log.Error("invalid or expired token", sl.Err(err))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid or expired token"))
				return
			}
			if claims.Subject != libjwt.SubjectApp {
				log.Error("token subject is not an app user", slog.String("subject", claims.Subject))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid or expired token"))
				return
			}
			ctx := context.WithValue(r.Context(), UserID, claims.UserID)
			ctx = context.WithValue(ctx, UserIdentifier, claims.Username)
			ctx = context.WithValue(ctx, AppID, claims.AppID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
