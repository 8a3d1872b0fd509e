// Package me реализует HTTP-обработчик профиля мобильного пользователя
// для запросов с bearer-токеном.
package me

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/nanacrew/appgate/internal/http/middlewarectx"
	"github.com/nanacrew/appgate/internal/http/response"
	"github.com/nanacrew/appgate/internal/lib/sl"
	"github.com/nanacrew/appgate/internal/models"
)

// Service описывает интерфейс получения профиля.
type Service interface {
	Me(ctx context.Context, userID int64) (*models.User, *models.SubscriptionSummary, error)
}

// Handler обрабатывает HTTP-запросы профиля.
type Handler struct {
	log  *slog.Logger
	auth Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, auth Service) *Handler {
	return &Handler{
		log:  log,
		auth: auth,
	}
}

// ServeHTTP godoc
// @Summary Профиль текущего мобильного пользователя
// @Description Возвращает данные учётной записи и сводку подписки владельца bearer-токена.
// @Tags App
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response "Профиль пользователя"
// @Failure 401 {object} response.ErrorResponse "Токен отсутствует или невалиден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /app/me [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.app.me"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := r.Context().Value(middlewarectx.UserID).(int64)
	if !ok {
		log.Error("user id missing in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("authentication required"))
		return
	}

	user, summary, err := h.auth.Me(r.Context(), userID)
	if err != nil {
		log.Error("failed to load profile", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to load profile"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"user": map[string]any{
			"id":        user.ID,
			"username":  user.UserIdentifier,
			"name":      user.Name,
			"email":     user.Email,
			"phone":     user.Phone,
			"status":    user.Status,
			"createdAt": user.CreatedAt,
		},
		"subscription": summary,
	}))
}
