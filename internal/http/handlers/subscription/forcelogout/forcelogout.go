// Package forcelogout реализует административный HTTP-обработчик
// принудительного выхода: безусловного удаления всех сессий подписки.
package forcelogout

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/nanacrew/appgate/internal/http/response"
	"github.com/nanacrew/appgate/internal/lib/sl"
)

// Response — форма ответа принудительного выхода.
// Операция идемпотентна, успех возвращается и при нуле удалённых сессий.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Service описывает интерфейс менеджера сессий для принудительного выхода.
type Service interface {
	ForceLogout(ctx context.Context, subscriptionID int64) error
}

// Handler обрабатывает HTTP-запросы принудительного выхода.
type Handler struct {
	log      *slog.Logger
	sessions Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, sessions Service) *Handler {
	return &Handler{
		log:      log,
		sessions: sessions,
	}
}

// ServeHTTP godoc
// @Summary Принудительный выход пользователя
// @Description Удаляет все сессии подписки. Идемпотентна: отсутствие сессий — тоже успех.
// @Tags Subscriptions
// @Produce  json
// @Param id path int true "ID подписки"
// @Success 200 {object} Response "Сессии сняты"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 401 {object} response.ErrorResponse "Требуется вход администратора"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /subscriptions/{id}/logout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.forcelogout"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	subscriptionID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		log.Error("invalid subscription id", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid subscription id"))
		return
	}

	if err := h.sessions.ForceLogout(r.Context(), subscriptionID); err != nil {
		log.Error("force logout failed", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to log out user"))
		return
	}

	log.Info("user forced out", slog.Int64("subscription_id", subscriptionID))
	render.JSON(w, r, Response{Success: true, Message: "user has been logged out"})
}
