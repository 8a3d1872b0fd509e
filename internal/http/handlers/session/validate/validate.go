// Package validate реализует HTTP-обработчик проверки токена сессии.
// Мобильный клиент вызывает его при запуске, чтобы узнать, жива ли
// сессия, выданная гейтом.
package validate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/nanacrew/appgate/internal/http/response"
	"github.com/nanacrew/appgate/internal/lib/sl"
	"github.com/nanacrew/appgate/internal/models"
	sessionservice "github.com/nanacrew/appgate/internal/services/session"
)

// Request — структура входных данных проверки сессии.
type Request struct {
	SessionToken string `json:"session_token" validate:"required"`
}

// Response — форма ответа проверки сессии.
type Response struct {
	Valid      bool       `json:"valid"`
	Reason     string     `json:"reason,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	LastActive *time.Time `json:"last_active,omitempty"`
}

// Service описывает интерфейс менеджера сессий для проверки токена.
type Service interface {
	Validate(ctx context.Context, sessionToken string) (*models.Session, error)
}

// Handler обрабатывает HTTP-запросы проверки сессии.
type Handler struct {
	log      *slog.Logger
	sessions Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, sessions Service) *Handler {
	return &Handler{
		log:      log,
		sessions: sessions,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Проверка токена сессии
// @Description Сообщает, действительна ли сессия, и обновляет время последней активности.
// @Tags Sessions
// @Accept  json
// @Produce  json
// @Param request body Request true "Токен сессии"
// @Success 200 {object} Response "Сессия действительна"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 401 {object} Response "Сессия не найдена или истекла"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /sessions/validate [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.session.validate"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error(response.ValidationMessage(err.(validator.ValidationErrors))))
		return
	}

	session, err := h.sessions.Validate(r.Context(), req.SessionToken)
	if err != nil {
		switch {
		case errors.Is(err, sessionservice.ErrSessionNotFound):
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, Response{Valid: false, Reason: "not_found"})
		case errors.Is(err, sessionservice.ErrSessionExpired):
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, Response{Valid: false, Reason: "expired"})
		default:
			log.Error("session validation failed", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to validate session"))
		}
		return
	}

	render.JSON(w, r, Response{
		Valid:      true,
		ExpiresAt:  &session.ExpiresAt,
		LastActive: &session.LastActive,
	})
}
