// Package resetpassword реализует двухшаговое восстановление пароля:
// action=verify подтверждает личность по логину и номеру телефона,
// action=reset устанавливает новый пароль.
package resetpassword

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/nanacrew/appgate/internal/http/response"
	"github.com/nanacrew/appgate/internal/lib/sl"
	authservice "github.com/nanacrew/appgate/internal/services/auth"
)

// Request — структура входных данных восстановления пароля.
// Phone обязателен для verify, NewPassword — для reset.
type Request struct {
	Action         string `json:"action" validate:"required,oneof=verify reset"`
	AppID          string `json:"app_id" validate:"required"`
	UserIdentifier string `json:"user_identifier" validate:"required"`
	Phone          string `json:"phone"`
	NewPassword    string `json:"new_password" validate:"omitempty,min=6"`
}

// Response — форма успешного ответа.
type Response struct {
	Success  bool `json:"success"`
	Verified bool `json:"verified,omitempty"`
}

// ErrorResponse — форма ответа при отказе.
type ErrorResponse struct {
	Error     string `json:"error"`
	ErrorType string `json:"errorType,omitempty"`
}

// Service описывает интерфейс бизнес-логики восстановления пароля.
type Service interface {
	VerifyResetIdentity(ctx context.Context, appID, userIdentifier, phone string) error
	ResetPassword(ctx context.Context, appID, userIdentifier, newPassword string) error
}

// Handler обрабатывает HTTP-запросы восстановления пароля.
type Handler struct {
	log      *slog.Logger
	auth     Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, auth Service) *Handler {
	return &Handler{
		log:      log,
		auth:     auth,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Восстановление пароля мобильного пользователя
// @Description Подтверждает личность по номеру телефона (action=verify) или устанавливает новый пароль (action=reset).
// @Tags App
// @Accept  json
// @Produce  json
// @Param request body Request true "Действие и идентификация пользователя"
// @Success 200 {object} Response "Действие выполнено"
// @Failure 400 {object} ErrorResponse "Некорректный запрос"
// @Failure 401 {object} ErrorResponse "Телефон не совпадает"
// @Failure 404 {object} ErrorResponse "Пользователь не найден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /app/reset-password [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.app.resetpassword"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "invalid request body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: response.ValidationMessage(err.(validator.ValidationErrors))})
		return
	}

	var err error
	switch req.Action {
	case "verify":
		if req.Phone == "" {
			log.Error("phone is missing for verify action")
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, ErrorResponse{Error: "field Phone is a required field"})
			return
		}
		err = h.auth.VerifyResetIdentity(r.Context(), req.AppID, req.UserIdentifier, req.Phone)
	case "reset":
		if req.NewPassword == "" {
			log.Error("new password is missing for reset action")
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, ErrorResponse{Error: "field NewPassword is a required field"})
			return
		}
		err = h.auth.ResetPassword(r.Context(), req.AppID, req.UserIdentifier, req.NewPassword)
	}
	if err != nil {
		switch {
		case errors.Is(err, authservice.ErrUserNotFound):
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, ErrorResponse{
				Error:     "account is not registered",
				ErrorType: "userNotFound",
			})
		case errors.Is(err, authservice.ErrPhoneMismatch):
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, ErrorResponse{
				Error:     "phone number does not match",
				ErrorType: "phoneMismatch",
			})
		default:
			log.Error("reset password failed", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, ErrorResponse{Error: "failed to process request"})
		}
		return
	}

	log.Info("reset password action done",
		slog.String("action", req.Action),
		slog.String("user_identifier", req.UserIdentifier))

	render.JSON(w, r, Response{Success: true, Verified: req.Action == "verify"})
}
