// Package login реализует HTTP-обработчик парольного входа мобильного
// пользователя. Форма ответа фиксирована контрактом с клиентами:
// {success, token, user, subscription} при успехе и {error, errorType}
// при отказе, где errorType различает причину для выбора подсказки.
package login

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
	authservice "github.com/nanacrew/appgate/internal/services/auth"
)

// Request — структура входных данных парольного входа.
type Request struct {
	AppID          string `json:"app_id" validate:"required"`
	UserIdentifier string `json:"user_identifier" validate:"required"`
	Password       string `json:"password" validate:"required"`
}

// UserPayload данные пользователя в ответе входа.
type UserPayload struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Name      *string   `json:"name"`
	Email     *string   `json:"email"`
	Phone     *string   `json:"phone"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// SubscriptionPayload сводка подписки в ответе входа.
type SubscriptionPayload struct {
	Status    string     `json:"status"`
	StartDate time.Time  `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
}

// Response — форма успешного ответа входа.
type Response struct {
	Success      bool                 `json:"success"`
	Token        string               `json:"token"`
	User         UserPayload          `json:"user"`
	Subscription *SubscriptionPayload `json:"subscription"`
}

// ErrorResponse — форма ответа при отказе входа.
type ErrorResponse struct {
	Error     string `json:"error"`
	ErrorType string `json:"errorType,omitempty"`
}

// Service описывает интерфейс бизнес-логики парольного входа.
type Service interface {
	Login(ctx context.Context, appID, userIdentifier, password string) (*authservice.LoginResult, error)
}

// Handler обрабатывает HTTP-запросы парольного входа.
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
// @Summary Парольный вход мобильного пользователя
// @Description Проверяет пароль и статус учётной записи, выдаёт JWT на 7 суток со сводкой подписки.
// @Tags App
// @Accept  json
// @Produce  json
// @Param request body Request true "Учетные данные пользователя"
// @Success 200 {object} Response "Успешный вход"
// @Failure 400 {object} ErrorResponse "Некорректный запрос или пароль не установлен"
// @Failure 401 {object} ErrorResponse "Неверный пароль"
// @Failure 403 {object} ErrorResponse "Учётная запись отключена или приостановлена"
// @Failure 404 {object} ErrorResponse "Пользователь не найден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /app/login [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.app.login"

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

	result, err := h.auth.Login(r.Context(), req.AppID, req.UserIdentifier, req.Password)
	if err != nil {
		h.renderLoginError(w, r, log, req.UserIdentifier, err)
		return
	}

	log.Info("login success", slog.String("user_identifier", req.UserIdentifier))

	resp := Response{
		Success: true,
		Token:   result.Token,
		User: UserPayload{
			ID:        result.User.ID,
			Username:  result.User.UserIdentifier,
			Name:      result.User.Name,
			Email:     result.User.Email,
			Phone:     result.User.Phone,
			Status:    result.User.Status,
			CreatedAt: result.User.CreatedAt,
		},
	}
	if result.Subscription != nil {
		resp.Subscription = &SubscriptionPayload{
			Status:    result.SubscriptionStatus,
			StartDate: result.Subscription.StartDate,
			EndDate:   result.Subscription.EndDate,
		}
	}
	render.JSON(w, r, resp)
}

func (h *Handler) renderLoginError(w http.ResponseWriter, r *http.Request, log *slog.Logger, userIdentifier string, err error) {
	switch {
	case errors.Is(err, authservice.ErrUserNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, ErrorResponse{
			Error:     "account is not registered",
			ErrorType: "userNotFound",
		})
	case errors.Is(err, authservice.ErrPasswordNotSet):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Error: "password is not set for this account",
		})
	case errors.Is(err, authservice.ErrInvalidPassword):
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{
			Error:     "password does not match",
			ErrorType: "invalidPassword",
		})
	case errors.Is(err, authservice.ErrAccountInactive):
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, ErrorResponse{
			Error:     "account is deactivated, contact the administrator",
			ErrorType: "accountInactive",
		})
	case errors.Is(err, authservice.ErrAccountSuspended):
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, ErrorResponse{
			Error:     "account is suspended, contact the administrator",
			ErrorType: "accountSuspended",
		})
	default:
		log.Error("login failed", sl.Err(err),
			slog.String("user_identifier", userIdentifier))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: "failed to process login"})
	}
}
