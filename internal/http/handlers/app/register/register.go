// Package register реализует HTTP-обработчик регистрации мобильного
// пользователя. Вместе с учётной записью создаётся бессрочная бесплатная
// подписка по умолчанию.
package register

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
	authservice "github.com/nanacrew/appgate/internal/services/auth"
)

// Request — структура входных данных регистрации.
type Request struct {
	AppID          string  `json:"app_id" validate:"required"`
	UserIdentifier string  `json:"user_identifier" validate:"required,min=3,max=50"`
	Password       string  `json:"password" validate:"required,min=6"`
	Name           *string `json:"name"`
	Phone          *string `json:"phone"`
}

// UserPayload данные созданного пользователя в ответе.
type UserPayload struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Name      *string   `json:"name"`
	Phone     *string   `json:"phone"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// Response — форма успешного ответа регистрации.
type Response struct {
	Success bool        `json:"success"`
	User    UserPayload `json:"user"`
}

// ErrorResponse — форма ответа при отказе регистрации.
type ErrorResponse struct {
	Error     string `json:"error"`
	ErrorType string `json:"errorType,omitempty"`
}

// Service описывает интерфейс бизнес-логики регистрации.
type Service interface {
	Register(ctx context.Context, appID, userIdentifier, password string, name, phone *string) (*models.User, error)
}

// Handler обрабатывает HTTP-запросы регистрации.
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
// @Summary Регистрация мобильного пользователя
// @Description Создаёт учётную запись и бесплатную бессрочную подписку по умолчанию.
// @Tags App
// @Accept  json
// @Produce  json
// @Param request body Request true "Данные нового пользователя"
// @Success 201 {object} Response "Пользователь создан"
// @Failure 400 {object} ErrorResponse "Некорректный запрос"
// @Failure 409 {object} ErrorResponse "Идентификатор уже занят"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /app/register [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.app.register"

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

	user, err := h.auth.Register(r.Context(), req.AppID, req.UserIdentifier, req.Password, req.Name, req.Phone)
	if err != nil {
		if errors.Is(err, authservice.ErrUserExists) {
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, ErrorResponse{
				Error:     "identifier is already in use",
				ErrorType: "duplicateUser",
			})
			return
		}
		log.Error("registration failed", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: "failed to process registration"})
		return
	}

	log.Info("user registered",
		slog.String("app_id", req.AppID),
		slog.String("user_identifier", req.UserIdentifier))

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, Response{
		Success: true,
		User: UserPayload{
			ID:        user.ID,
			Username:  user.UserIdentifier,
			Name:      user.Name,
			Phone:     user.Phone,
			Status:    user.Status,
			CreatedAt: user.CreatedAt,
		},
	})
}
