// Package login реализует HTTP-обработчик входа администратора панели.
// При успехе подписанный JWT кладётся в HttpOnly cookie, которой
// административное middleware гейтит остальные маршруты админки.
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

	"github.com/nanacrew/appgate/internal/http/middlewarectx"
	"github.com/nanacrew/appgate/internal/http/response"
	"github.com/nanacrew/appgate/internal/lib/sl"
	"github.com/nanacrew/appgate/internal/models"
	adminservice "github.com/nanacrew/appgate/internal/services/admin"
)

// Request — структура входных данных входа администратора.
type Request struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Service описывает интерфейс аутентификации администраторов.
type Service interface {
	Login(ctx context.Context, email, password string) (string, *models.AdminUser, error)
}

// Handler обрабатывает HTTP-запросы входа администратора.
type Handler struct {
	log       *slog.Logger
	admins    Service
	validate  *validator.Validate
	cookieTTL time.Duration
}

// New создает новый экземпляр Handler. cookieTTL задаёт срок жизни cookie
// и должен совпадать со сроком жизни токена администратора.
func New(log *slog.Logger, admins Service, cookieTTL time.Duration) *Handler {
	return &Handler{
		log:       log,
		admins:    admins,
		validate:  validator.New(),
		cookieTTL: cookieTTL,
	}
}

// ServeHTTP godoc
// @Summary Вход администратора панели
// @Description Проверяет учётные данные и устанавливает HttpOnly cookie с подписанным токеном.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param request body Request true "Учетные данные администратора"
// @Success 200 {object} response.Response "Успешный вход"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 401 {object} response.ErrorResponse "Неверные учетные данные"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /admin/login [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.login"

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
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	token, admin, err := h.admins.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, adminservice.ErrInvalidCredentials) {
			log.Info("admin login rejected", slog.String("email", req.Email))
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("invalid email or password"))
			return
		}
		log.Error("admin login failed", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to process login"))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middlewarectx.AdminSessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.cookieTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	log.Info("admin login success", slog.String("email", req.Email))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"id":    admin.ID,
		"email": admin.Email,
		"name":  admin.Name,
	}))
}
