// Package check реализует HTTP-обработчик проверки права доступа:
// гейт подписки плюс выдача сессии единственного устройства.
//
// Форма ответа фиксирована контрактом с мобильными клиентами:
// при успехе {allowed:true, session_token, expires_at, subscription},
// при отказе {allowed:false, reason, message} со статусом 403,
// для конфликта устройств — 409 и дополнительным полем last_active.
package check

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/nanacrew/appgate/internal/http/response"
	"github.com/nanacrew/appgate/internal/lib/sl"
	"github.com/nanacrew/appgate/internal/models"
	entitlement "github.com/nanacrew/appgate/internal/services/entitlement"
)

// Request — структура входных данных проверки доступа.
type Request struct {
	AppID          string  `json:"app_id" validate:"required"`
	UserIdentifier string  `json:"user_identifier" validate:"required"`
	DeviceInfo     *string `json:"device_info"`
}

// Response — форма ответа гейта, нормативная для мобильных клиентов.
type Response struct {
	Allowed      bool                        `json:"allowed"`
	Reason       string                      `json:"reason,omitempty"`
	Message      string                      `json:"message,omitempty"`
	LastActive   *time.Time                  `json:"last_active,omitempty"`
	SessionToken string                      `json:"session_token,omitempty"`
	ExpiresAt    *time.Time                  `json:"expires_at,omitempty"`
	Subscription *models.SubscriptionSummary `json:"subscription,omitempty"`
}

// Service описывает интерфейс гейта подписки.
type Service interface {
	Check(ctx context.Context, req entitlement.CheckRequest) (*entitlement.CheckResult, error)
}

// Handler обрабатывает HTTP-запросы проверки доступа.
type Handler struct {
	log      *slog.Logger
	gate     Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, gate Service) *Handler {
	return &Handler{
		log:      log,
		gate:     gate,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Проверка права доступа и выдача сессии
// @Description Проверяет учётную запись и подписку пользователя и при успехе выдаёт токен сессии единственного устройства.
// @Tags Subscriptions
// @Accept  json
// @Produce  json
// @Param request body Request true "Идентификация пользователя приложения"
// @Success 200 {object} Response "Доступ разрешён, сессия выдана"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 403 {object} Response "Доступ запрещён"
// @Failure 409 {object} Response "Сессию держит другое устройство"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /subscriptions/check [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.check"

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

	result, err := h.gate.Check(r.Context(), entitlement.CheckRequest{
		AppID:          req.AppID,
		UserIdentifier: req.UserIdentifier,
		DeviceInfo:     req.DeviceInfo,
		IPAddress:      clientIP(r),
	})
	if err != nil {
		log.Error("entitlement check failed", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to check subscription"))
		return
	}

	if !result.Allowed {
		status := http.StatusForbidden
		if result.Reason == entitlement.ReasonDuplicateLogin {
			status = http.StatusConflict
		}
		log.Info("access denied",
			slog.String("reason", result.Reason),
			slog.String("user_identifier", req.UserIdentifier))
		render.Status(r, status)
		render.JSON(w, r, Response{
			Allowed:    false,
			Reason:     result.Reason,
			Message:    result.Message,
			LastActive: result.LastActive,
		})
		return
	}

	log.Info("access granted", slog.String("user_identifier", req.UserIdentifier))
	render.JSON(w, r, Response{
		Allowed:      true,
		SessionToken: result.SessionToken,
		ExpiresAt:    &result.ExpiresAt,
		Subscription: result.Subscription,
	})
}

// clientIP извлекает адрес клиента из заголовков прокси или соединения.
func clientIP(r *http.Request) *string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return &ip
	}
	if ip := r.Header.Get("X-Real-Ip"); ip != "" {
		return &ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		return nil
	}
	return &host
}
