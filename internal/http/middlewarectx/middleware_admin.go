package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/nanacrew/appgate/internal/http/response"
	libjwt "github.com/nanacrew/appgate/internal/lib/jwt"
	"github.com/nanacrew/appgate/internal/lib/sl"
)

// AdminSessionCookie имя cookie с подписанным токеном администратора.
const AdminSessionCookie = "admin_session"

// AdminTokenValidator описывает проверку токена администратора.
type AdminTokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*libjwt.CustomClaims, error)
}

// AdminMiddleware возвращает HTTP middleware, который пускает дальше
// только запросы с валидной cookie сессии администратора.
func AdminMiddleware(admins AdminTokenValidator, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.AdminMiddleware"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			cookie, err := r.Cookie(AdminSessionCookie)
			if err != nil || cookie.Value == "" {
				log.Error("missing admin session cookie")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("admin authentication required"))
				return
			}

			claims, err := admins.ValidateToken(r.Context(), cookie.Value)
			if err != nil {
				log.Error("invalid or expired admin session", sl.Err(err))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid or expired admin session"))
				return
			}
			ctx := context.WithValue(r.Context(), AdminID, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
