// Package middlewarectx содержит HTTP middleware сервиса.
//
// JWTMiddleware проверяет наличие и валидность JWT токена в заголовке
// Authorization и кладёт в контекст имя пользователя, роль и user_uid.
// Гейт-middleware закрывают платные возможности по решению гейта.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/entitlement-service/internal/http/response"
	libjwt "github.com/magabrotheeeer/entitlement-service/internal/lib/jwt"
	"github.com/magabrotheeeer/entitlement-service/internal/lib/sl"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// User — ключ для имени пользователя в контексте
	User Key = "username"
	// Role — ключ для роли пользователя в контексте
	Role Key = "role"
	// UID — ключ для user_uid в контексте
	UID Key = "user_uid"
)

// UserUID достаёт user_uid из контекста запроса, пустая строка — аноним.
func UserUID(ctx context.Context) string {
	uid, _ := ctx.Value(UID).(string)
	return uid
}

// JWTMiddleware возвращает HTTP middleware, который проверяет JWT в
// заголовке Authorization. Если токен валиден, кладёт данные пользователя
// в контекст, иначе возвращает HTTP 401 Unauthorized.
func JWTMiddleware(maker libjwt.Maker, log *slog.Logger) func(http.Handler) http.Handler {
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

			claims, err := maker.ParseToken(tokenStr)
			if err != nil {
				log.Error("invalid or expired token", sl.Err(err))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid or expired token"))
				return
			}
			ctx := context.WithValue(r.Context(), User, claims.Username)
			ctx = context.WithValue(ctx, Role, claims.Role)
			ctx = context.WithValue(ctx, UID, claims.UserUID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalJWTMiddleware как JWTMiddleware, но отсутствие или невалидность
// токена не ошибка: запрос идёт дальше анонимным, гейты закроются сами.
func OptionalJWTMiddleware(maker libjwt.Maker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
				if claims, err := maker.ParseToken(tokenStr); err == nil {
					ctx := context.WithValue(r.Context(), User, claims.Username)
					ctx = context.WithValue(ctx, Role, claims.Role)
					ctx = context.WithValue(ctx, UID, claims.UserUID)
					r = r.WithContext(ctx)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
