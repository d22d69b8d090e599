// Package resolve реализует HTTP-обработчик для получения текущего права
// пользователя: план, флаги возможностей и источник решения.
//
// Обработчик отдаёт только содержимое кеша — сетевых походов на этом
// пути нет, за актуальность отвечает агент сверки.
package resolve

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/entitlement-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/entitlement-service/internal/http/response"
	"github.com/magabrotheeeer/entitlement-service/internal/lib/sl"
	"github.com/magabrotheeeer/entitlement-service/internal/models"
)

// Handler обрабатывает запросы на получение текущего права пользователя.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Резолвер прав
}

// Service описывает интерфейс резолвера прав.
type Service interface {
	Resolve(ctx context.Context, userUID string) (*models.Entitlement, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Текущее право пользователя
// @Description Возвращает разрешённое право: план, флаги возможностей и источник решения.
// @Tags Entitlement
// @Produce json
// @Success 200 {object} map[string]any "Текущее право"
// @Failure 503 {object} response.ErrorResponse "Каталог планов недоступен"
// @Security BearerAuth
// @Router /entitlement [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.entitlement.resolve"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID := middlewarectx.UserUID(r.Context())
	ent, err := h.service.Resolve(r.Context(), userUID)
	if err != nil {
		log.Error("failed to resolve entitlement", sl.Err(err))
		w.Header().Set("Retry-After", "1")
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("entitlement not settled, retry"))
		return
	}

	log.Info("resolved entitlement", slog.String("tier", ent.Tier))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"entitlement": ent,
	}))
}
