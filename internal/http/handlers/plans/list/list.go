// Package list реализует HTTP-обработчик для получения каталога планов.
//
// Каталог отдаётся из кеша; при промахе сервис сходит в биллинг. Если ни
// кеша, ни биллинга нет, возвращается ошибка с предложением повторить:
// тихого дефолтного списка планов не существует.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/entitlement-service/internal/http/response"
	"github.com/magabrotheeeer/entitlement-service/internal/lib/sl"
	"github.com/magabrotheeeer/entitlement-service/internal/models"
)

// Handler обрабатывает запросы на получение каталога планов.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис каталога планов
}

// Service описывает интерфейс каталога планов.
type Service interface {
	Load(ctx context.Context) ([]models.Plan, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Каталог тарифных планов
// @Description Возвращает список планов из кеша или биллинга.
// @Tags Plans
// @Produce json
// @Success 200 {object} map[string]any "Список планов"
// @Failure 503 {object} response.ErrorResponse "Каталог недоступен, повторите запрос"
// @Router /plans [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.plans.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	plans, err := h.service.Load(r.Context())
	if err != nil {
		log.Error("failed to load plan catalog", sl.Err(err))
		w.Header().Set("Retry-After", "3")
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("plan catalog unavailable, retry"))
		return
	}

	log.Info("loaded plan catalog", slog.Int("plans", len(plans)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"plans": plans,
	}))
}
