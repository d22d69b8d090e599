// Package start реализует HTTP-обработчик запуска пробного периода.
//
// Повторный запуск — не ошибка: обработчик отвечает started=false,
// сохранённый момент старта не трогается, часы не сбрасываются.
package start

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

// Handler обрабатывает запросы на запуск пробного периода.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис пробного периода
}

// Service описывает интерфейс сервиса пробного периода.
type Service interface {
	Start(ctx context.Context, userUID string) (bool, error)
	Status(ctx context.Context, userUID string) (*models.TrialState, error)
	HoursRemaining(state *models.TrialState) int
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Запустить пробный период
// @Description Запускает 72-часовой пробный период. Повторный запуск не сбрасывает часы.
// @Tags Trial
// @Produce json
// @Success 200 {object} map[string]any "Состояние пробного периода"
// @Failure 500 {object} response.ErrorResponse "Не удалось запустить пробный период"
// @Security BearerAuth
// @Router /trial/start [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.trial.start"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID := middlewarectx.UserUID(r.Context())
	started, err := h.service.Start(r.Context(), userUID)
	if err != nil {
		log.Error("failed to start trial", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not start trial"))
		return
	}

	state, err := h.service.Status(r.Context(), userUID)
	if err != nil {
		log.Error("failed to read trial state", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read trial state"))
		return
	}

	log.Info("trial start handled", slog.Bool("started", started))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"started":         started,
		"hours_remaining": h.service.HoursRemaining(state),
	}))
}
