// Package list реализует HTTP-обработчик списка пациентов физиотерапевта.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/glove-rehab-tracker/internal/http/middlewarectx"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/http/response"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/models"
)

// Handler управляет HTTP-запросами списка пациентов.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс реестра пациентов.
type Service interface {
	ListPatients(ctx context.Context, physioID string) ([]models.PatientSummary, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Список пациентов
// @Description Возвращает пациентов физиотерапевта с количеством отработанных сессий.
// @Tags Patients
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Список пациентов"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Доступно только физиотерапевту"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при получении списка"
// @Router /patients [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.patient.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	uid, _ := r.Context().Value(middlewarectx.UserUID).(string)
	role, _ := r.Context().Value(middlewarectx.Role).(string)
	if uid == "" || role != models.RolePhysio {
		log.Error("caller is not a physio", slog.String("role", role))
		w.WriteHeader(http.StatusForbidden)
		render.JSON(w, r, response.Error("only physios can manage patients"))
		return
	}

	patients, err := h.service.ListPatients(r.Context(), uid)
	if err != nil {
		log.Error("failed to list patients", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to list patients"))
		return
	}

	log.Info("patients listed", "count", len(patients))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"patients_count": len(patients),
		"patients":       patients,
	}))
}
