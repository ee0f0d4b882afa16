// Package detail реализует HTTP-обработчик карточки пациента:
// наблюдения физиотерапевта и текущее количество отработанных сессий.
package detail

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/glove-rehab-tracker/internal/http/middlewarectx"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/http/response"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/models"
	authzservice "github.com/magabrotheeeer/glove-rehab-tracker/internal/services/authz"
	rosterservice "github.com/magabrotheeeer/glove-rehab-tracker/internal/services/roster"
)

// Handler управляет HTTP-запросами карточки пациента.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс реестра пациентов.
type Service interface {
	PatientDetail(ctx context.Context, physioID, email string) (*models.PatientLink, int, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Карточка пациента
// @Description Возвращает карточку пациента с наблюдениями и количеством отработанных сессий. Только для ведущего физиотерапевта.
// @Tags Patients
// @Produce  json
// @Security BearerAuth
// @Param email path string true "Почта пациента"
// @Success 200 {object} map[string]any "Карточка пациента"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Пациент ведётся другим физиотерапевтом"
// @Failure 404 {object} response.ErrorResponse "Пациент не найден"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при получении карточки"
// @Router /patients/{email} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.patient.detail"

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

	email := chi.URLParam(r, "email")
	if email == "" {
		log.Error("email path parameter is empty")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("email is required"))
		return
	}

	link, sessionCount, err := h.service.PatientDetail(r.Context(), uid, email)
	if err != nil {
		switch {
		case errors.Is(err, rosterservice.ErrPatientNotFound):
			log.Error("patient not found", slog.String("email", email))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("patient not found"))
		case errors.Is(err, authzservice.ErrUnauthorized):
			log.Error("patient belongs to another physio", slog.String("email", email))
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("patient is not linked to you"))
		default:
			log.Error("failed to get patient detail", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to get patient"))
		}
		return
	}

	log.Info("patient detail loaded", slog.String("email", email))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"patient":       link,
		"session_count": sessionCount,
	}))
}
