// Package observation реализует HTTP-обработчик добавления наблюдения
// в карточку пациента. Пациент получает письмо о новом наблюдении
// через сервис уведомлений.
package observation

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/glove-rehab-tracker/internal/http/middlewarectx"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/http/response"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/models"
	authzservice "github.com/magabrotheeeer/glove-rehab-tracker/internal/services/authz"
	rosterservice "github.com/magabrotheeeer/glove-rehab-tracker/internal/services/roster"
)

// Request — входные данные наблюдения
type Request struct {
	Email string `json:"email" validate:"required,email"`
	Text  string `json:"text" validate:"required,min=1,max=2000"`
}

// Handler управляет HTTP-запросами на добавление наблюдения.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс реестра пациентов.
type Service interface {
	AddObservation(ctx context.Context, physioID, email, text string) error
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Добавить наблюдение
// @Description Добавляет наблюдение в карточку пациента и уведомляет его письмом. Только для физиотерапевта, ведущего пациента.
// @Tags Patients
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Текст наблюдения"
// @Success 200 {object} map[string]any "Наблюдение добавлено"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Пациент ведётся другим физиотерапевтом"
// @Failure 404 {object} response.ErrorResponse "Пациент не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при добавлении"
// @Router /patients/observations [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.patient.observation"

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

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	if err := h.service.AddObservation(r.Context(), uid, req.Email, req.Text); err != nil {
		switch {
		case errors.Is(err, rosterservice.ErrPatientNotFound):
			log.Error("patient not found", slog.String("email", req.Email))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("patient not found"))
		case errors.Is(err, authzservice.ErrUnauthorized):
			log.Error("patient belongs to another physio", slog.String("email", req.Email))
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("patient is not linked to you"))
		default:
			log.Error("failed to add observation", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to add observation"))
		}
		return
	}

	log.Info("observation added", slog.String("email", req.Email))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"message": "observation added successfully",
	}))
}
