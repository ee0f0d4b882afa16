// Package add реализует HTTP-обработчик добавления пациента.
//
// Handler доступен только физиотерапевту: заводит карточку пациента и
// допуск его почты к регистрации.
package add

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
	rosterservice "github.com/magabrotheeeer/glove-rehab-tracker/internal/services/roster"
)

// Request — входные данные для добавления пациента
type Request struct {
	Name  string `json:"name" validate:"required,min=2,max=100"`
	Email string `json:"email" validate:"required,email"`
}

// Handler управляет HTTP-запросами на добавление пациента.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс реестра пациентов.
type Service interface {
	AddPatient(ctx context.Context, physioID, name, email string) error
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
// @Summary Добавить пациента
// @Description Заводит карточку пациента и допускает его почту к регистрации. Только для физиотерапевта.
// @Tags Patients
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Данные пациента"
// @Success 200 {object} map[string]any "Пациент добавлен"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Доступно только физиотерапевту"
// @Failure 409 {object} response.ErrorResponse "Пациент уже существует"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при добавлении"
// @Router /patients [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.patient.add"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	uid, role, ok := physioFromContext(r)
	if !ok {
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

	if err := h.service.AddPatient(r.Context(), uid, req.Name, req.Email); err != nil {
		if errors.Is(err, rosterservice.ErrPatientExists) {
			log.Error("patient already exists", slog.String("email", req.Email))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("patient already exists"))
			return
		}
		log.Error("failed to add patient", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to add patient"))
		return
	}

	log.Info("patient added", slog.String("email", req.Email))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"email":   req.Email,
		"message": "patient added successfully",
	}))
}

func physioFromContext(r *http.Request) (uid, role string, ok bool) {
	uid, _ = r.Context().Value(middlewarectx.UserUID).(string)
	role, _ = r.Context().Value(middlewarectx.Role).(string)
	return uid, role, uid != "" && role == models.RolePhysio
}
