// Package dashboard реализует HTTP-обработчик дашборда.
//
// Handler возвращает профиль пользователя, последнюю отработанную
// сессию, результат сравнения с предыдущей и готовое сообщение о
// прогрессе. Физиотерапевт может запросить дашборд своего пациента,
// указав его uid в параметре user_id.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/glove-rehab-tracker/internal/http/middlewarectx"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/http/response"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/models"
	authzservice "github.com/magabrotheeeer/glove-rehab-tracker/internal/services/authz"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/storage/repository"
)

// Handler управляет HTTP-запросами дашборда.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс движка сессий для дашборда.
type Service interface {
	GetUser(ctx context.Context, uid string) (*models.User, error)
	Report(ctx context.Context, userID, requesterID string) (*models.ProgressReport, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Дашборд прогресса
// @Description Возвращает профиль, последнюю сессию и сообщение о прогрессе. Параметр user_id позволяет физиотерапевту открыть дашборд своего пациента.
// @Tags Dashboard
// @Produce  json
// @Security BearerAuth
// @Param user_id query string false "UID пациента (только для физиотерапевта)"
// @Success 200 {object} map[string]any "Дашборд пользователя"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Пациент не привязан к физиотерапевту"
// @Failure 404 {object} response.ErrorResponse "Профиль не найден"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при сборке дашборда"
// @Router /dashboard [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.dashboard"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	uid, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || uid == "" {
		log.Error("uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	target := r.URL.Query().Get("user_id")
	if target == "" {
		target = uid
	}

	report, err := h.service.Report(r.Context(), target, uid)
	if err != nil {
		if errors.Is(err, authzservice.ErrUnauthorized) {
			log.Error("access to patient data denied", sl.Err(err))
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("patient is not linked to you"))
			return
		}
		log.Error("failed to build progress report", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to build dashboard"))
		return
	}

	user, err := h.service.GetUser(r.Context(), target)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Error("user profile not found", sl.Err(err))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("user not found"))
			return
		}
		log.Error("failed to get user profile", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to build dashboard"))
		return
	}

	log.Info("dashboard built", slog.String("user", target),
		slog.Bool("has_sessions", report.HasSessions))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"user":   user,
		"report": report,
	}))
}
