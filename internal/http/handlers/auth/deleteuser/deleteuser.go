// Package deleteuser реализует HTTP-обработчик удаления учётной записи.
//
// Удаляется только учётная запись вызывающего: профиль и история
// сессий остаются в хранилище.
package deleteuser

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/glove-rehab-tracker/internal/http/middlewarectx"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/http/response"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/identity"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/lib/sl"
)

// Handler управляет HTTP-запросами на удаление учётной записи.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс удаления учётной записи.
type Service interface {
	DeleteUser(ctx context.Context, email string) error
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Удалить свою учётную запись
// @Description Удаляет учётную запись вызывающего. Профиль и сессии сохраняются.
// @Tags Auth
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Учётная запись удалена"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Учётная запись не найдена"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при удалении"
// @Router /users/me [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.deleteuser"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	email, ok := r.Context().Value(middlewarectx.User).(string)
	if !ok || email == "" {
		log.Error("email not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	if err := h.service.DeleteUser(r.Context(), email); err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			log.Error("identity not found", sl.Err(err))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("account not found"))
			return
		}
		log.Error("failed to delete account", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to delete account"))
		return
	}

	log.Info("account deleted", slog.String("email", email))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"message": "account deleted successfully",
	}))
}
