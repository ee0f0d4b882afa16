// Package services содержит проверку доступа физиотерапевта к данным
// пациента. Проверка обязательна перед любым межпользовательским
// чтением сессий или анализом прогресса.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/glove-rehab-tracker/internal/models"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/storage/repository"
)

// ErrUnauthorized возвращается вызывающим, когда доступ к чужим данным
// не подтверждён карточкой пациента.
var ErrUnauthorized = errors.New("requester is not linked to this patient")

// UserDirectory описывает чтение профилей и карточек пациентов.
type UserDirectory interface {
	// GetUser возвращает пользователя по UID или ErrNotFound.
	GetUser(ctx context.Context, uid string) (*models.User, error)
	// GetPatientLink возвращает карточку пациента по почте или ErrNotFound.
	GetPatientLink(ctx context.Context, email string) (*models.PatientLink, error)
}

// AuthzService отвечает на вопрос, ведёт ли физиотерапевт пациента.
type AuthzService struct {
	repo UserDirectory
	log  *slog.Logger
}

// NewAuthzService создает новый экземпляр AuthzService.
func NewAuthzService(repo UserDirectory, log *slog.Logger) *AuthzService {
	return &AuthzService{repo: repo, log: log}
}

// PhysioMayAccess сообщает, привязан ли пациент patientUserID к
// физиотерапевту physioID. Отсутствие профиля, почты или карточки —
// это отказ в доступе, а не ошибка; ошибкой считается только сбой
// хранилища.
func (s *AuthzService) PhysioMayAccess(ctx context.Context, patientUserID, physioID string) (bool, error) {
	const op = "authz.PhysioMayAccess"

	user, err := s.repo.GetUser(ctx, patientUserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Warn("authz denied: user not found", slog.String("user", patientUserID))
			return false, nil
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if user.Email == "" {
		s.log.Warn("authz denied: user has no email", slog.String("user", patientUserID))
		return false, nil
	}

	link, err := s.repo.GetPatientLink(ctx, user.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Warn("authz denied: patient link not found", slog.String("email", user.Email))
			return false, nil
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return link.PhysioID == physioID, nil
}
