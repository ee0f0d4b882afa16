// Package services содержит реестр пациентов физиотерапевта: список с
// количеством отработанных сессий, добавление пациентов и наблюдений.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/glove-rehab-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/models"
	authzservice "github.com/magabrotheeeer/glove-rehab-tracker/internal/services/authz"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/storage/repository"
)

// ErrPatientExists возвращается при попытке завести уже существующую
// карточку пациента.
var ErrPatientExists = errors.New("patient already exists")

// ErrPatientNotFound возвращается, когда карточка пациента отсутствует.
var ErrPatientNotFound = errors.New("patient not found")

const rosterCacheTTL = 5 * time.Minute

// RosterRepository описывает методы хранилища, нужные реестру.
type RosterRepository interface {
	CreatePatientLink(ctx context.Context, link models.PatientLink) error
	GetPatientLink(ctx context.Context, email string) (*models.PatientLink, error)
	ListPatientLinks(ctx context.Context, physioID string) ([]models.PatientLink, error)
	MergePatientUserID(ctx context.Context, email, uid string) error
	AppendObservation(ctx context.Context, email string, obs models.Observation) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	MarkUserHasSessions(ctx context.Context, uid string) error
}

// SessionCounter считает отработанные сессии пользователя.
type SessionCounter interface {
	CountValidSessions(ctx context.Context, userID string) (int, error)
}

// Cache описывает кеш списка пациентов.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// Publisher публикует события для сервиса уведомлений.
type Publisher interface {
	PublishMessage(message any) error
}

// RosterService реализует операции реестра пациентов.
type RosterService struct {
	repo      RosterRepository
	sessions  SessionCounter
	cache     Cache
	publisher Publisher
	log       *slog.Logger
}

// NewRosterService создает новый экземпляр RosterService.
func NewRosterService(repo RosterRepository, sessions SessionCounter,
	cache Cache, publisher Publisher, log *slog.Logger) *RosterService {
	return &RosterService{
		repo:      repo,
		sessions:  sessions,
		cache:     cache,
		publisher: publisher,
		log:       log,
	}
}

func rosterCacheKey(physioID string) string {
	return "roster:" + physioID
}

// ListPatients возвращает сводку по каждому пациенту физиотерапевта.
// Сбой подсчёта сессий одного пациента не валит весь список: такой
// пациент попадает в ответ с нулевым счётчиком. Пациент без
// завершённой регистрации тоже попадает в список с нулевым счётчиком.
func (s *RosterService) ListPatients(ctx context.Context, physioID string) ([]models.PatientSummary, error) {
	const op = "roster.ListPatients"

	key := rosterCacheKey(physioID)
	var cached []models.PatientSummary
	found, err := s.cache.Get(key, &cached)
	if err != nil {
		s.log.Warn("failed to read roster cache", sl.Err(err))
	}
	if found {
		return cached, nil
	}

	links, err := s.repo.ListPatientLinks(ctx, physioID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	summaries := make([]models.PatientSummary, 0, len(links))
	for _, link := range links {
		summaries = append(summaries, s.summarize(ctx, link))
	}

	if err := s.cache.Set(key, summaries, rosterCacheTTL); err != nil {
		s.log.Warn("failed to write roster cache", sl.Err(err))
	}
	return summaries, nil
}

// summarize строит сводку одного пациента, попутно залечивая
// рассинхронизацию: пропавший uid в карточке и несведённый флаг
// hasSessions в профиле.
func (s *RosterService) summarize(ctx context.Context, link models.PatientLink) models.PatientSummary {
	summary := models.PatientSummary{
		Name:   link.Name,
		Email:  link.Email,
		UserID: link.UserID,
	}

	if summary.UserID == "" {
		user, err := s.repo.FindUserByEmail(ctx, link.Email)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				s.log.Warn("failed to resolve patient uid",
					slog.String("email", link.Email), sl.Err(err))
			}
			return summary
		}
		if err := s.repo.MergePatientUserID(ctx, link.Email, user.UID); err != nil {
			s.log.Warn("failed to backfill patient uid",
				slog.String("email", link.Email), sl.Err(err))
		}
		summary.UserID = user.UID
	}

	count, err := s.sessions.CountValidSessions(ctx, summary.UserID)
	if err != nil {
		s.log.Warn("failed to count patient sessions",
			slog.String("email", link.Email), sl.Err(err))
		return summary
	}
	summary.SessionCount = count
	summary.HasSessions = count > 0

	if count > 0 {
		if err := s.repo.MarkUserHasSessions(ctx, summary.UserID); err != nil {
			s.log.Warn("failed to backfill hasSessions flag",
				slog.String("email", link.Email), sl.Err(err))
		}
	}
	return summary
}

// AddPatient заводит карточку пациента и допуск его почты к
// регистрации. Повторное добавление той же почты — ошибка.
func (s *RosterService) AddPatient(ctx context.Context, physioID, name, email string) error {
	const op = "roster.AddPatient"

	_, err := s.repo.GetPatientLink(ctx, email)
	if err == nil {
		return ErrPatientExists
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}

	link := models.PatientLink{
		Name:      name,
		Email:     email,
		PhysioID:  physioID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.CreatePatientLink(ctx, link); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.cache.Invalidate(rosterCacheKey(physioID)); err != nil {
		s.log.Warn("failed to invalidate roster cache", sl.Err(err))
	}
	return nil
}

// AddObservation добавляет наблюдение в карточку пациента и публикует
// событие для сервиса уведомлений. Сбой публикации не валит запись:
// наблюдение уже сохранено, пациент просто не получит письмо.
func (s *RosterService) AddObservation(ctx context.Context, physioID, email, text string) error {
	const op = "roster.AddObservation"

	link, err := s.repo.GetPatientLink(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPatientNotFound
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if link.PhysioID != physioID {
		return authzservice.ErrUnauthorized
	}

	obs := models.Observation{
		Text:     text,
		Date:     time.Now().UTC(),
		PhysioID: physioID,
	}
	if err := s.repo.AppendObservation(ctx, email, obs); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	event := models.ObservationEvent{
		PatientEmail: link.Email,
		PatientName:  link.Name,
		Text:         obs.Text,
		Date:         obs.Date,
	}
	if err := s.publisher.PublishMessage(event); err != nil {
		s.log.Error("failed to publish observation event", sl.Err(err))
	}

	if err := s.cache.Invalidate(rosterCacheKey(physioID)); err != nil {
		s.log.Warn("failed to invalidate roster cache", sl.Err(err))
	}
	return nil
}

// PatientDetail возвращает карточку пациента с наблюдениями и текущим
// количеством отработанных сессий. Карточка чужого пациента недоступна.
func (s *RosterService) PatientDetail(ctx context.Context, physioID, email string) (*models.PatientLink, int, error) {
	const op = "roster.PatientDetail"

	link, err := s.repo.GetPatientLink(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, 0, ErrPatientNotFound
		}
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	if link.PhysioID != physioID {
		return nil, 0, authzservice.ErrUnauthorized
	}

	if link.UserID == "" {
		return link, 0, nil
	}
	count, err := s.sessions.CountValidSessions(ctx, link.UserID)
	if err != nil {
		s.log.Warn("failed to count patient sessions",
			slog.String("email", email), sl.Err(err))
		return link, 0, nil
	}
	return link, count, nil
}
