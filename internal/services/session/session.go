// Package services содержит движок версионирования сессий: поиск
// последней валидной сессии среди последовательно нумерованных
// коллекций, нормализацию показаний, копирующее архивирование и сборку
// отчёта о прогрессе для дашборда.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/glove-rehab-tracker/internal/docstore"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/lib/units"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/models"
	authzservice "github.com/magabrotheeeer/glove-rehab-tracker/internal/services/authz"
	progressservice "github.com/magabrotheeeer/glove-rehab-tracker/internal/services/progress"
)

// MessageNoSessions выводится, когда ни одна сессия ещё не отработана.
const MessageNoSessions = "Aún no tiene sesión registrada."

// SessionRepository описывает методы хранилища, нужные движку сессий.
type SessionRepository interface {
	// ListSessionDocs возвращает документы пальцев коллекции сессии;
	// пустой список означает, что коллекция не создана.
	ListSessionDocs(ctx context.Context, uid string, ordinal int) ([]docstore.Document, error)
	// WriteZeroSession преднаполняет коллекцию сессии нулями.
	WriteZeroSession(ctx context.Context, uid string, ordinal int) error
	// MergeUserSessionState сливает hasSessions и счётчик сессий в профиль.
	MergeUserSessionState(ctx context.Context, uid string, sessionCount int) error
	// GetUser возвращает пользователя по UID.
	GetUser(ctx context.Context, uid string) (*models.User, error)
}

// AccessChecker проверяет право физиотерапевта на данные пациента.
type AccessChecker interface {
	PhysioMayAccess(ctx context.Context, patientUserID, physioID string) (bool, error)
}

// SessionService реализует обнаружение, нормализацию и архивирование
// сессий сенсорных данных.
type SessionService struct {
	repo  SessionRepository
	authz AccessChecker
	log   *slog.Logger
}

// NewSessionService создает новый экземпляр SessionService.
func NewSessionService(repo SessionRepository, authz AccessChecker, log *slog.Logger) *SessionService {
	return &SessionService{
		repo:  repo,
		authz: authz,
		log:   log,
	}
}

// checkAccess выполняет проверку доступа при межпользовательском
// запросе. До успешной проверки чтения сессий не выполняются.
func (s *SessionService) checkAccess(ctx context.Context, userID, requesterID string) error {
	const op = "session.checkAccess"
	if requesterID == "" || requesterID == userID {
		return nil
	}
	ok, err := s.authz.PhysioMayAccess(ctx, userID, requesterID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return authzservice.ErrUnauthorized
	}
	return nil
}

// FindLatestValidSession последовательно обходит коллекции сессий с
// нулевого номера и возвращает наибольший номер отработанной сессии.
// Обход останавливается на первой отсутствующей коллекции; коллекции
// с полностью нулевыми показаниями пропускаются как кандидаты, но не
// прерывают обход. Второй результат false означает, что ни одна сессия
// не была отработана.
func (s *SessionService) FindLatestValidSession(ctx context.Context, userID, requesterID string) (int, bool, error) {
	const op = "session.FindLatestValidSession"

	if err := s.checkAccess(ctx, userID, requesterID); err != nil {
		return 0, false, err
	}

	valid, err := s.scanValidSessions(ctx, userID)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}
	if len(valid) == 0 {
		return 0, false, nil
	}
	return valid[len(valid)-1].ordinal, true, nil
}

// CountValidSessions возвращает количество отработанных сессий
// пользователя. Используется реестром пациентов.
func (s *SessionService) CountValidSessions(ctx context.Context, userID string) (int, error) {
	const op = "session.CountValidSessions"

	valid, err := s.scanValidSessions(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return len(valid), nil
}

// ArchiveAndAdvance создаёт следующую коллекцию сессии, преднаполненную
// нулевыми показаниями всех пальцев, и сливает в профиль пользователя
// флаг hasSessions и счётчик сессий. Перезапись уже существующей
// следующей коллекции нулями допустима — операция идемпотентна.
func (s *SessionService) ArchiveAndAdvance(ctx context.Context, userID string, currentOrdinal int) (int, error) {
	const op = "session.ArchiveAndAdvance"

	next := currentOrdinal + 1
	if err := s.repo.WriteZeroSession(ctx, userID, next); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.MergeUserSessionState(ctx, userID, next); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("archived session, advanced to next ordinal",
		slog.String("user", userID), slog.Int("ordinal", next))
	return next, nil
}

// Report собирает отчёт дашборда: последняя валидная сессия, сравнение
// с предыдущей валидной и готовое сообщение, после чего выполняет
// копирующее архивирование. Межпользовательский запрос проходит
// проверку доступа до первого чтения.
func (s *SessionService) Report(ctx context.Context, userID, requesterID string) (*models.ProgressReport, error) {
	const op = "session.Report"

	if err := s.checkAccess(ctx, userID, requesterID); err != nil {
		return nil, err
	}

	valid, err := s.scanValidSessions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(valid) == 0 {
		return &models.ProgressReport{Message: MessageNoSessions}, nil
	}

	current := processSession(valid[len(valid)-1])
	var previous *models.ProcessedSession
	if len(valid) > 1 {
		prev := processSession(valid[len(valid)-2])
		previous = &prev
	}

	result := progressservice.Analyze(current, previous)
	message := progressservice.BuildMessage(result)

	if _, err := s.ArchiveAndAdvance(ctx, userID, current.Ordinal); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.ProgressReport{
		HasSessions:  true,
		SessionCount: current.Ordinal + 1,
		Session:      &current,
		Result:       &result,
		Message:      message,
	}, nil
}

// GetUser возвращает профиль пользователя. Нужен дашборду, чтобы отдать
// запись пользователя вместе с отчётом.
func (s *SessionService) GetUser(ctx context.Context, uid string) (*models.User, error) {
	return s.repo.GetUser(ctx, uid)
}

type scannedSession struct {
	ordinal int
	docs    []docstore.Document
}

// scanValidSessions обходит коллекции с нулевого номера до первой
// отсутствующей и собирает отработанные сессии. Стоимость обхода
// линейна по числу существующих коллекций; денормализованный счётчик
// в профиле — лишь подсказка, источником истины остаётся обход.
func (s *SessionService) scanValidSessions(ctx context.Context, userID string) ([]scannedSession, error) {
	var valid []scannedSession
	for ordinal := 0; ; ordinal++ {
		docs, err := s.repo.ListSessionDocs(ctx, userID, ordinal)
		if err != nil {
			return nil, err
		}
		if len(docs) == 0 {
			break
		}
		if hasValidData(docs) {
			valid = append(valid, scannedSession{ordinal: ordinal, docs: docs})
		}
	}
	return valid, nil
}

// hasValidData сообщает, что хотя бы одна метрика хотя бы одного
// документа сессии отлична от нуля.
func hasValidData(docs []docstore.Document) bool {
	for _, doc := range docs {
		if !units.ParseReading(doc.Fields).IsZero() {
			return true
		}
	}
	return false
}

// processSession нормализует документы сессии в показания четырёх
// пальцев в каноническом порядке. Отсутствующий документ пальца даёт
// нулевые показания.
func processSession(scanned scannedSession) models.ProcessedSession {
	byFinger := make(map[string]models.FingerReading, len(scanned.docs))
	for _, doc := range scanned.docs {
		byFinger[doc.ID()] = units.ParseReading(doc.Fields)
	}

	readings := make([]models.FingerReading, 0, len(models.Fingers))
	for _, finger := range models.Fingers {
		readings = append(readings, byFinger[finger])
	}
	return models.ProcessedSession{Ordinal: scanned.ordinal, Readings: readings}
}
