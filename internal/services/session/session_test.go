package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/glove-rehab-tracker/internal/docstore"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/lib/units"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/models"
	authzservice "github.com/magabrotheeeer/glove-rehab-tracker/internal/services/authz"
	progressservice "github.com/magabrotheeeer/glove-rehab-tracker/internal/services/progress"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/storage/repository"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) ListSessionDocs(ctx context.Context, uid string, ordinal int) ([]docstore.Document, error) {
	args := m.Called(ctx, uid, ordinal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]docstore.Document), args.Error(1)
}

func (m *RepoMock) WriteZeroSession(ctx context.Context, uid string, ordinal int) error {
	return m.Called(ctx, uid, ordinal).Error(0)
}

func (m *RepoMock) MergeUserSessionState(ctx context.Context, uid string, sessionCount int) error {
	return m.Called(ctx, uid, sessionCount).Error(0)
}

func (m *RepoMock) GetUser(ctx context.Context, uid string) (*models.User, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type AuthzMock struct{ mock.Mock }

func (m *AuthzMock) PhysioMayAccess(ctx context.Context, patientUserID, physioID string) (bool, error) {
	args := m.Called(ctx, patientUserID, physioID)
	return args.Bool(0), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func sessionDocs(uid string, ordinal int, angle string) []docstore.Document {
	collection := repository.SessionCollection(uid, ordinal)
	docs := make([]docstore.Document, 0, len(models.Fingers))
	for _, finger := range models.Fingers {
		docs = append(docs, docstore.Document{
			Path: collection + "/" + finger,
			Fields: map[string]any{
				"angle":      angle,
				"force":      "0 N",
				"servoforce": "0 N",
				"velocity":   "0 °/s",
			},
		})
	}
	return docs
}

func zeroDocs(uid string, ordinal int) []docstore.Document {
	collection := repository.SessionCollection(uid, ordinal)
	docs := make([]docstore.Document, 0, len(models.Fingers))
	for _, finger := range models.Fingers {
		docs = append(docs, docstore.Document{
			Path:   collection + "/" + finger,
			Fields: units.ZeroFields(),
		})
	}
	return docs
}

func TestFindLatestValidSession(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(r *RepoMock)
		wantNum    int
		wantFound  bool
	}{
		{
			name: "валидные на 0 и 2, нулевая на 1, третьей нет",
			setupMocks: func(r *RepoMock) {
				r.On("ListSessionDocs", mock.Anything, "u1", 0).Return(sessionDocs("u1", 0, "40°"), nil).Once()
				r.On("ListSessionDocs", mock.Anything, "u1", 1).Return(zeroDocs("u1", 1), nil).Once()
				r.On("ListSessionDocs", mock.Anything, "u1", 2).Return(sessionDocs("u1", 2, "50°"), nil).Once()
				r.On("ListSessionDocs", mock.Anything, "u1", 3).Return([]docstore.Document{}, nil).Once()
			},
			wantNum:   2,
			wantFound: true,
		},
		{
			name: "коллекций нет вовсе",
			setupMocks: func(r *RepoMock) {
				r.On("ListSessionDocs", mock.Anything, "u1", 0).Return([]docstore.Document{}, nil).Once()
			},
			wantFound: false,
		},
		{
			name: "только нулевые сессии",
			setupMocks: func(r *RepoMock) {
				r.On("ListSessionDocs", mock.Anything, "u1", 0).Return(zeroDocs("u1", 0), nil).Once()
				r.On("ListSessionDocs", mock.Anything, "u1", 1).Return(zeroDocs("u1", 1), nil).Once()
				r.On("ListSessionDocs", mock.Anything, "u1", 2).Return([]docstore.Document{}, nil).Once()
			},
			wantFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repoMock := new(RepoMock)
			tt.setupMocks(repoMock)
			service := NewSessionService(repoMock, new(AuthzMock), newNoopLogger())

			num, found, err := service.FindLatestValidSession(context.Background(), "u1", "")

			assert.NoError(t, err)
			assert.Equal(t, tt.wantFound, found)
			assert.Equal(t, tt.wantNum, num)
			// обход остановился на первой отсутствующей коллекции
			repoMock.AssertExpectations(t)
		})
	}
}

func TestFindLatestValidSession_AccessDenied(t *testing.T) {
	repoMock := new(RepoMock)
	authzMock := new(AuthzMock)
	authzMock.On("PhysioMayAccess", mock.Anything, "patient", "stranger").Return(false, nil).Once()
	service := NewSessionService(repoMock, authzMock, newNoopLogger())

	_, _, err := service.FindLatestValidSession(context.Background(), "patient", "stranger")

	assert.ErrorIs(t, err, authzservice.ErrUnauthorized)
	// до успешной проверки доступа чтений сессий нет
	repoMock.AssertNotCalled(t, "ListSessionDocs", mock.Anything, mock.Anything, mock.Anything)
	authzMock.AssertExpectations(t)
}

func TestCountValidSessions(t *testing.T) {
	repoMock := new(RepoMock)
	repoMock.On("ListSessionDocs", mock.Anything, "u1", 0).Return(sessionDocs("u1", 0, "40°"), nil).Once()
	repoMock.On("ListSessionDocs", mock.Anything, "u1", 1).Return(zeroDocs("u1", 1), nil).Once()
	repoMock.On("ListSessionDocs", mock.Anything, "u1", 2).Return(sessionDocs("u1", 2, "50°"), nil).Once()
	repoMock.On("ListSessionDocs", mock.Anything, "u1", 3).Return([]docstore.Document{}, nil).Once()
	service := NewSessionService(repoMock, new(AuthzMock), newNoopLogger())

	count, err := service.CountValidSessions(context.Background(), "u1")

	assert.NoError(t, err)
	assert.Equal(t, 2, count)
	repoMock.AssertExpectations(t)
}

func TestArchiveAndAdvance(t *testing.T) {
	repoMock := new(RepoMock)
	repoMock.On("WriteZeroSession", mock.Anything, "u1", 3).Return(nil).Once()
	repoMock.On("MergeUserSessionState", mock.Anything, "u1", 3).Return(nil).Once()
	service := NewSessionService(repoMock, new(AuthzMock), newNoopLogger())

	next, err := service.ArchiveAndAdvance(context.Background(), "u1", 2)

	assert.NoError(t, err)
	assert.Equal(t, 3, next)
	repoMock.AssertExpectations(t)
}

func TestReport_FirstSession(t *testing.T) {
	repoMock := new(RepoMock)
	repoMock.On("ListSessionDocs", mock.Anything, "u1", 0).Return(sessionDocs("u1", 0, "40°"), nil).Once()
	repoMock.On("ListSessionDocs", mock.Anything, "u1", 1).Return([]docstore.Document{}, nil).Once()
	repoMock.On("WriteZeroSession", mock.Anything, "u1", 1).Return(nil).Once()
	repoMock.On("MergeUserSessionState", mock.Anything, "u1", 1).Return(nil).Once()
	service := NewSessionService(repoMock, new(AuthzMock), newNoopLogger())

	report, err := service.Report(context.Background(), "u1", "u1")

	assert.NoError(t, err)
	assert.True(t, report.HasSessions)
	assert.Equal(t, 1, report.SessionCount)
	assert.Equal(t, 0, report.Session.Ordinal)
	assert.True(t, report.Result.FirstSession)
	assert.Equal(t, progressservice.MessageFirstSession, report.Message)
	repoMock.AssertExpectations(t)
}

func TestReport_ComparesLastTwoValidSessions(t *testing.T) {
	repoMock := new(RepoMock)
	repoMock.On("ListSessionDocs", mock.Anything, "u1", 0).Return(sessionDocs("u1", 0, "40°"), nil).Once()
	repoMock.On("ListSessionDocs", mock.Anything, "u1", 1).Return(zeroDocs("u1", 1), nil).Once()
	repoMock.On("ListSessionDocs", mock.Anything, "u1", 2).Return(sessionDocs("u1", 2, "50°"), nil).Once()
	repoMock.On("ListSessionDocs", mock.Anything, "u1", 3).Return([]docstore.Document{}, nil).Once()
	repoMock.On("WriteZeroSession", mock.Anything, "u1", 3).Return(nil).Once()
	repoMock.On("MergeUserSessionState", mock.Anything, "u1", 3).Return(nil).Once()
	service := NewSessionService(repoMock, new(AuthzMock), newNoopLogger())

	report, err := service.Report(context.Background(), "u1", "")

	assert.NoError(t, err)
	assert.Equal(t, 2, report.Session.Ordinal)
	assert.Equal(t, 3, report.SessionCount)
	// нулевая сессия 1 пропущена: сравниваются сессии 2 и 0
	assert.Equal(t, models.CategoryImproved, report.Result.Angle.Category)
	assert.InDelta(t, 10.0, report.Result.Angle.Delta, 1e-9)
	assert.Contains(t, report.Message, "Flexión mejorada en 10.0°.")
	repoMock.AssertExpectations(t)
}

func TestReport_NoSessions(t *testing.T) {
	repoMock := new(RepoMock)
	repoMock.On("ListSessionDocs", mock.Anything, "u1", 0).Return([]docstore.Document{}, nil).Once()
	service := NewSessionService(repoMock, new(AuthzMock), newNoopLogger())

	report, err := service.Report(context.Background(), "u1", "u1")

	assert.NoError(t, err)
	assert.False(t, report.HasSessions)
	assert.Equal(t, MessageNoSessions, report.Message)
	// без отработанных сессий архивирование не выполняется
	repoMock.AssertNotCalled(t, "WriteZeroSession", mock.Anything, mock.Anything, mock.Anything)
	repoMock.AssertExpectations(t)
}

func TestReport_StorageErrorPropagates(t *testing.T) {
	storageErr := errors.New("connection reset")
	repoMock := new(RepoMock)
	repoMock.On("ListSessionDocs", mock.Anything, "u1", 0).Return(nil, storageErr).Once()
	service := NewSessionService(repoMock, new(AuthzMock), newNoopLogger())

	_, err := service.Report(context.Background(), "u1", "")

	assert.ErrorIs(t, err, storageErr)
	repoMock.AssertExpectations(t)
}
