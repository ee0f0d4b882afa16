package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/glove-rehab-tracker/internal/http/middlewarectx"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/models"
	authzservice "github.com/magabrotheeeer/glove-rehab-tracker/internal/services/authz"
	sessionservice "github.com/magabrotheeeer/glove-rehab-tracker/internal/services/session"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) GetUser(ctx context.Context, uid string) (*models.User, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *ServiceMock) Report(ctx context.Context, userID, requesterID string) (*models.ProgressReport, error) {
	args := m.Called(ctx, userID, requesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProgressReport), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func newRequest(target, uid string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	ctx := context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123")
	if uid != "" {
		ctx = context.WithValue(ctx, middlewarectx.UserUID, uid)
	}
	return req.WithContext(ctx)
}

func TestDashboardHandler_OwnDashboard(t *testing.T) {
	serviceMock := new(ServiceMock)
	report := &models.ProgressReport{
		HasSessions:  true,
		SessionCount: 2,
		Message:      "¡Sigue así! Tus métricas están estables.",
	}
	serviceMock.On("Report", mock.Anything, "u1", "u1").Return(report, nil).Once()
	serviceMock.On("GetUser", mock.Anything, "u1").
		Return(&models.User{UID: "u1", Name: "Ana", Role: models.RoleBasic}, nil).Once()
	handler := New(newNoopLogger(), serviceMock)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newRequest("/dashboard", "u1"))

	assert.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "OK", got["status"])
	data := got["data"].(map[string]any)
	assert.NotNil(t, data["user"])
	assert.NotNil(t, data["report"])
	serviceMock.AssertExpectations(t)
}

func TestDashboardHandler_PhysioViewsPatient(t *testing.T) {
	serviceMock := new(ServiceMock)
	serviceMock.On("Report", mock.Anything, "patient-uid", "physio-uid").
		Return(&models.ProgressReport{HasSessions: true, SessionCount: 1}, nil).Once()
	serviceMock.On("GetUser", mock.Anything, "patient-uid").
		Return(&models.User{UID: "patient-uid", Role: models.RoleBasic}, nil).Once()
	handler := New(newNoopLogger(), serviceMock)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newRequest("/dashboard?user_id=patient-uid", "physio-uid"))

	assert.Equal(t, http.StatusOK, rec.Code)
	serviceMock.AssertExpectations(t)
}

func TestDashboardHandler_AccessDenied(t *testing.T) {
	serviceMock := new(ServiceMock)
	serviceMock.On("Report", mock.Anything, "patient-uid", "stranger-uid").
		Return(nil, authzservice.ErrUnauthorized).Once()
	handler := New(newNoopLogger(), serviceMock)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newRequest("/dashboard?user_id=patient-uid", "stranger-uid"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	serviceMock.AssertNotCalled(t, "GetUser", mock.Anything, mock.Anything)
}

func TestDashboardHandler_MissingUID(t *testing.T) {
	serviceMock := new(ServiceMock)
	handler := New(newNoopLogger(), serviceMock)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newRequest("/dashboard", ""))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	serviceMock.AssertNotCalled(t, "Report", mock.Anything, mock.Anything, mock.Anything)
}

func TestDashboardHandler_ServiceError(t *testing.T) {
	serviceMock := new(ServiceMock)
	serviceMock.On("Report", mock.Anything, "u1", "u1").
		Return(nil, errors.New("storage down")).Once()
	handler := New(newNoopLogger(), serviceMock)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newRequest("/dashboard", "u1"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestDashboardHandler_NoSessionsMessage(t *testing.T) {
	serviceMock := new(ServiceMock)
	serviceMock.On("Report", mock.Anything, "u1", "u1").
		Return(&models.ProgressReport{Message: sessionservice.MessageNoSessions}, nil).Once()
	serviceMock.On("GetUser", mock.Anything, "u1").
		Return(&models.User{UID: "u1", Role: models.RoleBasic}, nil).Once()
	handler := New(newNoopLogger(), serviceMock)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newRequest("/dashboard", "u1"))

	assert.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	data := got["data"].(map[string]any)
	report := data["report"].(map[string]any)
	assert.Equal(t, sessionservice.MessageNoSessions, report["message"])
}
