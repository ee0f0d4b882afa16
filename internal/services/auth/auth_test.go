package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/glove-rehab-tracker/internal/identity"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/lib/jwt"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/models"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/storage/repository"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) CreateUserProfile(ctx context.Context, user models.User) error {
	return m.Called(ctx, user).Error(0)
}
func (m *RepoMock) DeleteUserProfile(ctx context.Context, uid string) error {
	return m.Called(ctx, uid).Error(0)
}
func (m *RepoMock) GetUser(ctx context.Context, uid string) (*models.User, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *RepoMock) MarkUserHasSessions(ctx context.Context, uid string) error {
	return m.Called(ctx, uid).Error(0)
}
func (m *RepoMock) WriteZeroSession(ctx context.Context, uid string, ordinal int) error {
	return m.Called(ctx, uid, ordinal).Error(0)
}
func (m *RepoMock) IsRegistrationAllowed(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}
func (m *RepoMock) MarkRegistered(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}
func (m *RepoMock) GetPatientLink(ctx context.Context, email string) (*models.PatientLink, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PatientLink), args.Error(1)
}
func (m *RepoMock) MergePatientUserID(ctx context.Context, email, uid string) error {
	return m.Called(ctx, email, uid).Error(0)
}

type ProviderMock struct{ mock.Mock }

func (m *ProviderMock) CreateUser(ctx context.Context, email, rawPassword string) (string, error) {
	args := m.Called(ctx, email, rawPassword)
	return args.String(0), args.Error(1)
}
func (m *ProviderMock) DeleteUser(ctx context.Context, uid string) error {
	return m.Called(ctx, uid).Error(0)
}
func (m *ProviderMock) GetUIDByEmail(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}
func (m *ProviderMock) VerifyPassword(ctx context.Context, email, rawPassword string) (string, error) {
	args := m.Called(ctx, email, rawPassword)
	return args.String(0), args.Error(1)
}

type MakerMock struct{ mock.Mock }

func (m *MakerMock) GenerateToken(userUID, email, role string) (string, error) {
	args := m.Called(userUID, email, role)
	return args.String(0), args.Error(1)
}
func (m *MakerMock) ParseToken(tokenStr string) (*jwt.CustomClaims, error) {
	args := m.Called(tokenStr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*jwt.CustomClaims), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func newService(r *RepoMock, p *ProviderMock, mk *MakerMock) *AuthService {
	return NewAuthService(r, p, mk, newNoopLogger())
}

func TestRegisterUser_Basic(t *testing.T) {
	repoMock := new(RepoMock)
	providerMock := new(ProviderMock)
	repoMock.On("IsRegistrationAllowed", mock.Anything, "ana@example.com").Return(true, nil).Once()
	providerMock.On("CreateUser", mock.Anything, "ana@example.com", "secret1").Return("u1", nil).Once()
	repoMock.On("CreateUserProfile", mock.Anything, mock.MatchedBy(func(u models.User) bool {
		return u.UID == "u1" && u.Role == models.RoleBasic && u.Email == "ana@example.com"
	})).Return(nil).Once()
	repoMock.On("WriteZeroSession", mock.Anything, "u1", 0).Return(nil).Once()
	repoMock.On("MarkUserHasSessions", mock.Anything, "u1").Return(nil).Once()
	repoMock.On("MarkRegistered", mock.Anything, "ana@example.com").Return(nil).Once()
	repoMock.On("GetPatientLink", mock.Anything, "ana@example.com").
		Return(&models.PatientLink{Email: "ana@example.com", PhysioID: "physio"}, nil).Once()
	repoMock.On("MergePatientUserID", mock.Anything, "ana@example.com", "u1").Return(nil).Once()
	service := newService(repoMock, providerMock, new(MakerMock))

	uid, err := service.RegisterUser(context.Background(), RegisterUser{
		Name:     "Ana",
		Email:    "ana@example.com",
		Password: "secret1",
		Role:     models.RoleBasic,
	})

	assert.NoError(t, err)
	assert.Equal(t, "u1", uid)
	repoMock.AssertExpectations(t)
	providerMock.AssertExpectations(t)
}

func TestRegisterUser_BasicNotAllowed(t *testing.T) {
	repoMock := new(RepoMock)
	providerMock := new(ProviderMock)
	repoMock.On("IsRegistrationAllowed", mock.Anything, "ana@example.com").Return(false, nil).Once()
	service := newService(repoMock, providerMock, new(MakerMock))

	_, err := service.RegisterUser(context.Background(), RegisterUser{
		Name:     "Ana",
		Email:    "ana@example.com",
		Password: "secret1",
		Role:     models.RoleBasic,
	})

	assert.ErrorIs(t, err, ErrNotAllowed)
	providerMock.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegisterUser_Physio(t *testing.T) {
	repoMock := new(RepoMock)
	providerMock := new(ProviderMock)
	providerMock.On("CreateUser", mock.Anything, "doc@example.com", "secret1").Return("p1", nil).Once()
	repoMock.On("CreateUserProfile", mock.Anything, mock.MatchedBy(func(u models.User) bool {
		return u.UID == "p1" && u.Role == models.RolePhysio && u.License == "12345678"
	})).Return(nil).Once()
	service := newService(repoMock, providerMock, new(MakerMock))

	uid, err := service.RegisterUser(context.Background(), RegisterUser{
		Name:     "Doc",
		Email:    "doc@example.com",
		Password: "secret1",
		Role:     models.RolePhysio,
		License:  "12345678",
	})

	assert.NoError(t, err)
	assert.Equal(t, "p1", uid)
	// у физиотерапевта нет нулевой сессии и допусков
	repoMock.AssertNotCalled(t, "WriteZeroSession", mock.Anything, mock.Anything, mock.Anything)
	repoMock.AssertNotCalled(t, "MarkRegistered", mock.Anything, mock.Anything)
	repoMock.AssertExpectations(t)
}

func TestRegisterUser_PhysioInvalidLicense(t *testing.T) {
	tests := []struct {
		name    string
		license string
	}{
		{name: "слишком короткая", license: "1234567"},
		{name: "слишком длинная", license: "12345678901"},
		{name: "с буквами", license: "1234567a"},
		{name: "пустая", license: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			providerMock := new(ProviderMock)
			service := newService(new(RepoMock), providerMock, new(MakerMock))

			_, err := service.RegisterUser(context.Background(), RegisterUser{
				Name:     "Doc",
				Email:    "doc@example.com",
				Password: "secret1",
				Role:     models.RolePhysio,
				License:  tt.license,
			})

			assert.ErrorIs(t, err, ErrInvalidLicense)
			providerMock.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestRegisterUser_CompensatesIdentityOnProfileFailure(t *testing.T) {
	repoMock := new(RepoMock)
	providerMock := new(ProviderMock)
	profileErr := errors.New("write failed")
	providerMock.On("CreateUser", mock.Anything, "doc@example.com", "secret1").Return("p1", nil).Once()
	repoMock.On("CreateUserProfile", mock.Anything, mock.Anything).Return(profileErr).Once()
	// созданная учётная запись откатывается
	providerMock.On("DeleteUser", mock.Anything, "p1").Return(nil).Once()
	service := newService(repoMock, providerMock, new(MakerMock))

	_, err := service.RegisterUser(context.Background(), RegisterUser{
		Name:     "Doc",
		Email:    "doc@example.com",
		Password: "secret1",
		Role:     models.RolePhysio,
		License:  "12345678",
	})

	assert.ErrorIs(t, err, profileErr)
	providerMock.AssertExpectations(t)
	repoMock.AssertExpectations(t)
}

func TestRegisterUser_CompensatesProfileOnSeedFailure(t *testing.T) {
	repoMock := new(RepoMock)
	providerMock := new(ProviderMock)
	seedErr := errors.New("write failed")
	repoMock.On("IsRegistrationAllowed", mock.Anything, "ana@example.com").Return(true, nil).Once()
	providerMock.On("CreateUser", mock.Anything, "ana@example.com", "secret1").Return("u1", nil).Once()
	repoMock.On("CreateUserProfile", mock.Anything, mock.Anything).Return(nil).Once()
	repoMock.On("WriteZeroSession", mock.Anything, "u1", 0).Return(seedErr).Once()
	repoMock.On("DeleteUserProfile", mock.Anything, "u1").Return(nil).Once()
	providerMock.On("DeleteUser", mock.Anything, "u1").Return(nil).Once()
	service := newService(repoMock, providerMock, new(MakerMock))

	_, err := service.RegisterUser(context.Background(), RegisterUser{
		Name:     "Ana",
		Email:    "ana@example.com",
		Password: "secret1",
		Role:     models.RoleBasic,
	})

	assert.ErrorIs(t, err, seedErr)
	repoMock.AssertExpectations(t)
	providerMock.AssertExpectations(t)
}

func TestRegisterUser_BasicWithoutPatientCard(t *testing.T) {
	repoMock := new(RepoMock)
	providerMock := new(ProviderMock)
	repoMock.On("IsRegistrationAllowed", mock.Anything, "ana@example.com").Return(true, nil).Once()
	providerMock.On("CreateUser", mock.Anything, "ana@example.com", "secret1").Return("u1", nil).Once()
	repoMock.On("CreateUserProfile", mock.Anything, mock.Anything).Return(nil).Once()
	repoMock.On("WriteZeroSession", mock.Anything, "u1", 0).Return(nil).Once()
	repoMock.On("MarkUserHasSessions", mock.Anything, "u1").Return(nil).Once()
	repoMock.On("MarkRegistered", mock.Anything, "ana@example.com").Return(nil).Once()
	repoMock.On("GetPatientLink", mock.Anything, "ana@example.com").
		Return(nil, repository.ErrNotFound).Once()
	service := newService(repoMock, providerMock, new(MakerMock))

	_, err := service.RegisterUser(context.Background(), RegisterUser{
		Name:     "Ana",
		Email:    "ana@example.com",
		Password: "secret1",
		Role:     models.RoleBasic,
	})

	assert.NoError(t, err)
	repoMock.AssertNotCalled(t, "MergePatientUserID", mock.Anything, mock.Anything, mock.Anything)
	repoMock.AssertExpectations(t)
}

func TestLoginUser(t *testing.T) {
	repoMock := new(RepoMock)
	providerMock := new(ProviderMock)
	makerMock := new(MakerMock)
	providerMock.On("VerifyPassword", mock.Anything, "ana@example.com", "secret1").Return("u1", nil).Once()
	repoMock.On("GetUser", mock.Anything, "u1").
		Return(&models.User{UID: "u1", Email: "ana@example.com", Role: models.RoleBasic}, nil).Once()
	makerMock.On("GenerateToken", "u1", "ana@example.com", models.RoleBasic).Return("token123", nil).Once()
	service := newService(repoMock, providerMock, makerMock)

	token, err := service.LoginUser(context.Background(), "ana@example.com", "secret1")

	assert.NoError(t, err)
	assert.Equal(t, "token123", token)
	makerMock.AssertExpectations(t)
}

func TestLoginUser_InvalidCredentials(t *testing.T) {
	providerMock := new(ProviderMock)
	providerMock.On("VerifyPassword", mock.Anything, "ana@example.com", "wrong").
		Return("", identity.ErrInvalidCredentials).Once()
	service := newService(new(RepoMock), providerMock, new(MakerMock))

	_, err := service.LoginUser(context.Background(), "ana@example.com", "wrong")

	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
}

func TestDeleteUser_KeepsProfile(t *testing.T) {
	repoMock := new(RepoMock)
	providerMock := new(ProviderMock)
	providerMock.On("GetUIDByEmail", mock.Anything, "ana@example.com").Return("u1", nil).Once()
	providerMock.On("DeleteUser", mock.Anything, "u1").Return(nil).Once()
	service := newService(repoMock, providerMock, new(MakerMock))

	err := service.DeleteUser(context.Background(), "ana@example.com")

	assert.NoError(t, err)
	// профиль и история сессий не трогаются
	repoMock.AssertNotCalled(t, "DeleteUserProfile", mock.Anything, mock.Anything)
	providerMock.AssertExpectations(t)
}
