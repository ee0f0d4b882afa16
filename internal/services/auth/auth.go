// Package services реализует регистрацию, вход и удаление учётных
// записей. Регистрация собирается в компенсируемую сагу: при сбое
// любого шага уже созданная учётная запись удаляется.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/magabrotheeeer/glove-rehab-tracker/internal/identity"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/lib/jwt"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/lib/saga"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/models"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/storage/repository"
)

// Ошибки регистрации и входа.
var (
	// ErrInvalidLicense — номер лицензии физиотерапевта не из 8-10 цифр.
	ErrInvalidLicense = errors.New("license must be 8 to 10 digits")
	// ErrNotAllowed — почта пациента не допущена к регистрации.
	ErrNotAllowed = errors.New("email is not authorized for registration")
	// ErrInvalidRole — роль не basic и не physio.
	ErrInvalidRole = errors.New("unknown role")
)

var licensePattern = regexp.MustCompile(`^\d{8,10}$`)

// AuthRepository описывает методы хранилища, нужные регистрации.
type AuthRepository interface {
	CreateUserProfile(ctx context.Context, user models.User) error
	DeleteUserProfile(ctx context.Context, uid string) error
	GetUser(ctx context.Context, uid string) (*models.User, error)
	MarkUserHasSessions(ctx context.Context, uid string) error
	WriteZeroSession(ctx context.Context, uid string, ordinal int) error
	IsRegistrationAllowed(ctx context.Context, email string) (bool, error)
	MarkRegistered(ctx context.Context, email string) error
	GetPatientLink(ctx context.Context, email string) (*models.PatientLink, error)
	MergePatientUserID(ctx context.Context, email, uid string) error
}

// RegisterUser — данные формы регистрации.
type RegisterUser struct {
	Name     string
	Email    string
	Password string
	Role     string
	License  string
}

// AuthService реализует регистрацию, вход и удаление учётных записей.
type AuthService struct {
	repo       AuthRepository
	provider   identity.Provider
	tokenMaker jwt.Maker
	log        *slog.Logger
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(repo AuthRepository, provider identity.Provider,
	tokenMaker jwt.Maker, log *slog.Logger) *AuthService {
	return &AuthService{
		repo:       repo,
		provider:   provider,
		tokenMaker: tokenMaker,
		log:        log,
	}
}

// RegisterUser заводит учётную запись и профиль пользователя одной
// сагой. Пациент (basic) должен быть заранее допущен физиотерапевтом;
// ему дополнительно создаётся нулевая сессия, сводится флаг сессий,
// помечается допуск и в карточку пациента сливается uid. При сбое
// любого шага созданная учётная запись и профиль откатываются.
func (s *AuthService) RegisterUser(ctx context.Context, req RegisterUser) (string, error) {
	const op = "auth.RegisterUser"

	switch req.Role {
	case models.RoleBasic:
		allowed, err := s.repo.IsRegistrationAllowed(ctx, req.Email)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		if !allowed {
			return "", ErrNotAllowed
		}
	case models.RolePhysio:
		if !licensePattern.MatchString(req.License) {
			return "", ErrInvalidLicense
		}
	default:
		return "", ErrInvalidRole
	}

	var uid string
	sg := saga.New(s.log).
		AddStep(saga.Step{
			Name: "create identity",
			Run: func(ctx context.Context) error {
				created, err := s.provider.CreateUser(ctx, req.Email, req.Password)
				if err != nil {
					return err
				}
				uid = created
				return nil
			},
			Compensate: func(ctx context.Context) error {
				return s.provider.DeleteUser(ctx, uid)
			},
		}).
		AddStep(saga.Step{
			Name: "create profile",
			Run: func(ctx context.Context) error {
				return s.repo.CreateUserProfile(ctx, models.User{
					UID:       uid,
					Name:      req.Name,
					Email:     req.Email,
					Role:      req.Role,
					License:   req.License,
					CreatedAt: time.Now().UTC(),
				})
			},
			Compensate: func(ctx context.Context) error {
				return s.repo.DeleteUserProfile(ctx, uid)
			},
		})

	if req.Role == models.RoleBasic {
		sg.AddStep(saga.Step{
			Name: "seed first session",
			Run: func(ctx context.Context) error {
				return s.repo.WriteZeroSession(ctx, uid, 0)
			},
		}).AddStep(saga.Step{
			Name: "mark has sessions",
			Run: func(ctx context.Context) error {
				return s.repo.MarkUserHasSessions(ctx, uid)
			},
		}).AddStep(saga.Step{
			Name: "mark registered",
			Run: func(ctx context.Context) error {
				return s.repo.MarkRegistered(ctx, req.Email)
			},
		}).AddStep(saga.Step{
			Name: "link patient card",
			Run: func(ctx context.Context) error {
				if _, err := s.repo.GetPatientLink(ctx, req.Email); err != nil {
					// Допуск без карточки возможен: пациент заведён
					// только в списке допущенных.
					if errors.Is(err, repository.ErrNotFound) {
						return nil
					}
					return err
				}
				return s.repo.MergePatientUserID(ctx, req.Email, uid)
			},
		})
	}

	if err := sg.Execute(ctx); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("registered new user",
		slog.String("uid", uid), slog.String("role", req.Role))
	return uid, nil
}

// LoginUser проверяет учётные данные и выдаёт JWT с uid, почтой и
// ролью пользователя.
func (s *AuthService) LoginUser(ctx context.Context, email, rawPassword string) (string, error) {
	const op = "auth.LoginUser"

	uid, err := s.provider.VerifyPassword(ctx, email, rawPassword)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			return "", identity.ErrInvalidCredentials
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.repo.GetUser(ctx, uid)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	token, err := s.tokenMaker.GenerateToken(uid, user.Email, user.Role)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return token, nil
}

// ValidateToken парсит и проверяет JWT, возвращая его claim-поля.
func (s *AuthService) ValidateToken(tokenStr string) (*jwt.CustomClaims, error) {
	const op = "auth.ValidateToken"

	claims, err := s.tokenMaker.ParseToken(tokenStr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return claims, nil
}

// DeleteUser удаляет учётную запись по почте. Профиль и сессии
// остаются: историю данных пациента решено сохранять.
func (s *AuthService) DeleteUser(ctx context.Context, email string) error {
	const op = "auth.DeleteUser"

	uid, err := s.provider.GetUIDByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.provider.DeleteUser(ctx, uid); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("deleted identity", slog.String("email", email))
	return nil
}
