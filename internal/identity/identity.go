// Package identity описывает контракт провайдера учётных данных:
// создание и удаление учётной записи, поиск uid по почте и проверку
// пароля. Бизнес-логика зависит только от интерфейса; реализация
// поверх документного хранилища живёт в этом же пакете.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/glove-rehab-tracker/internal/docstore"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/lib/password"
)

// Ошибки провайдера учётных данных.
var (
	// ErrEmailTaken — почта уже зарегистрирована.
	ErrEmailTaken = errors.New("email already registered")
	// ErrNotFound — учётная запись не найдена.
	ErrNotFound = errors.New("identity not found")
	// ErrInvalidCredentials — пароль не подходит.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Provider описывает контракт провайдера учётных данных.
type Provider interface {
	// CreateUser заводит учётную запись и возвращает её uid.
	CreateUser(ctx context.Context, email, rawPassword string) (string, error)
	// DeleteUser удаляет учётную запись по uid.
	DeleteUser(ctx context.Context, uid string) error
	// GetUIDByEmail возвращает uid по почте или ErrNotFound.
	GetUIDByEmail(ctx context.Context, email string) (string, error)
	// VerifyPassword проверяет пароль и возвращает uid.
	VerifyPassword(ctx context.Context, email, rawPassword string) (string, error)
}

const credentialsCollection = "credentials"

// Service — реализация Provider поверх документного хранилища:
// документ credentials/{email} хранит uid и bcrypt-хэш пароля.
type Service struct {
	store docstore.Store
}

// New создает новый экземпляр Service.
func New(store docstore.Store) *Service {
	return &Service{store: store}
}

// CreateUser заводит учётную запись с bcrypt-хэшем пароля.
func (s *Service) CreateUser(ctx context.Context, email, rawPassword string) (string, error) {
	const op = "identity.CreateUser"

	if _, err := s.store.Get(ctx, credentialsCollection+"/"+email); err == nil {
		return "", fmt.Errorf("%s: %w", op, ErrEmailTaken)
	} else if !errors.Is(err, docstore.ErrNotFound) {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	hash, err := password.GetHash(rawPassword)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	uid := uuid.New().String()
	fields := map[string]any{
		"uid":           uid,
		"email":         email,
		"password_hash": hash,
	}
	if err := s.store.Set(ctx, credentialsCollection+"/"+email, fields, false); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return uid, nil
}

// DeleteUser удаляет учётную запись по uid.
func (s *Service) DeleteUser(ctx context.Context, uid string) error {
	const op = "identity.DeleteUser"

	docs, err := s.store.Query(ctx, credentialsCollection, "uid", uid)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if len(docs) == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err := s.store.Delete(ctx, docs[0].Path); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetUIDByEmail возвращает uid по почте.
func (s *Service) GetUIDByEmail(ctx context.Context, email string) (string, error) {
	const op = "identity.GetUIDByEmail"

	doc, err := s.store.Get(ctx, credentialsCollection+"/"+email)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return "", fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	uid, _ := doc.Fields["uid"].(string)
	return uid, nil
}

// VerifyPassword сверяет пароль с хэшем и возвращает uid.
func (s *Service) VerifyPassword(ctx context.Context, email, rawPassword string) (string, error) {
	const op = "identity.VerifyPassword"

	doc, err := s.store.Get(ctx, credentialsCollection+"/"+email)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	hash, _ := doc.Fields["password_hash"].(string)
	if err := password.CompareHash(hash, rawPassword); err != nil {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}
	uid, _ := doc.Fields["uid"].(string)
	return uid, nil
}
