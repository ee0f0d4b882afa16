package repository

import (
	"context"
	"time"

	"github.com/magabrotheeeer/glove-rehab-tracker/internal/models"
)

const usersCollection = "users"

// CreateUserProfile записывает профиль нового пользователя.
func (r *Repository) CreateUserProfile(ctx context.Context, user models.User) error {
	const op = "repository.CreateUserProfile"

	fields := map[string]any{
		"name":         user.Name,
		"email":        user.Email,
		"role":         user.Role,
		"hasSessions":  user.HasSessions,
		"sessionCount": user.SessionCount,
		"createdAt":    user.CreatedAt.UTC().Format(time.RFC3339),
	}
	if user.Role == models.RolePhysio {
		fields["license"] = user.License
	}
	if err := r.store.Set(ctx, usersCollection+"/"+user.UID, fields, false); err != nil {
		return wrap(op, err)
	}
	return nil
}

// DeleteUserProfile удаляет профиль пользователя.
func (r *Repository) DeleteUserProfile(ctx context.Context, uid string) error {
	const op = "repository.DeleteUserProfile"
	if err := r.store.Delete(ctx, usersCollection+"/"+uid); err != nil {
		return wrap(op, err)
	}
	return nil
}

// GetUser возвращает пользователя по его UID или ErrNotFound.
func (r *Repository) GetUser(ctx context.Context, uid string) (*models.User, error) {
	const op = "repository.GetUser"

	doc, err := r.store.Get(ctx, usersCollection+"/"+uid)
	if err != nil {
		return nil, wrap(op, err)
	}
	u := userFromFields(uid, doc.Fields)
	return &u, nil
}

// FindUserByEmail возвращает пользователя по почте или ErrNotFound.
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "repository.FindUserByEmail"

	docs, err := r.store.Query(ctx, usersCollection, "email", email)
	if err != nil {
		return nil, wrap(op, err)
	}
	if len(docs) == 0 {
		return nil, wrap(op, ErrNotFound)
	}
	u := userFromFields(docs[0].ID(), docs[0].Fields)
	return &u, nil
}

// MarkUserHasSessions идемпотентно сливает флаг hasSessions в профиль.
func (r *Repository) MarkUserHasSessions(ctx context.Context, uid string) error {
	const op = "repository.MarkUserHasSessions"
	if err := r.store.Set(ctx, usersCollection+"/"+uid,
		map[string]any{"hasSessions": true}, true); err != nil {
		return wrap(op, err)
	}
	return nil
}

// MergeUserSessionState сливает в профиль флаг hasSessions и
// денормализованный счётчик сессий.
func (r *Repository) MergeUserSessionState(ctx context.Context, uid string, sessionCount int) error {
	const op = "repository.MergeUserSessionState"
	if err := r.store.Set(ctx, usersCollection+"/"+uid, map[string]any{
		"hasSessions":  true,
		"sessionCount": sessionCount,
	}, true); err != nil {
		return wrap(op, err)
	}
	return nil
}

func userFromFields(uid string, fields map[string]any) models.User {
	return models.User{
		UID:          uid,
		Name:         stringField(fields, "name"),
		Email:        stringField(fields, "email"),
		Role:         stringField(fields, "role"),
		License:      stringField(fields, "license"),
		HasSessions:  boolField(fields, "hasSessions"),
		SessionCount: intField(fields, "sessionCount"),
		CreatedAt:    timeField(fields, "createdAt"),
	}
}
