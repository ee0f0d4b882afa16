// Package repository реализует типизированный доступ к документному
// хранилищу: пользователи, карточки пациентов, допуски к регистрации
// и коллекции сессий. Предоставляет методы чтения, записи со слиянием
// и выборки, скрывая от бизнес-логики структуру документов.
package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/glove-rehab-tracker/internal/docstore"
)

// ErrNotFound возвращается, когда запрошенный документ отсутствует.
var ErrNotFound = docstore.ErrNotFound

// Repository инкапсулирует документное хранилище и реализует методы
// работы с доменными записями.
type Repository struct {
	store docstore.Store
}

// New создаёт репозиторий поверх переданного хранилища.
func New(store docstore.Store) *Repository {
	return &Repository{store: store}
}

func notFound(err error) bool {
	return errors.Is(err, docstore.ErrNotFound)
}

func stringField(fields map[string]any, name string) string {
	v, _ := fields[name].(string)
	return v
}

func boolField(fields map[string]any, name string) bool {
	v, _ := fields[name].(bool)
	return v
}

func intField(fields map[string]any, name string) int {
	// JSONB приносит числа как float64.
	v, _ := fields[name].(float64)
	return int(v)
}

func timeField(fields map[string]any, name string) time.Time {
	raw := stringField(fields, name)
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
