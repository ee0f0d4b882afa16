package repository

import (
	"context"
	"strconv"

	"github.com/magabrotheeeer/glove-rehab-tracker/internal/docstore"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/lib/units"
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/models"
)

const sessionsBase = "sessions"

// SessionCollection возвращает имя коллекции сессии: базовое имя для
// порядкового номера 0 и базовое имя с номером для остальных.
func SessionCollection(uid string, ordinal int) string {
	name := sessionsBase
	if ordinal > 0 {
		name += strconv.Itoa(ordinal)
	}
	return usersCollection + "/" + uid + "/" + name
}

// ListSessionDocs возвращает документы пальцев коллекции сессии.
// Пустой список означает, что коллекция ещё не создана.
func (r *Repository) ListSessionDocs(ctx context.Context, uid string, ordinal int) ([]docstore.Document, error) {
	const op = "repository.ListSessionDocs"

	docs, err := r.store.List(ctx, SessionCollection(uid, ordinal))
	if err != nil {
		return nil, wrap(op, err)
	}
	return docs, nil
}

// WriteZeroSession преднаполняет коллекцию сессии нулевыми документами
// всех четырёх пальцев. Повторная запись той же коллекции перезаписывает
// её нулями — операция идемпотентна.
func (r *Repository) WriteZeroSession(ctx context.Context, uid string, ordinal int) error {
	const op = "repository.WriteZeroSession"

	collection := SessionCollection(uid, ordinal)
	for _, finger := range models.Fingers {
		if err := r.store.Set(ctx, collection+"/"+finger, units.ZeroFields(), false); err != nil {
			return wrap(op, err)
		}
	}
	return nil
}
