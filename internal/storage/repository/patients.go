package repository

import (
	"context"
	"time"

	"github.com/magabrotheeeer/glove-rehab-tracker/internal/models"
)

const (
	patientsCollection = "patients"
	allowedCollection  = "allowed_users"
)

// CreatePatientLink записывает карточку пациента и параллельно
// создаёт допуск к регистрации для его почты.
func (r *Repository) CreatePatientLink(ctx context.Context, link models.PatientLink) error {
	const op = "repository.CreatePatientLink"

	fields := map[string]any{
		"name":         link.Name,
		"email":        link.Email,
		"physioId":     link.PhysioID,
		"userId":       link.UserID,
		"createdAt":    link.CreatedAt.UTC().Format(time.RFC3339),
		"observations": observationsToFields(link.Observations),
	}
	if err := r.store.Set(ctx, patientsCollection+"/"+link.Email, fields, false); err != nil {
		return wrap(op, err)
	}

	allowed := map[string]any{
		"name":       link.Name,
		"email":      link.Email,
		"physioId":   link.PhysioID,
		"registered": false,
		"createdAt":  link.CreatedAt.UTC().Format(time.RFC3339),
	}
	if err := r.store.Set(ctx, allowedCollection+"/"+link.Email, allowed, true); err != nil {
		return wrap(op, err)
	}
	return nil
}

// GetPatientLink возвращает карточку пациента по почте или ErrNotFound.
func (r *Repository) GetPatientLink(ctx context.Context, email string) (*models.PatientLink, error) {
	const op = "repository.GetPatientLink"

	doc, err := r.store.Get(ctx, patientsCollection+"/"+email)
	if err != nil {
		return nil, wrap(op, err)
	}
	link := linkFromFields(doc.ID(), doc.Fields)
	return &link, nil
}

// ListPatientLinks возвращает карточки всех пациентов физиотерапевта.
func (r *Repository) ListPatientLinks(ctx context.Context, physioID string) ([]models.PatientLink, error) {
	const op = "repository.ListPatientLinks"

	docs, err := r.store.Query(ctx, patientsCollection, "physioId", physioID)
	if err != nil {
		return nil, wrap(op, err)
	}
	links := make([]models.PatientLink, 0, len(docs))
	for _, doc := range docs {
		links = append(links, linkFromFields(doc.ID(), doc.Fields))
	}
	return links, nil
}

// MergePatientUserID сливает uid зарегистрировавшегося пользователя
// в карточку пациента.
func (r *Repository) MergePatientUserID(ctx context.Context, email, uid string) error {
	const op = "repository.MergePatientUserID"
	if err := r.store.Set(ctx, patientsCollection+"/"+email,
		map[string]any{"userId": uid}, true); err != nil {
		return wrap(op, err)
	}
	return nil
}

// AppendObservation добавляет наблюдение в конец списка карточки.
// Список только растёт: правка и удаление записей не поддерживаются.
func (r *Repository) AppendObservation(ctx context.Context, email string, obs models.Observation) error {
	const op = "repository.AppendObservation"

	link, err := r.GetPatientLink(ctx, email)
	if err != nil {
		return wrap(op, err)
	}
	updated := append(link.Observations, obs)
	if err := r.store.Set(ctx, patientsCollection+"/"+email,
		map[string]any{"observations": observationsToFields(updated)}, true); err != nil {
		return wrap(op, err)
	}
	return nil
}

// IsRegistrationAllowed сообщает, допущена ли почта к регистрации
// пациента. Отсутствие допуска — штатный ответ false.
func (r *Repository) IsRegistrationAllowed(ctx context.Context, email string) (bool, error) {
	const op = "repository.IsRegistrationAllowed"

	_, err := r.store.Get(ctx, allowedCollection+"/"+email)
	if err != nil {
		if notFound(err) {
			return false, nil
		}
		return false, wrap(op, err)
	}
	return true, nil
}

// MarkRegistered сливает флаг registered в допуск к регистрации.
func (r *Repository) MarkRegistered(ctx context.Context, email string) error {
	const op = "repository.MarkRegistered"
	if err := r.store.Set(ctx, allowedCollection+"/"+email,
		map[string]any{"registered": true}, true); err != nil {
		return wrap(op, err)
	}
	return nil
}

func observationsToFields(observations []models.Observation) []any {
	out := make([]any, 0, len(observations))
	for _, obs := range observations {
		out = append(out, map[string]any{
			"text":      obs.Text,
			"date":      obs.Date.UTC().Format(time.RFC3339),
			"physio_id": obs.PhysioID,
		})
	}
	return out
}

func linkFromFields(email string, fields map[string]any) models.PatientLink {
	return models.PatientLink{
		Name:         stringField(fields, "name"),
		Email:        email,
		PhysioID:     stringField(fields, "physioId"),
		UserID:       stringField(fields, "userId"),
		CreatedAt:    timeField(fields, "createdAt"),
		Observations: observationsFromField(fields["observations"]),
	}
}

func observationsFromField(raw any) []models.Observation {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	var out []models.Observation
	for _, item := range items {
		fields, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, models.Observation{
			Text:     stringField(fields, "text"),
			Date:     timeField(fields, "date"),
			PhysioID: stringField(fields, "physio_id"),
		})
	}
	return out
}
