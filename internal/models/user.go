// Package models содержит доменные модели системы: пользователей,
// карточки пациентов, сессии сенсорных данных перчатки и результаты
// анализа прогресса. Структуры используются в бизнес‑логике и при
// работе с документным хранилищем.
package models

import "time"

// Роли пользователей системы.
const (
	// RoleBasic — пациент, видит только собственные сессии.
	RoleBasic = "basic"
	// RolePhysio — физиотерапевт, видит сессии привязанных пациентов.
	RolePhysio = "physio"
)

// User представляет зарегистрированного пользователя системы.
type User struct {
	UID          string    // Уникальный идентификатор пользователя
	Name         string    // Отображаемое имя
	Email        string    // Электронная почта (уникальная, вторичный ключ поиска)
	Role         string    // Роль пользователя, basic или physio
	License      string    // Номер лицензии (только для physio, 8-10 цифр)
	HasSessions  bool      // Есть ли у пользователя хотя бы одна сессия
	SessionCount int       // Денормализованное количество сессий, поддерживается архиватором
	CreatedAt    time.Time // Дата создания учётной записи
}
