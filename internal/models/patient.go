package models

import "time"

// PatientLink связывает пациента с ведущим его физиотерапевтом.
// Документ хранится по ключу email пациента; UserID остаётся пустым,
// пока пациент не зарегистрируется в системе.
type PatientLink struct {
	Name         string        // Имя пациента
	Email        string        // Электронная почта пациента (ключ документа)
	PhysioID     string        // UID физиотерапевта-владельца
	UserID       string        // UID пользователя после регистрации, иначе пусто
	CreatedAt    time.Time     // Дата создания карточки
	Observations []Observation // Наблюдения физиотерапевта, только добавление
}

// Observation — одно наблюдение физиотерапевта. После добавления
// в список запись не редактируется и не удаляется.
type Observation struct {
	Text     string    `json:"text"`      // Текст наблюдения
	Date     time.Time `json:"date"`      // Время добавления
	PhysioID string    `json:"physio_id"` // UID автора
}

// PatientSummary — строка реестра пациентов физиотерапевта:
// данные карточки вместе с производным количеством сессий.
type PatientSummary struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	UserID       string `json:"user_id,omitempty"`
	HasSessions  bool   `json:"has_sessions"`
	SessionCount int    `json:"session_count"`
}

// ObservationEvent — сообщение для очереди уведомлений, публикуется
// при добавлении наблюдения и доставляется пациенту по почте.
type ObservationEvent struct {
	PatientEmail string    `json:"patient_email"`
	PatientName  string    `json:"patient_name"`
	Text         string    `json:"text"`
	Date         time.Time `json:"date"`
}
