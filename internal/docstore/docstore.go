// Package docstore реализует документное хранилище с адресацией по
// путям на базе PostgreSQL (JSONB). Документ живёт в коллекции
// ("users", "patients", "users/{uid}/sessions1") и адресуется путём
// вида "коллекция/идентификатор". Поддерживаются чтение по пути,
// листинг коллекции, запись с полной заменой или слиянием полей,
// выборка по значению поля и удаление.
package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// ErrNotFound возвращается при чтении отсутствующего документа.
// Отсутствие документа — штатный результат, а не сбой хранилища.
var ErrNotFound = errors.New("document not found")

// Document — документ хранилища: полный путь и набор полей.
type Document struct {
	Path   string
	Fields map[string]any
}

// ID возвращает последний сегмент пути — идентификатор документа
// внутри коллекции.
func (d Document) ID() string {
	i := strings.LastIndex(d.Path, "/")
	return d.Path[i+1:]
}

// Store описывает контракт документного хранилища для бизнес-логики.
type Store interface {
	// Get возвращает документ по пути или ErrNotFound.
	Get(ctx context.Context, path string) (*Document, error)
	// List возвращает все документы коллекции; пустой список
	// семантически равен отсутствию коллекции.
	List(ctx context.Context, collection string) ([]Document, error)
	// Set записывает документ. При merge=true новые поля сливаются
	// с существующими, иначе документ замещается целиком.
	Set(ctx context.Context, path string, fields map[string]any, merge bool) error
	// Query возвращает документы коллекции, у которых поле field
	// равно value.
	Query(ctx context.Context, collection, field, value string) ([]Document, error)
	// Delete удаляет документ по пути. Удаление отсутствующего
	// документа не является ошибкой.
	Delete(ctx context.Context, path string) error
}

// Storage инкапсулирует соединение с PostgreSQL и реализует Store
// поверх одной таблицы documents.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL и проверяет его доступность.
func New(storageConnectionString string) (*Storage, error) {
	const op = "docstore.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{DB: db}, nil
}

// Get возвращает документ по полному пути.
func (s *Storage) Get(ctx context.Context, path string) (*Document, error) {
	const op = "docstore.Get"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT fields FROM documents WHERE path = $1`
	var raw []byte
	if err := s.DB.QueryRowContext(ctx, query, path).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	fields, err := decodeFields(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Document{Path: path, Fields: fields}, nil
}

// List возвращает все документы коллекции.
func (s *Storage) List(ctx context.Context, collection string) ([]Document, error) {
	const op = "docstore.List"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT path, fields FROM documents WHERE collection = $1 ORDER BY path`
	rows, err := s.DB.QueryContext(ctx, query, collection)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []Document
	for rows.Next() {
		var doc Document
		var raw []byte
		if err := rows.Scan(&doc.Path, &raw); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if doc.Fields, err = decodeFields(raw); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, doc)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// Set записывает документ по пути, замещая его целиком или сливая
// поля с существующими при merge=true.
func (s *Storage) Set(ctx context.Context, path string, fields map[string]any, merge bool) error {
	const op = "docstore.Set"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO documents (path, collection, fields)
			  VALUES ($1, $2, $3)
			  ON CONFLICT (path) DO UPDATE SET fields = EXCLUDED.fields`
	if merge {
		query = `INSERT INTO documents (path, collection, fields)
				 VALUES ($1, $2, $3)
				 ON CONFLICT (path) DO UPDATE SET fields = documents.fields || EXCLUDED.fields`
	}
	if _, err := s.DB.ExecContext(ctx, query, path, collectionOf(path), raw); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Query возвращает документы коллекции с заданным значением поля.
// Сравнение текстовое, как у исходного хранилища.
func (s *Storage) Query(ctx context.Context, collection, field, value string) ([]Document, error) {
	const op = "docstore.Query"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT path, fields FROM documents
			  WHERE collection = $1 AND fields->>$2 = $3
			  ORDER BY path`
	rows, err := s.DB.QueryContext(ctx, query, collection, field, value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []Document
	for rows.Next() {
		var doc Document
		var raw []byte
		if err := rows.Scan(&doc.Path, &raw); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if doc.Fields, err = decodeFields(raw); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, doc)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// Delete удаляет документ по пути.
func (s *Storage) Delete(ctx context.Context, path string) error {
	const op = "docstore.Delete"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if _, err := s.DB.ExecContext(ctx, `DELETE FROM documents WHERE path = $1`, path); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// collectionOf отрезает последний сегмент пути — всё до него и есть
// коллекция документа.
func collectionOf(path string) string {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return ""
	}
	return path[:i]
}

func decodeFields(raw []byte) (map[string]any, error) {
	fields := make(map[string]any)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
