// Package repository реализует хранилище данных на основе PostgreSQL
// для пользователей мобильных приложений, их подписок и сессий.
// Уникальные ограничения хранилища — а не проверки уровня приложения —
// являются точкой обеспечения инвариантов: один логин на приложение,
// одна подписка на пользователя, одна живая сессия на пользователя.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Типизированные ошибки хранилища. Сервисы превращают их в доменные
// исходы (user_not_found, duplicate_login и т.д.), а не показывают клиенту.
var (
	// ErrUserNotFound пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists пользователь с таким идентификатором уже зарегистрирован в приложении.
	ErrUserExists = errors.New("user already exists")
	// ErrSubscriptionNotFound у пользователя нет подписки.
	ErrSubscriptionNotFound = errors.New("subscription not found")
	// ErrSessionNotFound сессия не найдена.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExists у пользователя уже есть сессия — конкурирующий вход.
	ErrSessionExists = errors.New("session already exists")
	// ErrAdminNotFound администратор не найден.
	ErrAdminNotFound = errors.New("admin user not found")
)

// Storage инкапсулирует соединение с базой данных PostgreSQL.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL и проверяет его.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// CheckDatabaseReady проверяет готовность базы данных.
func CheckDatabaseReady(storage *Storage) error {
	var exists bool
	err := storage.DB.QueryRow(`SELECT EXISTS (
        SELECT FROM information_schema.tables
        WHERE table_name = 'user_sessions'
    )`).Scan(&exists)
	if err != nil || !exists {
		return fmt.Errorf("required table user_sessions missing or query error: %w", err)
	}
	return nil
}

// isUniqueViolation сообщает, вызвана ли ошибка нарушением уникального
// ограничения constraint. Пустой constraint совпадает с любым.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	if pgErr.Code != "23505" {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
