package model

import "time"

// User — локальная учётная запись.
// Хранится в таблице users.
type User struct {
	// ID — идентификатор пользователя (sub в токене)
	ID int64
	// Username — уникальный логин
	Username string
	// FullName — отображаемое имя
	FullName string
	// Role — роль (admin, manager, viewer)
	Role string
	// Permissions — права, всегда вычисляются из роли
	Permissions []string
	// HashedPassword — bcrypt-хэш пароля
	HashedPassword string
	// IsActive — учётная запись активна
	IsActive bool
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}

// Principal — аутентифицированный субъект запроса.
type Principal struct {
	// UserID — идентификатор пользователя
	UserID int64
	// Username — логин
	Username string
	// Role — действующая роль
	Role string
	// Permissions — права роли
	Permissions []string
	// TokenID — jti токена
	TokenID string
}
