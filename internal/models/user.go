package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/civicmirror/civic-backend/internal/roles"
)

// User описывает сущность пользователя платформы.
// Role имеет смысл только при IsSuperuser=true; обычные пользователи роли не имеют.
type User struct {
	ID           uuid.UUID   `db:"id" json:"id"`
	Email        string      `db:"email" json:"email"`
	Username     string      `db:"username" json:"username"`
	PasswordHash string      `db:"password_hash" json:"-"`
	IsActive     bool        `db:"is_active" json:"is_active"`
	IsSuperuser  bool        `db:"is_superuser" json:"is_superuser"`
	Role         *roles.Role `db:"role" json:"role,omitempty"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"`
}

// AdminRole возвращает роль администратора или пустую роль,
// если пользователь не суперпользователь либо роль не назначена.
func (u *User) AdminRole() roles.Role {
	if !u.IsSuperuser || u.Role == nil {
		return roles.None
	}
	return *u.Role
}

// UserDetail хранит анкетные данные жителя. Pin code задаёт локальный чат.
type UserDetail struct {
	UserID      uuid.UUID `db:"user_id" json:"user_id"`
	Age         *int      `db:"age" json:"age,omitempty"`
	Sex         *string   `db:"sex" json:"sex,omitempty"`
	PhoneNumber *string   `db:"phone_number" json:"phone_number,omitempty"`
	Address     *string   `db:"address" json:"address,omitempty"`
	City        *string   `db:"city" json:"city,omitempty"`
	State       *string   `db:"state" json:"state,omitempty"`
	PinCode     *string   `db:"pin_code" json:"pin_code,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Session представляет сохранённую сессию пользователя.
type Session struct {
	ID           uuid.UUID `db:"id" json:"id"`
	UserID       uuid.UUID `db:"user_id" json:"user_id"`
	RefreshToken string    `db:"refresh_token" json:"refresh_token"`
	UserAgent    *string   `db:"user_agent" json:"user_agent,omitempty"`
	IPAddress    *string   `db:"ip_address" json:"ip_address,omitempty"`
	ExpiresAt    time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Principal — аутентифицированный субъект запроса, восстановленный из JWT.
// Сервисы доверяют ему и сами учётные данные не проверяют.
type Principal struct {
	UserID      uuid.UUID
	IsSuperuser bool
	Role        roles.Role
}
