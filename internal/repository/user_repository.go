package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/civicmirror/civic-backend/internal/models"
	"github.com/civicmirror/civic-backend/internal/repository/common"
	"github.com/civicmirror/civic-backend/internal/roles"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrNotSuperuser    = errors.New("user is not a superuser")
	ErrEmailTaken      = errors.New("email already registered")
	ErrUsernameTaken   = errors.New("username already taken")
	ErrDetailsNotFound = errors.New("user details not found")
	ErrDetailsExist    = errors.New("user details already exist")
	ErrSessionNotFound = errors.New("session not found")
)

// superuserPromotionLockID — ключ advisory lock для операции повышения.
const superuserPromotionLockID = 7201

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create сохраняет нового пользователя. Конфликты уникальности email/username
// переводятся в сентинельные ошибки по имени ограничения.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (email, username, password_hash, is_active, is_superuser)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, user.Email, user.Username, user.PasswordHash, user.IsActive, user.IsSuperuser).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		switch {
		case common.IsUniqueViolation(err, "users_email_key"):
			return ErrEmailTaken
		case common.IsUniqueViolation(err, "users_username_key"):
			return ErrUsernameTaken
		}
		return err
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return common.GetByID[models.User](ctx, r.db, "users", id, ErrUserNotFound)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return common.GetByField[models.User](ctx, r.db, "users", "email", email, ErrUserNotFound)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return common.GetByField[models.User](ctx, r.db, "users", "username", username, ErrUserNotFound)
}

// SetRole назначает роль существующему суперпользователю. Отсутствующий
// пользователь и пользователь без флага суперпользователя различаются
// сентинельными ошибками.
func (r *UserRepository) SetRole(ctx context.Context, userID uuid.UUID, role roles.Role) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1 AND is_superuser
	`, userID, string(role))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var isSuper bool
		err := r.db.GetContext(ctx, &isSuper, `SELECT is_superuser FROM users WHERE id = $1`, userID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}
		return ErrNotSuperuser
	}
	return nil
}

// PromoteToSuperuser выполняет повышение атомарно: количество суперпользователей
// проверяется в той же транзакции, чтобы два одновременных bootstrap-запроса
// не завелись оба по пустой базе.
func (r *UserRepository) PromoteToSuperuser(ctx context.Context, userID uuid.UUID, role roles.Role, requireExistingSuperuser func(count int) error) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		// Advisory lock сериализует конкурирующие повышения: два одновременных
		// bootstrap-запроса не должны оба увидеть пустой список суперпользователей.
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, superuserPromotionLockID); err != nil {
			return err
		}

		var count int
		if err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM users WHERE is_superuser`); err != nil {
			return err
		}

		if err := requireExistingSuperuser(count); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE users SET is_superuser = TRUE, role = $2, updated_at = NOW() WHERE id = $1
		`, userID, string(role))
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrUserNotFound
		}
		return nil
	})
}

func (r *UserRepository) CountSuperusers(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users WHERE is_superuser`)
	return count, err
}

// --- Сессии ---

func (r *UserRepository) CreateSession(ctx context.Context, session *models.Session) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO sessions (user_id, refresh_token, user_agent, ip_address, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, session.UserID, session.RefreshToken, session.UserAgent, session.IPAddress, session.ExpiresAt).
		Scan(&session.ID, &session.CreatedAt)
}

func (r *UserRepository) DeleteSession(ctx context.Context, refreshToken string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE refresh_token = $1`, refreshToken)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// --- Анкеты жителей ---

func (r *UserRepository) GetDetails(ctx context.Context, userID uuid.UUID) (*models.UserDetail, error) {
	var detail models.UserDetail
	err := r.db.GetContext(ctx, &detail, `SELECT * FROM user_details WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDetailsNotFound
	}
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

func (r *UserRepository) CreateDetails(ctx context.Context, detail *models.UserDetail) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO user_details (user_id, age, sex, phone_number, address, city, state, pin_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, detail.UserID, detail.Age, detail.Sex, detail.PhoneNumber, detail.Address, detail.City, detail.State, detail.PinCode).
		Scan(&detail.CreatedAt, &detail.UpdatedAt)
	if common.IsUniqueViolation(err, "") {
		return ErrDetailsExist
	}
	return err
}

func (r *UserRepository) UpdateDetails(ctx context.Context, detail *models.UserDetail) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE user_details
		SET age = COALESCE($2, age),
		    sex = COALESCE($3, sex),
		    phone_number = COALESCE($4, phone_number),
		    address = COALESCE($5, address),
		    city = COALESCE($6, city),
		    state = COALESCE($7, state),
		    pin_code = COALESCE($8, pin_code),
		    updated_at = NOW()
		WHERE user_id = $1
		RETURNING age, sex, phone_number, address, city, state, pin_code, created_at, updated_at
	`, detail.UserID, detail.Age, detail.Sex, detail.PhoneNumber, detail.Address, detail.City, detail.State, detail.PinCode).
		Scan(&detail.Age, &detail.Sex, &detail.PhoneNumber, &detail.Address, &detail.City, &detail.State, &detail.PinCode, &detail.CreatedAt, &detail.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrDetailsNotFound
	}
	return err
}
