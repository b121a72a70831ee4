package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/google/uuid"

	"github.com/civicmirror/civic-backend/internal/models"
	"github.com/civicmirror/civic-backend/internal/pkg/apperror"
	"github.com/civicmirror/civic-backend/internal/repository"
	"github.com/civicmirror/civic-backend/internal/validation"
)

// AuthRepository описывает зависимости AuthService от слоя хранилища.
type AuthRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	CreateSession(ctx context.Context, session *models.Session) error
	DeleteSession(ctx context.Context, refreshToken string) error
	GetDetails(ctx context.Context, userID uuid.UUID) (*models.UserDetail, error)
	CreateDetails(ctx context.Context, detail *models.UserDetail) error
	UpdateDetails(ctx context.Context, detail *models.UserDetail) error
}

// AuthService инкапсулирует регистрацию, вход и работу с анкетой жителя.
type AuthService struct {
	repo         AuthRepository
	tokenManager *TokenManager
}

// RegisterInput содержит данные пользователя при регистрации.
type RegisterInput struct {
	Email    string
	Username string
	Password string
}

// LoginInput содержит данные для входа. Логином служит email или username.
type LoginInput struct {
	Login    string
	Password string
}

// SessionMeta — сведения о клиенте для записи сессии.
type SessionMeta struct {
	UserAgent string
	IPAddress string
}

// AuthResult возвращает итог регистрации или авторизации.
type AuthResult struct {
	User      *models.User
	TokenPair *TokenPair
}

// DetailsInput — анкетные данные жителя; nil-поля не меняются.
type DetailsInput struct {
	Age         *int
	Sex         *string
	PhoneNumber *string
	Address     *string
	City        *string
	State       *string
	PinCode     *string
}

// NewAuthService создаёт сервис аутентификации.
func NewAuthService(repo AuthRepository, tokenManager *TokenManager) *AuthService {
	return &AuthService{
		repo:         repo,
		tokenManager: tokenManager,
	}
}

// Register создаёт нового пользователя. Новые пользователи всегда обычные
// жители: административные права назначаются отдельными операциями.
func (s *AuthService) Register(ctx context.Context, in RegisterInput, meta SessionMeta) (*AuthResult, error) {
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth service: не удалось захешировать пароль: %w", err)
	}

	user := &models.User{
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Username:     strings.TrimSpace(in.Username),
		PasswordHash: string(passHash),
		IsActive:     true,
		IsSuperuser:  false,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailTaken):
			return nil, apperror.New(apperror.ErrCodeConflict, "email уже зарегистрирован")
		case errors.Is(err, repository.ErrUsernameTaken):
			return nil, apperror.New(apperror.ErrCodeConflict, "имя пользователя уже занято")
		}
		return nil, err
	}

	return s.issueSession(ctx, user, meta)
}

// Login проверяет учётные данные и выпускает пару токенов.
func (s *AuthService) Login(ctx context.Context, in LoginInput, meta SessionMeta) (*AuthResult, error) {
	login := strings.TrimSpace(in.Login)
	if login == "" || in.Password == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "логин и пароль обязательны")
	}

	user, err := s.findByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Не раскрываем, что именно не совпало.
			return nil, apperror.New(apperror.ErrCodeUnauthorized, "неверный логин или пароль")
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, apperror.New(apperror.ErrCodeForbidden, "учётная запись деактивирована")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, apperror.New(apperror.ErrCodeUnauthorized, "неверный логин или пароль")
	}

	return s.issueSession(ctx, user, meta)
}

// Refresh обменивает refresh токен на новую пару. Старая сессия удаляется,
// токен одноразовый.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, meta SessionMeta) (*AuthResult, error) {
	claims, err := s.tokenManager.ParseRefresh(refreshToken)
	if err != nil {
		return nil, apperror.New(apperror.ErrCodeUnauthorized, "недействительный refresh токен")
	}

	if err := s.repo.DeleteSession(ctx, refreshToken); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, apperror.New(apperror.ErrCodeUnauthorized, "сессия не найдена или уже использована")
		}
		return nil, err
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apperror.New(apperror.ErrCodeUnauthorized, "недействительный refresh токен")
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, err
	}

	return s.issueSession(ctx, user, meta)
}

// Logout завершает сессию по refresh токену.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.repo.DeleteSession(ctx, refreshToken); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return apperror.New(apperror.ErrCodeUnauthorized, "сессия не найдена")
		}
		return err
	}
	return nil
}

// Me возвращает профиль текущего пользователя.
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// GetDetails возвращает анкету жителя.
func (s *AuthService) GetDetails(ctx context.Context, userID uuid.UUID) (*models.UserDetail, error) {
	detail, err := s.repo.GetDetails(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrDetailsNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "анкета не заполнена")
		}
		return nil, err
	}
	return detail, nil
}

// UpsertDetails создаёт или обновляет анкету жителя.
func (s *AuthService) UpsertDetails(ctx context.Context, userID uuid.UUID, in DetailsInput) (*models.UserDetail, error) {
	if in.PinCode != nil {
		if err := validation.ValidatePinCode(*in.PinCode); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
		}
	}
	if in.Age != nil && (*in.Age < 0 || *in.Age > 150) {
		return nil, apperror.New(apperror.ErrCodeValidation, "возраст вне допустимого диапазона")
	}

	detail := &models.UserDetail{
		UserID:      userID,
		Age:         in.Age,
		Sex:         in.Sex,
		PhoneNumber: in.PhoneNumber,
		Address:     in.Address,
		City:        in.City,
		State:       in.State,
		PinCode:     in.PinCode,
	}

	err := s.repo.UpdateDetails(ctx, detail)
	if errors.Is(err, repository.ErrDetailsNotFound) {
		err = s.repo.CreateDetails(ctx, detail)
	}
	if err != nil {
		return nil, err
	}
	return detail, nil
}

// issueSession выпускает пару токенов и сохраняет refresh-сессию.
func (s *AuthService) issueSession(ctx context.Context, user *models.User, meta SessionMeta) (*AuthResult, error) {
	pair, _, refreshExp, err := s.tokenManager.GeneratePair(user)
	if err != nil {
		return nil, fmt.Errorf("auth service: не удалось выпустить токены: %w", err)
	}

	session := &models.Session{
		UserID:       user.ID,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    refreshExp,
	}
	if meta.UserAgent != "" {
		session.UserAgent = &meta.UserAgent
	}
	if meta.IPAddress != "" {
		session.IPAddress = &meta.IPAddress
	}

	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	return &AuthResult{User: user, TokenPair: pair}, nil
}

// findByLogin ищет пользователя по email либо username.
func (s *AuthService) findByLogin(ctx context.Context, login string) (*models.User, error) {
	if strings.Contains(login, "@") {
		return s.repo.GetByEmail(ctx, strings.ToLower(login))
	}
	return s.repo.GetByUsername(ctx, login)
}
