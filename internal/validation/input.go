package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Константы валидации
const (
	MinUsernameLength    = 3
	MaxUsernameLength    = 30
	MinPasswordLength    = 8
	MinTitleLength       = 3
	MaxTitleLength       = 200
	MaxDescriptionLength = 5000
	MaxLocationLength    = 200
	MinCommentLength     = 1
	MaxCommentLength     = 2000
	MinMessageLength     = 1
	MaxMessageLength     = 5000
	PinCodeLength        = 6
)

var (
	usernameRegex = regexp.MustCompile(`^[a-z0-9._-]+$`)
	localRegex    = regexp.MustCompile(`^[a-z0-9._+-]+$`)
	domainRegex   = regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)
	pinCodeRegex  = regexp.MustCompile(`^[0-9]+$`)
)

// ValidateLength проверяет длину строки в рунах.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email обязателен")
	}

	email = strings.ToLower(strings.TrimSpace(email))

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return fmt.Errorf("некорректный формат email")
	}

	localPart, domainPart := parts[0], parts[1]

	if len(localPart) == 0 || len(localPart) > 64 {
		return fmt.Errorf("локальная часть email должна быть от 1 до 64 символов")
	}
	if len(domainPart) == 0 || len(domainPart) > 255 {
		return fmt.Errorf("доменная часть email должна быть от 1 до 255 символов")
	}

	if !localRegex.MatchString(localPart) {
		return fmt.Errorf("локальная часть email содержит недопустимые символы")
	}
	if !domainRegex.MatchString(domainPart) {
		return fmt.Errorf("доменная часть email имеет некорректный формат")
	}

	return nil
}

// ValidateUsername проверяет имя пользователя.
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("имя пользователя обязательно")
	}

	if err := ValidateLength("имя пользователя", username, MinUsernameLength, MaxUsernameLength); err != nil {
		return err
	}

	if !usernameRegex.MatchString(strings.ToLower(username)) {
		return fmt.Errorf("имя пользователя может содержать только буквы, цифры, точку, дефис и подчёркивание")
	}

	return nil
}

// ValidatePassword проверяет минимальные требования к паролю.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fmt.Errorf("пароль должен быть не менее %d символов", MinPasswordLength)
	}
	return nil
}

// ValidatePinCode проверяет почтовый индекс района.
func ValidatePinCode(pin string) error {
	pin = strings.TrimSpace(pin)
	if len(pin) != PinCodeLength || !pinCodeRegex.MatchString(pin) {
		return fmt.Errorf("pin code должен состоять из %d цифр", PinCodeLength)
	}
	return nil
}
