package roles

import "strings"

// Role — назначенная роль администратора. Рабочие роли совпадают с категориями
// обращений; all и super дают доступ ко всем категориям.
type Role string

const (
	// None означает, что роль не назначена. Такая роль не даёт прав ни на одну
	// категорию: доступ требует явного назначения.
	None Role = ""

	Garbage       Role = "garbage"
	Labour        Role = "labour"
	Electrician   Role = "electrician"
	Plumber       Role = "plumber"
	Miscellaneous Role = "miscellaneous"
	Super         Role = "super"
	All           Role = "all"
)

// Valid список допустимых ролей администратора.
var Valid = map[Role]struct{}{
	Garbage:       {},
	Labour:        {},
	Electrician:   {},
	Plumber:       {},
	Miscellaneous: {},
	Super:         {},
	All:           {},
}

// Parse нормализует и проверяет роль по фиксированному словарю.
func Parse(raw string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := Valid[r]
	return r, ok
}

// IsWildcard сообщает, даёт ли роль доступ ко всем категориям обращений.
func (r Role) IsWildcard() bool {
	return r == All || r == Super
}

// Allows решает, может ли роль действовать над обращением данной категории.
// Сравнение категории с ролью регистронезависимое. Пустая роль запрещает всё.
func (r Role) Allows(reportType string) bool {
	if r == None {
		return false
	}
	if r.IsWildcard() {
		return true
	}
	return strings.EqualFold(string(r), reportType)
}
