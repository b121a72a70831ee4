package models

import (
	"time"

	"github.com/google/uuid"
)

// ReportStatus описывает стадию жизненного цикла обращения.
// Статус движется только вперёд: pending -> in_progress -> completed.
type ReportStatus string

const (
	ReportStatusPending    ReportStatus = "pending"
	ReportStatusInProgress ReportStatus = "in_progress"
	ReportStatusCompleted  ReportStatus = "completed"
)

// ValidReportStatuses список валидных статусов обращений.
var ValidReportStatuses = map[ReportStatus]struct{}{
	ReportStatusPending:    {},
	ReportStatusInProgress: {},
	ReportStatusCompleted:  {},
}

// CanTransition сообщает, допустим ли переход из текущего статуса в целевой.
// Разрешены только pending -> in_progress и in_progress -> completed.
func (s ReportStatus) CanTransition(target ReportStatus) bool {
	switch s {
	case ReportStatusPending:
		return target == ReportStatusInProgress
	case ReportStatusInProgress:
		return target == ReportStatusCompleted
	default:
		return false
	}
}

// ReportType — категория обращения. Словарь совпадает с рабочими ролями
// администраторов, без служебных ролей all/super.
type ReportType string

const (
	ReportTypeGarbage       ReportType = "garbage"
	ReportTypeLabour        ReportType = "labour"
	ReportTypeElectrician   ReportType = "electrician"
	ReportTypePlumber       ReportType = "plumber"
	ReportTypeMiscellaneous ReportType = "miscellaneous"
)

// ValidReportTypes список признаваемых категорий обращений.
var ValidReportTypes = map[ReportType]struct{}{
	ReportTypeGarbage:       {},
	ReportTypeLabour:        {},
	ReportTypeElectrician:   {},
	ReportTypePlumber:       {},
	ReportTypeMiscellaneous: {},
}

// Report описывает одно обращение жителя о городской проблеме.
// Тип назначается при создании и дальше не меняется.
type Report struct {
	ID          uuid.UUID    `db:"id" json:"id"`
	UserID      uuid.UUID    `db:"user_id" json:"user_id"`
	Title       string       `db:"title" json:"title"`
	Description *string      `db:"description" json:"description,omitempty"`
	Type        ReportType   `db:"type" json:"type"`
	Status      ReportStatus `db:"status" json:"status"`
	ImageURL    *string      `db:"image_url" json:"image_url,omitempty"`
	Location    *string      `db:"location" json:"location,omitempty"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
}

// ReportWithVotes — обращение, дополненное агрегатами по голосам.
// Счётчик и список проголосовавших вычисляются на чтении, не хранятся.
type ReportWithVotes struct {
	Report
	VoteCount int         `json:"vote_count"`
	Votes     []uuid.UUID `json:"votes"`
}

// ReportStats — сводка для админской панели.
type ReportStats struct {
	Total      int                  `json:"total"`
	ByStatus   map[ReportStatus]int `json:"by_status"`
	ByType     map[ReportType]int   `json:"by_type"`
	TotalVotes int                  `json:"total_votes"`
}
