package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/civicmirror/civic-backend/internal/models"
	"github.com/civicmirror/civic-backend/internal/repository/common"
	"github.com/civicmirror/civic-backend/internal/roles"
)

var ErrReportNotFound = errors.New("report not found")

// ReportFilter описывает условия выборки обращений.
// Role с конкретным значением сужает выдачу до совпадающей категории.
type ReportFilter struct {
	Status  *models.ReportStatus
	OwnerID *uuid.UUID
	Role    roles.Role
	Limit   int
	Offset  int
}

type ReportRepository struct {
	db *sqlx.DB
}

func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) Create(ctx context.Context, report *models.Report) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO reports (user_id, title, description, type, status, image_url, location)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, report.UserID, report.Title, report.Description, string(report.Type), string(report.Status), report.ImageURL, report.Location).
		Scan(&report.ID, &report.CreatedAt, &report.UpdatedAt)
}

func (r *ReportRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	return common.GetByID[models.Report](ctx, r.db, "reports", id, ErrReportNotFound)
}

// List возвращает обращения по фильтру, новые первыми.
func (r *ReportRepository) List(ctx context.Context, filter ReportFilter) ([]models.Report, error) {
	query := `SELECT * FROM reports WHERE 1=1`
	args := []interface{}{}

	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		query += ` AND user_id = $` + strconv.Itoa(len(args))
	}
	if filter.Role != roles.None && !filter.Role.IsWildcard() {
		args = append(args, string(filter.Role))
		query += ` AND LOWER(type) = LOWER($` + strconv.Itoa(len(args)) + `)`
	}

	args = append(args, filter.Limit)
	query += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args))
	args = append(args, filter.Offset)
	query += ` OFFSET $` + strconv.Itoa(len(args))

	var reports []models.Report
	err := r.db.SelectContext(ctx, &reports, query, args...)
	return reports, err
}

// UpdateStatus выполняет условный переход: строка меняется только если текущий
// статус совпадает с ожидаемым. Возвращает (nil, nil), если другая транзакция
// успела изменить статус первой — проигравший перечитывает состояние и падает
// на проверке предусловия.
func (r *ReportRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.ReportStatus) (*models.Report, error) {
	var report models.Report
	err := r.db.GetContext(ctx, &report, `
		UPDATE reports SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING *
	`, id, string(from), string(to))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// voteRow — строка агрегатной выборки голосов.
type voteRow struct {
	ReportID uuid.UUID `db:"report_id"`
	UserID   uuid.UUID `db:"user_id"`
}

// AttachVotes дополняет обращения агрегатами по голосам одним запросом,
// без N+1 по списку.
func (r *ReportRepository) AttachVotes(ctx context.Context, reports []models.Report) ([]models.ReportWithVotes, error) {
	result := make([]models.ReportWithVotes, len(reports))
	if len(reports) == 0 {
		return result, nil
	}

	ids := make([]uuid.UUID, len(reports))
	for i, rep := range reports {
		ids[i] = rep.ID
		result[i] = models.ReportWithVotes{Report: rep, Votes: []uuid.UUID{}}
	}

	var rows []voteRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT report_id, user_id FROM votes WHERE report_id = ANY($1) ORDER BY created_at
	`, pq.Array(ids))
	if err != nil {
		return nil, err
	}

	index := make(map[uuid.UUID]int, len(reports))
	for i, rep := range reports {
		index[rep.ID] = i
	}

	for _, row := range rows {
		i, ok := index[row.ReportID]
		if !ok {
			continue
		}
		result[i].Votes = append(result[i].Votes, row.UserID)
		result[i].VoteCount++
	}

	return result, nil
}

// Stats собирает сводку по статусам и категориям для админской панели.
func (r *ReportRepository) Stats(ctx context.Context) (*models.ReportStats, error) {
	stats := &models.ReportStats{
		ByStatus: make(map[models.ReportStatus]int),
		ByType:   make(map[models.ReportType]int),
	}

	type bucket struct {
		Key   string `db:"key"`
		Count int    `db:"count"`
	}

	var byStatus []bucket
	if err := r.db.SelectContext(ctx, &byStatus, `
		SELECT status AS key, COUNT(*) AS count FROM reports GROUP BY status
	`); err != nil {
		return nil, err
	}
	for _, b := range byStatus {
		stats.ByStatus[models.ReportStatus(b.Key)] = b.Count
		stats.Total += b.Count
	}

	var byType []bucket
	if err := r.db.SelectContext(ctx, &byType, `
		SELECT type AS key, COUNT(*) AS count FROM reports GROUP BY type
	`); err != nil {
		return nil, err
	}
	for _, b := range byType {
		stats.ByType[models.ReportType(b.Key)] = b.Count
	}

	if err := r.db.GetContext(ctx, &stats.TotalVotes, `SELECT COUNT(*) FROM votes`); err != nil {
		return nil, err
	}

	return stats, nil
}
