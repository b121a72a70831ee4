package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/civicmirror/civic-backend/internal/models"
	"github.com/civicmirror/civic-backend/internal/repository/common"
)

var ErrDuplicateVote = errors.New("vote already exists")

type VoteRepository struct {
	db *sqlx.DB
}

func NewVoteRepository(db *sqlx.DB) *VoteRepository {
	return &VoteRepository{db: db}
}

// Create вставляет голос. Дубликаты разрешает уникальное ограничение базы:
// из двух одновременных вставок пары (user, report) зафиксируется ровно одна,
// вторая получит ErrDuplicateVote.
func (r *VoteRepository) Create(ctx context.Context, vote *models.Vote) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO votes (user_id, report_id)
		VALUES ($1, $2)
		RETURNING id, created_at
	`, vote.UserID, vote.ReportID).Scan(&vote.ID, &vote.CreatedAt)
	if common.IsUniqueViolation(err, "uix_user_report_vote") {
		return ErrDuplicateVote
	}
	return err
}

// ListVotedReports возвращает обращения, за которые голосовал пользователь.
func (r *VoteRepository) ListVotedReports(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Report, error) {
	var reports []models.Report
	err := r.db.SelectContext(ctx, &reports, `
		SELECT r.* FROM reports r
		JOIN votes v ON v.report_id = r.id
		WHERE v.user_id = $1
		ORDER BY v.created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return reports, err
}
