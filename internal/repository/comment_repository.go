package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/civicmirror/civic-backend/internal/models"
	"github.com/civicmirror/civic-backend/internal/repository/common"
)

var ErrCommentNotFound = errors.New("comment not found")

type CommentRepository struct {
	db *sqlx.DB
}

func NewCommentRepository(db *sqlx.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

func (r *CommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO comments (user_id, report_id, text)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, comment.UserID, comment.ReportID, comment.Text).
		Scan(&comment.ID, &comment.CreatedAt, &comment.UpdatedAt)
}

func (r *CommentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	return common.GetByID[models.Comment](ctx, r.db, "comments", id, ErrCommentNotFound)
}

// ListByReport возвращает комментарии обращения вместе с именами авторов,
// новые первыми.
func (r *CommentRepository) ListByReport(ctx context.Context, reportID uuid.UUID, limit, offset int) ([]models.CommentWithUser, error) {
	var comments []models.CommentWithUser
	err := r.db.SelectContext(ctx, &comments, `
		SELECT c.*, u.username
		FROM comments c
		JOIN users u ON u.id = c.user_id
		WHERE c.report_id = $1
		ORDER BY c.created_at DESC LIMIT $2 OFFSET $3
	`, reportID, limit, offset)
	return comments, err
}

func (r *CommentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCommentNotFound
	}
	return nil
}
