package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/civicmirror/civic-backend/internal/models"
	"github.com/civicmirror/civic-backend/internal/pkg/apperror"
	"github.com/civicmirror/civic-backend/internal/repository"
	"github.com/civicmirror/civic-backend/internal/validation"
)

// CommentRepository описывает операции с комментариями.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Comment, error)
	ListByReport(ctx context.Context, reportID uuid.UUID, limit, offset int) ([]models.CommentWithUser, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CommentReportRepository — доступ к обращениям для проверки существования.
type CommentReportRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error)
}

// CommentService — обсуждение обращений.
type CommentService struct {
	comments CommentRepository
	reports  CommentReportRepository
}

// NewCommentService создаёт сервис комментариев.
func NewCommentService(comments CommentRepository, reports CommentReportRepository) *CommentService {
	return &CommentService{comments: comments, reports: reports}
}

// Create добавляет комментарий к существующему обращению.
func (s *CommentService) Create(ctx context.Context, userID, reportID uuid.UUID, text string) (*models.Comment, error) {
	if err := validation.ValidateNonEmpty("комментарий", text); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateLength("комментарий", text, validation.MinCommentLength, validation.MaxCommentLength); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	if _, err := s.reports.GetByID(ctx, reportID); err != nil {
		if errors.Is(err, repository.ErrReportNotFound) {
			return nil, apperror.ErrReportNotFound
		}
		return nil, err
	}

	comment := &models.Comment{
		UserID:   userID,
		ReportID: reportID,
		Text:     text,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// List возвращает комментарии обращения, новые первыми.
func (s *CommentService) List(ctx context.Context, reportID uuid.UUID, limit, offset int) ([]models.CommentWithUser, error) {
	if _, err := s.reports.GetByID(ctx, reportID); err != nil {
		if errors.Is(err, repository.ErrReportNotFound) {
			return nil, apperror.ErrReportNotFound
		}
		return nil, err
	}
	return s.comments.ListByReport(ctx, reportID, normalizeLimit(limit), maxInt(offset, 0))
}

// Delete удаляет комментарий. Разрешено автору и суперпользователям.
func (s *CommentService) Delete(ctx context.Context, actor models.Principal, commentID uuid.UUID) error {
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, repository.ErrCommentNotFound) {
			return apperror.ErrCommentNotFound
		}
		return err
	}

	if comment.UserID != actor.UserID && !actor.IsSuperuser {
		return apperror.ErrForbidden
	}

	if err := s.comments.Delete(ctx, commentID); err != nil {
		if errors.Is(err, repository.ErrCommentNotFound) {
			return apperror.ErrCommentNotFound
		}
		return err
	}
	return nil
}
