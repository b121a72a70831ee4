package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/civicmirror/civic-backend/internal/logger"
	"github.com/civicmirror/civic-backend/internal/models"
	"github.com/civicmirror/civic-backend/internal/pkg/apperror"
	"github.com/civicmirror/civic-backend/internal/repository"
	"github.com/civicmirror/civic-backend/internal/roles"
)

// AdminUserRepository описывает операции над пользователями для админки.
type AdminUserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetRole(ctx context.Context, userID uuid.UUID, role roles.Role) error
	PromoteToSuperuser(ctx context.Context, userID uuid.UUID, role roles.Role, requireExistingSuperuser func(count int) error) error
}

// AdminReportRepository — выборки обращений для триажа и сводка.
type AdminReportRepository interface {
	List(ctx context.Context, filter repository.ReportFilter) ([]models.Report, error)
	AttachVotes(ctx context.Context, reports []models.Report) ([]models.ReportWithVotes, error)
	Stats(ctx context.Context) (*models.ReportStats, error)
}

// AdminService — назначение ролей и рабочая очередь администраторов.
type AdminService struct {
	users   AdminUserRepository
	reports AdminReportRepository
}

// NewAdminService создаёт сервис административных операций.
func NewAdminService(users AdminUserRepository, reports AdminReportRepository) *AdminService {
	return &AdminService{users: users, reports: reports}
}

// Promote повышает пользователя до суперпользователя с указанной ролью.
// Обычный случай требует действующего суперпользователя, категория его роли
// не важна. Исключение — пустая система: первого администратора разрешено
// назначить кому угодно, иначе платформу невозможно было бы запустить.
// Проверка количества суперпользователей выполняется в одной транзакции
// с повышением.
func (s *AdminService) Promote(ctx context.Context, actor models.Principal, userID uuid.UUID, roleRaw string) (*models.User, error) {
	role, ok := roles.Parse(roleRaw)
	if !ok || role == roles.None {
		return nil, apperror.ErrInvalidRole
	}

	err := s.users.PromoteToSuperuser(ctx, userID, role, func(count int) error {
		if count == 0 {
			logger.Log.WithField("user_id", userID).Warn("admin service: bootstrap первого суперпользователя")
			return nil
		}
		if !actor.IsSuperuser {
			return apperror.ErrForbidden
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, err
	}

	return s.users.GetByID(ctx, userID)
}

// SetRole меняет роль действующего суперпользователя. Доступно любому
// суперпользователю; цель должна уже быть суперпользователем, обычному
// пользователю роль мимо повышения не назначается.
func (s *AdminService) SetRole(ctx context.Context, actor models.Principal, userID uuid.UUID, roleRaw string) (*models.User, error) {
	if !actor.IsSuperuser {
		return nil, apperror.ErrForbidden
	}

	role, ok := roles.Parse(roleRaw)
	if !ok || role == roles.None {
		return nil, apperror.ErrInvalidRole
	}

	if err := s.users.SetRole(ctx, userID, role); err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, apperror.ErrUserNotFound
		case errors.Is(err, repository.ErrNotSuperuser):
			return nil, apperror.New(apperror.ErrCodeForbidden, "роль назначается только действующему суперпользователю")
		}
		return nil, err
	}

	return s.users.GetByID(ctx, userID)
}

// Queue возвращает рабочую очередь администратора: обращения его категории.
// Широкая роль видит все категории.
func (s *AdminService) Queue(ctx context.Context, actor models.Principal, in ListReportsInput) ([]models.ReportWithVotes, error) {
	if !actor.IsSuperuser || actor.Role == roles.None {
		return nil, apperror.ErrForbidden
	}

	filter := repository.ReportFilter{
		Role:   actor.Role,
		Limit:  normalizeLimit(in.Limit),
		Offset: maxInt(in.Offset, 0),
	}
	if in.Status != "" {
		status := models.ReportStatus(in.Status)
		if _, ok := models.ValidReportStatuses[status]; !ok {
			return nil, apperror.New(apperror.ErrCodeValidation, "неизвестный статус")
		}
		filter.Status = &status
	}

	reports, err := s.reports.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return s.reports.AttachVotes(ctx, reports)
}

// Stats отдаёт сводку по обращениям для панели администратора.
func (s *AdminService) Stats(ctx context.Context, actor models.Principal) (*models.ReportStats, error) {
	if !actor.IsSuperuser {
		return nil, apperror.ErrForbidden
	}
	return s.reports.Stats(ctx)
}
