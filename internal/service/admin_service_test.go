package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/civicmirror/civic-backend/internal/models"
	"github.com/civicmirror/civic-backend/internal/pkg/apperror"
	"github.com/civicmirror/civic-backend/internal/repository"
	"github.com/civicmirror/civic-backend/internal/roles"
)

// fakeAdminUserRepo повторяет контракт PromoteToSuperuser: проверка количества
// суперпользователей и само повышение атомарны.
type fakeAdminUserRepo struct {
	users map[uuid.UUID]*models.User
}

func newFakeAdminUserRepo() *fakeAdminUserRepo {
	return &fakeAdminUserRepo{users: make(map[uuid.UUID]*models.User)}
}

func (f *fakeAdminUserRepo) addUser(isSuperuser bool, role roles.Role) *models.User {
	user := &models.User{
		ID:          uuid.New(),
		Email:       uuid.NewString() + "@example.com",
		Username:    uuid.NewString()[:8],
		IsActive:    true,
		IsSuperuser: isSuperuser,
		CreatedAt:   time.Now(),
	}
	if isSuperuser && role != roles.None {
		user.Role = &role
	}
	f.users[user.ID] = user
	return user
}

func (f *fakeAdminUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeAdminUserRepo) SetRole(ctx context.Context, userID uuid.UUID, role roles.Role) error {
	user, ok := f.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	if !user.IsSuperuser {
		return repository.ErrNotSuperuser
	}
	user.Role = &role
	return nil
}

func (f *fakeAdminUserRepo) PromoteToSuperuser(ctx context.Context, userID uuid.UUID, role roles.Role, requireExistingSuperuser func(count int) error) error {
	count := 0
	for _, user := range f.users {
		if user.IsSuperuser {
			count++
		}
	}
	if err := requireExistingSuperuser(count); err != nil {
		return err
	}

	user, ok := f.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.IsSuperuser = true
	user.Role = &role
	return nil
}

func principalOf(user *models.User) models.Principal {
	return models.Principal{UserID: user.ID, IsSuperuser: user.IsSuperuser, Role: user.AdminRole()}
}

func TestAdminService_Promote_BootstrapOnEmptySystem(t *testing.T) {
	users := newFakeAdminUserRepo()
	reports := newFakeReportRepo()
	svc := NewAdminService(users, &statsFakeRepo{fakeReportRepo: reports})

	regular := users.addUser(false, roles.None)
	actor := principalOf(regular)

	promoted, err := svc.Promote(context.Background(), actor, regular.ID, "super")

	// Первый суперпользователь назначается без действующего администратора.
	assert.NoError(t, err)
	assert.True(t, promoted.IsSuperuser)
	assert.Equal(t, roles.Super, promoted.AdminRole())
}

func TestAdminService_Promote_RequiresSuperuserWhenSuperusersExist(t *testing.T) {
	users := newFakeAdminUserRepo()
	reports := newFakeReportRepo()
	svc := NewAdminService(users, &statsFakeRepo{fakeReportRepo: reports})

	users.addUser(true, roles.Super)
	regular := users.addUser(false, roles.None)
	narrowAdmin := users.addUser(true, roles.Plumber)

	// Обычный пользователь не может повышать, когда суперпользователь уже есть.
	_, err := svc.Promote(context.Background(), principalOf(regular), regular.ID, "garbage")
	assert.True(t, apperror.IsForbidden(err))

	// Категория роли действующего суперпользователя значения не имеет.
	promoted, err := svc.Promote(context.Background(), principalOf(narrowAdmin), regular.ID, "garbage")
	assert.NoError(t, err)
	assert.True(t, promoted.IsSuperuser)
	assert.Equal(t, roles.Garbage, promoted.AdminRole())
}

func TestAdminService_Promote_InvalidRole(t *testing.T) {
	users := newFakeAdminUserRepo()
	svc := NewAdminService(users, &statsFakeRepo{fakeReportRepo: newFakeReportRepo()})
	regular := users.addUser(false, roles.None)

	_, err := svc.Promote(context.Background(), principalOf(regular), regular.ID, "tsar")

	assert.Error(t, err)
}

func TestAdminService_SetRole(t *testing.T) {
	users := newFakeAdminUserRepo()
	svc := NewAdminService(users, &statsFakeRepo{fakeReportRepo: newFakeReportRepo()})

	root := users.addUser(true, roles.All)
	admin := users.addUser(true, roles.Garbage)
	regular := users.addUser(false, roles.None)

	updated, err := svc.SetRole(context.Background(), principalOf(root), admin.ID, "electrician")
	assert.NoError(t, err)
	assert.Equal(t, roles.Electrician, updated.AdminRole())

	// Обычный пользователь ролями не управляет.
	_, err = svc.SetRole(context.Background(), principalOf(regular), admin.ID, "plumber")
	assert.True(t, apperror.IsForbidden(err))
}

func TestAdminService_SetRole_ConcreteRoleSuperuserAllowed(t *testing.T) {
	users := newFakeAdminUserRepo()
	svc := NewAdminService(users, &statsFakeRepo{fakeReportRepo: newFakeReportRepo()})

	plumberAdmin := users.addUser(true, roles.Plumber)
	target := users.addUser(true, roles.Garbage)

	// Управление ролями требует суперпользователя, но не широкой роли:
	// администратор категории "сантехника" тоже назначает роли.
	updated, err := svc.SetRole(context.Background(), principalOf(plumberAdmin), target.ID, "labour")

	assert.NoError(t, err)
	assert.Equal(t, roles.Labour, updated.AdminRole())
}

func TestAdminService_SetRole_TargetMustBeSuperuser(t *testing.T) {
	users := newFakeAdminUserRepo()
	svc := NewAdminService(users, &statsFakeRepo{fakeReportRepo: newFakeReportRepo()})

	root := users.addUser(true, roles.All)
	regular := users.addUser(false, roles.None)

	// Роль нельзя назначить обычному пользователю мимо повышения: это отказ
	// в правах, а не "не найдено".
	_, err := svc.SetRole(context.Background(), principalOf(root), regular.ID, "plumber")
	assert.True(t, apperror.IsForbidden(err))
	assert.False(t, apperror.IsNotFound(err))

	// Несуществующий пользователь остаётся "не найдено".
	_, err = svc.SetRole(context.Background(), principalOf(root), uuid.New(), "plumber")
	assert.True(t, apperror.IsNotFound(err))
}

func TestAdminService_Queue_FiltersByRole(t *testing.T) {
	users := newFakeAdminUserRepo()
	reports := newFakeReportRepo()
	svc := NewAdminService(users, &statsFakeRepo{fakeReportRepo: reports})

	seedReport(reports, models.ReportTypeGarbage, models.ReportStatusPending)
	seedReport(reports, models.ReportTypePlumber, models.ReportStatusPending)
	seedReport(reports, models.ReportTypePlumber, models.ReportStatusInProgress)

	plumber := users.addUser(true, roles.Plumber)
	queue, err := svc.Queue(context.Background(), principalOf(plumber), ListReportsInput{})
	assert.NoError(t, err)
	assert.Len(t, queue, 2)
	for _, item := range queue {
		assert.Equal(t, models.ReportTypePlumber, item.Type)
	}

	root := users.addUser(true, roles.Super)
	all, err := svc.Queue(context.Background(), principalOf(root), ListReportsInput{})
	assert.NoError(t, err)
	assert.Len(t, all, 3)

	regular := users.addUser(false, roles.None)
	_, err = svc.Queue(context.Background(), principalOf(regular), ListReportsInput{})
	assert.True(t, apperror.IsForbidden(err))
}

func TestAdminService_Stats_SuperuserOnly(t *testing.T) {
	users := newFakeAdminUserRepo()
	reports := newFakeReportRepo()
	svc := NewAdminService(users, &statsFakeRepo{fakeReportRepo: reports})

	seedReport(reports, models.ReportTypeGarbage, models.ReportStatusPending)
	seedReport(reports, models.ReportTypeGarbage, models.ReportStatusCompleted)

	root := users.addUser(true, roles.Super)
	stats, err := svc.Stats(context.Background(), principalOf(root))
	assert.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.ByType[models.ReportTypeGarbage])

	regular := users.addUser(false, roles.None)
	_, err = svc.Stats(context.Background(), principalOf(regular))
	assert.True(t, apperror.IsForbidden(err))
}

// statsFakeRepo дополняет fakeReportRepo сводкой для AdminService.
type statsFakeRepo struct {
	*fakeReportRepo
}

func (f *statsFakeRepo) Stats(ctx context.Context) (*models.ReportStats, error) {
	stats := &models.ReportStats{
		ByStatus: make(map[models.ReportStatus]int),
		ByType:   make(map[models.ReportType]int),
	}
	for _, report := range f.reports {
		stats.Total++
		stats.ByStatus[report.Status]++
		stats.ByType[report.Type]++
	}
	for _, voters := range f.votes {
		stats.TotalVotes += len(voters)
	}
	return stats, nil
}
