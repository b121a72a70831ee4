package service

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/civicmirror/civic-backend/internal/logger"
	"github.com/civicmirror/civic-backend/internal/models"
	"github.com/civicmirror/civic-backend/internal/pkg/apperror"
	"github.com/civicmirror/civic-backend/internal/repository"
	"github.com/civicmirror/civic-backend/internal/roles"
)

func TestMain(m *testing.M) {
	logger.Init("fatal")
	os.Exit(m.Run())
}

// fakeReportRepo — хранилище обращений в памяти. statusSeenByRead позволяет
// имитировать гонку: чтение возвращает устаревший статус, а условный UPDATE
// работает по настоящему состоянию.
type fakeReportRepo struct {
	reports          map[uuid.UUID]*models.Report
	statusSeenByRead map[uuid.UUID]models.ReportStatus
	votes            map[uuid.UUID][]uuid.UUID
	createErr        error
}

func newFakeReportRepo() *fakeReportRepo {
	return &fakeReportRepo{
		reports:          make(map[uuid.UUID]*models.Report),
		statusSeenByRead: make(map[uuid.UUID]models.ReportStatus),
		votes:            make(map[uuid.UUID][]uuid.UUID),
	}
}

func (f *fakeReportRepo) Create(ctx context.Context, report *models.Report) error {
	if f.createErr != nil {
		return f.createErr
	}
	report.ID = uuid.New()
	now := time.Now()
	report.CreatedAt = now
	report.UpdatedAt = now
	stored := *report
	f.reports[report.ID] = &stored
	return nil
}

func (f *fakeReportRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	report, ok := f.reports[id]
	if !ok {
		return nil, repository.ErrReportNotFound
	}
	copy := *report
	if stale, ok := f.statusSeenByRead[id]; ok {
		copy.Status = stale
	}
	return &copy, nil
}

func (f *fakeReportRepo) List(ctx context.Context, filter repository.ReportFilter) ([]models.Report, error) {
	var out []models.Report
	for _, report := range f.reports {
		if filter.Status != nil && report.Status != *filter.Status {
			continue
		}
		if filter.OwnerID != nil && report.UserID != *filter.OwnerID {
			continue
		}
		if filter.Role != roles.None && !filter.Role.IsWildcard() && string(filter.Role) != string(report.Type) {
			continue
		}
		out = append(out, *report)
	}
	return out, nil
}

func (f *fakeReportRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.ReportStatus) (*models.Report, error) {
	report, ok := f.reports[id]
	if !ok || report.Status != from {
		return nil, nil
	}
	report.Status = to
	report.UpdatedAt = time.Now()
	copy := *report
	return &copy, nil
}

func (f *fakeReportRepo) AttachVotes(ctx context.Context, reports []models.Report) ([]models.ReportWithVotes, error) {
	out := make([]models.ReportWithVotes, len(reports))
	for i, report := range reports {
		voters := f.votes[report.ID]
		if voters == nil {
			voters = []uuid.UUID{}
		}
		out[i] = models.ReportWithVotes{Report: report, VoteCount: len(voters), Votes: voters}
	}
	return out, nil
}

type fakeVoteRepo struct {
	reports *fakeReportRepo
	seen    map[string]struct{}
}

func newFakeVoteRepo(reports *fakeReportRepo) *fakeVoteRepo {
	return &fakeVoteRepo{reports: reports, seen: make(map[string]struct{})}
}

func (f *fakeVoteRepo) Create(ctx context.Context, vote *models.Vote) error {
	key := vote.UserID.String() + "/" + vote.ReportID.String()
	if _, ok := f.seen[key]; ok {
		return repository.ErrDuplicateVote
	}
	f.seen[key] = struct{}{}
	f.reports.votes[vote.ReportID] = append(f.reports.votes[vote.ReportID], vote.UserID)
	vote.ID = uuid.New()
	vote.CreatedAt = time.Now()
	return nil
}

func (f *fakeVoteRepo) ListVotedReports(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Report, error) {
	var out []models.Report
	for id, voters := range f.reports.votes {
		for _, voter := range voters {
			if voter == userID {
				out = append(out, *f.reports.reports[id])
			}
		}
	}
	return out, nil
}

type fakeContacts struct {
	details map[uuid.UUID]*models.UserDetail
}

func (f *fakeContacts) GetDetails(ctx context.Context, userID uuid.UUID) (*models.UserDetail, error) {
	detail, ok := f.details[userID]
	if !ok {
		return nil, repository.ErrDetailsNotFound
	}
	return detail, nil
}

type fakeClassifier struct {
	label string
	err   error
	calls int
}

func (f *fakeClassifier) Classify(ctx context.Context, image []byte) (string, error) {
	f.calls++
	return f.label, f.err
}

type fakePhotos struct {
	url     string
	err     error
	deleted []string
}

func (f *fakePhotos) SaveReportImage(ctx context.Context, image []byte) (string, error) {
	return f.url, f.err
}

func (f *fakePhotos) Delete(ctx context.Context, publicURL string) error {
	f.deleted = append(f.deleted, publicURL)
	return nil
}

type fakeSMS struct {
	sent chan string
}

func newFakeSMS() *fakeSMS {
	return &fakeSMS{sent: make(chan string, 4)}
}

func (f *fakeSMS) Send(ctx context.Context, to, message string) error {
	f.sent <- to
	return nil
}

func mapTestLabel(label string) models.ReportType {
	switch label {
	case "pothole":
		return models.ReportTypeLabour
	case "garbage":
		return models.ReportTypeGarbage
	default:
		return models.ReportTypeMiscellaneous
	}
}

func newTestReportService(reports *fakeReportRepo, votes *fakeVoteRepo, contacts *fakeContacts, classifier *fakeClassifier, photos *fakePhotos, sms *fakeSMS) *ReportService {
	var cl ImageClassifier
	if classifier != nil {
		cl = classifier
	}
	var ph PhotoStore
	if photos != nil {
		ph = photos
	}
	var sender SMSNotifier
	if sms != nil {
		sender = sms
	}
	var contactRepo ContactRepository
	if contacts != nil {
		contactRepo = contacts
	}
	return NewReportService(reports, votes, contactRepo, cl, ph, sender, mapTestLabel, "", time.Second)
}

func superuser(role roles.Role) models.Principal {
	return models.Principal{UserID: uuid.New(), IsSuperuser: true, Role: role}
}

func seedReport(repo *fakeReportRepo, reportType models.ReportType, status models.ReportStatus) *models.Report {
	report := &models.Report{
		UserID: uuid.New(),
		Title:  "Яма на дороге",
		Type:   reportType,
		Status: status,
	}
	_ = repo.Create(context.Background(), report)
	return repo.reports[report.ID]
}

func TestReportService_Create_StartsPending(t *testing.T) {
	repo := newFakeReportRepo()
	svc := newTestReportService(repo, newFakeVoteRepo(repo), nil, nil, nil, nil)

	report, err := svc.Create(context.Background(), uuid.New(), CreateReportInput{
		Title:    "Мусор во дворе",
		TypeHint: "garbage",
	})

	assert.NoError(t, err)
	assert.Equal(t, models.ReportStatusPending, report.Status)
	assert.Equal(t, models.ReportTypeGarbage, report.Type)
}

func TestReportService_Create_EmptyHintFallsBackToMiscellaneous(t *testing.T) {
	repo := newFakeReportRepo()
	svc := newTestReportService(repo, newFakeVoteRepo(repo), nil, nil, nil, nil)

	report, err := svc.Create(context.Background(), uuid.New(), CreateReportInput{Title: "Что-то сломалось"})

	assert.NoError(t, err)
	assert.Equal(t, models.ReportTypeMiscellaneous, report.Type)
}

func TestReportService_Create_UnknownHintPassesThrough(t *testing.T) {
	repo := newFakeReportRepo()
	svc := newTestReportService(repo, newFakeVoteRepo(repo), nil, nil, nil, nil)

	report, err := svc.Create(context.Background(), uuid.New(), CreateReportInput{
		Title:    "Бродячие собаки",
		TypeHint: "Stray_Dogs",
	})

	// Незнакомая подсказка пользователя не обрезается до miscellaneous.
	assert.NoError(t, err)
	assert.Equal(t, models.ReportType("stray_dogs"), report.Type)
}

func TestReportService_Create_ClassifierWinsOverHint(t *testing.T) {
	repo := newFakeReportRepo()
	classifier := &fakeClassifier{label: "pothole"}
	photos := &fakePhotos{url: "/media/reports/x.jpg"}
	svc := newTestReportService(repo, newFakeVoteRepo(repo), nil, classifier, photos, nil)

	report, err := svc.Create(context.Background(), uuid.New(), CreateReportInput{
		Title:    "Разбита дорога",
		TypeHint: "garbage",
		Image:    []byte{0xFF, 0xD8},
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, classifier.calls)
	assert.Equal(t, models.ReportTypeLabour, report.Type)
	assert.NotNil(t, report.ImageURL)
	assert.Equal(t, "/media/reports/x.jpg", *report.ImageURL)
}

func TestReportService_Create_UnknownLabelMapsToMiscellaneous(t *testing.T) {
	repo := newFakeReportRepo()
	classifier := &fakeClassifier{label: "elephant"}
	svc := newTestReportService(repo, newFakeVoteRepo(repo), nil, classifier, &fakePhotos{url: "/u"}, nil)

	report, err := svc.Create(context.Background(), uuid.New(), CreateReportInput{
		Title: "Непонятно что",
		Image: []byte{0x01},
	})

	assert.NoError(t, err)
	assert.Equal(t, models.ReportTypeMiscellaneous, report.Type)
}

func TestReportService_Create_CollaboratorFailuresDoNotFailCreation(t *testing.T) {
	repo := newFakeReportRepo()
	classifier := &fakeClassifier{err: errors.New("timeout")}
	photos := &fakePhotos{err: errors.New("disk full")}
	svc := newTestReportService(repo, newFakeVoteRepo(repo), nil, classifier, photos, nil)

	report, err := svc.Create(context.Background(), uuid.New(), CreateReportInput{
		Title:    "Протечка",
		TypeHint: "plumber",
		Image:    []byte{0x01},
	})

	// Ни сохранение фото, ни классификация не должны ронять создание.
	assert.NoError(t, err)
	assert.Nil(t, report.ImageURL)
	assert.Equal(t, models.ReportTypePlumber, report.Type)
}

func TestReportService_Create_RemovesOrphanPhotoOnStoreFailure(t *testing.T) {
	repo := newFakeReportRepo()
	repo.createErr = errors.New("db down")
	photos := &fakePhotos{url: "/media/reports/orphan.jpg"}
	svc := newTestReportService(repo, newFakeVoteRepo(repo), nil, nil, photos, nil)

	_, err := svc.Create(context.Background(), uuid.New(), CreateReportInput{
		Title: "Протечка в подвале",
		Image: []byte{0x01},
	})

	// Фото успело сохраниться, а запись не создалась: файл подчищается.
	assert.Error(t, err)
	assert.Equal(t, []string{"/media/reports/orphan.jpg"}, photos.deleted)
}

func TestReportService_Transition_HappyPath(t *testing.T) {
	repo := newFakeReportRepo()
	svc := newTestReportService(repo, newFakeVoteRepo(repo), nil, nil, nil, nil)
	report := seedReport(repo, models.ReportTypeLabour, models.ReportStatusPending)

	updated, err := svc.Transition(context.Background(), report.ID, superuser(roles.Labour), models.ReportStatusInProgress)

	assert.NoError(t, err)
	assert.Equal(t, models.ReportStatusInProgress, updated.Status)
}

func TestReportService_Transition_NotFound(t *testing.T) {
	repo := newFakeReportRepo()
	svc := newTestReportService(repo, newFakeVoteRepo(repo), nil, nil, nil, nil)

	_, err := svc.Transition(context.Background(), uuid.New(), superuser(roles.Super), models.ReportStatusInProgress)

	assert.True(t, apperror.IsNotFound(err))
}

func TestReportService_Transition_RoleCheckedBeforeState(t *testing.T) {
	repo := newFakeReportRepo()
	svc := newTestReportService(repo, newFakeVoteRepo(repo), nil, nil, nil, nil)
	// Обращение уже завершено: переход в любом случае незаконен.
	report := seedReport(repo, models.ReportTypeGarbage, models.ReportStatusCompleted)

	// Администратор чужой категории получает 403, а не конфликт перехода.
	_, err := svc.Transition(context.Background(), report.ID, superuser(roles.Plumber), models.ReportStatusInProgress)

	assert.True(t, apperror.IsForbidden(err))
	assert.False(t, apperror.IsInvalidTransition(err))
}

func TestReportService_Transition_RegularUserForbidden(t *testing.T) {
	repo := newFakeReportRepo()
	svc := newTestReportService(repo, newFakeVoteRepo(repo), nil, nil, nil, nil)
	report := seedReport(repo, models.ReportTypeGarbage, models.ReportStatusPending)

	actor := models.Principal{UserID: uuid.New(), IsSuperuser: false, Role: roles.None}
	_, err := svc.Transition(context.Background(), report.ID, actor, models.ReportStatusInProgress)

	assert.True(t, apperror.IsForbidden(err))
}

func TestReportService_Transition_IllegalJumpsRejected(t *testing.T) {
	repo := newFakeReportRepo()
	svc := newTestReportService(repo, newFakeVoteRepo(repo), nil, nil, nil, nil)

	cases := []struct {
		name   string
		from   models.ReportStatus
		target models.ReportStatus
	}{
		{"pending_to_completed", models.ReportStatusPending, models.ReportStatusCompleted},
		{"completed_to_pending", models.ReportStatusCompleted, models.ReportStatusPending},
		{"in_progress_to_pending", models.ReportStatusInProgress, models.ReportStatusPending},
		{"pending_to_pending", models.ReportStatusPending, models.ReportStatusPending},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			report := seedReport(repo, models.ReportTypeGarbage, tc.from)
			_, err := svc.Transition(context.Background(), report.ID, superuser(roles.All), tc.target)
			assert.True(t, apperror.IsInvalidTransition(err))
		})
	}
}

func TestReportService_Transition_WildcardRoleAllowsAnyCategory(t *testing.T) {
	repo := newFakeReportRepo()
	svc := newTestReportService(repo, newFakeVoteRepo(repo), nil, nil, nil, nil)
	report := seedReport(repo, models.ReportTypeElectrician, models.ReportStatusPending)

	updated, err := svc.Transition(context.Background(), report.ID, superuser(roles.Super), models.ReportStatusInProgress)

	assert.NoError(t, err)
	assert.Equal(t, models.ReportStatusInProgress, updated.Status)
}

func TestReportService_Transition_LostRaceReportsConflict(t *testing.T) {
	repo := newFakeReportRepo()
	svc := newTestReportService(repo, newFakeVoteRepo(repo), nil, nil, nil, nil)
	report := seedReport(repo, models.ReportTypeLabour, models.ReportStatusInProgress)

	// Чтение возвращает устаревший pending, условный UPDATE работает по
	// настоящему in_progress и не находит строку.
	repo.statusSeenByRead[report.ID] = models.ReportStatusPending

	_, err := svc.Transition(context.Background(), report.ID, superuser(roles.Labour), models.ReportStatusInProgress)

	assert.True(t, apperror.IsInvalidTransition(err))
	assert.Equal(t, models.ReportStatusInProgress, repo.reports[report.ID].Status)
}

func TestReportService_Transition_CompletedSendsSMS(t *testing.T) {
	repo := newFakeReportRepo()
	sms := newFakeSMS()
	report := seedReport(repo, models.ReportTypePlumber, models.ReportStatusInProgress)

	phone := "+70000000001"
	contacts := &fakeContacts{details: map[uuid.UUID]*models.UserDetail{
		report.UserID: {UserID: report.UserID, PhoneNumber: &phone},
	}}
	svc := newTestReportService(repo, newFakeVoteRepo(repo), contacts, nil, nil, sms)

	_, err := svc.Transition(context.Background(), report.ID, superuser(roles.Plumber), models.ReportStatusCompleted)
	assert.NoError(t, err)

	select {
	case to := <-sms.sent:
		assert.Equal(t, phone, to)
	case <-time.After(2 * time.Second):
		t.Fatal("SMS не отправлено")
	}
}

func TestReportService_Transition_CompletedCopiesAdminNumber(t *testing.T) {
	repo := newFakeReportRepo()
	sms := newFakeSMS()
	report := seedReport(repo, models.ReportTypePlumber, models.ReportStatusInProgress)

	phone := "+70000000001"
	adminPhone := "+79990000000"
	contacts := &fakeContacts{details: map[uuid.UUID]*models.UserDetail{
		report.UserID: {UserID: report.UserID, PhoneNumber: &phone},
	}}
	svc := NewReportService(repo, newFakeVoteRepo(repo), contacts, nil, nil, sms, mapTestLabel, adminPhone, time.Second)

	_, err := svc.Transition(context.Background(), report.ID, superuser(roles.Plumber), models.ReportStatusCompleted)
	assert.NoError(t, err)

	recipients := make(map[string]bool)
	for i := 0; i < 2; i++ {
		select {
		case to := <-sms.sent:
			recipients[to] = true
		case <-time.After(2 * time.Second):
			t.Fatal("ожидались SMS жителю и на дежурный номер")
		}
	}
	assert.True(t, recipients[phone])
	assert.True(t, recipients[adminPhone])
}

func TestReportService_Transition_NoPhoneSkipsSMS(t *testing.T) {
	repo := newFakeReportRepo()
	sms := newFakeSMS()
	report := seedReport(repo, models.ReportTypeGarbage, models.ReportStatusInProgress)
	contacts := &fakeContacts{details: map[uuid.UUID]*models.UserDetail{}}
	svc := newTestReportService(repo, newFakeVoteRepo(repo), contacts, nil, nil, sms)

	updated, err := svc.Transition(context.Background(), report.ID, superuser(roles.Garbage), models.ReportStatusCompleted)

	assert.NoError(t, err)
	assert.Equal(t, models.ReportStatusCompleted, updated.Status)

	select {
	case <-sms.sent:
		t.Fatal("SMS не должно отправляться без телефона")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestReportService_Vote_DuplicateIsConflict(t *testing.T) {
	repo := newFakeReportRepo()
	votes := newFakeVoteRepo(repo)
	svc := newTestReportService(repo, votes, nil, nil, nil, nil)
	report := seedReport(repo, models.ReportTypeGarbage, models.ReportStatusPending)
	voter := uuid.New()

	first, err := svc.Vote(context.Background(), voter, report.ID)
	assert.NoError(t, err)
	assert.Equal(t, 1, first.VoteCount)
	assert.Equal(t, []uuid.UUID{voter}, first.Votes)

	_, err = svc.Vote(context.Background(), voter, report.ID)
	assert.True(t, apperror.IsConflict(err))

	// Повторная попытка голос не задвоила.
	after, err := svc.Get(context.Background(), report.ID)
	assert.NoError(t, err)
	assert.Equal(t, 1, after.VoteCount)
}

func TestReportService_Vote_UnknownReport(t *testing.T) {
	repo := newFakeReportRepo()
	svc := newTestReportService(repo, newFakeVoteRepo(repo), nil, nil, nil, nil)

	_, err := svc.Vote(context.Background(), uuid.New(), uuid.New())

	assert.True(t, apperror.IsNotFound(err))
}

func TestReportService_Create_ValidatesTitle(t *testing.T) {
	repo := newFakeReportRepo()
	svc := newTestReportService(repo, newFakeVoteRepo(repo), nil, nil, nil, nil)

	_, err := svc.Create(context.Background(), uuid.New(), CreateReportInput{Title: "  "})
	assert.Error(t, err)

	_, err = svc.Create(context.Background(), uuid.New(), CreateReportInput{Title: "аб"})
	assert.Error(t, err)
}
