package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/civicmirror/civic-backend/internal/goroutine"
	"github.com/civicmirror/civic-backend/internal/logger"
	"github.com/civicmirror/civic-backend/internal/models"
	"github.com/civicmirror/civic-backend/internal/pkg/apperror"
	"github.com/civicmirror/civic-backend/internal/repository"
	"github.com/civicmirror/civic-backend/internal/validation"
)

// ReportRepository описывает зависимости сервиса обращений от слоя хранилища.
type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error)
	List(ctx context.Context, filter repository.ReportFilter) ([]models.Report, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.ReportStatus) (*models.Report, error)
	AttachVotes(ctx context.Context, reports []models.Report) ([]models.ReportWithVotes, error)
}

// VoteRepository описывает операции с голосами.
type VoteRepository interface {
	Create(ctx context.Context, vote *models.Vote) error
	ListVotedReports(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Report, error)
}

// ContactRepository отдаёт контакты жителя для уведомлений.
type ContactRepository interface {
	GetDetails(ctx context.Context, userID uuid.UUID) (*models.UserDetail, error)
}

// ImageClassifier — внешний классификатор фотографии проблемы.
type ImageClassifier interface {
	Classify(ctx context.Context, image []byte) (string, error)
}

// PhotoStore сохраняет изображение и возвращает публичный URL.
// Delete принимает тот же URL и убирает файл из хранилища.
type PhotoStore interface {
	SaveReportImage(ctx context.Context, image []byte) (string, error)
	Delete(ctx context.Context, publicURL string) error
}

// SMSNotifier отправляет SMS уведомления.
type SMSNotifier interface {
	Send(ctx context.Context, to, message string) error
}

// LabelMapper переводит метку классификатора в категорию обращения.
type LabelMapper func(label string) models.ReportType

// ReportService реализует жизненный цикл обращений: создание с классификацией,
// голоса и переходы статусов с ролевым контролем.
type ReportService struct {
	reports    ReportRepository
	votes      VoteRepository
	contacts   ContactRepository
	classifier ImageClassifier
	photos     PhotoStore
	sms        SMSNotifier
	mapLabel   LabelMapper
	adminPhone string
	smsTimeout time.Duration
}

// CreateReportInput содержит данные нового обращения. Image опционален.
type CreateReportInput struct {
	Title       string
	Description string
	Location    string
	TypeHint    string
	Image       []byte
}

// ListReportsInput — параметры выборки обращений.
type ListReportsInput struct {
	Status string
	Limit  int
	Offset int
}

// NewReportService создаёт сервис обращений. Классификатор, хранилище фото и
// SMS могут быть nil: соответствующие шаги тогда пропускаются. adminPhone —
// дежурный номер администрации для копий уведомлений, пустая строка
// отключает копию.
func NewReportService(
	reports ReportRepository,
	votes VoteRepository,
	contacts ContactRepository,
	classifier ImageClassifier,
	photos PhotoStore,
	sms SMSNotifier,
	mapLabel LabelMapper,
	adminPhone string,
	smsTimeout time.Duration,
) *ReportService {
	if smsTimeout <= 0 {
		smsTimeout = 10 * time.Second
	}
	return &ReportService{
		reports:    reports,
		votes:      votes,
		contacts:   contacts,
		classifier: classifier,
		photos:     photos,
		sms:        sms,
		mapLabel:   mapLabel,
		adminPhone: adminPhone,
		smsTimeout: smsTimeout,
	}
}

// Create регистрирует новое обращение. Сохранение фото и классификация —
// best-effort шаги: их ошибки логируются, но обращение создаётся всегда.
// Обращение рождается строго в статусе pending.
func (s *ReportService) Create(ctx context.Context, ownerID uuid.UUID, in CreateReportInput) (*models.Report, error) {
	if err := validation.ValidateNonEmpty("заголовок", in.Title); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateLength("заголовок", in.Title, validation.MinTitleLength, validation.MaxTitleLength); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateLength("описание", in.Description, 0, validation.MaxDescriptionLength); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateLength("местоположение", in.Location, 0, validation.MaxLocationLength); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	report := &models.Report{
		UserID: ownerID,
		Title:  strings.TrimSpace(in.Title),
		Status: models.ReportStatusPending,
	}
	if desc := strings.TrimSpace(in.Description); desc != "" {
		report.Description = &desc
	}
	if loc := strings.TrimSpace(in.Location); loc != "" {
		report.Location = &loc
	}

	if len(in.Image) > 0 && s.photos != nil {
		if url, err := s.photos.SaveReportImage(ctx, in.Image); err != nil {
			logger.Log.WithError(err).Warn("report service: не удалось сохранить изображение, продолжаем без него")
		} else {
			report.ImageURL = &url
		}
	}

	report.Type = s.resolveType(ctx, in)

	if err := s.reports.Create(ctx, report); err != nil {
		// Фото уже лежит в хранилище, а обращения не будет: подчищаем сироту.
		if report.ImageURL != nil && s.photos != nil {
			if delErr := s.photos.Delete(ctx, *report.ImageURL); delErr != nil {
				logger.Log.WithError(delErr).Warn("report service: не удалось удалить изображение несохранённого обращения")
			}
		}
		return nil, err
	}

	return report, nil
}

// resolveType выбирает категорию обращения. Фото с работающим классификатором
// побеждает подсказку; метка модели сводится к словарю категорий. Подсказка
// пользователя, напротив, проходит как есть: чат-диалоги и будущие категории
// не должны молча превращаться в miscellaneous. Пустая подсказка без
// классификации даёт miscellaneous.
func (s *ReportService) resolveType(ctx context.Context, in CreateReportInput) models.ReportType {
	if len(in.Image) > 0 && s.classifier != nil {
		label, err := s.classifier.Classify(ctx, in.Image)
		if err == nil {
			return s.mapLabel(label)
		}
		logger.Log.WithError(err).Warn("report service: классификация не удалась, используем подсказку")
	}

	hint := strings.ToLower(strings.TrimSpace(in.TypeHint))
	if hint == "" {
		return models.ReportTypeMiscellaneous
	}
	return models.ReportType(hint)
}

// Get возвращает обращение с агрегатами по голосам.
func (s *ReportService) Get(ctx context.Context, id uuid.UUID) (*models.ReportWithVotes, error) {
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrReportNotFound) {
			return nil, apperror.ErrReportNotFound
		}
		return nil, err
	}

	annotated, err := s.reports.AttachVotes(ctx, []models.Report{*report})
	if err != nil {
		return nil, err
	}
	return &annotated[0], nil
}

// List возвращает ленту обращений, новые первыми.
func (s *ReportService) List(ctx context.Context, in ListReportsInput) ([]models.ReportWithVotes, error) {
	filter := repository.ReportFilter{
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

// ListMine возвращает обращения текущего пользователя.
func (s *ReportService) ListMine(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]models.ReportWithVotes, error) {
	reports, err := s.reports.List(ctx, repository.ReportFilter{
		OwnerID: &ownerID,
		Limit:   normalizeLimit(limit),
		Offset:  maxInt(offset, 0),
	})
	if err != nil {
		return nil, err
	}
	return s.reports.AttachVotes(ctx, reports)
}

// ListVoted возвращает обращения, поддержанные голосом пользователя.
func (s *ReportService) ListVoted(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.ReportWithVotes, error) {
	reports, err := s.votes.ListVotedReports(ctx, userID, normalizeLimit(limit), maxInt(offset, 0))
	if err != nil {
		return nil, err
	}
	return s.reports.AttachVotes(ctx, reports)
}

// Vote добавляет голос пользователя за обращение. Повторный голос — конфликт;
// гонку одновременных голосов разрешает уникальное ограничение базы.
func (s *ReportService) Vote(ctx context.Context, userID, reportID uuid.UUID) (*models.ReportWithVotes, error) {
	if _, err := s.reports.GetByID(ctx, reportID); err != nil {
		if errors.Is(err, repository.ErrReportNotFound) {
			return nil, apperror.ErrReportNotFound
		}
		return nil, err
	}

	vote := &models.Vote{UserID: userID, ReportID: reportID}
	if err := s.votes.Create(ctx, vote); err != nil {
		if errors.Is(err, repository.ErrDuplicateVote) {
			return nil, apperror.ErrAlreadyVoted
		}
		return nil, err
	}

	return s.Get(ctx, reportID)
}

// Transition переводит обращение в целевой статус. Порядок проверок
// фиксированный: существование, затем права роли, затем допустимость перехода —
// администратор чужой категории получает 403 даже для уже завершённого
// обращения. Сам переход выполняется условным UPDATE: из двух одновременных
// попыток выигрывает одна, проигравшая получает конфликт перехода.
func (s *ReportService) Transition(ctx context.Context, reportID uuid.UUID, actor models.Principal, target models.ReportStatus) (*models.Report, error) {
	if _, ok := models.ValidReportStatuses[target]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, "неизвестный статус")
	}

	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, repository.ErrReportNotFound) {
			return nil, apperror.ErrReportNotFound
		}
		return nil, err
	}

	if !actor.IsSuperuser || !actor.Role.Allows(string(report.Type)) {
		return nil, apperror.ErrForbidden
	}

	if !report.Status.CanTransition(target) {
		return nil, apperror.ErrInvalidTransition
	}

	updated, err := s.reports.UpdateStatus(ctx, reportID, report.Status, target)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		// Статус успел измениться между чтением и UPDATE.
		return nil, apperror.ErrInvalidTransition
	}

	if updated.Status == models.ReportStatusCompleted {
		s.notifyCompleted(updated)
	}

	return updated, nil
}

// notifyCompleted отправляет жителю SMS о завершении его обращения и копию
// на дежурный номер администрации, если тот настроен.
// Выстрелил и забыл: ошибка уведомления не влияет на результат перехода.
func (s *ReportService) notifyCompleted(report *models.Report) {
	if s.sms == nil {
		return
	}

	reportID := report.ID
	ownerID := report.UserID
	title := report.Title

	goroutine.SafeGo(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.smsTimeout)
		defer cancel()

		if s.adminPhone != "" {
			message := fmt.Sprintf("Обращение «%s» переведено в статус «выполнено».", title)
			if err := s.sms.Send(ctx, s.adminPhone, message); err != nil {
				logger.Log.WithError(err).WithField("report_id", reportID).Warn("report service: не удалось отправить SMS на дежурный номер")
			}
		}

		if s.contacts == nil {
			return
		}

		detail, err := s.contacts.GetDetails(ctx, ownerID)
		if err != nil || detail.PhoneNumber == nil || *detail.PhoneNumber == "" {
			logger.Log.WithField("report_id", reportID).Info("report service: у жителя нет телефона, SMS пропущено")
			return
		}

		message := fmt.Sprintf("Ваше обращение «%s» выполнено. Спасибо, что делаете город лучше!", title)
		if err := s.sms.Send(ctx, *detail.PhoneNumber, message); err != nil {
			logger.Log.WithError(err).WithField("report_id", reportID).Warn("report service: не удалось отправить SMS")
		}
	})
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
