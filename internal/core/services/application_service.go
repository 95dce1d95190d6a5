package services

import (
	"context"
	"errors"
	"time"

	"campus-admissions/internal/adapters/persistence/models"
	"campus-admissions/internal/adapters/persistence/repositories"
	"campus-admissions/internal/core/domain"
	"campus-admissions/internal/pkg/logger"
)

// maxCreateAttempts bounds retries of Create after an application number collision
const maxCreateAttempts = 3

const updateAuditNote = "updated by admin"

// BulkResult reports how many of the requested applications were processed
type BulkResult struct {
	Processed      int `json:"processed"`
	TotalRequested int `json:"total_requested"`
}

// ApplicationService is the application lifecycle engine. Every mutating
// operation is one storage transaction; emails and file cleanup are handed to
// the dispatcher strictly after that transaction has ended.
type ApplicationService struct {
	repo       repositories.ApplicationRepository
	policy     *domain.TransitionPolicy
	notifier   ApplicationNotifier
	files      FileRemover
	dispatcher Dispatcher
	log        *logger.Logger
	now        func() time.Time
}

// NewApplicationService creates the lifecycle engine
func NewApplicationService(
	repo repositories.ApplicationRepository,
	policy *domain.TransitionPolicy,
	notifier ApplicationNotifier,
	files FileRemover,
	dispatcher Dispatcher,
	log *logger.Logger,
) *ApplicationService {
	if policy == nil {
		policy = domain.PermissivePolicy()
	}
	if log == nil {
		log = logger.Discard()
	}
	if dispatcher == nil {
		dispatcher = SyncDispatcher{Log: log}
	}
	return &ApplicationService{
		repo:       repo,
		policy:     policy,
		notifier:   notifier,
		files:      files,
		dispatcher: dispatcher,
		log:        log,
		now:        time.Now,
	}
}

// Create persists a new application with its education records, documents and
// initial ledger row. Staged files are cleaned up when nothing was persisted.
func (s *ApplicationService) Create(ctx context.Context, input *CreateApplicationInput) (*models.Application, error) {
	if err := validateCreate(input); err != nil {
		s.cleanupFiles(input.Documents)
		return nil, err
	}

	var (
		app *models.Application
		err error
	)
	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		app, err = s.createOnce(ctx, input, attempt > 1)
		if !errors.Is(err, domain.ErrDuplicateSequence) {
			break
		}
		s.log.WithField("attempt", attempt).Warn("application number collision, retrying create")
	}
	if err != nil {
		s.log.WithError(err).Error("create application failed")
		s.cleanupFiles(input.Documents)
		return nil, err
	}

	s.log.WithField("application_id", app.ID).
		WithField("application_number", app.ApplicationNumber).
		WithField("status", app.Status).
		Info("application created")

	if app.Status == domain.StatusSubmitted {
		s.notifySubmitted(app)
	}
	return app, nil
}

// createOnce runs one Create transaction. After a collision the previous
// counter bump was rolled back with everything else, so resync first moves the
// counter past the numbers already issued.
func (s *ApplicationService) createOnce(ctx context.Context, input *CreateApplicationInput, resync bool) (*models.Application, error) {
	now := s.now()
	app := &models.Application{Status: input.Status}
	applyFields(app, &input.ApplicationFields)

	err := s.repo.Transaction(ctx, func(tx repositories.ApplicationRepository) error {
		if resync {
			if err := tx.SyncSequence(ctx, now.Year()); err != nil {
				return err
			}
		}
		seq, err := tx.NextSequence(ctx, now.Year())
		if err != nil {
			return err
		}
		app.ApplicationNumber = repositories.FormatApplicationNumber(now.Year(), seq)

		if err := tx.Create(ctx, app); err != nil {
			return err
		}

		records := toEducationRecords(app.ID, input.EducationRecords)
		if err := tx.CreateEducationRecords(ctx, records); err != nil {
			return err
		}

		docs := toDocuments(app.ID, input.Documents, input.Status == domain.StatusSubmitted)
		if err := tx.CreateDocuments(ctx, docs); err != nil {
			return err
		}

		entry := &models.ApplicationStatusHistory{
			ApplicationID: app.ID,
			FromStatus:    nil,
			ToStatus:      input.Status,
			Notes:         strPtr("application created"),
			CreatedAt:     now,
		}
		if err := tx.AppendHistory(ctx, entry); err != nil {
			return err
		}

		app.EducationRecords = records
		app.Documents = docs
		app.StatusHistory = []models.ApplicationStatusHistory{*entry}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return app, nil
}

// ChangeStatus moves an application to a new status and appends a ledger row
// recording the previous status. Repeating the current status still appends.
func (s *ApplicationService) ChangeStatus(ctx context.Context, id uint64, input *ChangeStatusInput, actorID uint64) (*models.Application, error) {
	if id == 0 || actorID == 0 {
		return nil, domain.ErrInvalidInput
	}
	if err := validateStatusChange(input); err != nil {
		return nil, err
	}

	var (
		app  *models.Application
		from domain.ApplicationStatus
	)
	err := s.repo.Transaction(ctx, func(tx repositories.ApplicationRepository) error {
		var err error
		app, err = tx.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		from = app.Status
		if err := s.policy.Check(from, input.Status); err != nil {
			return err
		}
		entry, err := s.applyStatus(ctx, tx, app, input, actorID)
		if err != nil {
			return err
		}
		return tx.AppendHistory(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithField("application_id", id).
		WithField("from", from).
		WithField("to", input.Status).
		WithField("actor_id", actorID).
		Info("application status changed")

	s.notifyStatusChanged(app, from, input.Status)
	return app, nil
}

// applyStatus writes the status columns of app and returns the matching ledger row
func (s *ApplicationService) applyStatus(ctx context.Context, tx repositories.ApplicationRepository, app *models.Application, input *ChangeStatusInput, actorID uint64) (*models.ApplicationStatusHistory, error) {
	now := s.now()
	from := app.Status

	var reason *string
	if input.Status == domain.StatusRejected && input.Reason != "" {
		reason = strPtr(input.Reason)
	}

	updates := map[string]interface{}{
		"status":           input.Status,
		"reviewed_by":      actorID,
		"reviewed_at":      now,
		"rejection_reason": reason,
	}
	if err := tx.Update(ctx, app.ID, updates); err != nil {
		return nil, err
	}

	app.Status = input.Status
	app.ReviewedBy = &actorID
	app.ReviewedAt = &now
	app.RejectionReason = reason

	return &models.ApplicationStatusHistory{
		ApplicationID: app.ID,
		FromStatus:    &from,
		ToStatus:      input.Status,
		ChangedBy:     &actorID,
		Reason:        optionalStr(input.Reason),
		Notes:         optionalStr(input.Notes),
		CreatedAt:     now,
	}, nil
}

// UpdateDetails replaces the mutable fields and, when supplied, the full set of
// education records. The ledger gets an audit row with an unchanged status.
func (s *ApplicationService) UpdateDetails(ctx context.Context, id uint64, input *UpdateApplicationInput, actorID uint64) (*models.Application, error) {
	if id == 0 || actorID == 0 {
		return nil, domain.ErrInvalidInput
	}
	if err := validateUpdate(input); err != nil {
		return nil, err
	}

	var app *models.Application
	err := s.repo.Transaction(ctx, func(tx repositories.ApplicationRepository) error {
		var err error
		app, err = tx.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		now := s.now()
		applyFields(app, &input.ApplicationFields)
		updates := fieldUpdates(&input.ApplicationFields)
		updates["reviewed_by"] = actorID
		updates["reviewed_at"] = now
		if err := tx.Update(ctx, id, updates); err != nil {
			return err
		}
		app.ReviewedBy = &actorID
		app.ReviewedAt = &now

		if input.EducationRecords != nil {
			records := toEducationRecords(id, *input.EducationRecords)
			if err := tx.ReplaceEducationRecords(ctx, id, records); err != nil {
				return err
			}
			app.EducationRecords = records
		}

		current := app.Status
		return tx.AppendHistory(ctx, &models.ApplicationStatusHistory{
			ApplicationID: id,
			FromStatus:    &current,
			ToStatus:      current,
			ChangedBy:     &actorID,
			Notes:         strPtr(updateAuditNote),
			CreatedAt:     now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.WithField("application_id", id).WithField("actor_id", actorID).Info("application details updated")
	return app, nil
}

// SoftDelete hides an application from normal reads. Owned rows and files stay.
func (s *ApplicationService) SoftDelete(ctx context.Context, id uint64) error {
	if id == 0 {
		return domain.ErrInvalidInput
	}
	n, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrApplicationNotFound
	}
	s.log.WithField("application_id", id).Info("application soft deleted")
	return nil
}

// BulkChangeStatus applies one status change to every resolvable application in
// a single transaction. Ids that do not resolve are dropped and only counted.
func (s *ApplicationService) BulkChangeStatus(ctx context.Context, ids []uint64, input *ChangeStatusInput, actorID uint64) (*BulkResult, error) {
	if len(ids) == 0 {
		return nil, domain.NewValidationError("no applications selected", map[string]string{"ids": "is required"})
	}
	if actorID == 0 {
		return nil, domain.ErrInvalidInput
	}
	if err := validateStatusChange(input); err != nil {
		return nil, err
	}

	type change struct {
		app  *models.Application
		from domain.ApplicationStatus
	}
	var changes []change

	err := s.repo.Transaction(ctx, func(tx repositories.ApplicationRepository) error {
		apps, err := tx.FindActiveByIDs(ctx, uniqueIDs(ids), true)
		if err != nil {
			return err
		}
		for _, app := range apps {
			if err := s.policy.Check(app.Status, input.Status); err != nil {
				return err
			}
		}

		entries := make([]*models.ApplicationStatusHistory, 0, len(apps))
		for _, app := range apps {
			from := app.Status
			entry, err := s.applyStatus(ctx, tx, app, input, actorID)
			if err != nil {
				return err
			}
			entries = append(entries, entry)
			changes = append(changes, change{app: app, from: from})
		}
		return tx.AppendHistory(ctx, entries...)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithField("processed", len(changes)).
		WithField("requested", len(ids)).
		WithField("to", input.Status).
		WithField("actor_id", actorID).
		Info("bulk status change committed")

	for _, c := range changes {
		s.notifyStatusChanged(c.app, c.from, input.Status)
	}
	return &BulkResult{Processed: len(changes), TotalRequested: len(ids)}, nil
}

// BulkSoftDelete soft deletes every matching application with one statement
func (s *ApplicationService) BulkSoftDelete(ctx context.Context, ids []uint64) (*BulkResult, error) {
	if len(ids) == 0 {
		return nil, domain.NewValidationError("no applications selected", map[string]string{"ids": "is required"})
	}
	n, err := s.repo.SoftDeleteMany(ctx, uniqueIDs(ids))
	if err != nil {
		return nil, err
	}
	s.log.WithField("processed", n).WithField("requested", len(ids)).Info("bulk soft delete committed")
	return &BulkResult{Processed: int(n), TotalRequested: len(ids)}, nil
}

// Get returns the full aggregate of a non-deleted application
func (s *ApplicationService) Get(ctx context.Context, id uint64) (*models.Application, error) {
	if id == 0 {
		return nil, domain.ErrInvalidInput
	}
	return s.repo.GetAggregate(ctx, id)
}

// GetHistory returns the audit ledger of a non-deleted application, oldest first
func (s *ApplicationService) GetHistory(ctx context.Context, id uint64) ([]*models.ApplicationStatusHistory, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.GetHistory(ctx, id)
}

// Policy exposes the configured transition table
func (s *ApplicationService) Policy() *domain.TransitionPolicy {
	return s.policy
}

func (s *ApplicationService) notifySubmitted(app *models.Application) {
	if s.notifier == nil {
		return
	}
	snapshot := *app
	s.dispatcher.Dispatch(Task{
		Name:          "notify.submitted",
		ApplicationID: app.ID,
		Run: func(ctx context.Context) error {
			return s.notifier.NotifySubmitted(ctx, &snapshot)
		},
	})
}

func (s *ApplicationService) notifyStatusChanged(app *models.Application, from, to domain.ApplicationStatus) {
	if s.notifier == nil {
		return
	}
	snapshot := *app
	s.dispatcher.Dispatch(Task{
		Name:          "notify.status_changed",
		ApplicationID: app.ID,
		Run: func(ctx context.Context) error {
			return s.notifier.NotifyStatusChanged(ctx, &snapshot, from, to)
		},
	})
}

func (s *ApplicationService) cleanupFiles(docs map[domain.DocumentType]string) {
	if s.files == nil || len(docs) == 0 {
		return
	}
	paths := make([]string, 0, len(docs))
	for _, p := range docs {
		if p != "" {
			paths = append(paths, p)
		}
	}
	s.dispatcher.Dispatch(Task{
		Name: "cleanup.staged_files",
		Run: func(ctx context.Context) error {
			var errs []error
			for _, p := range paths {
				if err := s.files.Remove(p); err != nil {
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		},
	})
}

func applyFields(app *models.Application, f *ApplicationFields) {
	app.FullName = f.FullName
	app.DateOfBirth = f.DateOfBirth
	app.Gender = f.Gender
	app.Nationality = f.Nationality
	app.CitizenshipNumber = f.CitizenshipNumber
	app.Email = f.Email
	app.Phone = f.Phone
	app.PermanentAddress = f.PermanentAddress
	app.TemporaryAddress = f.TemporaryAddress
	app.FatherName = f.FatherName
	app.MotherName = f.MotherName
	app.GuardianName = f.GuardianName
	app.GuardianRelation = f.GuardianRelation
	app.GuardianPhone = f.GuardianPhone
	app.ProgramApplied = f.ProgramApplied
	app.PreferredShift = f.PreferredShift
	app.DeclarationAgreed = f.DeclarationAgreed
}

// fieldUpdates lists every mutable column so zero values are written too
func fieldUpdates(f *ApplicationFields) map[string]interface{} {
	return map[string]interface{}{
		"full_name":          f.FullName,
		"date_of_birth":      f.DateOfBirth,
		"gender":             f.Gender,
		"nationality":        f.Nationality,
		"citizenship_number": f.CitizenshipNumber,
		"email":              f.Email,
		"phone":              f.Phone,
		"permanent_address":  f.PermanentAddress,
		"temporary_address":  f.TemporaryAddress,
		"father_name":        f.FatherName,
		"mother_name":        f.MotherName,
		"guardian_name":      f.GuardianName,
		"guardian_relation":  f.GuardianRelation,
		"guardian_phone":     f.GuardianPhone,
		"program_applied":    f.ProgramApplied,
		"preferred_shift":    f.PreferredShift,
		"declaration_agreed": f.DeclarationAgreed,
	}
}

func toEducationRecords(applicationID uint64, in []EducationInput) []models.EducationRecord {
	records := make([]models.EducationRecord, 0, len(in))
	for _, e := range in {
		records = append(records, models.EducationRecord{
			ApplicationID: applicationID,
			Level:         e.Level,
			Institution:   e.Institution,
			Board:         e.Board,
			PassedYear:    e.PassedYear,
			Score:         e.Score,
			ScoreType:     e.ScoreType,
		})
	}
	return records
}

// toDocuments builds one row per uploaded artifact in fixed form order
func toDocuments(applicationID uint64, uploads map[domain.DocumentType]string, submitted bool) []models.ApplicationDocument {
	docs := make([]models.ApplicationDocument, 0, len(uploads))
	for _, docType := range domain.DocumentTypes {
		path, ok := uploads[docType]
		if !ok {
			continue
		}
		docs = append(docs, models.ApplicationDocument{
			ApplicationID: applicationID,
			DocumentType:  docType,
			FilePath:      path,
			IsRequired:    docType.IsRequired(),
			IsSubmitted:   submitted,
		})
	}
	return docs
}

func uniqueIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]bool, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func strPtr(s string) *string {
	return &s
}

func optionalStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
