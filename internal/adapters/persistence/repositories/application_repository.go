package repositories

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"campus-admissions/internal/adapters/persistence/models"
	"campus-admissions/internal/core/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NumberPrefix starts every application number
const NumberPrefix = "APP"

// FormatApplicationNumber renders APP<year><4-digit sequence>
func FormatApplicationNumber(year, seq int) string {
	return fmt.Sprintf("%s%d%04d", NumberPrefix, year, seq)
}

// ParseApplicationSequence extracts the sequence suffix of a number issued in year
func ParseApplicationSequence(number string, year int) (int, bool) {
	prefix := NumberPrefix + strconv.Itoa(year)
	if !strings.HasPrefix(number, prefix) {
		return 0, false
	}
	seq, err := strconv.Atoi(strings.TrimPrefix(number, prefix))
	if err != nil || seq < 0 {
		return 0, false
	}
	return seq, true
}

// applicationRepository handles application aggregate data access
type applicationRepository struct {
	db *gorm.DB
}

// NewApplicationRepository creates a new application repository
func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

// Transaction runs fn in a single database transaction
func (r *applicationRepository) Transaction(ctx context.Context, fn func(repo ApplicationRepository) error) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&applicationRepository{db: tx})
	})
	if err == nil {
		return nil
	}
	if isDomainError(err) {
		return err
	}
	return domain.StorageFailure("transaction", err)
}

// NextSequence bumps the per-year counter. The row lock taken by the UPDATE is
// held until the surrounding transaction ends, so concurrent callers serialize.
func (r *applicationRepository) NextSequence(ctx context.Context, year int) (int, error) {
	for attempt := 0; attempt < 2; attempt++ {
		res := r.db.WithContext(ctx).
			Model(&models.ApplicationSequence{}).
			Where("seq_year = ?", year).
			UpdateColumn("last_value", gorm.Expr("last_value + ?", 1))
		if res.Error != nil {
			return 0, domain.StorageFailure("bump sequence", res.Error)
		}

		if res.RowsAffected == 0 {
			seed, err := r.maxIssuedSequence(ctx, year)
			if err != nil {
				return 0, err
			}
			seq := models.ApplicationSequence{Year: year, LastValue: seed + 1}
			ins := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&seq)
			if ins.Error != nil {
				return 0, domain.StorageFailure("seed sequence", ins.Error)
			}
			if ins.RowsAffected == 1 {
				return seq.LastValue, nil
			}
			// another transaction seeded the year first
			continue
		}

		var seq models.ApplicationSequence
		if err := r.db.WithContext(ctx).Where("seq_year = ?", year).Take(&seq).Error; err != nil {
			return 0, domain.StorageFailure("read sequence", err)
		}
		return seq.LastValue, nil
	}
	return 0, domain.ErrDuplicateSequence
}

// maxIssuedSequence finds the greatest number already issued for year, soft-deleted rows included
func (r *applicationRepository) maxIssuedSequence(ctx context.Context, year int) (int, error) {
	var numbers []string
	err := r.db.WithContext(ctx).Unscoped().
		Model(&models.Application{}).
		Where("application_number LIKE ?", NumberPrefix+strconv.Itoa(year)+"%").
		// numeric order: a 5-digit sequence must outrank "APP<year>9999"
		Order("LENGTH(application_number) DESC, application_number DESC").
		Limit(1).
		Pluck("application_number", &numbers).Error
	if err != nil {
		return 0, domain.StorageFailure("max application number", err)
	}
	if len(numbers) == 0 {
		return 0, nil
	}
	seq, _ := ParseApplicationSequence(numbers[0], year)
	return seq, nil
}

// SyncSequence raises the year counter to at least the greatest number already
// issued, creating the row when missing. Used before retrying after a collision.
func (r *applicationRepository) SyncSequence(ctx context.Context, year int) error {
	issued, err := r.maxIssuedSequence(ctx, year)
	if err != nil {
		return err
	}
	seq := models.ApplicationSequence{Year: year, LastValue: issued}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "seq_year"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_value": gorm.Expr("GREATEST(last_value, ?)", issued),
		}),
	}).Create(&seq).Error
	return storageError("sync sequence", err)
}

// Create inserts the application row only; owned rows are written separately
func (r *applicationRepository) Create(ctx context.Context, app *models.Application) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(app).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrDuplicateSequence
	}
	return storageError("create application", err)
}

// GetByID gets a non-deleted application without relations
func (r *applicationRepository) GetByID(ctx context.Context, id uint64) (*models.Application, error) {
	var app models.Application
	if err := r.db.WithContext(ctx).First(&app, id).Error; err != nil {
		return nil, applicationError(err)
	}
	return &app, nil
}

// GetByIDForUpdate gets a non-deleted application and locks its row
func (r *applicationRepository) GetByIDForUpdate(ctx context.Context, id uint64) (*models.Application, error) {
	var app models.Application
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&app, id).Error
	if err != nil {
		return nil, applicationError(err)
	}
	return &app, nil
}

// GetAggregate gets an application with education records, documents and history
func (r *applicationRepository) GetAggregate(ctx context.Context, id uint64) (*models.Application, error) {
	var app models.Application
	err := r.db.WithContext(ctx).
		Preload("EducationRecords", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Documents", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		First(&app, id).Error
	if err != nil {
		return nil, applicationError(err)
	}
	return &app, nil
}

// FindActiveByIDs resolves ids against non-deleted applications; unknown ids are dropped
func (r *applicationRepository) FindActiveByIDs(ctx context.Context, ids []uint64, forUpdate bool) ([]*models.Application, error) {
	var apps []*models.Application
	if len(ids) == 0 {
		return apps, nil
	}
	q := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC")
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.Find(&apps).Error; err != nil {
		return nil, storageError("find applications", err)
	}
	return apps, nil
}

// ListActiveAfter pages through non-deleted applications by id
func (r *applicationRepository) ListActiveAfter(ctx context.Context, afterID uint64, limit int) ([]*models.Application, error) {
	var apps []*models.Application
	err := r.db.WithContext(ctx).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&apps).Error
	if err != nil {
		return nil, storageError("list applications", err)
	}
	return apps, nil
}

// Update applies column updates to a non-deleted application
func (r *applicationRepository) Update(ctx context.Context, id uint64, updates map[string]interface{}) error {
	res := r.db.WithContext(ctx).
		Model(&models.Application{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return storageError("update application", res.Error)
	}
	return nil
}

// SoftDelete marks one application deleted
func (r *applicationRepository) SoftDelete(ctx context.Context, id uint64) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Application{})
	if res.Error != nil {
		return 0, storageError("delete application", res.Error)
	}
	return res.RowsAffected, nil
}

// SoftDeleteMany marks every matching non-deleted application deleted in one statement
func (r *applicationRepository) SoftDeleteMany(ctx context.Context, ids []uint64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.Application{})
	if res.Error != nil {
		return 0, storageError("bulk delete applications", res.Error)
	}
	return res.RowsAffected, nil
}

// CreateEducationRecords bulk inserts education records
func (r *applicationRepository) CreateEducationRecords(ctx context.Context, records []models.EducationRecord) error {
	if len(records) == 0 {
		return nil
	}
	return storageError("create education records", r.db.WithContext(ctx).Create(&records).Error)
}

// ReplaceEducationRecords deletes every record of the application and inserts records
func (r *applicationRepository) ReplaceEducationRecords(ctx context.Context, applicationID uint64, records []models.EducationRecord) error {
	err := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Delete(&models.EducationRecord{}).Error
	if err != nil {
		return storageError("clear education records", err)
	}
	for i := range records {
		records[i].ID = 0
		records[i].ApplicationID = applicationID
	}
	return r.CreateEducationRecords(ctx, records)
}

// CreateDocuments bulk inserts document rows
func (r *applicationRepository) CreateDocuments(ctx context.Context, docs []models.ApplicationDocument) error {
	if len(docs) == 0 {
		return nil
	}
	return storageError("create documents", r.db.WithContext(ctx).Create(&docs).Error)
}

// AppendHistory inserts ledger rows. History rows are never updated or deleted.
func (r *applicationRepository) AppendHistory(ctx context.Context, entries ...*models.ApplicationStatusHistory) error {
	if len(entries) == 0 {
		return nil
	}
	now := time.Now()
	for _, e := range entries {
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
	}
	return storageError("append status history", r.db.WithContext(ctx).Create(&entries).Error)
}

// GetHistory gets the ledger of an application oldest first
func (r *applicationRepository) GetHistory(ctx context.Context, applicationID uint64) ([]*models.ApplicationStatusHistory, error) {
	var history []*models.ApplicationStatusHistory
	err := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("created_at ASC, id ASC").
		Find(&history).Error
	return history, storageError("get status history", err)
}

// LatestHistory returns the chronologically last ledger row per application
func (r *applicationRepository) LatestHistory(ctx context.Context, applicationIDs []uint64) (map[uint64]*models.ApplicationStatusHistory, error) {
	latest := make(map[uint64]*models.ApplicationStatusHistory, len(applicationIDs))
	if len(applicationIDs) == 0 {
		return latest, nil
	}
	var rows []*models.ApplicationStatusHistory
	err := r.db.WithContext(ctx).
		Where("application_id IN ?", applicationIDs).
		Order("application_id ASC, created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, storageError("latest status history", err)
	}
	for _, row := range rows {
		latest[row.ApplicationID] = row
	}
	return latest, nil
}

func applicationError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrApplicationNotFound
	}
	return domain.StorageFailure("application", err)
}

func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return domain.StorageFailure(op, err)
}

func isDomainError(err error) bool {
	return errors.Is(err, domain.ErrStorage) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrDuplicateSequence) ||
		errors.Is(err, domain.ErrInvalidTransition)
}
