package repositories

import (
	"context"

	"campus-admissions/internal/adapters/persistence/models"
)

// ApplicationRepository is the transactional store behind the application lifecycle.
// Implementations translate storage errors into domain errors:
// missing rows become domain.ErrApplicationNotFound, a duplicate application
// number becomes domain.ErrDuplicateSequence, anything else matches domain.ErrStorage.
type ApplicationRepository interface {
	// Transaction runs fn inside one unit of work. The repository passed to fn
	// is bound to that unit; fn returning an error rolls everything back.
	Transaction(ctx context.Context, fn func(repo ApplicationRepository) error) error

	// NextSequence atomically allocates the next application number sequence for year
	NextSequence(ctx context.Context, year int) (int, error)
	// SyncSequence moves the year counter past every number already issued
	SyncSequence(ctx context.Context, year int) error

	Create(ctx context.Context, app *models.Application) error
	GetByID(ctx context.Context, id uint64) (*models.Application, error)
	GetByIDForUpdate(ctx context.Context, id uint64) (*models.Application, error)
	GetAggregate(ctx context.Context, id uint64) (*models.Application, error)
	FindActiveByIDs(ctx context.Context, ids []uint64, forUpdate bool) ([]*models.Application, error)
	ListActiveAfter(ctx context.Context, afterID uint64, limit int) ([]*models.Application, error)
	Update(ctx context.Context, id uint64, updates map[string]interface{}) error
	SoftDelete(ctx context.Context, id uint64) (int64, error)
	SoftDeleteMany(ctx context.Context, ids []uint64) (int64, error)

	CreateEducationRecords(ctx context.Context, records []models.EducationRecord) error
	ReplaceEducationRecords(ctx context.Context, applicationID uint64, records []models.EducationRecord) error

	CreateDocuments(ctx context.Context, docs []models.ApplicationDocument) error

	AppendHistory(ctx context.Context, entries ...*models.ApplicationStatusHistory) error
	GetHistory(ctx context.Context, applicationID uint64) ([]*models.ApplicationStatusHistory, error)
	LatestHistory(ctx context.Context, applicationIDs []uint64) (map[uint64]*models.ApplicationStatusHistory, error)
}

// UserRepository defines user repository interface
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	CountByRole(ctx context.Context, role string) (int64, error)
}
