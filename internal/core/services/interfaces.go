package services

import (
	"context"

	"campus-admissions/internal/adapters/persistence/models"
	"campus-admissions/internal/core/domain"
)

// ApplicationNotifier sends best-effort applicant emails
type ApplicationNotifier interface {
	NotifySubmitted(ctx context.Context, app *models.Application) error
	NotifyStatusChanged(ctx context.Context, app *models.Application, from, to domain.ApplicationStatus) error
}

// FileRemover deletes staged uploads
type FileRemover interface {
	Remove(path string) error
}

// Task is a side effect that runs after a transaction boundary
type Task struct {
	Name          string
	ApplicationID uint64
	Run           func(ctx context.Context) error
}

// Dispatcher accepts fire-and-forget tasks. Dispatch never blocks on the task
// and never reports its outcome to the caller.
type Dispatcher interface {
	Dispatch(task Task)
}
