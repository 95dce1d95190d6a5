package services

import (
	"context"
	"time"

	"campus-admissions/internal/adapters/persistence/repositories"
	"campus-admissions/internal/core/domain"
	"campus-admissions/internal/pkg/logger"

	"github.com/robfig/cron/v3"
)

const auditPageSize = 500

// LedgerMismatch is an application whose status disagrees with its latest ledger row
type LedgerMismatch struct {
	ApplicationID     uint64                    `json:"application_id"`
	ApplicationNumber string                    `json:"application_number"`
	Status            domain.ApplicationStatus  `json:"status"`
	LedgerStatus      *domain.ApplicationStatus `json:"ledger_status"`
}

// LedgerAuditReport summarizes one audit run
type LedgerAuditReport struct {
	Scanned    int              `json:"scanned"`
	Mismatches []LedgerMismatch `json:"mismatches"`
	StartedAt  time.Time        `json:"started_at"`
	Duration   time.Duration    `json:"duration"`
}

// LedgerAuditService checks that every live application's latest ledger row
// ends in its current status
type LedgerAuditService struct {
	repo repositories.ApplicationRepository
	log  *logger.Logger
	cron *cron.Cron
}

// NewLedgerAuditService creates a new ledger audit service
func NewLedgerAuditService(repo repositories.ApplicationRepository, log *logger.Logger) *LedgerAuditService {
	if log == nil {
		log = logger.Discard()
	}
	return &LedgerAuditService{repo: repo, log: log}
}

// Run scans all non-deleted applications page by page
func (s *LedgerAuditService) Run(ctx context.Context) (*LedgerAuditReport, error) {
	report := &LedgerAuditReport{StartedAt: time.Now()}

	var afterID uint64
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		apps, err := s.repo.ListActiveAfter(ctx, afterID, auditPageSize)
		if err != nil {
			return nil, err
		}
		if len(apps) == 0 {
			break
		}

		ids := make([]uint64, len(apps))
		for i, app := range apps {
			ids[i] = app.ID
		}
		latest, err := s.repo.LatestHistory(ctx, ids)
		if err != nil {
			return nil, err
		}

		for _, app := range apps {
			report.Scanned++
			row, ok := latest[app.ID]
			if ok && row.ToStatus == app.Status {
				continue
			}
			m := LedgerMismatch{
				ApplicationID:     app.ID,
				ApplicationNumber: app.ApplicationNumber,
				Status:            app.Status,
			}
			if ok {
				to := row.ToStatus
				m.LedgerStatus = &to
			}
			report.Mismatches = append(report.Mismatches, m)
		}
		afterID = apps[len(apps)-1].ID
	}

	report.Duration = time.Since(report.StartedAt)
	return report, nil
}

// Start schedules Run with a six-field cron spec (seconds first)
func (s *LedgerAuditService) Start(spec string) error {
	c := cron.New(cron.WithSeconds())
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		s.runScheduled(ctx)
	})
	if err != nil {
		return err
	}
	s.cron = c
	c.Start()
	s.log.WithField("schedule", spec).Info("🚀 ledger audit scheduled")
	return nil
}

// Stop stops the schedule and waits for a running audit
func (s *LedgerAuditService) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.log.Info("🛑 ledger audit stopped")
}

func (s *LedgerAuditService) runScheduled(ctx context.Context) {
	report, err := s.Run(ctx)
	if err != nil {
		s.log.WithError(err).Error("ledger audit failed")
		return
	}
	entry := s.log.WithField("scanned", report.Scanned).
		WithField("mismatches", len(report.Mismatches)).
		WithField("duration", report.Duration.String())
	if len(report.Mismatches) == 0 {
		entry.Info("ledger audit clean")
		return
	}
	for _, m := range report.Mismatches {
		s.log.WithField("application_id", m.ApplicationID).
			WithField("application_number", m.ApplicationNumber).
			WithField("status", m.Status).
			Warn("application status does not match its ledger")
	}
	entry.Warn("ledger audit found mismatches")
}
