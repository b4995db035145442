// internal/service/report_service.go
package service

import (
	"context"
	"time"

	"github.com/ecanturk/taskforge/internal/models"
	"github.com/ecanturk/taskforge/internal/repository"
	"github.com/ecanturk/taskforge/pkg/apperr"
)

// ReportService serves the read-only reporting views. It is intentionally
// uncached: reports are expected to reflect the store at call time.
type ReportService struct {
	reports *repository.ReportRepository
	now     func() time.Time
}

type ReportOption func(*ReportService)

// WithReportClock allows tests to control what "today" means.
func WithReportClock(clock func() time.Time) ReportOption {
	return func(s *ReportService) {
		if clock != nil {
			s.now = clock
		}
	}
}

func NewReportService(reports *repository.ReportRepository, opts ...ReportOption) *ReportService {
	s := &ReportService{
		reports: reports,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// DailyReport returns tasks created during the server-local calendar day.
func (s *ReportService) DailyReport(ctx context.Context) ([]models.Task, error) {
	tasks, err := s.reports.CreatedOn(ctx, s.now())
	if err != nil {
		return nil, apperr.Internal(err, "generate daily report")
	}
	return tasks, nil
}

// BlockedTasks returns every task currently in the Blocked status.
func (s *ReportService) BlockedTasks(ctx context.Context) ([]models.Task, error) {
	tasks, err := s.reports.WithStatus(ctx, models.TaskStatusBlocked)
	if err != nil {
		return nil, apperr.Internal(err, "list blocked tasks")
	}
	return tasks, nil
}
