package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ReportService is the read-side aggregation over the same per-day
// appointment state the queue operates on.
type ReportService struct {
	repo Repository
	now  func() time.Time
}

func NewReportService(repo Repository) *ReportService {
	return &ReportService{repo: repo, now: time.Now}
}

// WithClock overrides the time source for tests.
func (s *ReportService) WithClock(now func() time.Time) *ReportService {
	s.now = now
	return s
}

// CollectionByDoctor groups today's completed appointments per doctor and
// multiplies by each doctor's consultation fee. Pure aggregation.
func (s *ReportService) CollectionByDoctor(ctx context.Context, clinicID uuid.UUID) ([]DoctorCollection, error) {
	rows, err := s.repo.CompletedByDoctor(ctx, clinicID, s.now())
	if err != nil {
		return nil, fmt.Errorf("collection by doctor: %w", err)
	}
	return rows, nil
}
