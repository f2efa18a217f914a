package service

import (
	"context"
	"time"

	"github.com/mesadeayuda/helpdesk/internal/report"
	"github.com/mesadeayuda/helpdesk/internal/repository"
)

// ReportService produces the PDF reports. No caching; every request
// recomputes the aggregates.
type ReportService struct {
	reports  repository.ReportRepository
	location *time.Location
}

// NewReportService builds the service.
func NewReportService(reports repository.ReportRepository, location *time.Location) *ReportService {
	if location == nil {
		location = time.UTC
	}
	return &ReportService{reports: reports, location: location}
}

// UserReportPDF renders the per-user ticket report.
func (s *ReportService) UserReportPDF(ctx context.Context) ([]byte, error) {
	metrics, err := s.reports.GlobalMetrics(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.reports.TicketsPerUser(ctx)
	if err != nil {
		return nil, err
	}
	return report.BuildUserReport(metrics, rows, s.location)
}

// DepartmentReportPDF renders the per-department ticket report.
func (s *ReportService) DepartmentReportPDF(ctx context.Context) ([]byte, error) {
	metrics, err := s.reports.GlobalMetrics(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.reports.TicketsPerDepartment(ctx)
	if err != nil {
		return nil, err
	}
	return report.BuildDepartmentReport(metrics, rows, s.location)
}
