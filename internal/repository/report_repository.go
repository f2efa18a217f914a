package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mesadeayuda/helpdesk/internal/domain"
)

// StatusCount pairs a lifecycle state with its ticket count.
type StatusCount struct {
	Status domain.TicketStatus
	Count  int
}

// GlobalMetrics summarizes ticket volume for report headers.
type GlobalMetrics struct {
	Total    int
	Open     int
	Closed   int
	ByStatus []StatusCount
}

// UserTicketCount aggregates created vs assigned volume per user.
type UserTicketCount struct {
	UserID     int64
	UserName   string
	Department string
	Created    int
	Assigned   int
}

// Total returns combined volume for ranking.
func (u UserTicketCount) Total() int {
	return u.Created + u.Assigned
}

// DepartmentTicketCount buckets tickets by the creator's department.
type DepartmentTicketCount struct {
	Department string
	Count      int
}

// ReportRepository runs the read-only aggregation queries behind the reports
// and the dashboard. Recomputed on every request, by contract.
type ReportRepository interface {
	GlobalMetrics(ctx context.Context) (*GlobalMetrics, error)
	TicketsPerUser(ctx context.Context) ([]UserTicketCount, error)
	TicketsPerDepartment(ctx context.Context) ([]DepartmentTicketCount, error)
}

type reportRepository struct {
	pool *pgxpool.Pool
}

// NewReportRepository builds the repository.
func NewReportRepository(pool *pgxpool.Pool) ReportRepository {
	return &reportRepository{pool: pool}
}

func (r *reportRepository) GlobalMetrics(ctx context.Context) (*GlobalMetrics, error) {
	metrics := &GlobalMetrics{}

	const totals = `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE status <> 'Cerrado'),
               COUNT(*) FILTER (WHERE status = 'Cerrado')
        FROM tickets`
	if err := r.pool.QueryRow(ctx, totals).Scan(&metrics.Total, &metrics.Open, &metrics.Closed); err != nil {
		return nil, err
	}

	const byStatus = `SELECT status, COUNT(*) FROM tickets GROUP BY status ORDER BY status`
	rows, err := r.pool.Query(ctx, byStatus)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, err
		}
		metrics.ByStatus = append(metrics.ByStatus, sc)
	}
	return metrics, rows.Err()
}

func (r *reportRepository) TicketsPerUser(ctx context.Context) ([]UserTicketCount, error) {
	const query = `
        SELECT u.id, u.name, COALESCE(d.name, 'Sin departamento'),
               (SELECT COUNT(*) FROM tickets t WHERE t.creator_id = u.id),
               (SELECT COUNT(*) FROM tickets t WHERE t.assignee_id = u.id)
        FROM users u
        LEFT JOIN departments d ON d.id = u.department_id
        WHERE u.is_active = TRUE
        ORDER BY u.name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []UserTicketCount
	for rows.Next() {
		var row UserTicketCount
		if err := rows.Scan(&row.UserID, &row.UserName, &row.Department, &row.Created, &row.Assigned); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (r *reportRepository) TicketsPerDepartment(ctx context.Context) ([]DepartmentTicketCount, error) {
	const query = `
        SELECT COALESCE(d.name, 'Sin Departamento'), COUNT(t.id)
        FROM tickets t
        JOIN users u ON u.id = t.creator_id
        LEFT JOIN departments d ON d.id = u.department_id
        GROUP BY COALESCE(d.name, 'Sin Departamento')
        ORDER BY COUNT(t.id) DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DepartmentTicketCount
	for rows.Next() {
		var row DepartmentTicketCount
		if err := rows.Scan(&row.Department, &row.Count); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
