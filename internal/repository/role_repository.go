package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mesadeayuda/helpdesk/internal/domain"
)

// RoleRepository manages role persistence.
type RoleRepository interface {
	Create(ctx context.Context, role *domain.Role) error
	Update(ctx context.Context, role *domain.Role) error
	GetByID(ctx context.Context, id int64) (*domain.Role, error)
	GetByName(ctx context.Context, name string) (*domain.Role, error)
	List(ctx context.Context) ([]domain.Role, error)
	ListActive(ctx context.Context) ([]domain.Role, error)
}

type roleRepository struct {
	pool *pgxpool.Pool
}

// NewRoleRepository builds the repository.
func NewRoleRepository(pool *pgxpool.Pool) RoleRepository {
	return &roleRepository{pool: pool}
}

const roleColumns = `id, name, description, perm_tickets, perm_users, perm_departments, perm_admin, is_active`

func (r *roleRepository) Create(ctx context.Context, role *domain.Role) error {
	const query = `
        INSERT INTO roles (name, description, perm_tickets, perm_users, perm_departments, perm_admin, is_active)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		role.Name,
		role.Description,
		role.PermTickets,
		role.PermUsers,
		role.PermDepartments,
		role.PermAdmin,
		role.Active,
	).Scan(&role.ID)
}

func (r *roleRepository) Update(ctx context.Context, role *domain.Role) error {
	const query = `
        UPDATE roles SET name=$1, description=$2, perm_tickets=$3, perm_users=$4,
            perm_departments=$5, perm_admin=$6, is_active=$7
        WHERE id=$8`
	cmd, err := r.pool.Exec(ctx, query,
		role.Name,
		role.Description,
		role.PermTickets,
		role.PermUsers,
		role.PermDepartments,
		role.PermAdmin,
		role.Active,
		role.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *roleRepository) GetByID(ctx context.Context, id int64) (*domain.Role, error) {
	return r.fetchSingle(ctx, `SELECT `+roleColumns+` FROM roles WHERE id=$1`, id)
}

func (r *roleRepository) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	return r.fetchSingle(ctx, `SELECT `+roleColumns+` FROM roles WHERE name=$1`, name)
}

func (r *roleRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Role, error) {
	var role domain.Role
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&role.ID,
		&role.Name,
		&role.Description,
		&role.PermTickets,
		&role.PermUsers,
		&role.PermDepartments,
		&role.PermAdmin,
		&role.Active,
	); err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepository) List(ctx context.Context) ([]domain.Role, error) {
	return r.list(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY name`)
}

func (r *roleRepository) ListActive(ctx context.Context) ([]domain.Role, error) {
	return r.list(ctx, `SELECT `+roleColumns+` FROM roles WHERE is_active = TRUE ORDER BY name`)
}

func (r *roleRepository) list(ctx context.Context, query string) ([]domain.Role, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Role
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(
			&role.ID,
			&role.Name,
			&role.Description,
			&role.PermTickets,
			&role.PermUsers,
			&role.PermDepartments,
			&role.PermAdmin,
			&role.Active,
		); err != nil {
			return nil, err
		}
		result = append(result, role)
	}
	return result, rows.Err()
}
