package companies

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new company.
func (r *PGRepo) Create(ctx context.Context, company Company) error {
	const query = `
INSERT INTO companies (id, name, sector, description, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.DB.ExecContext(
		ctx,
		query,
		company.ID,
		company.Name,
		company.Sector,
		company.Description,
		company.CreatedAt,
		company.UpdatedAt,
	)
	return err
}

// GetByID fetches a company by id.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Company, error) {
	const query = `
SELECT id, name, sector, description, created_at, updated_at
FROM companies
WHERE id = $1`

	var company Company
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&company.ID,
		&company.Name,
		&company.Sector,
		&company.Description,
		&company.CreatedAt,
		&company.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Company{}, ErrNotFound
		}
		return Company{}, err
	}
	return company, nil
}

// List returns all companies, newest first.
func (r *PGRepo) List(ctx context.Context) ([]Company, error) {
	const query = `
SELECT id, name, sector, description, created_at, updated_at
FROM companies
ORDER BY created_at DESC`

	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Company{}
	for rows.Next() {
		var company Company
		if err := rows.Scan(
			&company.ID,
			&company.Name,
			&company.Sector,
			&company.Description,
			&company.CreatedAt,
			&company.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, company)
	}
	return out, rows.Err()
}

var _ Repo = (*PGRepo)(nil)
