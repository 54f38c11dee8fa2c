package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"

	"github.com/pkg/errors"

	"github.com/welllog/welllog-api/internal/model"
)

const projectColumns = `id, owner_id, name, description, location, depth_from, depth_to,
	well_diameter, status, created_at, updated_at`

// ProjectFilter narrows List. A zero OwnerID lists every owner.
type ProjectFilter struct {
	OwnerID uint64
	Status  model.ProjectStatus
}

// ProjectRepo encapsulates queries on the `projects` table.
type ProjectRepo struct {
	db *sql.DB
}

func NewProjectRepo(db *sql.DB) *ProjectRepo {
	return &ProjectRepo{db: db}
}

func scanProject(row rowScanner) (*model.Project, error) {
	var (
		p                  model.Project
		desc, location     sql.NullString
		from, to, diameter sql.NullFloat64
	)
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &desc, &location, &from, &to,
		&diameter, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Description = desc.String
	p.Location = location.String
	p.DepthFrom, p.DepthTo, p.WellDiameter = floatPtr(from), floatPtr(to), floatPtr(diameter)
	return &p, nil
}

// Create inserts p. ID and timestamps are read back so callers receive a
// fully populated record.
func (r *ProjectRepo) Create(ctx context.Context, p *model.Project) error {
	if p.Status == "" {
		p.Status = model.ProjectPlanning
	}
	const q = `INSERT INTO projects (owner_id, name, description, location, depth_from, depth_to, well_diameter, status)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, p.OwnerID, p.Name, nullString(p.Description), nullString(p.Location),
		nullFloat(p.DepthFrom), nullFloat(p.DepthTo), nullFloat(p.WellDiameter), p.Status)
	if err != nil {
		return translate(err, "create project")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "create project")
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*p = *created
	return nil
}

// GetByID fetches a project regardless of owner; the ownership decision is
// made by the caller.
func (r *ProjectRepo) GetByID(ctx context.Context, id uint64) (*model.Project, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+projectColumns+" FROM projects WHERE id = ?", id)
	p, err := scanProject(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrap(model.ErrNotFound, "get project")
		}
		return nil, errors.Wrap(err, "get project")
	}
	return p, nil
}

// List returns a page of projects matching f, newest first, and the total.
func (r *ProjectRepo) List(ctx context.Context, f ProjectFilter, offset, limit int) ([]*model.Project, int, error) {
	var (
		where []string
		args  []any
	)
	if f.OwnerID != 0 {
		where = append(where, "owner_id = ?")
		args = append(args, f.OwnerID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM projects"+cond, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "count projects")
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+projectColumns+" FROM projects"+cond+" ORDER BY id DESC LIMIT ? OFFSET ?",
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list projects")
	}
	defer rows.Close()

	var out []*model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, "scan project")
		}
		out = append(out, p)
	}
	return out, total, errors.Wrap(rows.Err(), "list projects")
}

// Update rewrites the editable fields of p. Owner and status are not
// touched here.
func (r *ProjectRepo) Update(ctx context.Context, p *model.Project) error {
	const q = `UPDATE projects
	           SET name = ?, description = ?, location = ?, depth_from = ?, depth_to = ?,
	               well_diameter = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, p.Name, nullString(p.Description), nullString(p.Location),
		nullFloat(p.DepthFrom), nullFloat(p.DepthTo), nullFloat(p.WellDiameter), p.ID)
	return translate(err, "update project")
}

// UpdateStatus moves a project to status.
func (r *ProjectRepo) UpdateStatus(ctx context.Context, id uint64, status model.ProjectStatus) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE projects SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", status, id)
	return errors.Wrap(err, "update project status")
}

// Delete removes a project; well logs and predictions cascade in the schema.
func (r *ProjectRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return translate(err, "delete project")
	}
	return requireAffected(res, "delete project")
}
