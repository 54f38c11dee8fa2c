package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"

	"github.com/pkg/errors"

	"github.com/welllog/welllog-api/internal/model"
)

// The owner of a well log is the owner of its project.
const wellLogSelect = `SELECT l.id, l.project_id, p.owner_id, l.filename, l.file_size, l.depth_from,
	l.depth_to, l.sample_count, l.curves, l.upload_user_id, l.status, l.created_at, l.updated_at
	FROM well_logs l JOIN projects p ON p.id = l.project_id`

// WellLogRepo encapsulates queries on the `well_logs` table.
type WellLogRepo struct {
	db *sql.DB
}

func NewWellLogRepo(db *sql.DB) *WellLogRepo {
	return &WellLogRepo{db: db}
}

func scanWellLog(row rowScanner) (*model.WellLog, error) {
	var (
		l        model.WellLog
		from, to sql.NullFloat64
		curves   []byte
	)
	if err := row.Scan(&l.ID, &l.ProjectID, &l.OwnerID, &l.Filename, &l.FileSize, &from, &to,
		&l.SampleCount, &curves, &l.UploadUserID, &l.Status, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	l.DepthFrom, l.DepthTo = floatPtr(from), floatPtr(to)
	l.Curves = []string{}
	if len(curves) > 0 {
		if err := json.Unmarshal(curves, &l.Curves); err != nil {
			return nil, errors.Wrap(err, "decode curves")
		}
	}
	return &l, nil
}

// Create inserts metadata for an uploaded log. OwnerID must already be set
// from the parent project.
func (r *WellLogRepo) Create(ctx context.Context, l *model.WellLog) error {
	if l.Status == "" {
		l.Status = model.LogProcessing
	}
	if l.Curves == nil {
		l.Curves = []string{}
	}
	curves, err := json.Marshal(l.Curves)
	if err != nil {
		return errors.Wrap(err, "encode curves")
	}
	const q = `INSERT INTO well_logs (project_id, filename, file_size, depth_from, depth_to,
	           sample_count, curves, upload_user_id, status) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, l.ProjectID, l.Filename, l.FileSize, nullFloat(l.DepthFrom),
		nullFloat(l.DepthTo), l.SampleCount, curves, l.UploadUserID, l.Status)
	if err != nil {
		return translate(err, "create well log")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "create well log")
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*l = *created
	return nil
}

// GetByID fetches a log with its owner resolved through the project.
func (r *WellLogRepo) GetByID(ctx context.Context, id uint64) (*model.WellLog, error) {
	l, err := scanWellLog(r.db.QueryRowContext(ctx, wellLogSelect+" WHERE l.id = ?", id))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrap(model.ErrNotFound, "get well log")
		}
		return nil, errors.Wrap(err, "get well log")
	}
	return l, nil
}

// ListByProject returns a page of the logs of one project and the total.
func (r *WellLogRepo) ListByProject(ctx context.Context, projectID uint64, offset, limit int) ([]*model.WellLog, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM well_logs WHERE project_id = ?", projectID).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "count well logs")
	}
	rows, err := r.db.QueryContext(ctx,
		wellLogSelect+" WHERE l.project_id = ? ORDER BY l.id DESC LIMIT ? OFFSET ?", projectID, limit, offset)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list well logs")
	}
	defer rows.Close()

	var out []*model.WellLog
	for rows.Next() {
		l, err := scanWellLog(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, "scan well log")
		}
		out = append(out, l)
	}
	return out, total, errors.Wrap(rows.Err(), "list well logs")
}

// Delete removes a log and, through the schema, its predictions.
func (r *WellLogRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM well_logs WHERE id = ?", id)
	if err != nil {
		return translate(err, "delete well log")
	}
	return requireAffected(res, "delete well log")
}
