package repository

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/pkg/errors"

	"github.com/welllog/welllog-api/internal/model"
)

// A prediction is owned by the owner of the project of its well log.
const predictionSelect = `SELECT pr.id, pr.log_id, pr.model_id, p.owner_id, pr.depth_from, pr.depth_to,
	pr.results, pr.confidence, pr.execution_time_ms, pr.status, pr.error_message, pr.created_at
	FROM predictions pr
	JOIN well_logs l ON l.id = pr.log_id
	JOIN projects p ON p.id = l.project_id`

// PredictionRepo stores rows of the `predictions` table.
type PredictionRepo struct {
	db *sql.DB
}

func NewPredictionRepo(db *sql.DB) *PredictionRepo {
	return &PredictionRepo{db: db}
}

func scanPrediction(row rowScanner) (*model.Prediction, error) {
	var (
		p                    model.Prediction
		from, to, confidence sql.NullFloat64
		results              []byte
		errMsg               sql.NullString
	)
	if err := row.Scan(&p.ID, &p.LogID, &p.ModelID, &p.OwnerID, &from, &to, &results,
		&confidence, &p.ExecutionTimeMs, &p.Status, &errMsg, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.DepthFrom, p.DepthTo, p.Confidence = floatPtr(from), floatPtr(to), floatPtr(confidence)
	if len(results) > 0 {
		p.Results = results
	}
	p.ErrorMessage = errMsg.String
	return &p, nil
}

// Create inserts p and reads it back with its owner resolved.
func (r *PredictionRepo) Create(ctx context.Context, p *model.Prediction) error {
	if p.Status == "" {
		p.Status = model.PredictionSuccess
	}
	var results any
	if len(p.Results) > 0 {
		results = []byte(p.Results)
	}
	const q = `INSERT INTO predictions (log_id, model_id, depth_from, depth_to, results, confidence,
	           execution_time_ms, status, error_message) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, p.LogID, p.ModelID, nullFloat(p.DepthFrom), nullFloat(p.DepthTo),
		results, nullFloat(p.Confidence), p.ExecutionTimeMs, p.Status, nullString(p.ErrorMessage))
	if err != nil {
		return translate(err, "create prediction")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "create prediction")
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*p = *created
	return nil
}

// GetByID fetches a prediction with its owner resolved.
func (r *PredictionRepo) GetByID(ctx context.Context, id uint64) (*model.Prediction, error) {
	p, err := scanPrediction(r.db.QueryRowContext(ctx, predictionSelect+" WHERE pr.id = ?", id))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrap(model.ErrNotFound, "get prediction")
		}
		return nil, errors.Wrap(err, "get prediction")
	}
	return p, nil
}

// ListByLog returns the predictions made over one well log, newest first.
func (r *PredictionRepo) ListByLog(ctx context.Context, logID uint64, offset, limit int) ([]*model.Prediction, error) {
	rows, err := r.db.QueryContext(ctx,
		predictionSelect+" WHERE pr.log_id = ? ORDER BY pr.id DESC LIMIT ? OFFSET ?", logID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "list predictions")
	}
	defer rows.Close()

	var out []*model.Prediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan prediction")
		}
		out = append(out, p)
	}
	return out, errors.Wrap(rows.Err(), "list predictions")
}

// Delete removes a prediction.
func (r *PredictionRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM predictions WHERE id = ?", id)
	if err != nil {
		return translate(err, "delete prediction")
	}
	return requireAffected(res, "delete prediction")
}
