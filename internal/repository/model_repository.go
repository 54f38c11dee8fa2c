package repository

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/pkg/errors"

	"github.com/welllog/welllog-api/internal/model"
)

const aiModelColumns = "id, name, version, description, model_type, accuracy, parameters, creator_id, is_active, created_at"

// ModelRepo manages the AI model catalog in `ai_models`.
type ModelRepo struct {
	db *sql.DB
}

func NewModelRepo(db *sql.DB) *ModelRepo {
	return &ModelRepo{db: db}
}

func scanAIModel(row rowScanner) (*model.AIModel, error) {
	var (
		m        model.AIModel
		desc     sql.NullString
		accuracy sql.NullFloat64
		params   []byte
	)
	if err := row.Scan(&m.ID, &m.Name, &m.Version, &desc, &m.ModelType, &accuracy, &params,
		&m.CreatorID, &m.Active, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Desc = desc.String
	m.Accuracy = floatPtr(accuracy)
	if len(params) > 0 {
		m.Parameters = params
	}
	return &m, nil
}

// List returns the catalog ordered by name. activeOnly hides retired models.
func (r *ModelRepo) List(ctx context.Context, activeOnly bool) ([]*model.AIModel, error) {
	q := "SELECT " + aiModelColumns + " FROM ai_models"
	if activeOnly {
		q += " WHERE is_active = TRUE"
	}
	rows, err := r.db.QueryContext(ctx, q+" ORDER BY name, version")
	if err != nil {
		return nil, errors.Wrap(err, "list models")
	}
	defer rows.Close()

	var out []*model.AIModel
	for rows.Next() {
		m, err := scanAIModel(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan model")
		}
		out = append(out, m)
	}
	return out, errors.Wrap(rows.Err(), "list models")
}

// GetByID fetches one catalog entry.
func (r *ModelRepo) GetByID(ctx context.Context, id uint64) (*model.AIModel, error) {
	m, err := scanAIModel(r.db.QueryRowContext(ctx, "SELECT "+aiModelColumns+" FROM ai_models WHERE id = ?", id))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrap(model.ErrNotFound, "get model")
		}
		return nil, errors.Wrap(err, "get model")
	}
	return m, nil
}

// Create registers a model. Name and version are unique together.
func (r *ModelRepo) Create(ctx context.Context, m *model.AIModel) error {
	var params any
	if len(m.Parameters) > 0 {
		params = []byte(m.Parameters)
	}
	const q = `INSERT INTO ai_models (name, version, description, model_type, accuracy, parameters, creator_id, is_active)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, m.Name, m.Version, nullString(m.Desc), m.ModelType,
		nullFloat(m.Accuracy), params, m.CreatorID, m.Active)
	if err != nil {
		return translate(err, "create model")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "create model")
	}
	m.ID = uint64(id)
	return nil
}

// Delete removes a model. Models referenced by predictions yield ErrConflict.
func (r *ModelRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM ai_models WHERE id = ?", id)
	if err != nil {
		return translate(err, "delete model")
	}
	return requireAffected(res, "delete model")
}
