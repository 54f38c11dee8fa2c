package repository

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/welllog/welllog-api/internal/model"
)

// AuditRepo appends to and pages through `audit_logs`.
type AuditRepo struct {
	db *sql.DB
}

func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

// Insert appends e. CreatedAt is taken from the event, not the database
// clock, so replayed messages keep their original time.
func (r *AuditRepo) Insert(ctx context.Context, e *model.AuditEntry) error {
	const q = `INSERT INTO audit_logs (user_id, action, resource_type, resource_id, detail, ip_address, user_agent, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, nullUint(e.UserID), e.Action, nullString(e.ResourceType),
		nullUint(e.ResourceID), nullString(e.Detail), nullString(e.IPAddress), nullString(e.UserAgent), e.CreatedAt)
	if err != nil {
		return errors.Wrap(err, "insert audit entry")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "insert audit entry")
	}
	e.ID = uint64(id)
	return nil
}

// List returns a page of entries, newest first. A non-zero userID filters
// to one account.
func (r *AuditRepo) List(ctx context.Context, userID uint64, offset, limit int) ([]*model.AuditEntry, error) {
	q := `SELECT id, user_id, action, resource_type, resource_id, detail, ip_address, user_agent, created_at
	      FROM audit_logs`
	args := []any{}
	if userID != 0 {
		q += " WHERE user_id = ?"
		args = append(args, userID)
	}
	q += " ORDER BY id DESC LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, q, append(args, limit, offset)...)
	if err != nil {
		return nil, errors.Wrap(err, "list audit entries")
	}
	defer rows.Close()

	var out []*model.AuditEntry
	for rows.Next() {
		var (
			e                            model.AuditEntry
			uid, rid                     sql.NullInt64
			rtype, detail, ip, userAgent sql.NullString
		)
		if err := rows.Scan(&e.ID, &uid, &e.Action, &rtype, &rid, &detail, &ip, &userAgent, &e.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan audit entry")
		}
		e.UserID, e.ResourceID = uintPtr(uid), uintPtr(rid)
		e.ResourceType, e.Detail, e.IPAddress, e.UserAgent = rtype.String, detail.String, ip.String, userAgent.String
		out = append(out, &e)
	}
	return out, errors.Wrap(rows.Err(), "list audit entries")
}

func nullUint(p *uint64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func uintPtr(n sql.NullInt64) *uint64 {
	if !n.Valid {
		return nil
	}
	v := uint64(n.Int64)
	return &v
}
