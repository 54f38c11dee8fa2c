// Package repository holds the MySQL and Redis data access used by the
// handlers and the auth service. Missing rows surface as model.ErrNotFound
// and unique-key violations as model.ErrDuplicate, both wrapped with
// github.com/pkg/errors so callers can match them with errors.Is.
package repository

import (
	"database/sql"
	stderrors "errors"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"

	"github.com/welllog/welllog-api/internal/model"
)

// ErrConflict is returned when a delete cannot proceed because other rows
// still reference the target, such as removing a model that has predictions.
// Handlers translate it into HTTP 409.
var ErrConflict = stderrors.New("conflict")

const (
	mysqlDuplicateEntry = 1062
	mysqlRowReferenced  = 1451
)

func mysqlCode(err error) uint16 {
	var me *mysql.MySQLError
	if stderrors.As(err, &me) {
		return me.Number
	}
	return 0
}

// translate maps driver errors onto the shared sentinels and attaches op.
func translate(err error, op string) error {
	switch mysqlCode(err) {
	case mysqlDuplicateEntry:
		return errors.Wrap(model.ErrDuplicate, op)
	case mysqlRowReferenced:
		return errors.Wrap(ErrConflict, op)
	}
	return errors.Wrap(err, op)
}

// requireAffected turns a delete that matched nothing into model.ErrNotFound.
func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, op)
	}
	if n == 0 {
		return errors.Wrap(model.ErrNotFound, op)
	}
	return nil
}
