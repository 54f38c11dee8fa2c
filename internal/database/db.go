// Package database opens the MySQL pool backing every repository.
package database

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Pool bounds the connection pool. Zero values keep the database/sql
// defaults.
type Pool struct {
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
}

const pingTimeout = 5 * time.Second

// Open connects to MySQL using dsn, applies pool limits and waits for the
// server to answer a ping.
func Open(ctx context.Context, dsn string, pool Pool) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open mysql")
	}
	configure(db, pool)
	if err := ping(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info().Int("max_open", pool.MaxOpen).Int("max_idle", pool.MaxIdle).Msg("mysql connected")
	return db, nil
}

func configure(db *sql.DB, pool Pool) {
	if pool.MaxOpen > 0 {
		db.SetMaxOpenConns(pool.MaxOpen)
	}
	if pool.MaxIdle > 0 {
		db.SetMaxIdleConns(pool.MaxIdle)
	}
	if pool.MaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.MaxLifetime)
	}
}

func ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return errors.Wrap(db.PingContext(ctx), "ping mysql")
}
