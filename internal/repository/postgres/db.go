// Package postgres holds the sqlx repositories for the usage ledger and the
// payslip record archive.
package postgres

import (
	"context"
	"fmt"
	"log"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"payslipx/internal/config"
)

const pingTimeout = 5 * time.Second

// NewDB opens a pgx-backed pool sized from cfg and verifies it answers.
func NewDB(cfg *config.DBConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("postgres.NewDB: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpen)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres.NewDB: ping %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Name, err)
	}

	log.Printf("postgres.NewDB: connected to %s:%d/%s (max_open=%d)", cfg.Host, cfg.Port, cfg.Name, cfg.MaxOpen)
	return db, nil
}
