package repository

import (
	"context"
	"fmt"

	"airdrop_backend/pkg/logger"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

var ErrEmptyUpdate = errors.New("empty update")

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id                       UUID PRIMARY KEY,
	social_username          TEXT NOT NULL,
	contract_address         TEXT NOT NULL,
	display_name             TEXT NOT NULL DEFAULT '',
	avatar_url               TEXT NOT NULL DEFAULT '',
	verified                 BOOLEAN NOT NULL DEFAULT FALSE,
	eth_address              TEXT NOT NULL DEFAULT '',
	sol_address              TEXT NOT NULL DEFAULT '',
	eth_gas_spent            DOUBLE PRECISION NOT NULL DEFAULT 0,
	sol_gas_spent            DOUBLE PRECISION NOT NULL DEFAULT 0,
	eth_balance              DOUBLE PRECISION NOT NULL DEFAULT 0,
	sol_balance              DOUBLE PRECISION NOT NULL DEFAULT 0,
	token_balance            DOUBLE PRECISION NOT NULL DEFAULT 0,
	token_value              DOUBLE PRECISION NOT NULL DEFAULT 0,
	follower_count           BIGINT NOT NULL DEFAULT 0,
	rating                   DOUBLE PRECISION NOT NULL DEFAULT 0,
	pending_message_text     TEXT,
	pending_message_hashtags TEXT[],
	pending_message_at       TIMESTAMPTZ,
	location                 TEXT NOT NULL DEFAULT '',
	source_ip                TEXT NOT NULL DEFAULT '',
	created_at               TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const uniqueIndex = `
CREATE UNIQUE INDEX IF NOT EXISTS users_contract_username_idx
	ON users (contract_address, social_username)`

type Repository struct {
	db *sqlx.DB
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) Transaction(ctx context.Context, t func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	err = t(tx)
	if err != nil {
		txErr := tx.Rollback()
		if txErr != nil {
			return errors.Wrapf(err, "rollback error: %v", txErr)
		}
		return err
	}
	return tx.Commit()
}

type Config struct {
	Host        string `mapstructure:"host"`
	Port        string `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	Name        string `mapstructure:"name"`
	AutoMigrate bool   `mapstructure:"autoMigrate"`
}

func New(ctx context.Context, cfg Config) (*Repository, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", cfg.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger.Logger().Info("Connected to database successfully")

	r := NewWithDB(db)
	if cfg.AutoMigrate {
		if err := r.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return r, nil
}

func NewWithDB(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates the users table and its unique key if missing.
func (r *Repository) Migrate(ctx context.Context) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		for _, stmt := range []string{schema, uniqueIndex} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return errors.Wrap(err, "failed to apply schema")
			}
		}
		return nil
	})
}

func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
	)
}
