package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/stayaudit/pkg/config"
	apperrors "github.com/zatekoja/stayaudit/pkg/errors"
	"github.com/zatekoja/stayaudit/pkg/retry"
)

// Client is a read-only handle on the CRUD application's database.
type Client struct {
	db *sql.DB
	qb *goqu.Database
}

// connectRetry is shorter than retry.DefaultConfig, a CLI run should not
// hang for a minute on a missing database.
func connectRetry() retry.Config {
	return retry.Config{
		MaxAttempts:     5,
		InitialDelay:    200 * time.Millisecond,
		MaxDelay:        2 * time.Second,
		BackoffFactor:   2,
		MaxTotalTimeout: 15 * time.Second,
	}
}

// NewClient opens the database and waits until it answers a ping.
func NewClient(ctx context.Context, cfg *config.DatabaseConfig) (*Client, error) {
	if cfg == nil || cfg.Host == "" || cfg.Database == "" {
		return nil, apperrors.NewConfigurationAbsentError("DB_HOST and DB_NAME are required to read stays from the database")
	}

	db, err := sql.Open("postgres", cfg.DatabaseDSN())
	if err != nil {
		return nil, apperrors.NewInternalError("open postgres", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	err = retry.DoWithLog(ctx, connectRetry(), "PostgreSQL",
		func() error {
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			return db.PingContext(pingCtx)
		},
		func(attempt int, err error, nextDelay time.Duration) {
			log.Warn().Err(err).Int("attempt", attempt).Dur("next_delay", nextDelay).Msg("PostgreSQL ping failed")
		},
	)
	if err != nil {
		_ = db.Close()
		return nil, apperrors.NewRemoteCallError("postgres unreachable at "+cfg.Host, err)
	}

	log.Info().Str("host", cfg.Host).Str("database", cfg.Database).Msg("Connected to PostgreSQL")
	return NewClientFromDB(db), nil
}

// NewClientFromDB wraps an already opened connection
func NewClientFromDB(db *sql.DB) *Client {
	return &Client{db: db, qb: goqu.New("postgres", db)}
}

func (c *Client) DB() *sql.DB { return c.db }

// Builder returns a goqu database bound to the postgres dialect
func (c *Client) Builder() *goqu.Database { return c.qb }

func (c *Client) Close() error { return c.db.Close() }

func (c *Client) Ping(ctx context.Context) error { return c.db.PingContext(ctx) }
