// Package postgres implements cache.Store on a PostgreSQL table pair:
// cache_entries for the payloads and cache_entry_tags as an indexed
// many-to-many relation, so tag invalidation is a single indexed delete
// rather than a scan over a tag array.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/brightpath/lmscache/logger"
)

// Config holds the PostgreSQL connection settings.
type Config struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Database        string        `koanf:"database"`
	Username        string        `koanf:"username"`
	Password        string        `koanf:"password"`
	SSLMode         string        `koanf:"ssl_mode"`
	MaxConns        int           `koanf:"max_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`

	// ConnectionString overrides the individual fields when set.
	ConnectionString string `koanf:"connection_string"`
}

// quoteDSN quotes a DSN value according to libpq rules:
// empty values become '', backslashes and single quotes are escaped, and
// values containing characters outside [A-Za-z0-9._-] are wrapped in quotes.
func quoteDSN(value string) string {
	if value == "" {
		return "''"
	}

	needsQuoting := false
	for _, r := range value {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') &&
			(r < '0' || r > '9') && r != '.' && r != '_' && r != '-' {
			needsQuoting = true
			break
		}
	}

	if !needsQuoting {
		return value
	}

	escaped := strings.ReplaceAll(value, "\\", "\\\\")
	escaped = strings.ReplaceAll(escaped, "'", "\\'")
	return "'" + escaped + "'"
}

func (c *Config) dsn() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}

	parts := []string{
		fmt.Sprintf("host=%s", quoteDSN(c.Host)),
		fmt.Sprintf("port=%d", c.Port),
		fmt.Sprintf("user=%s", quoteDSN(c.Username)),
		fmt.Sprintf("password=%s", quoteDSN(c.Password)),
		fmt.Sprintf("dbname=%s", quoteDSN(c.Database)),
	}
	if c.SSLMode != "" {
		parts = append(parts, fmt.Sprintf("sslmode=%s", c.SSLMode))
	}
	return strings.Join(parts, " ")
}

// Connect opens a pooled PostgreSQL connection using the pgx stdlib driver
// and verifies it with a ping.
func Connect(cfg *Config, log logger.Logger) (*sql.DB, error) {
	pgxConfig, err := pgx.ParseConfig(cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("failed to parse PostgreSQL config: %w", err)
	}

	db := stdlib.OpenDB(*pgxConfig)

	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("Failed to close PostgreSQL connection after ping failure")
		}
		return nil, fmt.Errorf("failed to ping PostgreSQL database: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Msg("Connected to PostgreSQL database")

	return db, nil
}
