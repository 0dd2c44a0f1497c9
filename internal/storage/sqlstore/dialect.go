// Package sqlstore implements storage.Storage over database/sql. The SQLite
// and PostgreSQL adapters share every query and differ only in the Dialect:
// placeholder style and DDL.
package sqlstore

import (
	"strconv"
	"strings"
)

// Dialect captures what differs between database engines
type Dialect struct {
	Name string
	// Numbered placeholders ($1, $2) instead of ?
	NumberedPlaceholders bool
	// Migrations run in order; each must be idempotent
	Migrations []string
}

// Rebind rewrites ? placeholders for the dialect
func (d Dialect) Rebind(query string) string {
	if !d.NumberedPlaceholders {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SQLite is the dialect for mattn/go-sqlite3
var SQLite = Dialect{
	Name: "sqlite",
	Migrations: []string{
		`CREATE TABLE IF NOT EXISTS newslettergate_subscribers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL DEFAULT 0,
			email TEXT NOT NULL,
			list_id TEXT NOT NULL DEFAULT '',
			provider VARCHAR(32) NOT NULL,
			ref_id VARCHAR(32) NOT NULL,
			date TIMESTAMP NOT NULL,
			expires_at TIMESTAMP NOT NULL,
			UNIQUE (email, provider, list_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_newslettergate_subscribers_ref_id ON newslettergate_subscribers (ref_id)`,
		`CREATE INDEX IF NOT EXISTS idx_newslettergate_subscribers_expires_at ON newslettergate_subscribers (expires_at)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
	},
}

// Postgres is the dialect for pgx through database/sql
var Postgres = Dialect{
	Name:                 "postgres",
	NumberedPlaceholders: true,
	Migrations: []string{
		`CREATE TABLE IF NOT EXISTS newslettergate_subscribers (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL DEFAULT 0,
			email TEXT NOT NULL,
			list_id TEXT NOT NULL DEFAULT '',
			provider VARCHAR(32) NOT NULL,
			ref_id VARCHAR(32) NOT NULL,
			date TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			UNIQUE (email, provider, list_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_newslettergate_subscribers_ref_id ON newslettergate_subscribers (ref_id)`,
		`CREATE INDEX IF NOT EXISTS idx_newslettergate_subscribers_expires_at ON newslettergate_subscribers (expires_at)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
	},
}
