package db

import (
	"context"
	"fmt"
)

// Migrate creates every table and index that does not exist yet.
func Migrate(ctx context.Context, database *Database) error {
	for i, stmt := range migrations {
		if _, err := database.ExecContext(ctx, database.Dialect.expand(stmt)); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id           {{pk}},
		username     TEXT NOT NULL UNIQUE,
		password     TEXT NOT NULL,
		name         TEXT NOT NULL,
		email        TEXT NOT NULL DEFAULT '',
		is_superuser BOOLEAN NOT NULL DEFAULT FALSE,
		is_staff     BOOLEAN NOT NULL DEFAULT FALSE,
		is_active    BOOLEAN NOT NULL DEFAULT TRUE,
		date_joined  TEXT NOT NULL,
		last_login   TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS auth_groups (
		id   {{pk}},
		name TEXT NOT NULL UNIQUE
	)`,

	`CREATE TABLE IF NOT EXISTS auth_user_groups (
		user_id  {{fk}} NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		group_id {{fk}} NOT NULL REFERENCES auth_groups(id) ON DELETE CASCADE,
		PRIMARY KEY (user_id, group_id)
	)`,

	`CREATE TABLE IF NOT EXISTS auth_sessions (
		token      TEXT PRIMARY KEY,
		user_id    {{fk}} NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TEXT NOT NULL,
		expires_at TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_auth_sessions_user ON auth_sessions(user_id)`,

	`CREATE TABLE IF NOT EXISTS prospects (
		id               {{pk}},
		nric             TEXT NOT NULL UNIQUE,
		salutation       TEXT NOT NULL DEFAULT '',
		name             TEXT NOT NULL,
		gender           TEXT NOT NULL DEFAULT '',
		email            TEXT NOT NULL DEFAULT '',
		address_1        TEXT NOT NULL DEFAULT '',
		address_2        TEXT NOT NULL DEFAULT '',
		address_3        TEXT NOT NULL DEFAULT '',
		address_postal   TEXT NOT NULL DEFAULT '',
		phone_home       TEXT NOT NULL DEFAULT '',
		phone_mobile     TEXT NOT NULL DEFAULT '',
		education_school TEXT NOT NULL,
		education_degree TEXT NOT NULL,
		education_year   INTEGER NOT NULL CHECK(education_year >= 1950)
	)`,

	`CREATE TABLE IF NOT EXISTS funds (
		id   {{pk}},
		name TEXT NOT NULL UNIQUE
	)`,

	`CREATE TABLE IF NOT EXISTS projects (
		id   {{pk}},
		name TEXT NOT NULL UNIQUE
	)`,

	`CREATE TABLE IF NOT EXISTS pools (
		id           {{pk}},
		name         TEXT NOT NULL,
		project_id   {{fk}} NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		max_attempts INTEGER NOT NULL DEFAULT 0 CHECK(max_attempts >= 0),
		UNIQUE (project_id, name)
	)`,

	`CREATE TABLE IF NOT EXISTS pool_prospects (
		id          {{pk}},
		pool_id     {{fk}} NOT NULL REFERENCES pools(id) ON DELETE CASCADE,
		prospect_id {{fk}} NOT NULL REFERENCES prospects(id) ON DELETE CASCADE,
		attempts    INTEGER NOT NULL DEFAULT 0 CHECK(attempts >= 0),
		UNIQUE (pool_id, prospect_id)
	)`,

	`CREATE TABLE IF NOT EXISTS result_codes (
		id          {{pk}},
		result_code TEXT NOT NULL UNIQUE,
		is_complete BOOLEAN NOT NULL DEFAULT TRUE
	)`,

	`CREATE TABLE IF NOT EXISTS pledges (
		id          {{pk}},
		prospect_id {{fk}} NOT NULL REFERENCES prospects(id) ON DELETE CASCADE,
		fund_id     {{fk}} NOT NULL REFERENCES funds(id) ON DELETE CASCADE,
		amount      {{money}} NOT NULL,
		pledge_date TEXT NOT NULL,
		UNIQUE (prospect_id, fund_id, pledge_date, amount)
	)`,

	`CREATE TABLE IF NOT EXISTS calls (
		id             {{pk}},
		caller_id      {{fk}} NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		prospect_id    {{fk}} NOT NULL REFERENCES prospects(id) ON DELETE CASCADE,
		project_id     {{fk}} NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		pool_id        {{fk}} REFERENCES pools(id) ON DELETE SET NULL,
		attempt        INTEGER NOT NULL CHECK(attempt >= 1),
		result_code_id {{fk}} NOT NULL REFERENCES result_codes(id) ON DELETE CASCADE,
		call_time      TEXT NOT NULL,
		comment        TEXT NOT NULL DEFAULT '',
		pledge_amount  {{money}},
		pledge_method  TEXT NOT NULL DEFAULT '',
		pledge_meta    TEXT NOT NULL DEFAULT '',
		UNIQUE (caller_id, prospect_id, project_id, pool_id, attempt)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_calls_prospect ON calls(prospect_id)`,

	`CREATE TABLE IF NOT EXISTS assignments (
		id         {{pk}},
		caller_id  {{fk}} NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		pool_id    {{fk}} NOT NULL REFERENCES pools(id) ON DELETE CASCADE,
		sort_order INTEGER NOT NULL CHECK(sort_order >= 1),
		UNIQUE (caller_id, pool_id)
	)`,
}
