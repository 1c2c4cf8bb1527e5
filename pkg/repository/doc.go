/*
Package repository implements the dual-write persistence layer.

Postgres (when DATABASE_URL is configured) is the primary for wallet
bindings, the verification log, and challenge mirrors; the bbolt
keystore is the always-present local path. Writes go to both and fail
only when no path took them; reads prefer Postgres and fall back to the
keystore on error. Every absorbed failure increments a named fallback
counter surfaced in /health and in the keycortex_db_fallback_total
metric.

Absence from a healthy primary is authoritative: a missing binding in
Postgres is reported as missing without consulting the keystore, so the
two stores cannot disagree about deletions the primary has seen.

# Migrations

Migrate applies every .sql file in the configured directory in
lexicographic order. Startup treats migration failures as warnings so a
degraded database does not keep keys from being served; the standalone
keycortex-migrate binary applies the same files with exit codes.

# Usage

	primary, err := repository.Connect(cfg.DatabaseURL)
	if err != nil {
		counters.IncPostgresUnavailable()
	}
	repo := repository.NewDualStore(store, primary, counters)

	err = repo.SaveBinding(ctx, binding)
	binding, err := repo.LoadBinding(ctx, addr)

# Integration Points

  - pkg/service: all binding, audit, and challenge-mirror persistence
  - pkg/keystore: the local fallback store
  - cmd/keycortex: connection, migration, and counter wiring at startup
  - cmd/keycortex-migrate: standalone migration runner
*/
package repository
