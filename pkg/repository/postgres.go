package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/veeringman/KeyCortex/pkg/log"
	"github.com/veeringman/KeyCortex/pkg/types"
)

// PostgresRepository is the primary durable store for wallet bindings,
// audit events, and challenge mirrors
type PostgresRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Connect opens a Postgres pool and verifies it with a ping
func Connect(databaseURL string) (*PostgresRepository, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open Postgres pool: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	return &PostgresRepository{
		db:     db,
		logger: log.WithComponent("postgres"),
	}, nil
}

// Migrate applies every .sql file in the directory in lexicographic
// order and returns how many ran. The first failing file aborts the
// rest.
func (r *PostgresRepository) Migrate(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read migrations directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	applied := 0
	for _, name := range files {
		path := filepath.Join(dir, name)
		script, err := os.ReadFile(path)
		if err != nil {
			return applied, fmt.Errorf("failed to read migration file %s: %w", path, err)
		}
		if _, err := r.db.Exec(string(script)); err != nil {
			return applied, fmt.Errorf("failed to execute migration file %s: %w", path, err)
		}
		applied++
		r.logger.Debug().Str("file", name).Msg("applied migration")
	}
	return applied, nil
}

// SaveWalletBinding upserts the binding keyed by wallet address
func (r *PostgresRepository) SaveWalletBinding(ctx context.Context, binding *types.WalletBinding) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO wallet_bindings (wallet_address, user_id, chain, last_verified_epoch_ms, updated_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (wallet_address)
		 DO UPDATE SET
		   user_id = EXCLUDED.user_id,
		   chain = EXCLUDED.chain,
		   last_verified_epoch_ms = EXCLUDED.last_verified_epoch_ms,
		   updated_at = NOW()`,
		binding.WalletAddress,
		binding.UserID,
		binding.Chain,
		binding.LastVerifiedEpochMs,
	)
	if err != nil {
		return fmt.Errorf("failed to save wallet binding to Postgres: %w", err)
	}
	return nil
}

// LoadWalletBinding returns (nil, nil) when no binding exists
func (r *PostgresRepository) LoadWalletBinding(ctx context.Context, walletAddress string) (*types.WalletBinding, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT wallet_address, user_id, chain, last_verified_epoch_ms
		 FROM wallet_bindings
		 WHERE wallet_address = $1`,
		walletAddress,
	)

	var binding types.WalletBinding
	err := row.Scan(&binding.WalletAddress, &binding.UserID, &binding.Chain, &binding.LastVerifiedEpochMs)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet binding from Postgres: %w", err)
	}
	return &binding, nil
}

// AppendAuditEvent inserts one verification-log row, assigning an event
// id when the caller left it empty, and returns the id
func (r *PostgresRepository) AppendAuditEvent(ctx context.Context, event *types.AuditEvent) (string, error) {
	eventID := strings.TrimSpace(event.EventID)
	if eventID == "" {
		eventID = uuid.New().String()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO verification_logs
		 (log_id, event_type, wallet_address, user_id, chain, outcome, message, timestamp_epoch_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		eventID,
		event.EventType,
		nullString(event.WalletAddress),
		nullString(event.UserID),
		nullString(event.Chain),
		string(event.Outcome),
		nullString(event.Message),
		event.TimestampEpochMs,
	)
	if err != nil {
		return "", fmt.Errorf("failed to append audit event to Postgres: %w", err)
	}
	return eventID, nil
}

// ListAuditEvents returns events newest-first with optional equality
// filters. Empty filter strings match everything.
func (r *PostgresRepository) ListAuditEvents(ctx context.Context, limit int, eventType, walletAddress, outcome string) ([]*types.AuditEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT log_id, event_type, wallet_address, user_id, chain, outcome, message, timestamp_epoch_ms
		 FROM verification_logs
		 WHERE ($1::TEXT IS NULL OR event_type = $1)
		   AND ($2::TEXT IS NULL OR wallet_address = $2)
		   AND ($3::TEXT IS NULL OR outcome = $3)
		 ORDER BY timestamp_epoch_ms DESC
		 LIMIT $4`,
		nullString(eventType),
		nullString(walletAddress),
		nullString(outcome),
		int64(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events from Postgres: %w", err)
	}
	defer rows.Close()

	var events []*types.AuditEvent
	for rows.Next() {
		var (
			event                          types.AuditEvent
			walletAddr, userID, chain, msg sql.NullString
			outcomeValue                   string
		)
		if err := rows.Scan(
			&event.EventID,
			&event.EventType,
			&walletAddr,
			&userID,
			&chain,
			&outcomeValue,
			&msg,
			&event.TimestampEpochMs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit event row: %w", err)
		}
		event.WalletAddress = walletAddr.String
		event.UserID = userID.String
		event.Chain = chain.String
		event.Outcome = types.AuditOutcome(outcomeValue)
		event.Message = msg.String
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit event rows: %w", err)
	}
	return events, nil
}

// UpsertChallenge mirrors an issued challenge, resetting any stale row
// with the same value to unused
func (r *PostgresRepository) UpsertChallenge(ctx context.Context, record *types.ChallengeRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO challenge_store (challenge, issued_at_epoch_ms, expires_at_epoch_ms, used, used_at_epoch_ms, updated_at)
		 VALUES ($1, $2, $3, FALSE, NULL, NOW())
		 ON CONFLICT (challenge)
		 DO UPDATE SET
		   issued_at_epoch_ms = EXCLUDED.issued_at_epoch_ms,
		   expires_at_epoch_ms = EXCLUDED.expires_at_epoch_ms,
		   used = FALSE,
		   used_at_epoch_ms = NULL,
		   updated_at = NOW()`,
		record.Challenge,
		record.IssuedAtEpochMs,
		record.ExpiresAtEpoch,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert challenge in Postgres: %w", err)
	}
	return nil
}

// MarkChallengeUsed flips the durable challenge row to used
func (r *PostgresRepository) MarkChallengeUsed(ctx context.Context, challenge string, usedAtEpochMs int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE challenge_store
		 SET used = TRUE, used_at_epoch_ms = $2, updated_at = NOW()
		 WHERE challenge = $1`,
		challenge,
		usedAtEpochMs,
	)
	if err != nil {
		return fmt.Errorf("failed to mark challenge used in Postgres: %w", err)
	}
	return nil
}

// Ping verifies the pool is still usable
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close releases the pool
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
