package grant

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/t77yq/governance-reconciler/internal/model"
)

// Store defines the persistence port for execution grants. Upsert must be a
// true idempotent upsert: a conflict on a pre-existing (principal, scope)
// pair is success, not an error.
type Store interface {
	Upsert(ctx context.Context, principalID, scope string) error
}

// SQLiteStore implements Store using SQLite. Grants persist indefinitely;
// nothing in this subsystem ever deletes one.
type SQLiteStore struct {
	logger *zap.Logger
	db     *sql.DB
}

// NewSQLiteStore opens (or creates) the grant database at dbPath.
func NewSQLiteStore(logger *zap.Logger, dbPath string) (*SQLiteStore, error) {
	// Busy timeout so concurrent provisioner calls wait instead of
	// surfacing SQLITE_BUSY.
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000", dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open grant database: %w", err)
	}

	store := &SQLiteStore{
		logger: logger,
		db:     db,
	}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// initialize creates the grants table if it doesn't exist.
func (s *SQLiteStore) initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS execution_grants (
			principal_id TEXT NOT NULL,
			scope TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (principal_id, scope)
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to initialize grant database: %w", err)
	}
	return nil
}

// Upsert implements Store.Upsert as a conditional insert. When an equivalent
// grant already exists the statement is a no-op and no error surfaces.
func (s *SQLiteStore) Upsert(ctx context.Context, principalID, scope string) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO execution_grants (principal_id, scope)
		VALUES (?, ?)
		ON CONFLICT (principal_id, scope) DO NOTHING`,
		principalID,
		scope,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert grant: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if inserted > 0 {
		s.logger.Info("Created execution grant",
			zap.String("principal_id", principalID),
			zap.String("scope", scope))
	}

	return nil
}

// Get retrieves a grant, or nil when none exists.
func (s *SQLiteStore) Get(ctx context.Context, principalID, scope string) (*model.ExecutionGrant, error) {
	var g model.ExecutionGrant
	var createdAt time.Time

	err := s.db.QueryRowContext(ctx, `
		SELECT principal_id, scope, created_at
		FROM execution_grants
		WHERE principal_id = ? AND scope = ?`,
		principalID, scope).Scan(&g.PrincipalID, &g.Scope, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan grant: %w", err)
	}

	g.CreatedAt = createdAt
	return &g, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
