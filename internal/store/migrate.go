package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"storefront-service/internal/models"
	"storefront-service/internal/util"
)

// Seed is the initial data written when the schema is created from scratch
type Seed struct {
	Admin    *models.User
	Products []models.Product
}

// MigrationResult reports what Migrate did
type MigrationResult struct {
	From    int
	To      int
	Created bool
	Applied []int
}

// Migrator owns the versioned schema of a Store
type Migrator struct {
	store  *Store
	steps  []migrationStep
	logger *zap.Logger
}

// NewMigrator creates a migrator for the store
func NewMigrator(s *Store) *Migrator {
	return &Migrator{
		store:  s,
		steps:  migrationSteps(),
		logger: util.GetLogger(),
	}
}

// LatestVersion returns the version the code expects
func (m *Migrator) LatestVersion() int {
	return LatestVersion
}

func (m *Migrator) ensureVersionTable(ctx context.Context) error {
	_, err := m.store.db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)")
	return err
}

// Version returns the stored schema version, 0 for an uninitialised database.
// It only reads; schema_version is created by MigrateTo.
func (m *Migrator) Version(ctx context.Context) (int, error) {
	var version int
	err := m.store.db.GetContext(ctx, &version, "SELECT version FROM schema_version")
	if errors.Is(err, sql.ErrNoRows) || isUndefinedTable(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// Migrate brings the schema to LatestVersion. A fresh database is created at the
// latest version directly and seeded; an older one gets every pending step, each
// committed together with its version number.
func (m *Migrator) Migrate(ctx context.Context, seed *Seed) (*MigrationResult, error) {
	return m.MigrateTo(ctx, LatestVersion, seed)
}

// MigrateTo applies pending steps up to and including target. Creating a fresh
// database is only possible at LatestVersion.
func (m *Migrator) MigrateTo(ctx context.Context, target int, seed *Seed) (*MigrationResult, error) {
	if err := m.ensureVersionTable(ctx); err != nil {
		return nil, fmt.Errorf("%w: failed to create schema_version: %v", ErrMigrationFailed, err)
	}

	current, err := m.Version(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMigrationFailed, err)
	}

	result := &MigrationResult{From: current, To: current}

	if current > LatestVersion || target > LatestVersion {
		return nil, fmt.Errorf("%w: version %d (target %d) is beyond supported version %d",
			ErrMigrationFailed, current, target, LatestVersion)
	}

	if current == 0 {
		if target != LatestVersion {
			return nil, fmt.Errorf("%w: a new database can only be created at version %d", ErrMigrationFailed, LatestVersion)
		}
		if err := m.create(ctx, seed); err != nil {
			return nil, fmt.Errorf("%w: create schema: %v", ErrMigrationFailed, err)
		}
		result.To = LatestVersion
		result.Created = true
		m.logger.Info("Schema created", zap.Int("version", LatestVersion), zap.Bool("seeded", seed != nil))
		return result, nil
	}

	for _, step := range m.steps {
		if step.Version <= current || step.Version > target {
			continue
		}

		if step.Destructive {
			m.logger.Warn("Applying destructive migration step",
				zap.Int("version", step.Version),
				zap.String("step", step.Description))
		}

		start := time.Now()
		err := m.store.inTx(ctx, func(tx *sqlx.Tx) error {
			if err := step.Apply(ctx, tx, m.store.dialect); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, tx.Rebind("UPDATE schema_version SET version = ?"), step.Version)
			return err
		})
		if err != nil {
			m.logger.Error("Migration step failed",
				zap.Int("version", step.Version),
				zap.String("step", step.Description),
				zap.Error(err))
			return result, fmt.Errorf("%w: step %d (%s): %v", ErrMigrationFailed, step.Version, step.Description, err)
		}

		util.MigrationsAppliedTotal.Inc()
		result.To = step.Version
		result.Applied = append(result.Applied, step.Version)
		m.logger.Info("Migration step applied",
			zap.Int("version", step.Version),
			zap.String("step", step.Description),
			zap.Duration("took", time.Since(start)))
	}

	return result, nil
}

func (m *Migrator) create(ctx context.Context, seed *Seed) error {
	return m.store.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, stmt := range latestSchema(m.store.dialect) {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("%s: %w", stmt, err)
			}
		}

		if seed != nil {
			if err := insertSeed(ctx, tx, seed); err != nil {
				return fmt.Errorf("failed to seed: %w", err)
			}
		}

		_, err := tx.ExecContext(ctx, tx.Rebind("INSERT INTO schema_version (version) VALUES (?)"), LatestVersion)
		return err
	})
}

func insertSeed(ctx context.Context, tx *sqlx.Tx, seed *Seed) error {
	if seed.Admin != nil {
		if err := insertUser(ctx, tx, seed.Admin); err != nil {
			return err
		}
	}
	for i := range seed.Products {
		if err := insertProduct(ctx, tx, &seed.Products[i]); err != nil {
			return err
		}
	}
	return nil
}

var knownTables = map[string]bool{
	"products":      true,
	"users":         true,
	"cart_items":    true,
	cartBackupTable: true,
}

// Columns lists the columns of a managed table in definition order
func (m *Migrator) Columns(ctx context.Context, table string) ([]string, error) {
	if !knownTables[table] {
		return nil, fmt.Errorf("unknown table: %q", table)
	}

	rows, err := m.store.db.QueryxContext(ctx, "SELECT * FROM "+table+" WHERE 1 = 0")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return rows.Columns()
}
