package database

import (
	"cmp"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var embedded embed.FS

// Migration is one numbered SQL file, e.g. 001_create_cameras.sql
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// MigrationManager applies numbered *.sql files from an fs.FS and records
// them in the migrations table
type MigrationManager struct {
	db    *sql.DB
	files fs.FS
	log   zerolog.Logger
}

// NewMigrationManager reads migrations from the root of files
func NewMigrationManager(db *sql.DB, files fs.FS, log zerolog.Logger) *MigrationManager {
	return &MigrationManager{
		db:    db,
		files: files,
		log:   log.With().Str("component", "migrations").Logger(),
	}
}

// Migrate applies the migrations built into the binary
func Migrate(db *sql.DB, log zerolog.Logger) error {
	files, err := fs.Sub(embedded, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	return NewMigrationManager(db, files, log).RunMigrations()
}

// applied creates the tracking table if needed and returns the recorded versions
func (m *MigrationManager) applied() (map[int]struct{}, error) {
	if _, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := m.db.Query("SELECT version FROM migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	done := make(map[int]struct{})
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		done[v] = struct{}{}
	}
	return done, rows.Err()
}

// LoadMigrations returns the migration files ordered by version. Files whose
// names do not start with a number are skipped.
func (m *MigrationManager) LoadMigrations() ([]Migration, error) {
	names, err := fs.Glob(m.files, "*.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}

	out := make([]Migration, 0, len(names))
	for _, name := range names {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			m.log.Warn().Str("file", name).Msg("skipping migration without a version prefix")
			continue
		}
		body, err := fs.ReadFile(m.files, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		out = append(out, Migration{
			Version: version,
			Name:    strings.TrimSuffix(path.Base(name), ".sql"),
			SQL:     string(body),
		})
	}

	slices.SortFunc(out, func(a, b Migration) int { return cmp.Compare(a.Version, b.Version) })
	return out, nil
}

// apply runs one migration and records it in the same transaction
func (m *MigrationManager) apply(mg Migration) error {
	return Transaction(m.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(mg.SQL); err != nil {
			return fmt.Errorf("migration %s: %w", mg.Name, err)
		}
		if _, err := tx.Exec("INSERT INTO migrations (version, name) VALUES (?, ?)", mg.Version, mg.Name); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", mg.Name, err)
		}
		return nil
	})
}

// RunMigrations applies every migration not yet recorded, in version order.
// It stops at the first failure; earlier migrations stay applied.
func (m *MigrationManager) RunMigrations() error {
	done, err := m.applied()
	if err != nil {
		return err
	}
	migrations, err := m.LoadMigrations()
	if err != nil {
		return err
	}

	n := 0
	for _, mg := range migrations {
		if _, ok := done[mg.Version]; ok {
			continue
		}
		if err := m.apply(mg); err != nil {
			return err
		}
		m.log.Info().Int("version", mg.Version).Str("name", mg.Name).Msg("applied migration")
		n++
	}

	m.log.Debug().Int("applied", n).Int("known", len(migrations)).Msg("schema up to date")
	return nil
}
