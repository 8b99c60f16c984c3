package storage

import (
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/vibeforge/vibeforge/internal/core"
	"github.com/vibeforge/vibeforge/internal/logging"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migration is one numbered schema script, e.g. 001_journal.sql
type migration struct {
	version  int
	name     string
	script   string
	checksum string
}

// Migrate applies every embedded migration newer than the recorded schema
// version. A migration that was applied and later edited is an error.
func (db *DB) Migrate() error {
	return db.migrate(migrationsFS)
}

func (db *DB) migrate(fsys fs.FS) error {
	if _, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			checksum   TEXT NOT NULL,
			applied_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
		)
	`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	available, err := loadMigrations(fsys)
	if err != nil {
		return err
	}

	applied, err := db.appliedChecksums()
	if err != nil {
		return err
	}

	for _, m := range available {
		if sum, ok := applied[m.version]; ok {
			if sum != m.checksum {
				return fmt.Errorf("migration %s changed after it was applied: %w", m.name, core.ErrMigrationFailed)
			}
			continue
		}

		err := db.Transaction(func(tx *sql.Tx) error {
			if _, err := tx.Exec(m.script); err != nil {
				return err
			}
			_, err := tx.Exec(`INSERT INTO schema_migrations (version, name, checksum) VALUES (?, ?, ?)`,
				m.version, m.name, m.checksum)
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %s: %v: %w", m.name, err, core.ErrMigrationFailed)
		}
		logging.Debug("applied migration %s", m.name)
	}

	return nil
}

// Version returns the highest applied migration, 0 when none
func (db *DB) Version() (int, error) {
	var v sql.NullInt64
	if err := db.conn.QueryRow(`SELECT MAX(version) FROM schema_migrations`).Scan(&v); err != nil {
		return 0, err
	}
	return int(v.Int64), nil
}

func (db *DB) appliedChecksums() (map[int]string, error) {
	rows, err := db.conn.Query(`SELECT version, checksum FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]string)
	for rows.Next() {
		var (
			version int
			sum     string
		)
		if err := rows.Scan(&version, &sum); err != nil {
			return nil, err
		}
		applied[version] = sum
	}
	return applied, rows.Err()
}

// loadMigrations reads migrations/NNN_name.sql from fsys in version order
func loadMigrations(fsys fs.FS) ([]migration, error) {
	files, err := fs.Glob(fsys, "migrations/*.sql")
	if err != nil {
		return nil, err
	}

	seen := make(map[int]string)
	var out []migration
	for _, file := range files {
		name := path.Base(file)
		prefix, _, ok := strings.Cut(name, "_")
		if !ok {
			return nil, fmt.Errorf("migration %s has no version prefix: %w", name, core.ErrMigrationFailed)
		}
		version, err := strconv.Atoi(prefix)
		if err != nil || version <= 0 {
			return nil, fmt.Errorf("migration %s has bad version %q: %w", name, prefix, core.ErrMigrationFailed)
		}
		if other, dup := seen[version]; dup {
			return nil, fmt.Errorf("migrations %s and %s share version %d: %w", other, name, version, core.ErrMigrationFailed)
		}
		seen[version] = name

		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		sum := sha256.Sum256(data)
		out = append(out, migration{
			version:  version,
			name:     name,
			script:   string(data),
			checksum: hex.EncodeToString(sum[:]),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}
