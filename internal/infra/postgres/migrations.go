package postgres

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"

	"github.com/dvloznov/mpesa-ledger/internal/logger"
)

// Migration is one versioned SQL file applied after the base schema.
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// migrationFile matches 0001_name.sql.
var migrationFile = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

// ReadMigrations loads every migration file at the root of fsys, sorted by
// version. Files that do not match NNNN_name.sql are ignored.
func ReadMigrations(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	seen := make(map[int]string)
	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := migrationFile.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		version, _ := strconv.Atoi(m[1])
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("migration version %04d used by %s and %s", version, prev, entry.Name())
		}
		seen[version] = entry.Name()

		content, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}
		migrations = append(migrations, Migration{
			Version:  version,
			Name:     m[2],
			Filename: entry.Name(),
			SQL:      string(content),
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}

// AppliedMigrations returns the checksum of every applied version.
func (s *Store) AppliedMigrations(ctx context.Context) (map[int]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT version, checksum FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("AppliedMigrations: %w", classify(err))
	}
	defer rows.Close()

	applied := make(map[int]string)
	for rows.Next() {
		var (
			version  int
			checksum string
		)
		if err := rows.Scan(&version, &checksum); err != nil {
			return nil, fmt.Errorf("AppliedMigrations: scan: %w", err)
		}
		applied[version] = checksum
	}
	return applied, rows.Err()
}

// ApplyMigrations runs the pending migrations in order, each in its own
// transaction together with its schema_migrations row. It returns the
// number applied. An applied migration whose checksum changed is an error.
func (s *Store) ApplyMigrations(ctx context.Context, migrations []Migration, appliedBy string) (int, error) {
	log := logger.FromContext(ctx)

	applied, err := s.AppliedMigrations(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, m := range migrations {
		if checksum, ok := applied[m.Version]; ok {
			if checksum != m.Checksum {
				return count, fmt.Errorf("migration %s was modified after being applied", m.Filename)
			}
			log.Debug().Str("migration", m.Filename).Msg("Skipping applied migration")
			continue
		}

		if err := s.apply(ctx, m, appliedBy); err != nil {
			return count, err
		}
		log.Info().Str("migration", m.Filename).Msg("Applied migration")
		count++
	}
	return count, nil
}

func (s *Store) apply(ctx context.Context, m Migration, appliedBy string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("apply %s: begin: %w", m.Filename, classify(err))
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return fmt.Errorf("apply %s: %w", m.Filename, classify(err))
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO schema_migrations (version, name, checksum, applied_by)
		VALUES ($1, $2, $3, $4)`,
		m.Version, m.Name, m.Checksum, appliedBy,
	); err != nil {
		return fmt.Errorf("apply %s: record: %w", m.Filename, classify(err))
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("apply %s: commit: %w", m.Filename, classify(err))
	}
	return nil
}
