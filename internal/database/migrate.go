package database

import (
	"context"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/arvi1709/AI-library/internal/middleware"

	"gorm.io/gorm"
)

// Migration is one embedded, versioned SQL change.
type Migration struct {
	Version  int
	Name     string
	Up       string
	Down     string
	Checksum string
}

// ID is the file stem, e.g. 000002_account_deletions.
func (m Migration) ID() string {
	return fmt.Sprintf("%06d_%s", m.Version, m.Name)
}

//go:embed migrations/*.sql
var migrationFS embed.FS

var embedded = sync.OnceValues(func() ([]Migration, error) {
	return LoadMigrations(migrationFS, "migrations")
})

// Migrations returns the migrations compiled into the binary, oldest first.
func Migrations() ([]Migration, error) {
	return embedded()
}

// LoadMigrations reads NNNNNN_name.up.sql / .down.sql pairs from dir.
// Every up script needs a matching down script and versions must be unique.
func LoadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	seen := make(map[int]string)
	var out []Migration
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		stem := strings.TrimSuffix(name, ".up.sql")
		rawVersion, label, ok := strings.Cut(stem, "_")
		if !ok || label == "" {
			return nil, fmt.Errorf("migration %s: want NNNNNN_name.up.sql", name)
		}
		version, err := strconv.Atoi(rawVersion)
		if err != nil || version <= 0 {
			return nil, fmt.Errorf("migration %s: bad version %q", name, rawVersion)
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("migration version %d used by %s and %s", version, prev, stem)
		}
		seen[version] = stem

		up, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		down, err := fs.ReadFile(fsys, path.Join(dir, stem+".down.sql"))
		if err != nil {
			return nil, fmt.Errorf("migration %s has no down script: %w", stem, err)
		}

		sum := sha256.Sum256(up)
		out = append(out, Migration{
			Version:  version,
			Name:     label,
			Up:       string(up),
			Down:     string(down),
			Checksum: hex.EncodeToString(sum[:]),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// AppliedMigration is a row of the schema_migrations ledger.
type AppliedMigration struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255;not null"`
	Checksum  string    `gorm:"size:64;not null"`
	AppliedAt time.Time `gorm:"not null"`
}

func (AppliedMigration) TableName() string {
	return "schema_migrations"
}

// ErrMigrationDrift means the database and the compiled migrations disagree:
// a version is recorded that the binary does not know, or an applied script
// was edited afterwards.
var ErrMigrationDrift = errors.New("migration drift")

// Migrator applies and reverts SQL migrations, one transaction per script.
type Migrator struct {
	db         *gorm.DB
	migrations []Migration
	now        func() time.Time
}

func NewMigrator(db *gorm.DB, migrations []Migration) *Migrator {
	return &Migrator{db: db, migrations: migrations, now: time.Now}
}

func (m *Migrator) ensureLedger(ctx context.Context) error {
	if err := m.db.WithContext(ctx).AutoMigrate(&AppliedMigration{}); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	return nil
}

// Applied lists the ledger, oldest first.
func (m *Migrator) Applied(ctx context.Context) ([]AppliedMigration, error) {
	if err := m.ensureLedger(ctx); err != nil {
		return nil, err
	}
	var rows []AppliedMigration
	if err := m.db.WithContext(ctx).Order("version ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	return rows, nil
}

// Pending returns the migrations not yet applied, after checking the ledger
// for drift.
func (m *Migrator) Pending(ctx context.Context) ([]Migration, error) {
	applied, err := m.Applied(ctx)
	if err != nil {
		return nil, err
	}
	return m.pending(applied)
}

func (m *Migrator) pending(applied []AppliedMigration) ([]Migration, error) {
	known := make(map[int]Migration, len(m.migrations))
	for _, mig := range m.migrations {
		known[mig.Version] = mig
	}

	done := make(map[int]bool, len(applied))
	var unknown, edited []string
	for _, row := range applied {
		done[row.Version] = true
		mig, ok := known[row.Version]
		switch {
		case !ok:
			unknown = append(unknown, fmt.Sprintf("%06d_%s", row.Version, row.Name))
		case row.Checksum != "" && row.Checksum != mig.Checksum:
			edited = append(edited, mig.ID())
		}
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: applied but not compiled in: %s", ErrMigrationDrift, strings.Join(unknown, ", "))
	}
	if len(edited) > 0 {
		return nil, fmt.Errorf("%w: edited after being applied: %s", ErrMigrationDrift, strings.Join(edited, ", "))
	}

	var out []Migration
	for _, mig := range m.migrations {
		if !done[mig.Version] {
			out = append(out, mig)
		}
	}
	return out, nil
}

// Up applies every pending migration in version order and returns how many ran.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	pending, err := m.Pending(ctx)
	if err != nil {
		return 0, err
	}
	for i, mig := range pending {
		middleware.Logger.Info("Applying migration", slog.String("migration", mig.ID()))
		err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(mig.Up).Error; err != nil {
				return err
			}
			return tx.Create(&AppliedMigration{
				Version:   mig.Version,
				Name:      mig.Name,
				Checksum:  mig.Checksum,
				AppliedAt: m.now().UTC(),
			}).Error
		})
		if err != nil {
			return i, fmt.Errorf("apply %s: %w", mig.ID(), err)
		}
	}
	return len(pending), nil
}

// Down reverts version, which must be the newest applied migration.
func (m *Migrator) Down(ctx context.Context, version int) error {
	applied, err := m.Applied(ctx)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		return errors.New("no migrations have been applied")
	}
	if latest := applied[len(applied)-1].Version; latest != version {
		return fmt.Errorf("migration %d is not the latest applied (%06d); roll back newer migrations first", version, latest)
	}

	var target *Migration
	for i := range m.migrations {
		if m.migrations[i].Version == version {
			target = &m.migrations[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("%w: migration %d is not compiled in", ErrMigrationDrift, version)
	}

	middleware.Logger.Info("Rolling back migration", slog.String("migration", target.ID()))
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(target.Down).Error; err != nil {
			return fmt.Errorf("revert %s: %w", target.ID(), err)
		}
		return tx.Where("version = ?", version).Delete(&AppliedMigration{}).Error
	})
}

// RunMigrations applies the embedded migrations.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	migs, err := Migrations()
	if err != nil {
		return err
	}
	n, err := NewMigrator(db, migs).Up(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		middleware.Logger.Info("Migrations applied", slog.Int("count", n))
	}
	return nil
}

// RollbackMigration reverts the newest embedded migration, named by version.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	migs, err := Migrations()
	if err != nil {
		return err
	}
	return NewMigrator(db, migs).Down(ctx, version)
}
