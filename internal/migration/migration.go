package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	auditdomain "github.com/aquivis/aquivis/internal/audit/domain"
	authdomain "github.com/aquivis/aquivis/internal/auth/domain"
	companydomain "github.com/aquivis/aquivis/internal/company/domain"
	invitationdomain "github.com/aquivis/aquivis/internal/invitation/domain"
	propertydomain "github.com/aquivis/aquivis/internal/property/domain"
	teamdomain "github.com/aquivis/aquivis/internal/team/domain"
	visitdomain "github.com/aquivis/aquivis/internal/visit/domain"
	"github.com/aquivis/aquivis/pkg/db"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Models lists every table owned by the service, parents first.
func Models() []any {
	return []any{
		&authdomain.User{},
		&authdomain.Session{},
		&companydomain.Company{},
		&teamdomain.Profile{},
		&invitationdomain.Invitation{},
		&auditdomain.AuditLog{},
		&propertydomain.Property{},
		&propertydomain.Unit{},
		&visitdomain.Visit{},
		&visitdomain.WaterTest{},
		&visitdomain.ChemicalAddition{},
		&visitdomain.MaintenanceTask{},
	}
}

// Migrate brings the schema up to date. Postgres uses the versioned SQL
// migrations; other dialects fall back to gorm AutoMigrate.
func Migrate(conn *gorm.DB, log *zap.Logger) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}

	dialect := conn.Dialector.Name()
	if dialect != db.TypePostgres {
		log.Info("auto-migrating schema", zap.String("dialect", dialect))
		return conn.AutoMigrate(Models()...)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}

// RunMigrations applies the embedded postgres migrations.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}
