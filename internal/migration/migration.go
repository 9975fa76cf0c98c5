// Package migration creates the billing tables on startup so the service is
// usable out of the box for local and self-hosted environments.
package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	awarddomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/award/domain"
	entitlementdomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/entitlement/domain"
	organizationdomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/organization/domain"
	paymentdomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/payment/domain"
	roomdomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/room/domain"
	subscriptiondomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/subscription/domain"
	usagedomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/usageledger/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

const migrationsDir = "migrations"

// RunPostgres applies the embedded SQL migrations against a postgres handle.
func RunPostgres(db *sql.DB) error {
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
	// Do not close the migrator here; it would close the shared *sql.DB.

	return nil
}

// AutoMigrate creates the schema through gorm for non-postgres dialects.
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&organizationdomain.Organization{},
		&organizationdomain.OwnerProfile{},
		&subscriptiondomain.SubscriptionRecord{},
		&subscriptiondomain.SubscriptionRef{},
		&entitlementdomain.Snapshot{},
		&usagedomain.UsagePeriodRecord{},
		&awarddomain.AwardEvent{},
		&roomdomain.Participant{},
		&paymentdomain.WebhookEvent{},
	)
}
