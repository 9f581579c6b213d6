package store

import (
	"errors"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/TakashiAihara/preppin-sub000/internal/store/migrations"
)

// Migrate applies pending embedded migrations.
func (s *Store) Migrate() error {
	if !s.Enabled() {
		return ErrNotConfigured
	}
	driver, err := pgxmigrate.WithInstance(s.db, &pgxmigrate.Config{})
	if err != nil {
		return err
	}
	source, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		return err
	}
	instance, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return err
	}

	err = instance.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		s.logger.Info("database schema up to date")
		return nil
	}
	if err != nil {
		return err
	}
	version, _, _ := instance.Version()
	s.logger.Info("database migrations applied", slog.Uint64("version", uint64(version)))
	return nil
}
