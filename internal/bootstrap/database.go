package bootstrap

import (
	"fmt"
	"log"

	"github.com/vonssyb/nacionmx-postulaciones/internal/config"
	"github.com/vonssyb/nacionmx-postulaciones/internal/store"
)

// initializeDatabase opens the database and runs migrations
func initializeDatabase(cfg *config.Config) (*store.Store, error) {
	db, err := store.New(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	log.Printf("Database initialized (driver: %s)", cfg.DatabaseDriver)
	return db, nil
}
