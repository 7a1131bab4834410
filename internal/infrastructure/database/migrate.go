package database

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/infrastructure/database/entities"
)

// AutoMigrate applies database schema changes for the solicitud domain.
func AutoMigrate(ctx context.Context, db *gorm.DB, log zerolog.Logger) error {
	if err := db.WithContext(ctx).AutoMigrate(
		&entities.Solicitud{},
	); err != nil {
		return err
	}

	log.Info().Msg("database schema up to date")
	return nil
}
