package infra

import (
	"fmt"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sofiabaracatlj/fiap-farms/internal/repository"
)

// NewDatabase opens the postgres connection pool, installs the tracing plugin
// and migrates the schema.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := db.Use(otelgorm.NewPlugin()); err != nil {
		return nil, fmt.Errorf("otelgorm plugin: %w", err)
	}

	if err := repository.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := applySchemaPatches(db); err != nil {
		return nil, fmt.Errorf("schema patches: %w", err)
	}
	return db, nil
}

// applySchemaPatches runs idempotent DDL that AutoMigrate cannot express.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		// partial index backing the low-stock listing
		`CREATE INDEX IF NOT EXISTS idx_inventories_low_stock
		    ON inventories (current_stock)
		    WHERE current_stock < minimum_stock`,
		`CREATE INDEX IF NOT EXISTS idx_sales_status_date
		    ON sales (status, sale_date DESC)`,
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_inventories_stock_nonneg') THEN
		    ALTER TABLE inventories ADD CONSTRAINT chk_inventories_stock_nonneg CHECK (current_stock >= 0);
		  END IF;
		END $$`,
	}
	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}
