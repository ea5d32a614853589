package db

import (
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"downtime-tracker-backend/config"
	"downtime-tracker-backend/internal/model"
)

// Init initializes the database connection, runs migrations and seeds the
// reference catalogs on first run.
func Init(cfg *config.DatabaseConfig, catalogs *config.CatalogsConfig) (*gorm.DB, error) {
	db, err := gorm.Open(openDialector(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	log.Println("Running database migrations...")
	if err := db.AutoMigrate(
		&model.Site{},
		&model.Building{},
		&model.Client{},
		&model.Service{},
		&model.ProductivityMatrixEntry{},
		&model.DowntimeRecord{},
		&model.PushSubscription{},
	); err != nil {
		return nil, fmt.Errorf("automigrate failed: %w", err)
	}

	if catalogs != nil {
		if err := seedCatalogs(db, catalogs); err != nil {
			return nil, fmt.Errorf("catalog seeding failed: %w", err)
		}
	}

	log.Println("Database initialization complete.")
	return db, nil
}

// openDialector picks the driver from the DSN shape: anything that looks
// like a postgres DSN goes to postgres, everything else is treated as an
// SQLite path.
func openDialector(dsn string) gorm.Dialector {
	if strings.HasPrefix(dsn, "postgres://") || strings.Contains(dsn, "host=") {
		return postgres.Open(dsn)
	}
	return sqlite.Open(dsn)
}

// seedCatalogs populates empty reference tables from the configuration.
// Non-empty tables are left alone; catalog administration owns them after
// first run.
func seedCatalogs(db *gorm.DB, cfg *config.CatalogsConfig) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var siteCount int64
		if err := tx.Model(&model.Site{}).Count(&siteCount).Error; err != nil {
			return err
		}
		if siteCount == 0 && len(cfg.Sites) > 0 {
			log.Printf("Seeding %d sites...", len(cfg.Sites))
			for _, seed := range cfg.Sites {
				site := model.Site{Name: seed.Name}
				if err := tx.Create(&site).Error; err != nil {
					return err
				}
				for _, b := range seed.Buildings {
					if err := tx.Create(&model.Building{SiteID: site.ID, Name: b}).Error; err != nil {
						return err
					}
				}
			}
		}

		var clientCount int64
		if err := tx.Model(&model.Client{}).Count(&clientCount).Error; err != nil {
			return err
		}
		if clientCount == 0 && len(cfg.Clients) > 0 {
			log.Printf("Seeding %d clients...", len(cfg.Clients))
			for _, name := range cfg.Clients {
				if err := tx.Create(&model.Client{Name: name}).Error; err != nil {
					return err
				}
			}
		}

		var serviceCount int64
		if err := tx.Model(&model.Service{}).Count(&serviceCount).Error; err != nil {
			return err
		}
		if serviceCount == 0 && len(cfg.Services) > 0 {
			log.Printf("Seeding %d services...", len(cfg.Services))
			for _, name := range cfg.Services {
				if err := tx.Create(&model.Service{Name: name}).Error; err != nil {
					return err
				}
			}
		}

		var matrixCount int64
		if err := tx.Model(&model.ProductivityMatrixEntry{}).Count(&matrixCount).Error; err != nil {
			return err
		}
		if matrixCount == 0 && len(cfg.Matrix) > 0 {
			log.Printf("Seeding %d productivity matrix rows...", len(cfg.Matrix))
			for _, seed := range cfg.Matrix {
				row := model.ProductivityMatrixEntry{
					Site:       seed.Site,
					Client:     seed.Client,
					ShiftCount: seed.ShiftCount,
					Factor:     seed.Factor,
				}
				if err := tx.Create(&row).Error; err != nil {
					return err
				}
			}
		}

		return nil
	})
}
