package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/mr1hm/safetywatch/internal/models"
)

type GormStore struct {
	db *gorm.DB
}

// Open connects to the database for driver and migrates the schema.
// Supported drivers are sqlite (pure Go), postgres and mysql. MySQL DSNs need
// parseTime=true.
func Open(driver, dsn string) (*GormStore, error) {
	dialector, err := dialectorFor(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         newGormLogger(),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("error getting database handle: %w", err)
	}
	if driver == "sqlite" {
		// One connection keeps in-memory databases alive and serializes writers.
		sqlDB.SetMaxOpenConns(1)
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, fmt.Errorf("error enabling foreign keys: %w", err)
		}
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &GormStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("error while migrating database: %w", err)
	}

	return s, nil
}

func dialectorFor(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "sqlite":
		return sqlite.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	case "mysql":
		return mysql.Open(dsn), nil
	}
	return nil, fmt.Errorf("unsupported database driver: %s", driver)
}

func newGormLogger() logger.Interface {
	return logger.New(
		slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn),
		logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

func (s *GormStore) migrate() error {
	return s.db.AutoMigrate(
		&models.User{},
		&models.Alert{},
		&models.Location{},
		&models.EmergencyContact{},
		&models.DetectionRule{},
	)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// InsertIgnore creates records, skipping rows whose primary or unique key
// already exists. records is a pointer to a model or a slice of models.
func (s *GormStore) InsertIgnore(ctx context.Context, records any) error {
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(records).Error; err != nil {
		return fmt.Errorf("failed to insert records: %w", err)
	}
	return nil
}

// Reset deletes every row, children first.
func (s *GormStore) Reset(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	for _, model := range []any{
		&models.Alert{},
		&models.Location{},
		&models.EmergencyContact{},
		&models.DetectionRule{},
		&models.User{},
	} {
		if err := db.Where("1 = 1").Delete(model).Error; err != nil {
			return fmt.Errorf("failed to reset %T: %w", model, err)
		}
	}
	return nil
}

// translate maps gorm errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	case strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return ErrDuplicate
	}
	return err
}
