package database

import (
	"context"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/petermazzocco/findit/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// sqlitePragmas mirror what the service needs from SQLite: enforced foreign
// keys, WAL for concurrent readers and a busy timeout instead of SQLITE_BUSY.
const sqlitePragmas = "_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

// Open connects to the database named by url. postgres:// and postgresql://
// URLs use the postgres driver, sqlite:// URLs a SQLite file.
func Open(url string, log *logrus.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		dialector = postgres.Open(url)
	case strings.HasPrefix(url, "sqlite://"):
		dialector = sqlite.Open(sqliteDSN(strings.TrimPrefix(url, "sqlite://")))
	default:
		return nil, errors.Errorf("unsupported database url: %q", url)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newLogger(log),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, errors.Wrap(err, "connecting to database")
	}
	return db, nil
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path + "&" + sqlitePragmas
	}
	return path + "?" + sqlitePragmas
}

func newLogger(log *logrus.Logger) gormlogger.Interface {
	if log == nil {
		return gormlogger.Discard
	}
	return gormlogger.New(log, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

// Migrate creates or updates the tables for all models.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return errors.Wrap(err, "running migrations")
	}
	return nil
}

// SeedCategories inserts the default categories if none exist yet.
func SeedCategories(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Category{}).Count(&count).Error; err != nil {
			return errors.Wrap(err, "counting categories")
		}
		if count > 0 {
			return nil
		}

		categories := make([]models.Category, 0, len(models.DefaultCategories))
		for _, name := range models.DefaultCategories {
			categories = append(categories, models.Category{Name: name})
		}
		if err := tx.Create(&categories).Error; err != nil {
			return errors.Wrap(err, "seeding categories")
		}
		return nil
	})
}
