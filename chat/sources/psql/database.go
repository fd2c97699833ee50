package psql

import (
	"context"

	"github.com/urian121/gemini-ai-chat-api/chat/config"
	"github.com/urian121/gemini-ai-chat-api/chat/sources/psql/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Database struct {
	DB *gorm.DB
}

func NewDatabase(ctx context.Context, cfg config.Config) (*Database, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if cfg.RunMigrations {
		if err := Migrate(ctx, db); err != nil {
			return nil, err
		}
	}

	return &Database{DB: db}, nil
}

// Migrate idempotently creates the conversations and messages relations.
func Migrate(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).AutoMigrate(
		&models.Conversation{},
		&models.Message{},
	)
}

func (db *Database) Close() {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return
	}
	sqlDB.Close()
}
