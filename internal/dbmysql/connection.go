package dbmysql

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"startupconnect/internal/common"
	"startupconnect/internal/config"
)

// Models lists every table the messaging service owns, in migration order.
func Models() []interface{} {
	return []interface{}{
		&User{},
		&UserPresence{},
		&Conversation{},
		&ConversationParticipant{},
		&Message{},
		&MessageAttachment{},
		&Notification{},
	}
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// NewDatabase opens the configured relational store and migrates it.
func NewDatabase(cnf *config.Config) (*gorm.DB, error) {
	dsn := cnf.DSN()
	if dsn == "" {
		return nil, fmt.Errorf("database DSN is empty")
	}

	var dialector gorm.Dialector
	switch cnf.Database.Driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "mysql", "":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cnf.Database.Driver)
	}

	level := logger.Warn
	if common.IsDebug(cnf.Logging.Level) {
		level = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:      logger.Default.LogMode(level),
		PrepareStmt: true,
		NowFunc:     func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("cannot connect to %s: %w", cnf.Database.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sql.DB error: %w", err)
	}
	if cnf.Database.Driver == "sqlite" {
		// sqlite serializes writers; one connection keeps row locks meaningful
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cnf.Database.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cnf.Database.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Printf("Connected to %s and migrated schema", cnf.Database.Driver)
	return db, nil
}
