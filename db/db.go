package db

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// Db is the global database connection object
	Db *gorm.DB
	// Path is the path to the SQLite database file
	Path = filepath.Join(os.Getenv("HOME"), ".tasksctl", "tasksctl.db")
)

// ConfigurePath sets Path from TASKSCTL_HOME, then XDG_DATA_HOME, then the user's home directory.
func ConfigurePath() error {
	if home := os.Getenv("TASKSCTL_HOME"); home != "" {
		Path = filepath.Join(home, "tasksctl.db")
		return nil
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		Path = filepath.Join(xdg, "tasksctl", "tasksctl.db")
		return nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to resolve home directory: %w", err)
	}
	Path = filepath.Join(home, ".tasksctl", "tasksctl.db")
	return nil
}

// InitDB initializes the database by creating the necessary directory,
// opening the database connection, migrating tables, and configuring the logger.
func InitDB() error {
	if err := createDBDirectory(); err != nil {
		return err
	}

	if err := openDatabase(); err != nil {
		return err
	}

	if err := Migrate(Db); err != nil {
		return err
	}

	configureLogger()

	log.Info().Str("path", Path).Msg("Database initialized successfully")
	return nil
}

// createDBDirectory creates the directory for the database file if it does not exist.
func createDBDirectory() error {
	dir := filepath.Dir(Path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			log.Error().Err(err).Msg("Failed to create database directory")
			return err
		}
	}
	return nil
}

func openDatabase() error {
	var err error
	Db, err = gorm.Open(sqlite.Open(Path), &gorm.Config{})
	if err != nil {
		log.Error().Err(err).Msg("Failed to open database")
		return err
	}
	return nil
}

// Migrate creates or updates the token and task tables on the given connection.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("database connection is not initialized")
	}
	if err := conn.AutoMigrate(&Token{}, &Task{}); err != nil {
		log.Error().Err(err).Msg("Failed to auto-migrate database")
		return err
	}
	return nil
}

// configureLogger silences gorm unless zerolog is enabled.
func configureLogger() {
	if zerolog.GlobalLevel() == zerolog.Disabled {
		Db.Logger = Db.Logger.LogMode(logger.Silent)
	} else {
		Db.Logger = Db.Logger.LogMode(logger.Info)
	}
}

// GetDB returns the global connection.
func GetDB() *gorm.DB { return Db }

// CloseDB closes the database connection. Closing an uninitialized connection is a no-op.
func CloseDB() error {
	if Db == nil {
		return nil
	}
	sqlDB, err := Db.DB()
	if err != nil {
		log.Error().Err(err).Msg("Failed to get raw database connection")
		return err
	}
	return sqlDB.Close()
}
