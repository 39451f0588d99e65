package database

import (
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dohaibbur/CYBER-HERO/internal/config"
	"github.com/dohaibbur/CYBER-HERO/internal/model"
)

// Manager handles database connections and schema setup. Saves default to
// a local SQLite file; Postgres is opt-in via config and falls back to
// SQLite when unreachable.
type Manager struct {
	DB             *gorm.DB
	SqlDB          *sql.DB
	IsValid        bool
	IsLocal        bool
	SqliteFilePath string
	Logger         zerolog.Logger
}

// NewManager creates a new database manager. dataDir is where the local
// SQLite file lives.
func NewManager(log zerolog.Logger, dataDir string) *Manager {
	return &Manager{
		SqliteFilePath: filepath.Join(dataDir, "cyberhero.db"),
		Logger:         log,
	}
}

// Connect establishes a database connection. Postgres is tried only when
// enabled in config; any failure there drops down to local SQLite.
func (m *Manager) Connect() error {
	var err error

	cfg := config.GetDatabaseConfig()
	if cfg.Enabled {
		m.DB, err = m.getPostgresDB(cfg)
		if err != nil {
			m.Logger.Error().Err(err).Msg("Failed to connect to Postgres DB, trying SQLite")
			m.DB = nil
		}
	}
	if m.DB == nil {
		m.IsLocal = true
		m.DB, err = m.getSqliteDB(m.SqliteFilePath)
		if err != nil {
			return fmt.Errorf("failed to open local SQLite DB: %w", err)
		}
	}

	m.SqlDB, err = m.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err = m.SqlDB.Ping(); err != nil {
		if m.IsLocal {
			return fmt.Errorf("failed to validate connection: %w", err)
		}
		m.Logger.Error().Err(err).Msg("Failed to validate connection, trying SQLite")
		m.IsLocal = true
		m.DB, err = m.getSqliteDB(m.SqliteFilePath)
		if err != nil {
			return fmt.Errorf("failed to open local SQLite DB: %w", err)
		}
		m.SqlDB, err = m.DB.DB()
		if err != nil {
			return fmt.Errorf("failed to access sql interface: %w", err)
		}
	}

	m.IsValid = true
	if !m.IsLocal {
		m.SqlDB.SetMaxOpenConns(10)
	}
	m.Logger.Info().Bool("local", m.IsLocal).Msg("Connected to database")
	return nil
}

func (m *Manager) getPostgresDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		cfg.Host,
		cfg.Port,
		cfg.Username,
		cfg.Password,
		cfg.Database,
	)

	m.Logger.Debug().Str("host", cfg.Host).Str("db", cfg.Database).Msg("Connecting to Postgres DB")

	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
}

func (m *Manager) getSqliteDB(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	m.Logger.Info().Str("path", path).Msg("Using local SQLite DB")

	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA temp_store = MEMORY;",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}
	return db, nil
}

// Setup migrates the schema and seeds the content info row.
func (m *Manager) Setup(contentName, contentVersion string, missionCount int) error {
	m.Logger.Info().Msg("Migrating schema")
	if err := m.DB.AutoMigrate(model.DatabaseModels...); err != nil {
		m.IsValid = false
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	var count int64
	if err := m.DB.Model(&model.GameInfo{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to query game_infos: %w", err)
	}
	if count == 0 {
		err := m.DB.Create(&model.GameInfo{
			ContentName:    contentName,
			ContentVersion: contentVersion,
			MissionCount:   missionCount,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to seed game_infos: %w", err)
		}
	}

	m.Logger.Info().Msg("Database setup complete")
	return nil
}

// Close closes the underlying connection.
func (m *Manager) Close() error {
	m.IsValid = false
	if m.SqlDB == nil {
		return nil
	}
	return m.SqlDB.Close()
}
