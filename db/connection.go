package db

import (
	"database/sql"
	"github.com/spf13/viper"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type DatabaseConnection struct {
	db    *gorm.DB
	sqlDb *sql.DB
}

var singleton *DatabaseConnection

// Connection returns the process-wide database connection, initializing
// it lazily on first use.
func Connection() *DatabaseConnection {
	if singleton == nil {
		singleton = InitDb()
	}
	return singleton
}

// Reset tears down the process-wide connection so a subsequent
// Connection() call reinitializes it; used by test teardown.
func Reset() {
	singleton = nil
}

func InitDb() *DatabaseConnection {
	// Set up viper to read from the environment
	viper.AutomaticEnv()

	// Default to sqlite if no DATABASE_TYPE is set
	dbType := viper.GetString("DATABASE_TYPE")
	if dbType == "" {
		dbType = "sqlite"
	}

	var dialector gorm.Dialector
	if dbType == "sqlite" {
		dialector = sqlite.Open("accesslint.db")
	} else if dbType == "postgres" {
		// Get the connection string from the environment variable
		dsn := viper.GetString("POSTGRES_DSN")
		if dsn == "" {
			log.Fatalf("No Postgres DSN provided")
		}
		dialector = postgres.Open(dsn)
	} else {
		log.Fatalf("Unknown database type: %s", dbType)
	}

	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newLogger,
	})
	if err != nil {
		panic("failed to connect database")
	}
	db.AutoMigrate(
		&Discovery{}, &DiscoveredPage{},
		&Scan{}, &ScanResult{}, &Issue{},
		&BatchScan{}, &MonthlyUsage{},
		&Checkpoint{}, &CacheEntry{},
		&Job{}, &WorkerNode{},
	)
	sqlDB, err := db.DB()
	if err != nil {
		panic("failed to get underlying sql.DB")
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(80)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &DatabaseConnection{
		db:    db,
		sqlDb: sqlDB,
	}
}

// DB exposes the underlying *gorm.DB for callers that need raw SQL
// (advisory locks, ad hoc aggregation) beyond the methods this package
// exports.
func (conn *DatabaseConnection) DB() *gorm.DB {
	return conn.db
}

// NewTestConnection opens a private in-memory sqlite database with the
// same schema InitDb migrates, for use by this package's and other
// packages' tests. Every call gets its own isolated database.
func NewTestConnection() *DatabaseConnection {
	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=private"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic("failed to open in-memory test database: " + err.Error())
	}
	if err := gdb.AutoMigrate(
		&Discovery{}, &DiscoveredPage{},
		&Scan{}, &ScanResult{}, &Issue{},
		&BatchScan{}, &MonthlyUsage{},
		&Checkpoint{}, &CacheEntry{},
		&Job{}, &WorkerNode{},
	); err != nil {
		panic("failed to migrate in-memory test database: " + err.Error())
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		panic("failed to get underlying sql.DB: " + err.Error())
	}
	return &DatabaseConnection{db: gdb, sqlDb: sqlDB}
}
