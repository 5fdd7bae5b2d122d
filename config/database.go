package config

import (
	"fmt"
	"sync"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

var (
	dbConn *gorm.DB
	onceDB sync.Once
)

// DatabaseConnection returns the shared gorm handle, initializing it on
// first use from the environment configuration.
func DatabaseConnection() *gorm.DB {
	onceDB.Do(func() {
		if dbConn != nil {
			// main already connected via InitDB.
			return
		}
		cfg := Env()
		db, err := InitDB(
			cfg.DatabaseHost,
			cfg.DatabasePort,
			cfg.PostgresUser,
			cfg.PostgresPassword,
			cfg.DatabaseName,
		)
		if err != nil {
			panic(err)
		}
		dbConn = db
	})
	return dbConn
}

func InitDB(host, port, user, password, dbName string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable", host, port, user, password, dbName)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			TablePrefix:   "ctfhost.",
			SingularTable: false,
		},
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	x := db.Exec(`CREATE SCHEMA IF NOT EXISTS ctfhost`)
	if x.Error != nil {
		return nil, x.Error
	}
	dbConn = db
	return db, nil
}

// SetDatabaseConnection overrides the shared handle. Used by tests that
// bring up their own database.
func SetDatabaseConnection(db *gorm.DB) {
	onceDB.Do(func() {})
	dbConn = db
}
