package database

import (
	"fmt"
	"log"
	"time"

	"github.com/arnavshah/staff-scheduler-go/pkg/config"
	"github.com/arnavshah/staff-scheduler-go/pkg/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// APIKey represents the api_keys table. Each key is scoped to one restaurant.
type APIKey struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Key          string     `gorm:"unique;not null" json:"-"`
	KeyPreview   string     `json:"key_preview"`
	Name         string     `gorm:"not null" json:"name"`
	RestaurantID uint       `gorm:"index;not null" json:"restaurant_id"`
	RateLimit    int        `gorm:"default:10000" json:"rate_limit"`
	CreatedAt    time.Time  `json:"created_at"`
	LastUsed     *time.Time `json:"last_used"`
	RevokedAt    *time.Time `json:"revoked_at,omitempty"`
}

// APIUsage represents the api_usage table
type APIUsage struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	KeyID          uint   `gorm:"uniqueIndex:idx_key_date;not null" json:"key_id"`
	Date           string `gorm:"uniqueIndex:idx_key_date;not null" json:"date"`
	RequestCount   int    `gorm:"default:0" json:"request_count"`
	TotalShifts    int    `gorm:"default:0" json:"total_shifts"`
	TotalEmployees int    `gorm:"default:0" json:"total_employees"`
}

// MasterUser represents the master_users table
type MasterUser struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"unique;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// Open connects to the configured database without migrating.
func Open(cfg config.Config) (*gorm.DB, error) {
	switch cfg.DatabaseDriver {
	case "postgres":
		return gorm.Open(postgres.New(postgres.Config{
			DSN:                  cfg.DatabaseURL,
			PreferSimpleProtocol: true,
		}), &gorm.Config{
			PrepareStmt: false,
		})
	case "mysql":
		return gorm.Open(mysql.Open(cfg.DatabaseURL), &gorm.Config{})
	case "sqlite", "":
		return gorm.Open(sqlite.Open(cfg.DataPath), &gorm.Config{})
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&APIKey{}, &APIUsage{}, &MasterUser{},
		&models.Employee{},
		&models.AvailabilityRecord{},
		&models.AvailabilityPattern{},
		&models.Shift{},
		&models.DemandRecord{},
	)
}

// InitDB initializes the database connection and migrates the schema
func InitDB(cfg config.Config) *gorm.DB {
	db, err := Open(cfg)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	if err := Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	return db
}
