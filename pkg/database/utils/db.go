/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION & AFFILIATES. All rights reserved.
 * See LICENSE for license information.
 */

package utils

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	commonconfig "github.com/nvidia-isaac/ota-file-service/pkg/config"
)

// DBDriver represents the type of database driver to use
type DBDriver string

const (
	// PgDriver represents the PostgreSQL database driver
	PgDriver DBDriver = "postgres"
)

// DBConfig holds the connection parameters for the registry database.
type DBConfig struct {
	DBName         string
	Username       string
	Password       string
	Host           string
	Port           int
	SSLMode        string
	MaxOpenConns   int
	MaxIdleConns   int
	MaxLifetime    time.Duration
	MaxIdleTime    time.Duration
	ConnectTimeout int
	RequestTimeout time.Duration
}

// NewDBConfig builds a DBConfig from the loaded system configuration.
func NewDBConfig() *DBConfig {
	return &DBConfig{
		DBName:         commonconfig.GetDBName(),
		Username:       commonconfig.GetDBUser(),
		Password:       commonconfig.GetDBPassword(),
		Host:           commonconfig.GetDBHost(),
		Port:           commonconfig.GetDBPort(),
		SSLMode:        commonconfig.GetDBSslMode(),
		MaxOpenConns:   commonconfig.GetDBMaxOpenConns(),
		MaxIdleConns:   commonconfig.GetDBMaxIdleConns(),
		MaxLifetime:    time.Duration(commonconfig.GetDBMaxLifetimeSecond()) * time.Second,
		MaxIdleTime:    time.Duration(commonconfig.GetDBMaxIdleTimeSecond()) * time.Second,
		ConnectTimeout: commonconfig.GetDBConnectTimeoutSecond(),
		RequestTimeout: time.Duration(commonconfig.GetDBRequestTimeoutSecond()) * time.Second,
	}
}

// SourceName renders the libpq connection string.
func (cfg *DBConfig) SourceName() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.DBName, cfg.SSLMode, cfg.ConnectTimeout)
}

// Connect establishes a connection pool to the database using the provided
// configuration and driver.
func Connect(cfg *DBConfig, driverName DBDriver) (*sqlx.DB, error) {
	dataSource := cfg.SourceName()
	db, err := sqlx.Connect(string(driverName), dataSource)
	if err != nil {
		return nil, fmt.Errorf("failed to connect db %s, err: %v", cfg.DBName, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxIdleTime(cfg.MaxIdleTime)
	db.SetConnMaxLifetime(cfg.MaxLifetime)
	return db, nil
}

// ConnectGorm establishes a GORM connection, used for schema migration.
func ConnectGorm(cfg *DBConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%v user=%s dbname=%s password=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Username, cfg.DBName, cfg.Password, cfg.SSLMode)
	dialector := postgres.Dialector{
		Config: &postgres.Config{
			DSN: dsn,
		},
	}
	gormDB, err := gorm.Open(dialector, &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
	})
	if err != nil {
		return nil, err
	}
	return gormDB, nil
}

// ParseNullString parses the input data.
func ParseNullString(str sql.NullString) string {
	if str.Valid {
		return str.String
	}
	return ""
}

// NullString converts a string to sql.NullString.
func NullString(str string) sql.NullString {
	if str == "" {
		return sql.NullString{
			Valid: false,
		}
	}
	return sql.NullString{
		String: str,
		Valid:  true,
	}
}
