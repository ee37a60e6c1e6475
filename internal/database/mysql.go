package database

import (
	"fmt"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var mysqlDefaults = map[string]string{
	"charset":   "utf8mb4",
	"parseTime": "True",
	"loc":       "UTC",
}

func openMySQL(cfg Config) (*gorm.DB, error) {
	dsn, err := buildMySQLDSN(cfg)
	if err != nil {
		return nil, err
	}
	return gorm.Open(mysql.Open(dsn), gormConfig(cfg))
}

func buildMySQLDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	if err := requireCredentials("mysql", cfg); err != nil {
		return "", err
	}

	host, port := serverAddress(cfg, "127.0.0.1", 3306)
	account := cfg.User
	if cfg.Password != "" {
		account += ":" + cfg.Password
	}
	query := strings.Join(driverOptions(mysqlDefaults, cfg.Options), "&")

	return fmt.Sprintf("%s@tcp(%s:%d)/%s?%s", account, host, port, cfg.Name, query), nil
}
