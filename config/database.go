package config

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"praxis-recording/constant"
)

// NewGorm wraps the configured *sql.DB in a gorm handle. Driver errors are
// translated so unique violations surface as gorm.ErrDuplicatedKey.
func NewGorm(cfg *Config) (*gorm.DB, error) {
	level := logger.Warn
	if cfg.App.Environment == constant.EnvironmentDevelop.String() {
		level = logger.Info
	}

	return gorm.Open(postgres.New(postgres.Config{
		Conn: cfg.DB}),
		&gorm.Config{
			Logger:         logger.Default.LogMode(level),
			TranslateError: true,
		},
	)
}
