package config

import (
	"context"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
	"io"
	"os"
	"praxis-recording/constant"
)

// SetupLogger returns a root context carrying the process logger. Output goes to
// stdout and, when log.file is set, to a size-rotated file as well.
func SetupLogger(cfg *Config) context.Context {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.App.Environment == constant.EnvironmentDevelop.String() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	var out io.Writer = os.Stdout
	if cfg.Log.File != "" {
		out = zerolog.MultiLevelWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			Compress:   true,
		})
	}

	logger := zerolog.New(out).With().Timestamp().Str("env", cfg.App.Environment).Logger()
	return logger.WithContext(context.Background())
}
