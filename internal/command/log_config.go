package command

import (
	"fmt"

	"github.com/joeycumines/courtroom/internal/config"
	"github.com/joeycumines/courtroom/internal/logging"
)

// resolveLogConfig resolves log configuration from flags and config defaults.
// Flag values take precedence; config values (or their environment
// overrides) are used when a flag is empty, then the schema defaults.
func resolveLogConfig(flagPath, flagLevel string, cfg *config.Config) (logging.Config, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	schema := config.DefaultSchema()
	var lc logging.Config

	levelStr := flagLevel
	if levelStr == "" {
		levelStr = schema.Resolve(cfg, "log.level")
	}
	level, err := logging.ParseLevel(levelStr)
	if err != nil {
		return lc, err
	}
	lc.Level = level

	lc.BufferSize = schema.ResolveInt(cfg, "log.buffer-size")
	if lc.BufferSize <= 0 {
		return lc, fmt.Errorf("invalid log.buffer-size: %d", lc.BufferSize)
	}

	lc.File = flagPath
	if lc.File == "" {
		lc.File = schema.Resolve(cfg, "log.file")
	}
	if lc.File != "" {
		lc.MaxSizeMB = schema.ResolveInt(cfg, "log.max-size-mb")
		if lc.MaxSizeMB <= 0 {
			lc.MaxSizeMB = 10
		}
		// zero backups is valid: the file is truncated on rotation
		lc.MaxFiles = max(schema.ResolveInt(cfg, "log.max-files"), 0)
	}
	return lc, nil
}

// setupLogging resolves and opens the logger. The caller must Close it.
func setupLogging(flagPath, flagLevel string, cfg *config.Config) (*logging.Logger, error) {
	lc, err := resolveLogConfig(flagPath, flagLevel, cfg)
	if err != nil {
		return nil, err
	}
	return logging.Setup(lc)
}
