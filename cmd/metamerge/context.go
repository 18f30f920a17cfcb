package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/larkvale/metamerge/internal/config"
	"github.com/larkvale/metamerge/internal/database"
	"github.com/larkvale/metamerge/internal/library"
	"github.com/larkvale/metamerge/internal/logging"
	"github.com/larkvale/metamerge/internal/source"
	"github.com/larkvale/metamerge/internal/source/deezer"
	"github.com/larkvale/metamerge/internal/source/musicbrainz"
)

// commandContext carries lazily initialized shared state between
// commands: configuration, logger, database handle, and the source
// registry. Flags are bound before cobra parses, so the fields hold
// pointers into the root command's flag variables.
type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	cfg      *config.Config
	logger   *slog.Logger
	closeLog func() error
	db       *sql.DB
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		closeLog:     func() error { return nil },
	}
}

// ensureConfig loads configuration and builds the logger. Idempotent.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}

	path := *c.configFlag
	if path == "" {
		path = defaultConfigPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	level := cfg.Logging.Level
	if *c.logLevelFlag != "" {
		if !logging.ValidLevel(*c.logLevelFlag) {
			return nil, fmt.Errorf("invalid log level %q", *c.logLevelFlag)
		}
		level = *c.logLevelFlag
	}

	logger, closeLog := logging.New(logging.Config{
		Level:    level,
		Format:   cfg.Logging.Format,
		FilePath: cfg.Logging.FilePath,
	})

	c.cfg = cfg
	c.logger = logger
	c.closeLog = closeLog
	return cfg, nil
}

// ensureLibrary opens the database, runs migrations, and returns the
// library service. ensureConfig must have succeeded first.
func (c *commandContext) ensureLibrary() (*library.Service, error) {
	if c.db == nil {
		db, err := database.Open(c.cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		if err := database.Migrate(db); err != nil {
			db.Close() //nolint:errcheck
			return nil, fmt.Errorf("migrating database: %w", err)
		}
		c.db = db
	}
	return library.NewService(c.db), nil
}

// buildRegistry registers every enabled source adapter.
func (c *commandContext) buildRegistry() *source.Registry {
	reg := source.NewRegistry()
	limiter := source.NewRateLimiterMap()

	if c.cfg.Sources.MusicBrainz.Enabled {
		reg.Register(musicbrainz.NewWithBaseURL(limiter, c.logger, c.cfg.Sources.MusicBrainz.BaseURL))
	}
	if c.cfg.Sources.Deezer.Enabled {
		reg.Register(deezer.NewWithBaseURL(limiter, c.logger, c.cfg.Sources.Deezer.BaseURL))
	}
	return reg
}

func (c *commandContext) close() {
	if c.db != nil {
		c.db.Close() //nolint:errcheck
		c.db = nil
	}
	c.closeLog() //nolint:errcheck
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "metamerge", "config.yaml")
}
