package main

import (
	"log/slog"
	"strings"
	"sync"

	"opldock/internal/config"
	"opldock/internal/gameid"
	"opldock/internal/importer"
	"opldock/internal/isofs"
	"opldock/internal/library"
	"opldock/internal/logging"
	"opldock/internal/manifest"
)

// commandContext lazily loads configuration and builds the local services
// the CLI commands share. The CLI talks to the filesystem directly; it does
// not require a running daemon.
type commandContext struct {
	configFlag  *string
	verboseFlag *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	buildOnce sync.Once
	logger    *slog.Logger
	store     *manifest.Store
	resolver  *gameid.Resolver
	pipeline  *importer.Pipeline
	library   *library.Service
}

func newCommandContext(configFlag *string, verboseFlag *bool) *commandContext {
	return &commandContext{configFlag: configFlag, verboseFlag: verboseFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) services() (*commandContext, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	c.buildOnce.Do(func() {
		level := "warn"
		if c.verboseFlag != nil && *c.verboseFlag {
			level = "debug"
		}
		logger, err := logging.New(logging.Options{
			Level:       level,
			Format:      "console",
			OutputPaths: []string{"stderr"},
		})
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
		c.store = manifest.NewStore()
		c.resolver = gameid.NewResolver(c.store, isofs.NewReader())
		c.pipeline = importer.New(cfg.Paths.StagingDir, c.store, c.resolver, logger)
		c.library = library.NewService(c.store, logger)
	})
	return c, nil
}
