package cache

import (
	"context"
	"log/slog"
	"time"
)

// Config holds cache cleaner configuration.
type Config struct {
	CleanInterval time.Duration
	KeepDuration  time.Duration
}

// Cleaner periodically removes old cache entries.
type Cleaner struct {
	service *Service
	config  Config
	logger  *slog.Logger
}

// NewCleaner creates a new cache cleaner.
func NewCleaner(service *Service, config Config, logger *slog.Logger) *Cleaner {
	return &Cleaner{
		service: service,
		config:  config,
		logger:  logger,
	}
}

// Start begins the periodic cleanup process and blocks until ctx is
// cancelled.
func (c *Cleaner) Start(ctx context.Context) error {
	c.logger.Info("starting cache cleaner",
		"clean_interval", c.config.CleanInterval,
		"keep_duration", c.config.KeepDuration,
	)

	if err := c.clean(ctx); err != nil {
		c.logger.Error("initial cache cleanup failed", "error", err)
	}

	ticker := time.NewTicker(c.config.CleanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("stopping cache cleaner")
			return ctx.Err()
		case <-ticker.C:
			if err := c.clean(ctx); err != nil {
				c.logger.Error("cache cleanup failed", "error", err)
			}
		}
	}
}

// CleanOnce performs a single cleanup pass.
func (c *Cleaner) CleanOnce(ctx context.Context) error {
	return c.clean(ctx)
}

func (c *Cleaner) clean(ctx context.Context) error {
	deleted, err := c.service.Clean(ctx, c.config.KeepDuration)
	if err != nil {
		return err
	}
	c.logger.Info("cache cleanup completed", "deleted", deleted)
	return nil
}
