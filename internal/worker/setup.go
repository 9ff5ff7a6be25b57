package worker

import (
	"gorm.io/gorm"

	"storesync/internal/config"
	"storesync/internal/lock"
	"storesync/internal/logger"
	"storesync/internal/services/customers"
	"storesync/internal/services/shopify"
	"storesync/internal/worker/processors"
)

// NewProcessor builds the job processor shared by the worker and the
// API's in-process queue. Imports are serialized through Redis when
// REDIS_URL is set, otherwise within this process only.
func NewProcessor(cfg *config.Config, logger *logger.Logger, db *gorm.DB) (*processors.EventProcessor, error) {
	var locker lock.Locker = lock.NewLocal()
	if cfg.RedisURL != "" {
		redisLocker, err := lock.NewRedis(cfg.RedisURL, logger)
		if err != nil {
			return nil, err
		}
		locker = redisLocker
	}

	sessions := shopify.NewSessions(logger, shopify.OptionsFromConfig(cfg))
	importer := customers.NewImporter(db, logger, sessions, locker, customers.Options{
		CommitEvery: cfg.SyncCommitEvery,
		LockTTL:     cfg.SyncJobTimeout,
	})

	return processors.NewEventProcessor(db, logger, importer), nil
}
