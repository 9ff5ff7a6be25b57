package handlers

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"storesync/internal/config"
	"storesync/internal/logger"
	"storesync/internal/models"
	"storesync/internal/queue"
	"storesync/internal/services/shopify"
)

// JobQueue records an integration log for each job and enqueues the job
// with the log's ID as its request ID.
type JobQueue struct {
	db     *gorm.DB
	queue  queue.Enqueuer
	config *config.Config
	logger *logger.Logger
}

func NewJobQueue(db *gorm.DB, q queue.Enqueuer, cfg *config.Config, logger *logger.Logger) *JobQueue {
	return &JobQueue{
		db:     db,
		queue:  q,
		config: cfg,
		logger: logger,
	}
}

func (j *JobQueue) Submit(ctx context.Context, connectorID, method string, payload []byte) (*models.IntegrationLog, error) {
	entry := &models.IntegrationLog{
		ConnectorID: connectorID,
		Method:      method,
		Status:      models.LogStatusQueued,
		RequestData: string(payload),
	}
	if err := j.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, fmt.Errorf("failed to create integration log: %w", err)
	}
	if err := j.enqueue(ctx, entry); err != nil {
		return entry, err
	}
	return entry, nil
}

// Resubmit queues the job described by an existing log again.
func (j *JobQueue) Resubmit(ctx context.Context, entry *models.IntegrationLog) error {
	err := j.db.WithContext(ctx).Model(entry).
		Updates(map[string]interface{}{"status": models.LogStatusQueued, "message": ""}).Error
	if err != nil {
		return fmt.Errorf("failed to update integration log: %w", err)
	}
	entry.Status = models.LogStatusQueued
	entry.Message = ""
	return j.enqueue(ctx, entry)
}

func (j *JobQueue) enqueue(ctx context.Context, entry *models.IntegrationLog) error {
	queueName, timeout := j.route(entry.Method)

	var payload []byte
	if entry.RequestData != "" {
		payload = []byte(entry.RequestData)
	}
	job := queue.NewJob(queueName, entry.Method, entry.ConnectorID, entry.ID, payload, timeout)

	if err := j.queue.Enqueue(ctx, job); err != nil {
		j.logger.Error("Failed to enqueue %s for log %s: %v", entry.Method, entry.ID, err)
		// The request may be gone by now; the log must still be marked.
		result := j.db.WithContext(context.WithoutCancel(ctx)).Model(entry).Updates(map[string]interface{}{
			"status":  models.LogStatusError,
			"message": err.Error(),
		})
		if result.Error != nil {
			j.logger.Error("Failed to update integration log %s: %v", entry.ID, result.Error)
		}
		entry.Status = models.LogStatusError
		entry.Message = err.Error()
		return err
	}
	return nil
}

// route picks the queue and timeout for a job method.
func (j *JobQueue) route(method string) (string, time.Duration) {
	if method == shopify.MethodCustomerSyncAll {
		return queue.Long, j.config.SyncJobTimeout
	}
	return queue.Short, j.config.WebhookJobTimeout
}
