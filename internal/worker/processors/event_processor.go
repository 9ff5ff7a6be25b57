package processors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"storesync/internal/logger"
	"storesync/internal/metrics"
	"storesync/internal/models"
	"storesync/internal/queue"
	"storesync/internal/services/customers"
	"storesync/internal/services/shopify"
)

var ErrUnknownMethod = errors.New("unknown job method")

type handlerFunc func(ctx context.Context, conn *models.Connector, job queue.Job) (string, error)

// EventProcessor routes jobs to their handler and records the outcome on
// the job's integration log.
type EventProcessor struct {
	db       *gorm.DB
	logger   *logger.Logger
	importer *customers.Importer
	handlers map[string]handlerFunc
}

func NewEventProcessor(db *gorm.DB, logger *logger.Logger, importer *customers.Importer) *EventProcessor {
	ep := &EventProcessor{
		db:       db,
		logger:   logger,
		importer: importer,
	}
	ep.handlers = map[string]handlerFunc{
		shopify.MethodCustomerUpsert:  ep.upsertCustomer,
		shopify.MethodCustomerDisable: ep.disableCustomer,
		shopify.MethodCustomerSyncAll: ep.syncAll,
	}
	return ep
}

// Methods lists the job methods this processor can run.
func (ep *EventProcessor) Methods() []string {
	methods := make([]string, 0, len(ep.handlers))
	for method := range ep.handlers {
		methods = append(methods, method)
	}
	return methods
}

func (ep *EventProcessor) Handle(ctx context.Context, job queue.Job) error {
	ep.logger.Debug("Processing job %s (%s)", job.ID, job.Method)

	message, err := ep.run(ctx, job)
	metrics.IncJobProcessed(job.Method, err)
	ep.finish(job, message, err)

	if err != nil {
		return fmt.Errorf("%s: %w", job.Method, err)
	}
	return nil
}

func (ep *EventProcessor) run(ctx context.Context, job queue.Job) (string, error) {
	handler, ok := ep.handlers[job.Method]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownMethod, job.Method)
	}

	var conn models.Connector
	if err := ep.db.WithContext(ctx).First(&conn, "id = ?", job.ConnectorID).Error; err != nil {
		return "", fmt.Errorf("failed to load connector %s: %w", job.ConnectorID, err)
	}

	return handler(ctx, &conn, job)
}

// finish writes the outcome to the integration log named by the job.
func (ep *EventProcessor) finish(job queue.Job, message string, err error) {
	if job.RequestID == "" {
		return
	}

	status := models.LogStatusSuccess
	if err != nil {
		status = models.LogStatusError
		message = err.Error()
	}

	// The job context may already be past its deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result := ep.db.WithContext(ctx).Model(&models.IntegrationLog{}).
		Where("id = ?", job.RequestID).
		Updates(map[string]interface{}{"status": status, "message": message})
	if result.Error != nil {
		ep.logger.Error("Failed to update integration log %s: %v", job.RequestID, result.Error)
	}
}

func (ep *EventProcessor) upsertCustomer(ctx context.Context, conn *models.Connector, job queue.Job) (string, error) {
	if !conn.Enabled {
		return "", shopify.ErrNotEnabled
	}
	customer, err := ep.importer.UpsertPayload(ctx, conn, job.Payload)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Customer %s (%s) synced", customer.CustomerName, customer.ShopifyCustomerID), nil
}

func (ep *EventProcessor) disableCustomer(ctx context.Context, conn *models.Connector, job queue.Job) (string, error) {
	if !conn.Enabled {
		return "", shopify.ErrNotEnabled
	}
	disabled, err := ep.importer.DisablePayload(ctx, conn, job.Payload)
	if err != nil {
		return "", err
	}
	if !disabled {
		return "Customer not found locally, nothing to disable", nil
	}
	return "Customer disabled", nil
}

func (ep *EventProcessor) syncAll(ctx context.Context, conn *models.Connector, job queue.Job) (string, error) {
	summary, err := ep.importer.SyncAll(ctx, conn)
	if err != nil {
		return "", err
	}
	if len(summary.Errors) == 0 {
		return summary.String(), nil
	}
	details, err := json.Marshal(summary.Errors)
	if err != nil {
		return summary.String(), nil
	}
	return summary.String() + "\n" + string(details), nil
}
