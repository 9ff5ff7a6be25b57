package processors_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"storesync/internal/database"
	"storesync/internal/lock"
	"storesync/internal/logger"
	"storesync/internal/models"
	"storesync/internal/queue"
	"storesync/internal/services/customers"
	"storesync/internal/services/shopify"
	"storesync/internal/services/shopify/shopifytest"
	"storesync/internal/worker/processors"
)

type fixture struct {
	db        *gorm.DB
	srv       *shopifytest.Server
	conn      *models.Connector
	processor *processors.EventProcessor
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db, err := database.New("sqlite://file:"+uuid.NewString()+"?mode=memory&cache=shared", database.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	srv := shopifytest.NewServer()
	t.Cleanup(srv.Close)

	conn := &models.Connector{
		Name:        "Test Shop",
		ShopDomain:  "test-shop.myshopify.com",
		AccessToken: shopifytest.Token,
		Enabled:     true,
	}
	require.NoError(t, db.DB.Create(conn).Error)

	sessions := shopify.NewSessions(logger.Nop(), shopify.ClientOptions{
		BaseURL:         srv.URL,
		InitialInterval: time.Millisecond,
	})
	importer := customers.NewImporter(db.DB, logger.Nop(), sessions, lock.NewLocal(), customers.Options{})

	return &fixture{
		db:        db.DB,
		srv:       srv,
		conn:      conn,
		processor: processors.NewEventProcessor(db.DB, logger.Nop(), importer),
	}
}

func (f *fixture) queued(t *testing.T, method string) *models.IntegrationLog {
	t.Helper()
	entry := &models.IntegrationLog{ConnectorID: f.conn.ID, Method: method, Status: models.LogStatusQueued}
	require.NoError(t, f.db.Create(entry).Error)
	return entry
}

func (f *fixture) reload(t *testing.T, entry *models.IntegrationLog) models.IntegrationLog {
	t.Helper()
	var got models.IntegrationLog
	require.NoError(t, f.db.First(&got, "id = ?", entry.ID).Error)
	return got
}

func TestHandle_UpsertMarksLogSuccess(t *testing.T) {
	f := setup(t)
	entry := f.queued(t, shopify.MethodCustomerUpsert)

	job := queue.NewJob(queue.Short, shopify.MethodCustomerUpsert, f.conn.ID, entry.ID,
		[]byte(`{"id":42,"first_name":"Ada","last_name":"Lovelace","phone":"555"}`), time.Minute)
	require.NoError(t, f.processor.Handle(context.Background(), job))

	got := f.reload(t, entry)
	assert.Equal(t, models.LogStatusSuccess, got.Status)
	assert.Contains(t, got.Message, "Ada Lovelace")

	var customer models.Customer
	require.NoError(t, f.db.Preload("Contact").First(&customer, "shopify_customer_id = ?", "42").Error)
	require.NotNil(t, customer.Contact)
	assert.Equal(t, "555", customer.Contact.Phone)
}

func TestHandle_DisableMarksCustomer(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	require.NoError(t, f.processor.Handle(ctx, queue.NewJob(queue.Short, shopify.MethodCustomerUpsert, f.conn.ID, "", []byte(`{"id":7,"email":"x@example.com"}`), 0)))

	entry := f.queued(t, shopify.MethodCustomerDisable)
	require.NoError(t, f.processor.Handle(ctx, queue.NewJob(queue.Short, shopify.MethodCustomerDisable, f.conn.ID, entry.ID, []byte(`{"id":7}`), 0)))

	var customer models.Customer
	require.NoError(t, f.db.First(&customer, "shopify_customer_id = ?", "7").Error)
	assert.True(t, customer.Disabled)
	assert.Equal(t, models.LogStatusSuccess, f.reload(t, entry).Status)
}

func TestHandle_SyncAllWritesSummary(t *testing.T) {
	f := setup(t)
	f.srv.SetCustomers([]shopify.Customer{
		{ID: 1, Email: "a@example.com"},
		{ID: 0},
	})
	entry := f.queued(t, shopify.MethodCustomerSyncAll)

	err := f.processor.Handle(context.Background(), queue.NewJob(queue.Long, shopify.MethodCustomerSyncAll, f.conn.ID, entry.ID, nil, time.Minute))
	require.NoError(t, err)

	got := f.reload(t, entry)
	assert.Equal(t, models.LogStatusSuccess, got.Status)
	assert.Contains(t, got.Message, "Customer synchronization completed: 1 imported, 1 failed out of 2.")
	assert.Contains(t, got.Message, "customer has no id")
}

func TestHandle_FailureMarksLogError(t *testing.T) {
	f := setup(t)
	entry := f.queued(t, shopify.MethodCustomerUpsert)

	err := f.processor.Handle(context.Background(), queue.NewJob(queue.Short, shopify.MethodCustomerUpsert, f.conn.ID, entry.ID, []byte(`{"first_name":"no id"}`), 0))
	require.ErrorIs(t, err, shopify.ErrMissingCustomerID)

	got := f.reload(t, entry)
	assert.Equal(t, models.LogStatusError, got.Status)
	assert.Contains(t, got.Message, "customer has no id")
}

func TestHandle_DisabledConnectorRejectsWebhookJobs(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.db.Model(f.conn).Update("enabled", false).Error)

	err := f.processor.Handle(context.Background(), queue.NewJob(queue.Short, shopify.MethodCustomerUpsert, f.conn.ID, "", []byte(`{"id":1}`), 0))
	assert.ErrorIs(t, err, shopify.ErrNotEnabled)
}

func TestHandle_UnknownMethodAndConnector(t *testing.T) {
	f := setup(t)

	err := f.processor.Handle(context.Background(), queue.Job{Method: "orders.create", ConnectorID: f.conn.ID})
	assert.ErrorIs(t, err, processors.ErrUnknownMethod)

	err = f.processor.Handle(context.Background(), queue.Job{Method: shopify.MethodCustomerUpsert, ConnectorID: "missing"})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestMethods(t *testing.T) {
	f := setup(t)
	assert.ElementsMatch(t, []string{
		shopify.MethodCustomerUpsert,
		shopify.MethodCustomerDisable,
		shopify.MethodCustomerSyncAll,
	}, f.processor.Methods())
}
