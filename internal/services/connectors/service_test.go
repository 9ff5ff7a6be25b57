package connectors_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"storesync/internal/database"
	"storesync/internal/logger"
	"storesync/internal/models"
	"storesync/internal/services/connectors"
	"storesync/internal/services/shopify"
	"storesync/internal/services/shopify/shopifytest"
)

const callbackURL = "https://erp.example.com/api/v1/shopify/webhook"

func setup(t *testing.T) (*connectors.Service, *shopifytest.Server, *gorm.DB) {
	t.Helper()

	db, err := database.New("sqlite://file:"+uuid.NewString()+"?mode=memory&cache=shared", database.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	srv := shopifytest.NewServer()
	t.Cleanup(srv.Close)

	sessions := shopify.NewSessions(logger.Nop(), shopify.ClientOptions{
		BaseURL:         srv.URL,
		InitialInterval: time.Millisecond,
	})
	registrar := shopify.NewRegistrar(callbackURL, shopify.WebhookTopics, logger.Nop())

	return connectors.NewService(db.DB, logger.Nop(), sessions, registrar), srv, db.DB
}

func newConnector(enabled bool) *models.Connector {
	return &models.Connector{
		ShopDomain:   "https://Test-Shop.myshopify.com/admin",
		AccessToken:  shopifytest.Token,
		SharedSecret: "secret",
		Enabled:      enabled,
	}
}

func TestSave_EnablingRegistersWebhooks(t *testing.T) {
	svc, srv, _ := setup(t)
	ctx := context.Background()

	conn := newConnector(true)
	require.NoError(t, svc.Save(ctx, conn))

	assert.Equal(t, "test-shop.myshopify.com", conn.ShopDomain)
	assert.Equal(t, "test-shop.myshopify.com", conn.Name)
	assert.Equal(t, models.DefaultCustomerGroup, conn.CustomerGroup)
	assert.Equal(t, models.ConnectorStatusActive, conn.Status)
	assert.Len(t, srv.Webhooks(), len(shopify.WebhookTopics))

	stored, err := svc.Get(ctx, conn.ID)
	require.NoError(t, err)
	require.Len(t, stored.Webhooks, len(shopify.WebhookTopics))
	topics := make([]string, 0, len(stored.Webhooks))
	for _, w := range stored.Webhooks {
		topics = append(topics, w.Method)
		assert.NotEmpty(t, w.WebhookID)
	}
	assert.ElementsMatch(t, shopify.WebhookTopics, topics)
}

func TestSave_EnabledWithWebhooksIsLeftAlone(t *testing.T) {
	svc, srv, _ := setup(t)
	ctx := context.Background()

	conn := newConnector(true)
	require.NoError(t, svc.Save(ctx, conn))
	before := srv.Requests()

	stored, err := svc.Get(ctx, conn.ID)
	require.NoError(t, err)
	stored.Territory = "Europe"
	require.NoError(t, svc.Save(ctx, stored))

	assert.Equal(t, before, srv.Requests())

	reloaded, err := svc.Get(ctx, conn.ID)
	require.NoError(t, err)
	assert.Equal(t, "Europe", reloaded.Territory)
	assert.Len(t, reloaded.Webhooks, len(shopify.WebhookTopics))
}

func TestSave_DisablingUnregisters(t *testing.T) {
	svc, srv, _ := setup(t)
	ctx := context.Background()

	foreign := srv.AddWebhook(shopify.TopicCustomersCreate, "https://other.example.com/hook")

	conn := newConnector(true)
	require.NoError(t, svc.Save(ctx, conn))

	stored, err := svc.Get(ctx, conn.ID)
	require.NoError(t, err)
	stored.Enabled = false
	require.NoError(t, svc.Save(ctx, stored))

	remaining := srv.Webhooks()
	require.Len(t, remaining, 1)
	assert.Equal(t, foreign, remaining[0].ID)

	reloaded, err := svc.Get(ctx, conn.ID)
	require.NoError(t, err)
	assert.Empty(t, reloaded.Webhooks)
	assert.False(t, reloaded.Enabled)
	assert.Equal(t, models.ConnectorStatusInactive, reloaded.Status)
}

func TestSave_RegistrationFailureStoresNothing(t *testing.T) {
	svc, _, db := setup(t)

	conn := newConnector(true)
	conn.AccessToken = "wrong"
	err := svc.Save(context.Background(), conn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch webhooks")

	var n int64
	db.Model(&models.Connector{}).Count(&n)
	assert.Zero(t, n)
}

func TestSave_EnabledWithoutCredentials(t *testing.T) {
	svc, _, _ := setup(t)

	conn := newConnector(true)
	conn.AccessToken = ""
	assert.ErrorIs(t, svc.Save(context.Background(), conn), shopify.ErrMissingCredentials)
}

func TestSave_DisabledWithoutCredentialsSkipsRemote(t *testing.T) {
	svc, srv, _ := setup(t)

	conn := newConnector(false)
	conn.AccessToken = ""
	require.NoError(t, svc.Save(context.Background(), conn))
	assert.Zero(t, srv.Requests())
	assert.NotEmpty(t, conn.ID)
}

func TestReregister(t *testing.T) {
	svc, srv, _ := setup(t)
	ctx := context.Background()

	conn := newConnector(true)
	require.NoError(t, svc.Save(ctx, conn))
	first := srv.Webhooks()

	require.NoError(t, svc.Reregister(ctx, conn))
	second := srv.Webhooks()

	require.Len(t, second, len(first))
	assert.NotEqual(t, first[0].ID, second[0].ID)

	conn.Enabled = false
	assert.ErrorIs(t, svc.Reregister(ctx, conn), shopify.ErrNotEnabled)
}

func TestDelete(t *testing.T) {
	svc, srv, db := setup(t)
	ctx := context.Background()

	conn := newConnector(true)
	require.NoError(t, svc.Save(ctx, conn))
	require.NoError(t, svc.Delete(ctx, conn))

	assert.Empty(t, srv.Webhooks())
	_, err := svc.Get(ctx, conn.ID)
	assert.ErrorIs(t, err, connectors.ErrNotFound)

	var n int64
	db.Model(&models.ConnectorWebhook{}).Count(&n)
	assert.Zero(t, n)
}

func TestGetByShop(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, svc.Save(ctx, newConnector(false)))

	conn, err := svc.GetByShop(ctx, "TEST-SHOP.myshopify.com")
	require.NoError(t, err)
	assert.Equal(t, "test-shop.myshopify.com", conn.ShopDomain)

	_, err = svc.GetByShop(ctx, "unknown")
	assert.ErrorIs(t, err, connectors.ErrNotFound)
}
