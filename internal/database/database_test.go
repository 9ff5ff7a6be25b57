package database

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	applog "storesync/internal/logger"
	"storesync/internal/models"
)

func TestNew_SQLiteCreatesTables(t *testing.T) {
	db, err := New("sqlite://file:database_test?mode=memory&cache=shared", Options{})
	require.NoError(t, err)
	defer db.Close()

	for _, model := range []interface{}{
		&models.Connector{},
		&models.ConnectorWebhook{},
		&models.Customer{},
		&models.Address{},
		&models.Contact{},
		&models.IntegrationLog{},
	} {
		assert.True(t, db.DB.Migrator().HasTable(model))
	}
}

func TestNew_CustomerExternalIDIsUnique(t *testing.T) {
	db, err := New("sqlite://file:database_unique_test?mode=memory&cache=shared", Options{})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.DB.Create(&models.Customer{ShopifyCustomerID: "42", CustomerName: "A"}).Error)
	err = db.DB.Create(&models.Customer{ShopifyCustomerID: "42", CustomerName: "B"}).Error
	assert.Error(t, err)
}

func TestNew_LogsThroughServiceLogger(t *testing.T) {
	var buf bytes.Buffer
	db, err := New("sqlite://file:database_logger_test?mode=memory&cache=shared", Options{
		Logger: applog.NewWithWriter("debug", &buf),
	})
	require.NoError(t, err)
	defer db.Close()

	var customer models.Customer
	err = db.DB.First(&customer, "shopify_customer_id = ?", "missing").Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.NotContains(t, buf.String(), "record not found")

	err = db.DB.Exec("SELECT * FROM no_such_table").Error
	require.Error(t, err)
	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), `"component":"gorm"`)
	assert.Contains(t, buf.String(), "no_such_table")
}
