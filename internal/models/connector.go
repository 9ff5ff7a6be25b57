package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Connector is the settings record for one Shopify store.
type Connector struct {
	ID            string             `json:"id" gorm:"type:varchar(36);primaryKey"`
	Name          string             `json:"name" gorm:"not null"`
	Type          ConnectorType      `json:"type" gorm:"not null;default:SHOPIFY"`
	Status        ConnectorStatus    `json:"status" gorm:"default:INACTIVE"`
	Enabled       bool               `json:"enabled" gorm:"default:false"`
	ShopDomain    string             `json:"shop_domain" gorm:"uniqueIndex;not null"`
	AccessToken   string             `json:"-"`
	SharedSecret  string             `json:"-"`
	CustomerGroup string             `json:"customer_group"`
	Territory     string             `json:"territory"`
	LastSync      *time.Time         `json:"last_sync"`
	Webhooks      []ConnectorWebhook `json:"webhooks" gorm:"foreignKey:ConnectorID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// ConnectorWebhook mirrors one subscription registered on the remote store.
type ConnectorWebhook struct {
	ID          string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	ConnectorID string    `json:"connector_id" gorm:"type:varchar(36);index;not null"`
	WebhookID   string    `json:"webhook_id" gorm:"not null"`
	Method      string    `json:"method" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`
}

type ConnectorType string

const (
	ConnectorTypeShopify ConnectorType = "SHOPIFY"
)

type ConnectorStatus string

const (
	ConnectorStatusActive   ConnectorStatus = "ACTIVE"
	ConnectorStatusInactive ConnectorStatus = "INACTIVE"
	ConnectorStatusError    ConnectorStatus = "ERROR"
)

func (c *Connector) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Type == "" {
		c.Type = ConnectorTypeShopify
	}
	return nil
}

func (w *ConnectorWebhook) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	return nil
}

const (
	DefaultCustomerGroup = "All Customer Groups"
	DefaultTerritory     = "All Territories"
)

// ApplyDefaults fills the grouping fields new customers inherit.
func (c *Connector) ApplyDefaults() {
	if c.CustomerGroup == "" {
		c.CustomerGroup = DefaultCustomerGroup
	}
	if c.Territory == "" {
		c.Territory = DefaultTerritory
	}
}
