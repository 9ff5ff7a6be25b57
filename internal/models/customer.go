package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	CustomerTypeIndividual = "Individual"

	AddressTypeBilling  = "Billing"
	AddressTypeShipping = "Shipping"
)

type Customer struct {
	ID                string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	ShopifyCustomerID string    `json:"shopify_customer_id" gorm:"uniqueIndex;not null"`
	ConnectorID       string    `json:"connector_id" gorm:"type:varchar(36);index"`
	CustomerName      string    `json:"customer_name" gorm:"not null"`
	CustomerType      string    `json:"customer_type" gorm:"default:Individual"`
	CustomerGroup     string    `json:"customer_group"`
	Territory         string    `json:"territory"`
	EmailID           string    `json:"email_id"`
	Phone             string    `json:"phone"`
	Disabled          bool      `json:"disabled" gorm:"default:false"`
	Addresses         []Address `json:"addresses,omitempty" gorm:"foreignKey:CustomerID"`
	Contact           *Contact  `json:"contact,omitempty" gorm:"foreignKey:CustomerID"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Address is linked to exactly one customer through CustomerID.
type Address struct {
	ID               string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	ShopifyAddressID string    `json:"shopify_address_id" gorm:"uniqueIndex;not null"`
	CustomerID       string    `json:"customer_id" gorm:"type:varchar(36);index;not null"`
	AddressTitle     string    `json:"address_title"`
	AddressType      string    `json:"address_type"`
	AddressLine1     string    `json:"address_line1"`
	AddressLine2     string    `json:"address_line2"`
	City             string    `json:"city"`
	State            string    `json:"state"`
	Pincode          string    `json:"pincode"`
	Country          string    `json:"country"`
	Phone            string    `json:"phone"`
	EmailID          string    `json:"email_id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Contact is keyed by the remote customer ID, one per customer.
type Contact struct {
	ID                string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	ShopifyCustomerID string    `json:"shopify_customer_id" gorm:"uniqueIndex;not null"`
	CustomerID        string    `json:"customer_id" gorm:"type:varchar(36);index;not null"`
	FirstName         string    `json:"first_name"`
	LastName          string    `json:"last_name"`
	Phone             string    `json:"phone" gorm:"index"`
	EmailID           string    `json:"email_id"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

func (a *Address) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

func (c *Contact) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}
