package shopify

import (
	"time"
)

// Customer represents a Shopify customer
type Customer struct {
	ID             int64     `json:"id"`
	Email          string    `json:"email"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Phone          string    `json:"phone"`
	State          string    `json:"state"`
	Tags           string    `json:"tags"`
	Note           string    `json:"note"`
	VerifiedEmail  bool      `json:"verified_email"`
	Currency       string    `json:"currency"`
	Addresses      []Address `json:"addresses"`
	DefaultAddress *Address  `json:"default_address,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Address represents a customer address
type Address struct {
	ID           int64  `json:"id"`
	CustomerID   int64  `json:"customer_id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Company      string `json:"company"`
	Address1     string `json:"address1"`
	Address2     string `json:"address2"`
	City         string `json:"city"`
	Province     string `json:"province"`
	Country      string `json:"country"`
	Zip          string `json:"zip"`
	Phone        string `json:"phone"`
	Name         string `json:"name"`
	ProvinceCode string `json:"province_code"`
	CountryCode  string `json:"country_code"`
	Default      bool   `json:"default"`
}

// Webhook represents a webhook subscription
type Webhook struct {
	ID         int64      `json:"id,omitempty"`
	Topic      string     `json:"topic"`
	Address    string     `json:"address"`
	Format     string     `json:"format,omitempty"`
	APIVersion string     `json:"api_version,omitempty"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
}

// Shop represents shop information
type Shop struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Domain          string `json:"domain"`
	Country         string `json:"country"`
	Currency        string `json:"currency"`
	Timezone        string `json:"timezone"`
	IanaTimezone    string `json:"iana_timezone"`
	ShopOwner       string `json:"shop_owner"`
	MyshopifyDomain string `json:"myshopify_domain"`
	PlanName        string `json:"plan_name"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	Scope       string `json:"scope"`
}
