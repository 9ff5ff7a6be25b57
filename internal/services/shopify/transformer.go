package shopify

import (
	"errors"
	"strconv"
	"strings"

	"storesync/internal/models"
)

var (
	ErrMissingCustomerID = errors.New("customer has no id")
	ErrMissingAddressID  = errors.New("address has no id")
)

type Transformer struct {
	customerGroup string
	territory     string
}

func NewTransformer(conn *models.Connector) *Transformer {
	t := &Transformer{
		customerGroup: models.DefaultCustomerGroup,
		territory:     models.DefaultTerritory,
	}
	if conn != nil {
		if conn.CustomerGroup != "" {
			t.customerGroup = conn.CustomerGroup
		}
		if conn.Territory != "" {
			t.territory = conn.Territory
		}
	}
	return t
}

// TransformCustomer converts a Shopify customer to a local customer. The
// result is not persisted and has no local ID.
func (t *Transformer) TransformCustomer(c *Customer) (*models.Customer, error) {
	if c.ID == 0 {
		return nil, ErrMissingCustomerID
	}

	return &models.Customer{
		ShopifyCustomerID: FormatID(c.ID),
		CustomerName:      CustomerName(c),
		CustomerType:      models.CustomerTypeIndividual,
		CustomerGroup:     t.customerGroup,
		Territory:         t.territory,
		EmailID:           strings.TrimSpace(c.Email),
		Phone:             NormalizePhone(c.Phone),
	}, nil
}

// TransformAddress converts a Shopify address linked to customer.
func (t *Transformer) TransformAddress(a *Address, customer *models.Customer) (*models.Address, error) {
	if a.ID == 0 {
		return nil, ErrMissingAddressID
	}

	addressType := models.AddressTypeShipping
	if a.Default {
		addressType = models.AddressTypeBilling
	}

	return &models.Address{
		ShopifyAddressID: FormatID(a.ID),
		CustomerID:       customer.ID,
		AddressTitle:     customer.CustomerName,
		AddressType:      addressType,
		AddressLine1:     a.Address1,
		AddressLine2:     a.Address2,
		City:             a.City,
		State:            a.Province,
		Pincode:          a.Zip,
		Country:          a.Country,
		Phone:            NormalizePhone(a.Phone),
		EmailID:          customer.EmailID,
	}, nil
}

// TransformContact builds the contact for a customer. It reports false when
// the customer has neither phone nor email to reach them on.
func (t *Transformer) TransformContact(c *Customer, customer *models.Customer) (*models.Contact, bool) {
	phone := NormalizePhone(c.Phone)
	email := strings.TrimSpace(c.Email)
	if phone == "" && email == "" {
		return nil, false
	}

	firstName := strings.TrimSpace(c.FirstName)
	if firstName == "" {
		firstName = customer.CustomerName
	}

	return &models.Contact{
		ShopifyCustomerID: customer.ShopifyCustomerID,
		CustomerID:        customer.ID,
		FirstName:         firstName,
		LastName:          strings.TrimSpace(c.LastName),
		Phone:             phone,
		EmailID:           email,
	}, true
}

// CustomerName is "first last", falling back to the email and then the ID.
func CustomerName(c *Customer) string {
	name := strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
	if name != "" {
		return name
	}
	if email := strings.TrimSpace(c.Email); email != "" {
		return email
	}
	return "Shopify Customer " + FormatID(c.ID)
}

// NormalizePhone strips formatting characters and keeps a leading "+".
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}

	var b strings.Builder
	for i, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	if b.String() == "+" {
		return ""
	}
	return b.String()
}

func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
