package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

const (
	HeaderTopic      = "X-Shopify-Topic"
	HeaderHmac       = "X-Shopify-Hmac-Sha256"
	HeaderShopDomain = "X-Shopify-Shop-Domain"
)

const (
	TopicCustomersCreate = "customers/create"
	TopicCustomersUpdate = "customers/update"
	TopicCustomersDelete = "customers/delete"
)

// Job methods executed by the worker.
const (
	MethodCustomerUpsert  = "customers.upsert"
	MethodCustomerDisable = "customers.disable"
	MethodCustomerSyncAll = "customers.sync_all"
)

// WebhookTopics are the subscriptions every enabled connector keeps.
var WebhookTopics = []string{
	TopicCustomersCreate,
	TopicCustomersUpdate,
	TopicCustomersDelete,
}

// EventMethods maps a webhook topic to the job that handles it.
var EventMethods = map[string]string{
	TopicCustomersCreate: MethodCustomerUpsert,
	TopicCustomersUpdate: MethodCustomerUpsert,
	TopicCustomersDelete: MethodCustomerDisable,
}

var ErrInvalidSignature = errors.New("unverified webhook data")

// TopicLabel is the metrics label for a webhook topic. The header is not
// authenticated, so anything outside EventMethods collapses to "other".
func TopicLabel(topic string) string {
	if _, ok := EventMethods[topic]; ok {
		return topic
	}
	return "other"
}

// Sign returns the base64 HMAC-SHA256 of payload, as Shopify sends it.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks the X-Shopify-Hmac-Sha256 value against the raw body.
func VerifySignature(payload []byte, signature, secret string) error {
	if secret == "" || signature == "" {
		return ErrInvalidSignature
	}
	expected := Sign(payload, secret)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}
