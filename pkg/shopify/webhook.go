// Package shopify verifies and decodes Shopify webhook deliveries.
package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Webhook headers set by Shopify on every delivery
const (
	HeaderHmac       = "X-Shopify-Hmac-Sha256"
	HeaderTopic      = "X-Shopify-Topic"
	HeaderShopDomain = "X-Shopify-Shop-Domain"
	HeaderWebhookID  = "X-Shopify-Webhook-Id"
	HeaderAPIVersion = "X-Shopify-API-Version"
)

// Topic is a normalised webhook topic such as ORDERS_CREATE
type Topic string

const (
	TopicAppUninstalled       Topic = "APP_UNINSTALLED"
	TopicOrdersCreate         Topic = "ORDERS_CREATE"
	TopicCustomersDataRequest Topic = "CUSTOMERS_DATA_REQUEST"
	TopicCustomersRedact      Topic = "CUSTOMERS_REDACT"
	TopicShopRedact           Topic = "SHOP_REDACT"
)

// MaxBodyBytes caps the size of a webhook body
const MaxBodyBytes = 5 << 20

var (
	// ErrInvalidSignature is returned when the HMAC header does not match the body
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrMissingShop is returned when the delivery has no shop domain header
	ErrMissingShop = errors.New("missing shop domain")
	// ErrMissingTopic is returned when the delivery has no topic header
	ErrMissingTopic = errors.New("missing webhook topic")
)

// Delivery is a verified webhook
type Delivery struct {
	Topic      Topic
	Shop       string
	WebhookID  string
	APIVersion string
	Body       []byte
}

// NormalizeTopic turns a header topic like "orders/create" into ORDERS_CREATE
func NormalizeTopic(raw string) Topic {
	t := strings.ToUpper(strings.TrimSpace(raw))
	t = strings.NewReplacer("/", "_", "-", "_", ".", "_").Replace(t)
	return Topic(t)
}

// Sign returns the base64 HMAC-SHA256 of body keyed with secret
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature is the HMAC of body. An empty secret never verifies.
func Verify(body []byte, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}
	got, err := base64.StdEncoding.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// ParseDelivery reads and authenticates a webhook request
func ParseDelivery(r *http.Request, secret string) (*Delivery, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read webhook body: %w", err)
	}

	if !Verify(body, r.Header.Get(HeaderHmac), secret) {
		return nil, ErrInvalidSignature
	}

	d := &Delivery{
		Topic:      NormalizeTopic(r.Header.Get(HeaderTopic)),
		Shop:       strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderShopDomain))),
		WebhookID:  strings.TrimSpace(r.Header.Get(HeaderWebhookID)),
		APIVersion: r.Header.Get(HeaderAPIVersion),
		Body:       body,
	}
	if d.Topic == "" {
		return nil, ErrMissingTopic
	}
	if d.Shop == "" {
		return nil, ErrMissingShop
	}
	return d, nil
}
