// Package webhook routes verified Shopify deliveries to the services that
// handle them.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Growthvoodoo/Capty-shopify/pkg/attribution"
	"github.com/Growthvoodoo/Capty-shopify/pkg/logger"
	"github.com/Growthvoodoo/Capty-shopify/pkg/shopify"
	"github.com/getsentry/sentry-go"
)

// ErrUnhandledTopic is returned for topics the app does not subscribe to
var ErrUnhandledTopic = errors.New("unhandled webhook topic")

// Outcome is what the dispatcher did with a delivery
type Outcome string

const (
	OutcomeUninstalled  Outcome = "uninstalled"
	OutcomeAttributed   Outcome = "attributed"
	OutcomeUnattributed Outcome = "unattributed"
	OutcomeDuplicate    Outcome = "duplicate"
	OutcomeRedelivered  Outcome = "redelivered"
	OutcomeAcknowledged Outcome = "acknowledged"
	OutcomeIgnored      Outcome = "ignored"
	OutcomeFailed       Outcome = "failed"
)

const dedupKeyPrefix = "capty:webhook:"

// SessionStore is the part of the session store used by webhooks
type SessionStore interface {
	Exists(ctx context.Context, shop string) (bool, error)
	DeleteByShop(ctx context.Context, shop string) (int64, error)
}

// OrderProcessor attributes orders
type OrderProcessor interface {
	ProcessOrder(ctx context.Context, shop string, order attribution.Order) (attribution.Result, error)
}

// Claimer claims webhook ids so redeliveries can be skipped early
type Claimer interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
}

// Recorder receives delivery metrics
type Recorder interface {
	RecordWebhook(topic, outcome string)
	RecordCommission(currency string, amount float64)
	RecordDedupError()
}

// Dispatcher handles verified webhook deliveries
type Dispatcher struct {
	sessions SessionStore
	orders   OrderProcessor
	log      logger.Logger
	claimer  Claimer
	dedupTTL time.Duration
	recorder Recorder
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithDedup skips deliveries whose webhook id was already claimed within ttl
func WithDedup(c Claimer, ttl time.Duration) Option {
	return func(d *Dispatcher) {
		d.claimer = c
		d.dedupTTL = ttl
	}
}

// WithRecorder reports delivery metrics to r
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) {
		d.recorder = r
	}
}

// NewDispatcher creates a new webhook dispatcher
func NewDispatcher(sessions SessionStore, orders OrderProcessor, log logger.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sessions: sessions,
		orders:   orders,
		log:      log,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func known(t shopify.Topic) bool {
	switch t {
	case shopify.TopicAppUninstalled,
		shopify.TopicOrdersCreate,
		shopify.TopicCustomersDataRequest,
		shopify.TopicCustomersRedact,
		shopify.TopicShopRedact:
		return true
	}
	return false
}

// Dispatch handles one delivery. Only ErrUnhandledTopic is returned; every
// other failure is logged, reported and acknowledged as OutcomeFailed so the
// platform does not retry into the same error.
func (d *Dispatcher) Dispatch(ctx context.Context, delivery *shopify.Delivery) (Outcome, error) {
	log := d.log.With(
		"shop", delivery.Shop,
		"topic", string(delivery.Topic),
		"webhook_id", delivery.WebhookID,
	)

	if !known(delivery.Topic) {
		log.Warn("unhandled webhook topic")
		d.record(delivery.Topic, "unhandled")
		return "", ErrUnhandledTopic
	}

	outcome := d.dispatch(ctx, log, delivery)
	d.record(delivery.Topic, string(outcome))
	return outcome, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, log logger.Logger, delivery *shopify.Delivery) Outcome {
	if delivery.Topic != shopify.TopicShopRedact {
		installed, err := d.sessions.Exists(ctx, delivery.Shop)
		switch {
		case err != nil:
			// Signature is valid, so keep going rather than drop the delivery.
			log.Warn("session lookup failed", "error", err)
		case !installed:
			log.Warn("webhook for shop without session ignored")
			return OutcomeIgnored
		}
	}

	claimed, ok := d.claim(ctx, log, delivery.WebhookID)
	if !ok {
		log.Info("webhook redelivery skipped")
		return OutcomeRedelivered
	}

	var outcome Outcome
	switch delivery.Topic {
	case shopify.TopicAppUninstalled:
		outcome = d.uninstall(ctx, log, delivery)
	case shopify.TopicOrdersCreate:
		outcome = d.orderCreated(ctx, log, delivery)
	default:
		log.Info("compliance webhook acknowledged")
		outcome = OutcomeAcknowledged
	}

	if outcome == OutcomeFailed && claimed != "" {
		if err := d.claimer.Delete(ctx, claimed); err != nil {
			log.Warn("failed to release webhook claim", "error", err)
		}
	}
	return outcome
}

// claim returns the claimed key (empty when dedup is off or failed open) and
// whether processing should continue.
func (d *Dispatcher) claim(ctx context.Context, log logger.Logger, webhookID string) (string, bool) {
	if d.claimer == nil || webhookID == "" {
		return "", true
	}
	key := dedupKeyPrefix + webhookID
	ok, err := d.claimer.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), d.dedupTTL)
	if err != nil {
		log.Warn("webhook dedup unavailable", "error", err)
		if d.recorder != nil {
			d.recorder.RecordDedupError()
		}
		return "", true
	}
	if !ok {
		return "", false
	}
	return key, true
}

func (d *Dispatcher) uninstall(ctx context.Context, log logger.Logger, delivery *shopify.Delivery) Outcome {
	n, err := d.sessions.DeleteByShop(ctx, delivery.Shop)
	if err != nil {
		d.fail(ctx, log, delivery, fmt.Errorf("deleting sessions: %w", err))
		return OutcomeFailed
	}
	log.Info("app uninstalled", "sessions_deleted", n)
	return OutcomeUninstalled
}

func (d *Dispatcher) orderCreated(ctx context.Context, log logger.Logger, delivery *shopify.Delivery) Outcome {
	order, err := attribution.ParseOrder(delivery.Body)
	if err != nil {
		d.fail(ctx, log, delivery, err)
		return OutcomeFailed
	}
	log = log.With(
		"order_id", order.ID,
		"order_name", order.Name,
		"total_price", order.TotalPrice,
		"currency", order.Currency,
	)

	res, err := d.orders.ProcessOrder(ctx, delivery.Shop, order)
	if err != nil {
		d.fail(ctx, log, delivery, fmt.Errorf("processing order %s: %w", order.ID, err))
		return OutcomeFailed
	}

	switch res.Outcome {
	case attribution.OutcomeUnattributed:
		log.Info("order has no capty click id")
		return OutcomeUnattributed
	case attribution.OutcomeDuplicate:
		log.Info("order already attributed", "reference", res.Reference)
		return OutcomeDuplicate
	default:
		log.Info("order attributed",
			"reference", res.Reference,
			"click_id", order.ClickID,
			"user_id", order.UserID,
			"clicked_product", res.ClickedProduct,
			"commission", res.Commission.Amount,
			"month", res.Month,
		)
		if d.recorder != nil {
			d.recorder.RecordCommission(res.Commission.Currency, res.Commission.Amount)
		}
		return OutcomeAttributed
	}
}

func (d *Dispatcher) fail(ctx context.Context, log logger.Logger, delivery *shopify.Delivery, err error) {
	log.Error("webhook processing failed", "error", err)

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("webhook.topic", string(delivery.Topic))
		scope.SetTag("webhook.shop", delivery.Shop)
		scope.SetTag("webhook.id", delivery.WebhookID)
		hub.CaptureException(err)
	})
}

func (d *Dispatcher) record(topic shopify.Topic, outcome string) {
	if d.recorder != nil {
		d.recorder.RecordWebhook(string(topic), outcome)
	}
}
