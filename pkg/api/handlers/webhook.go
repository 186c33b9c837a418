package handlers

import (
	"context"
	"errors"
	"net/http"

	apierrors "github.com/Growthvoodoo/Capty-shopify/pkg/api/errors"
	"github.com/Growthvoodoo/Capty-shopify/pkg/logger"
	"github.com/Growthvoodoo/Capty-shopify/pkg/models"
	"github.com/Growthvoodoo/Capty-shopify/pkg/shopify"
	"github.com/Growthvoodoo/Capty-shopify/pkg/webhook"
	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
)

// Dispatcher handles verified deliveries
type Dispatcher interface {
	Dispatch(ctx context.Context, d *shopify.Delivery) (webhook.Outcome, error)
}

// WebhookHandler handles Shopify webhook intake
type WebhookHandler struct {
	dispatcher Dispatcher
	secret     string
	log        logger.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(dispatcher Dispatcher, secret string, log logger.Logger) *WebhookHandler {
	return &WebhookHandler{dispatcher: dispatcher, secret: secret, log: log}
}

// HandleWebhook verifies and dispatches a Shopify webhook
// @Summary Shopify webhook
// @Description Receive Shopify webhooks (orders/create, app/uninstalled and the compliance topics)
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param X-Shopify-Hmac-Sha256 header string true "Webhook signature"
// @Param X-Shopify-Topic header string true "Webhook topic"
// @Param X-Shopify-Shop-Domain header string true "Shop domain"
// @Success 200 {object} models.SuccessResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {string} string "Unhandled webhook topic"
// @Router /webhooks [post]
func (h *WebhookHandler) HandleWebhook(c echo.Context) error {
	delivery, err := shopify.ParseDelivery(c.Request(), h.secret)
	switch {
	case errors.Is(err, shopify.ErrInvalidSignature):
		return apierrors.UnauthorizedError(c, "invalid webhook signature")
	case errors.Is(err, shopify.ErrMissingTopic):
		return c.String(http.StatusNotFound, "Unhandled webhook topic")
	case err != nil:
		return apierrors.ValidationError(c, err)
	}

	ctx := c.Request().Context()
	if hub := sentryecho.GetHubFromContext(c); hub != nil {
		ctx = sentry.SetHubOnContext(ctx, hub)
	}

	outcome, err := h.dispatcher.Dispatch(ctx, delivery)
	if errors.Is(err, webhook.ErrUnhandledTopic) {
		return c.String(http.StatusNotFound, "Unhandled webhook topic")
	}
	if err != nil {
		h.log.Error("webhook dispatch error", "shop", delivery.Shop, "topic", string(delivery.Topic), "error", err)
	}

	return c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Message: string(outcome),
	})
}
