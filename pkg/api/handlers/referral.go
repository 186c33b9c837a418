package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Growthvoodoo/Capty-shopify/pkg/clicks"
	"github.com/Growthvoodoo/Capty-shopify/pkg/logger"
	"github.com/Growthvoodoo/Capty-shopify/pkg/models"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// ClickRecorder stores referral clicks
type ClickRecorder interface {
	RecordClick(ctx context.Context, click clicks.Click) (bool, error)
}

// ClickMetrics counts redirect outcomes
type ClickMetrics interface {
	RecordClick(outcome string)
}

// ReferralHandler handles the referral redirect
type ReferralHandler struct {
	clicks    ClickRecorder
	metrics   ClickMetrics
	log       logger.Logger
	validator *validator.Validate
	timeout   time.Duration
}

// NewReferralHandler creates a new referral handler. metrics may be nil.
func NewReferralHandler(clicks ClickRecorder, metrics ClickMetrics, log logger.Logger, timeout time.Duration) *ReferralHandler {
	return &ReferralHandler{
		clicks:    clicks,
		metrics:   metrics,
		log:       log,
		validator: validator.New(),
		timeout:   timeout,
	}
}

// Redirect records the click and sends the shopper to the product page
// @Summary Referral redirect
// @Description Record a Capty referral click and redirect to the storefront product page with the tracking parameters
// @Tags Referrals
// @Param shop query string true "Shop domain, e.g. demo.myshopify.com"
// @Param capty_click_id query string false "Click identifier"
// @Param capty_user_id query string false "Capty user identifier"
// @Param product query string false "Product handle"
// @Param product_id query string false "Product ID, used when no handle is given"
// @Success 302
// @Failure 400 {string} string "Missing shop parameter"
// @Router /api/proxy [get]
func (h *ReferralHandler) Redirect(c echo.Context) error {
	var req models.ReferralRequest
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &req); err != nil {
		return c.String(http.StatusBadRequest, "Invalid query parameters")
	}
	req.Shop = strings.ToLower(strings.TrimSpace(req.Shop))

	if req.Shop == "" {
		return c.String(http.StatusBadRequest, "Missing shop parameter")
	}
	if err := h.validator.Struct(req); err != nil {
		h.log.Info("referral rejected", "shop", req.Shop, "error", err)
		return c.String(http.StatusBadRequest, "Invalid referral parameters")
	}

	h.record(c, req)

	return c.Redirect(http.StatusFound, RedirectURL(req))
}

// record stores the click within the timeout, if one is set. Failures never
// block the redirect.
func (h *ReferralHandler) record(c echo.Context, req models.ReferralRequest) {
	ctx := c.Request().Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	outcome := "recorded"
	created, err := h.clicks.RecordClick(ctx, clicks.Click{
		Shop:          req.Shop,
		ClickID:       req.ClickID,
		UserID:        req.UserID,
		ProductID:     req.ProductID,
		ProductHandle: req.ProductHandle,
		IPAddress:     ClientIP(c),
		UserAgent:     c.Request().UserAgent(),
	})
	switch {
	case err != nil:
		outcome = "error"
		h.log.Error("failed to record click", "shop", req.Shop, "click_id", req.ClickID, "error", err)
	case req.ClickID == "":
		outcome = "skipped"
	case !created:
		outcome = "duplicate"
	}

	if h.metrics != nil {
		h.metrics.RecordClick(outcome)
	}
}

// RedirectURL builds the storefront URL for a referral. The product handle
// wins over the product id, and the tracking parameters are only added when
// a click id is present.
func RedirectURL(req models.ReferralRequest) string {
	u := url.URL{Scheme: "https", Host: req.Shop}

	switch {
	case req.ProductHandle != "":
		u.Path = "/products/" + req.ProductHandle
	case req.ProductID != "":
		u.Path = "/products/" + req.ProductID
	}

	if req.ClickID != "" {
		q := url.Values{}
		q.Set("capty_click_id", req.ClickID)
		if req.UserID != "" {
			q.Set("capty_user_id", req.UserID)
		}
		u.RawQuery = q.Encode()
	}

	return u.String()
}

// ClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the
// connection address.
func ClientIP(c echo.Context) string {
	if fwd := c.Request().Header.Get(echo.HeaderXForwardedFor); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(c.Request().Header.Get(echo.HeaderXRealIP)); ip != "" {
		return ip
	}
	return c.RealIP()
}
