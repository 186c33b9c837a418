package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	apierrors "github.com/Growthvoodoo/Capty-shopify/pkg/api/errors"
	"github.com/Growthvoodoo/Capty-shopify/pkg/attribution"
	"github.com/Growthvoodoo/Capty-shopify/pkg/export"
	"github.com/Growthvoodoo/Capty-shopify/pkg/ledger"
	"github.com/Growthvoodoo/Capty-shopify/pkg/models"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

const exportOrderLimit = 10000

// LedgerReader lists monthly commission rows
type LedgerReader interface {
	ListByShop(ctx context.Context, shop string) ([]ledger.Monthly, error)
}

// OrderLister lists attributed orders
type OrderLister interface {
	ListRecent(ctx context.Context, shop string, limit int) ([]attribution.AttributedOrder, error)
}

// ClickCounter counts recorded clicks
type ClickCounter interface {
	CountByShop(ctx context.Context, shop string) (int, error)
}

// CommissionHandler serves the commission feed
type CommissionHandler struct {
	ledger    LedgerReader
	orders    OrderLister
	clicks    ClickCounter
	validator *validator.Validate
}

// NewCommissionHandler creates a new commission handler
func NewCommissionHandler(ledger LedgerReader, orders OrderLister, clicks ClickCounter) *CommissionHandler {
	return &CommissionHandler{
		ledger:    ledger,
		orders:    orders,
		clicks:    clicks,
		validator: validator.New(),
	}
}

// shop reads the shop query parameter. When it returns false the error
// response has already been written.
func (h *CommissionHandler) shop(c echo.Context) (string, bool, error) {
	shop := strings.ToLower(strings.TrimSpace(c.QueryParam("shop")))
	if shop == "" {
		return "", false, apierrors.BadRequestError(c, "missing_shop", "Missing shop parameter")
	}
	if err := h.validator.Var(shop, "fqdn"); err != nil {
		return "", false, apierrors.BadRequestError(c, "invalid_shop", "Invalid shop parameter")
	}
	return shop, true, nil
}

// GetCommissions returns the ledger and recent orders of a shop
// @Summary Commission feed
// @Description Monthly commission ledger, owed and paid totals and the 50 most recent attributed orders of a shop
// @Tags Commissions
// @Produce json
// @Param shop query string true "Shop domain"
// @Param x-capty-api-key header string true "Capty API key"
// @Success 200 {object} models.CommissionFeedResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/commissions [get]
func (h *CommissionHandler) GetCommissions(c echo.Context) error {
	shop, ok, err := h.shop(c)
	if !ok {
		return err
	}
	ctx := c.Request().Context()

	months, err := h.ledger.ListByShop(ctx, shop)
	if err != nil {
		return apierrors.DatabaseError(c, err)
	}
	orders, err := h.orders.ListRecent(ctx, shop, attribution.DefaultRecentLimit)
	if err != nil {
		return apierrors.DatabaseError(c, err)
	}
	clicks, err := h.clicks.CountByShop(ctx, shop)
	if err != nil {
		return apierrors.DatabaseError(c, err)
	}

	sum := ledger.Summarize(months)
	resp := models.CommissionFeedResponse{
		Success:             true,
		Shop:                shop,
		TotalClicks:         clicks,
		TotalCommissionOwed: sum.Owed,
		TotalCommissionPaid: sum.Paid,
		Commissions:         make([]models.MonthlyCommissionResponse, 0, len(months)),
		RecentOrders:        make([]models.AttributedOrderResponse, 0, len(orders)),
	}
	for _, m := range months {
		resp.Commissions = append(resp.Commissions, models.MonthlyCommissionResponse{
			Month:           m.Month,
			TotalOrders:     m.TotalOrders,
			TotalSales:      m.TotalSales,
			TotalCommission: m.TotalCommission,
			IsPaid:          m.IsPaid,
			PaidAt:          m.PaidAt,
		})
	}
	for _, o := range orders {
		resp.RecentOrders = append(resp.RecentOrders, models.AttributedOrderResponse{
			OrderID:          o.OrderID,
			OrderName:        o.OrderName,
			Reference:        o.Reference(),
			UserID:           o.UserID,
			TotalPrice:       o.TotalPrice,
			CurrencyCode:     o.CurrencyCode,
			CommissionAmount: o.CommissionAmount,
			CommissionRate:   o.CommissionRate,
			OrderStatus:      o.OrderStatus,
			CommissionPaid:   o.CommissionPaid,
			CreatedAt:        o.CreatedAt,
		})
	}

	return c.JSON(http.StatusOK, resp)
}

// ExportCommissions returns the commission statement as an Excel workbook
// @Summary Commission statement
// @Description Excel workbook with the monthly ledger and the attributed orders of a shop
// @Tags Commissions
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param shop query string true "Shop domain"
// @Param x-capty-api-key header string true "Capty API key"
// @Success 200 {file} file
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/commissions/export [get]
func (h *CommissionHandler) ExportCommissions(c echo.Context) error {
	shop, ok, err := h.shop(c)
	if !ok {
		return err
	}
	ctx := c.Request().Context()

	months, err := h.ledger.ListByShop(ctx, shop)
	if err != nil {
		return apierrors.DatabaseError(c, err)
	}
	orders, err := h.orders.ListRecent(ctx, shop, exportOrderLimit)
	if err != nil {
		return apierrors.DatabaseError(c, err)
	}

	buf, err := export.CommissionStatement(shop, months, orders)
	if err != nil {
		return apierrors.InternalError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="capty-commissions-%s.xlsx"`, shop))
	return c.Blob(http.StatusOK, export.ContentType, buf.Bytes())
}
