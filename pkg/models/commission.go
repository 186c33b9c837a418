package models

import "time"

// ReferralRequest holds the query parameters of the referral redirect
type ReferralRequest struct {
	Shop          string `query:"shop" validate:"required,fqdn"`
	ClickID       string `query:"capty_click_id"`
	UserID        string `query:"capty_user_id"`
	ProductHandle string `query:"product" validate:"omitempty,excludesall=/?#"`
	ProductID     string `query:"product_id" validate:"omitempty,excludesall=/?#"`
}

// MonthlyCommissionResponse is one row of the monthly ledger
type MonthlyCommissionResponse struct {
	Month           string     `json:"month"`
	TotalOrders     int        `json:"total_orders"`
	TotalSales      float64    `json:"total_sales"`
	TotalCommission float64    `json:"total_commission"`
	IsPaid          bool       `json:"is_paid"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`
}

// AttributedOrderResponse is an order credited to a Capty referral
type AttributedOrderResponse struct {
	OrderID          string    `json:"order_id"`
	OrderName        string    `json:"order_name"`
	Reference        string    `json:"reference"`
	UserID           string    `json:"user_id"`
	TotalPrice       float64   `json:"total_price"`
	CurrencyCode     string    `json:"currency_code"`
	CommissionAmount float64   `json:"commission_amount"`
	CommissionRate   float64   `json:"commission_rate"`
	OrderStatus      string    `json:"order_status"`
	CommissionPaid   bool      `json:"commission_paid"`
	CreatedAt        time.Time `json:"created_at"`
}

// CommissionFeedResponse is the payload of the commission feed endpoint
type CommissionFeedResponse struct {
	Success             bool                        `json:"success"`
	Shop                string                      `json:"shop"`
	TotalClicks         int                         `json:"total_clicks"`
	TotalCommissionOwed float64                     `json:"total_commission_owed"`
	TotalCommissionPaid float64                     `json:"total_commission_paid"`
	Commissions         []MonthlyCommissionResponse `json:"commissions"`
	RecentOrders        []AttributedOrderResponse   `json:"recent_orders"`
}
