package attribution

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Growthvoodoo/Capty-shopify/pkg/clicks"
	"github.com/Growthvoodoo/Capty-shopify/pkg/commission"
)

// Note attribute names written to the cart by the tracking script
const (
	AttrClickID = "capty_click_id"
	AttrUserID  = "capty_user_id"
)

// Column sizes of attributed_orders
const (
	maxOrderID     = 64
	maxOrderName   = 255
	maxOrderStatus = 64
)

// ErrInvalidOrder is returned when an order payload cannot be used at all
var ErrInvalidOrder = errors.New("invalid order payload")

// Order is the part of a Shopify order payload used for attribution
type Order struct {
	ID              string
	Name            string
	TotalPrice      float64
	Currency        string
	FinancialStatus string
	ClickID         string
	UserID          string
}

// Attributed reports whether the order carries a Capty click id
func (o Order) Attributed() bool {
	return o.ClickID != ""
}

type orderPayload struct {
	ID              json.RawMessage `json:"id"`
	Name            string          `json:"name"`
	TotalPrice      json.RawMessage `json:"total_price"`
	Currency        string          `json:"currency"`
	FinancialStatus string          `json:"financial_status"`
	NoteAttributes  json.RawMessage `json:"note_attributes"`
}

type noteAttribute struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

// ParseOrder decodes an orders/create payload. Malformed note attributes
// leave the order unattributed; a missing id or unreadable total is an error.
func ParseOrder(payload []byte) (Order, error) {
	var p orderPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return Order{}, fmt.Errorf("%w: %v", ErrInvalidOrder, err)
	}

	id, err := scalar(p.ID)
	if err != nil || id == "" {
		return Order{}, fmt.Errorf("%w: missing order id", ErrInvalidOrder)
	}
	if len(id) > maxOrderID {
		return Order{}, fmt.Errorf("%w: order id longer than %d bytes", ErrInvalidOrder, maxOrderID)
	}

	var total float64
	raw, err := scalar(p.TotalPrice)
	if err != nil {
		return Order{}, fmt.Errorf("%w: total_price: %v", ErrInvalidOrder, err)
	}
	if raw != "" {
		total, err = commission.ParseAmount(raw)
		if err != nil {
			return Order{}, fmt.Errorf("%w: %v", ErrInvalidOrder, err)
		}
	}

	status := p.FinancialStatus
	if status == "" {
		status = "pending"
	}

	attrs := noteAttributes(p.NoteAttributes)
	return Order{
		ID:              id,
		Name:            p.Name,
		TotalPrice:      total,
		Currency:        p.Currency,
		FinancialStatus: status,
		ClickID:         attrs[AttrClickID],
		UserID:          attrs[AttrUserID],
	}.normalized(), nil
}

// normalized clamps the fields to their column sizes. Click and user ids go
// through clicks.NormalizeID so they match the stored click.
func (o Order) normalized() Order {
	o.Name = clicks.Truncate(o.Name, maxOrderName)
	o.Currency = commission.NormalizeCurrency(o.Currency)
	o.FinancialStatus = clicks.Truncate(o.FinancialStatus, maxOrderStatus)
	o.ClickID = clicks.NormalizeID(o.ClickID)
	o.UserID = clicks.NormalizeID(o.UserID)
	return o
}

// noteAttributes returns the string attributes of the list, first value
// winning. Anything that is not a list of {name, value} yields nothing.
func noteAttributes(raw json.RawMessage) map[string]string {
	out := map[string]string{}
	if len(raw) == 0 {
		return out
	}
	var list []noteAttribute
	if err := json.Unmarshal(raw, &list); err != nil {
		return out
	}
	for _, a := range list {
		if a.Name == "" {
			continue
		}
		if _, seen := out[a.Name]; seen {
			continue
		}
		v, err := scalar(a.Value)
		if err != nil {
			continue
		}
		if v = strings.TrimSpace(v); v != "" {
			out[a.Name] = v
		}
	}
	return out
}

// scalar renders a JSON string or number as a string. null and absent values
// are empty.
func scalar(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", err
		}
		if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
			return "", err
		}
		return n.String(), nil
	}
}
