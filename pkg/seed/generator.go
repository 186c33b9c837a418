// Package seed generates realistic referral clicks and Shopify order payloads
// for demos, load checks and tests.
package seed

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Growthvoodoo/Capty-shopify/pkg/clicks"
	"github.com/brianvoe/gofakeit/v6"
)

// Generator produces realistic clicks and Shopify order payloads
type Generator struct {
	faker   *gofakeit.Faker
	orderID int64
}

// NewGenerator creates a generator. The same seed yields the same data; 0
// picks a random seed.
func NewGenerator(seed int64) *Generator {
	return &Generator{
		faker:   gofakeit.New(seed),
		orderID: 5500000000,
	}
}

// Click returns a click for shop with a fresh click id
func (g *Generator) Click(shop string) clicks.Click {
	name := g.faker.ProductName()
	return clicks.Click{
		Shop:          shop,
		ClickID:       g.faker.UUID(),
		UserID:        "user_" + g.faker.Username(),
		ProductHandle: handleize(name),
		IPAddress:     g.faker.IPv4Address(),
		UserAgent:     g.faker.UserAgent(),
	}
}

type noteAttribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type orderPayload struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Email           string          `json:"email"`
	TotalPrice      string          `json:"total_price"`
	Currency        string          `json:"currency"`
	FinancialStatus string          `json:"financial_status"`
	NoteAttributes  []noteAttribute `json:"note_attributes"`
}

// OrderPayload returns an orders/create body. With an empty clickID the
// order carries no Capty attributes.
func (g *Generator) OrderPayload(clickID, userID string) []byte {
	g.orderID++
	p := orderPayload{
		ID:              g.orderID,
		Name:            fmt.Sprintf("#%d", 1000+g.orderID%100000),
		Email:           g.faker.Email(),
		TotalPrice:      fmt.Sprintf("%.2f", g.faker.Price(15, 400)),
		Currency:        "USD",
		FinancialStatus: g.faker.RandomString([]string{"paid", "pending", "authorized"}),
		NoteAttributes:  []noteAttribute{},
	}
	if clickID != "" {
		p.NoteAttributes = append(p.NoteAttributes,
			noteAttribute{Name: "capty_click_id", Value: clickID},
			noteAttribute{Name: "capty_user_id", Value: userID},
		)
	}

	body, _ := json.Marshal(p)
	return body
}

// Chance returns true with probability p
func (g *Generator) Chance(p float64) bool {
	return g.faker.Float64Range(0, 1) < p
}

// handleize turns a product title into a Shopify-style handle
func handleize(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}
