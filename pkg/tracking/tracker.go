// Package tracking carries a referral's click id from the landing URL to the
// cart attributes, which Shopify copies onto the order as note attributes.
// The storefront script public/capty-tracking.js implements the same steps
// in the browser.
package tracking

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Growthvoodoo/Capty-shopify/pkg/logger"
)

// Query parameters, storage keys and cart attribute names
const (
	ParamClickID = "capty_click_id"
	ParamUserID  = "capty_user_id"
)

// AddToCartDelay lets the storefront's own add-to-cart request finish first
const AddToCartDelay = 500 * time.Millisecond

// Attribution is the referral carried through the session
type Attribution struct {
	ClickID string
	UserID  string
}

// Valid reports whether there is a click id to attach
func (a Attribution) Valid() bool {
	return a.ClickID != ""
}

// Tracker runs the capture logic for one browsing session
type Tracker struct {
	storage Storage
	cart    CartUpdater
	log     logger.Logger
	delay   time.Duration

	mu      sync.Mutex
	current Attribution
	pending sync.WaitGroup
}

// NewTracker creates a tracker over storage and cart
func NewTracker(storage Storage, cart CartUpdater, log logger.Logger) *Tracker {
	return &Tracker{
		storage: storage,
		cart:    cart,
		log:     log,
		delay:   AddToCartDelay,
	}
}

// ParseURL extracts the attribution carried by a page URL. Values are
// percent-decoded with '+' read as a space.
func ParseURL(pageURL string) Attribution {
	raw := pageURL
	if u, err := url.Parse(pageURL); err == nil {
		raw = u.RawQuery
	} else if i := strings.IndexByte(pageURL, '?'); i >= 0 {
		raw = pageURL[i+1:]
	}
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		raw = raw[:i]
	}

	// ParseQuery keeps the pairs it could decode
	values, _ := url.ParseQuery(raw)
	return Attribution{
		ClickID: values.Get(ParamClickID),
		UserID:  values.Get(ParamUserID),
	}
}

// Load handles a page view: a click id in the URL is persisted, then the
// attribution is read back with URL values taking precedence. When a click
// id is known the cart is updated in the background.
func (t *Tracker) Load(ctx context.Context, pageURL string) Attribution {
	fromURL := ParseURL(pageURL)
	if fromURL.Valid() {
		t.storage.Set(ParamClickID, fromURL.ClickID)
		t.storage.Set(ParamUserID, fromURL.UserID)
	}

	a := fromURL
	if !a.Valid() {
		a.ClickID, _ = t.storage.Get(ParamClickID)
		a.UserID, _ = t.storage.Get(ParamUserID)
	}

	t.mu.Lock()
	t.current = a
	t.mu.Unlock()

	if !a.Valid() {
		t.log.Debug("no capty click id, cart not tagged", "url", pageURL)
		return a
	}

	t.pending.Add(1)
	go func() {
		defer t.pending.Done()
		t.update(ctx, a)
	}()
	return a
}

// OnAddToCart schedules a cart update after the add-to-cart delay
func (t *Tracker) OnAddToCart(ctx context.Context) {
	a := t.Current()
	if !a.Valid() {
		return
	}

	t.pending.Add(1)
	time.AfterFunc(t.delay, func() {
		defer t.pending.Done()
		t.update(ctx, a)
	})
}

// Current returns the attribution of the last loaded page
func (t *Tracker) Current() Attribution {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Wait blocks until every scheduled cart update has finished
func (t *Tracker) Wait() {
	t.pending.Wait()
}

func (t *Tracker) update(ctx context.Context, a Attribution) {
	if err := t.cart.UpdateAttributes(ctx, a); err != nil {
		t.log.Warn("failed to add capty tracking to cart", "click_id", a.ClickID, "error", err)
		return
	}
	t.log.Debug("capty tracking added to cart", "click_id", a.ClickID)
}
