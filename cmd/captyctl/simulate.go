package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Growthvoodoo/Capty-shopify/config"
	"github.com/Growthvoodoo/Capty-shopify/pkg/tracking"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type simulateOptions struct {
	shop     string
	product  string
	appURL   string
	storeURL string
	userID   string
	clickID  string
}

// recordingCart keeps the outcome of every cart update the tracker makes
type recordingCart struct {
	next tracking.CartUpdater

	mu   sync.Mutex
	sent int
	errs []error
}

func (r *recordingCart) UpdateAttributes(ctx context.Context, a tracking.Attribution) error {
	err := r.next.UpdateAttributes(ctx, a)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent++
	if err != nil {
		r.errs = append(r.errs, err)
	}
	return err
}

func simulateCmd(opts *globalOptions, cfg *config.Config) *cobra.Command {
	so := &simulateOptions{}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Follow a referral link and tag a storefront cart like a shopper would",
		Long: `Request the referral redirect of the app, then run the storefront tracking
steps against the cart of the landing shop: store the click id from the
landing URL, write it to the cart attributes on page load and again after an
add-to-cart.

Examples:
  captyctl simulate --shop demo.myshopify.com --product blue-shirt
  captyctl simulate --shop demo.myshopify.com --app-url http://localhost:3000 --store-url http://localhost:9292`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd, opts, so)
		},
	}

	cmd.Flags().StringVar(&so.shop, "shop", "", "shop domain")
	cmd.Flags().StringVar(&so.product, "product", "", "product handle to land on")
	cmd.Flags().StringVar(&so.appURL, "app-url", cfg.AppURL, "base URL of the Capty app")
	cmd.Flags().StringVar(&so.storeURL, "store-url", "", "storefront base URL (default https://<shop>)")
	cmd.Flags().StringVar(&so.userID, "user-id", "", "Capty user id (default a generated one)")
	cmd.Flags().StringVar(&so.clickID, "click-id", "", "click id (default a new UUID)")
	cmd.MarkFlagRequired("shop")
	return cmd
}

func runSimulate(cmd *cobra.Command, opts *globalOptions, so *simulateOptions) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	out := cmd.OutOrStdout()

	if so.clickID == "" {
		so.clickID = uuid.NewString()
	}
	if so.userID == "" {
		so.userID = "qa_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	}
	if so.storeURL == "" {
		so.storeURL = "https://" + so.shop
	}

	referral, err := referralURL(so)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Referral link: %s\n", referral)

	cart, err := tracking.NewCartClient(so.storeURL)
	if err != nil {
		return err
	}

	landing, err := followReferral(ctx, cart.HTTPClient(), referral)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Landing page:  %s\n", landing)

	recorder := &recordingCart{next: cart}
	tracker := tracking.NewTracker(tracking.NewMemoryStorage(), recorder, opts.logger(cmd))

	a := tracker.Load(ctx, landing)
	if !a.Valid() {
		return fmt.Errorf("landing page carries no %s", tracking.ParamClickID)
	}
	tracker.OnAddToCart(ctx)
	tracker.Wait()

	fmt.Fprintf(out, "Click id:      %s\n", a.ClickID)
	fmt.Fprintf(out, "User id:       %s\n", a.UserID)
	fmt.Fprintf(out, "Cart updates:  %d sent, %d failed\n", recorder.sent, len(recorder.errs))
	if len(recorder.errs) > 0 {
		return fmt.Errorf("cart update failed: %w", recorder.errs[0])
	}
	return nil
}

func referralURL(so *simulateOptions) (string, error) {
	base, err := url.Parse(strings.TrimRight(so.appURL, "/"))
	if err != nil || base.Host == "" {
		return "", fmt.Errorf("invalid app URL %q", so.appURL)
	}

	q := url.Values{}
	q.Set("shop", so.shop)
	q.Set("capty_click_id", so.clickID)
	q.Set("capty_user_id", so.userID)
	if so.product != "" {
		q.Set("product", so.product)
	}

	u := base.JoinPath("api", "proxy")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// followReferral returns the Location of the referral redirect without
// following it, the landing shop may not be reachable from here.
func followReferral(ctx context.Context, client *http.Client, referral string) (string, error) {
	noFollow := *client
	noFollow.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, referral, nil)
	if err != nil {
		return "", err
	}
	resp, err := noFollow.Do(req)
	if err != nil {
		return "", fmt.Errorf("referral request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("referral returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	location := resp.Header.Get("Location")
	if location == "" {
		return "", fmt.Errorf("referral redirect has no Location")
	}
	return location, nil
}
