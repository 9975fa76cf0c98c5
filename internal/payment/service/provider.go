package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/beaujross/beaurocks-karaoke-sub002/internal/config"
	paymentdomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/payment/domain"
)

// Provider is the outbound half of the payment integration: hosted checkout
// and customer-portal sessions. Only the redirect URL matters here.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req paymentdomain.CheckoutSessionRequest) (string, error)
	CreatePortalSession(ctx context.Context, externalCustomerID, returnURL string) (string, error)
}

type httpProvider struct {
	base   string
	client *http.Client
}

// NewHTTPProvider builds the provider client against the configured API base.
func NewHTTPProvider(cfg config.Config) Provider {
	return &httpProvider{
		base:   strings.TrimRight(cfg.PaymentAPIBase, "/"),
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *httpProvider) CreateCheckoutSession(ctx context.Context, req paymentdomain.CheckoutSessionRequest) (string, error) {
	form := url.Values{
		"client_reference_id": {req.OrganizationID.String()},
		"plan":                {req.PlanID},
		"success_url":         {req.SuccessURL},
		"cancel_url":          {req.CancelURL},
	}
	return p.postForSessionURL(ctx, "/v1/checkout/sessions", form)
}

func (p *httpProvider) CreatePortalSession(ctx context.Context, externalCustomerID, returnURL string) (string, error) {
	form := url.Values{
		"customer":   {externalCustomerID},
		"return_url": {returnURL},
	}
	return p.postForSessionURL(ctx, "/v1/billing_portal/sessions", form)
}

func (p *httpProvider) postForSessionURL(ctx context.Context, path string, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.base+path,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("payment provider returned %d", resp.StatusCode)
	}

	var session struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return "", paymentdomain.ErrInvalidPayload
	}
	if session.URL == "" {
		return "", paymentdomain.ErrInvalidPayload
	}
	return session.URL, nil
}
