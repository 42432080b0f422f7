package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/Skotchmaster/storefront/internal/httpclient"
)

type PayPalConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	WebhookID    string
}

// PayPal is a Processor backed by the PayPal Orders v2 REST API.
type PayPal struct {
	base      string
	webhookID string
	http      *httpclient.Client
}

func NewPayPal(cfg PayPalConfig, logger *slog.Logger) *PayPal {
	base := strings.TrimRight(cfg.BaseURL, "/")
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     base + "/v1/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: 10 * time.Second})
	hc := cc.Client(tokenCtx)
	hc.Timeout = 15 * time.Second

	return &PayPal{
		base:      base,
		webhookID: cfg.WebhookID,
		http:      httpclient.New(httpclient.DefaultBreakerConfig("paypal"), hc, logger),
	}
}

type ppAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type ppLink struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

type ppCapture struct {
	ID     string   `json:"id"`
	Status string   `json:"status"`
	Amount ppAmount `json:"amount"`
}

type ppOrder struct {
	ID            string   `json:"id"`
	Status        string   `json:"status"`
	Links         []ppLink `json:"links"`
	PurchaseUnits []struct {
		ReferenceID string   `json:"reference_id"`
		Amount      ppAmount `json:"amount"`
		Payments    struct {
			Captures []ppCapture `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
	Payer struct {
		EmailAddress string `json:"email_address"`
		Name         struct {
			GivenName string `json:"given_name"`
			Surname   string `json:"surname"`
		} `json:"name"`
	} `json:"payer"`
}

func (o *ppOrder) toOrder() (*Order, error) {
	out := &Order{
		ID:         o.ID,
		Status:     o.Status,
		PayerEmail: o.Payer.EmailAddress,
		PayerName:  strings.TrimSpace(o.Payer.Name.GivenName + " " + o.Payer.Name.Surname),
	}
	for _, l := range o.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			out.ApprovalURL = l.Href
		}
	}
	if len(o.PurchaseUnits) > 0 {
		pu := o.PurchaseUnits[0]
		if pu.Amount.Value != "" {
			v, err := decimal.NewFromString(pu.Amount.Value)
			if err != nil {
				return nil, fmt.Errorf("parse amount %q: %w", pu.Amount.Value, err)
			}
			out.Amount = v
			out.Currency = pu.Amount.CurrencyCode
		}
		if len(pu.Payments.Captures) > 0 {
			c, err := o.toCapture()
			if err != nil {
				return nil, err
			}
			out.CaptureID = c.CaptureID
			out.CaptureStatus = c.Status
			out.CaptureAmount = c.Amount
			out.CaptureCurrency = c.Currency
		}
	}
	return out, nil
}

func (o *ppOrder) toCapture() (*Capture, error) {
	if len(o.PurchaseUnits) == 0 || len(o.PurchaseUnits[0].Payments.Captures) == 0 {
		return nil, errors.New("paypal response carries no capture")
	}
	c := o.PurchaseUnits[0].Payments.Captures[0]
	v, err := decimal.NewFromString(c.Amount.Value)
	if err != nil {
		return nil, fmt.Errorf("parse capture amount %q: %w", c.Amount.Value, err)
	}
	return &Capture{
		OrderID:    o.ID,
		CaptureID:  c.ID,
		Status:     c.Status,
		Amount:     v,
		Currency:   c.Amount.CurrencyCode,
		PayerEmail: o.Payer.EmailAddress,
	}, nil
}

func (p *PayPal) send(ctx context.Context, method, path, requestID string, body any, out any) error {
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.base+path, rdr)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")
	if requestID != "" {
		req.Header.Set("PayPal-Request-Id", requestID)
	}

	resp, err := p.http.Do(ctx, req)
	if err != nil {
		return err
	}
	if out != nil {
		if err := json.Unmarshal(resp.Body, out); err != nil {
			return fmt.Errorf("decode paypal response: %w", err)
		}
	}
	return nil
}

func (p *PayPal) CreateOrder(ctx context.Context, r CreateOrderRequest) (*Order, error) {
	body := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"reference_id": r.ReferenceID,
			"custom_id":    r.IdempotencyKey,
			"amount":       ppAmount{CurrencyCode: r.Currency, Value: r.Amount.StringFixed(2)},
		}},
	}
	var out ppOrder
	if err := p.send(ctx, http.MethodPost, "/v2/checkout/orders", r.IdempotencyKey, body, &out); err != nil {
		return nil, fmt.Errorf("paypal create order: %w", err)
	}
	return out.toOrder()
}

func (p *PayPal) CaptureOrder(ctx context.Context, orderID, idempotencyKey string) (*Capture, error) {
	var out ppOrder
	err := p.send(ctx, http.MethodPost, "/v2/checkout/orders/"+url.PathEscape(orderID)+"/capture", "capture-"+idempotencyKey, map[string]any{}, &out)
	if err != nil {
		var se *httpclient.StatusError
		if errors.As(err, &se) && se.Code == http.StatusUnprocessableEntity && strings.Contains(se.Body, "ORDER_ALREADY_CAPTURED") {
			if err := p.send(ctx, http.MethodGet, "/v2/checkout/orders/"+url.PathEscape(orderID), "", nil, &out); err != nil {
				return nil, fmt.Errorf("paypal get captured order: %w", err)
			}
			return out.toCapture()
		}
		return nil, fmt.Errorf("paypal capture order: %w", err)
	}
	return out.toCapture()
}

func (p *PayPal) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	var out ppOrder
	if err := p.send(ctx, http.MethodGet, "/v2/checkout/orders/"+url.PathEscape(orderID), "", nil, &out); err != nil {
		return nil, fmt.Errorf("paypal get order: %w", err)
	}
	return out.toOrder()
}

func (p *PayPal) VerifyWebhook(ctx context.Context, h http.Header, body []byte) (*WebhookEvent, error) {
	ev, err := DecodeWebhookEvent(body)
	if err != nil {
		return nil, err
	}

	req := map[string]any{
		"auth_algo":         h.Get("PAYPAL-AUTH-ALGO"),
		"cert_url":          h.Get("PAYPAL-CERT-URL"),
		"transmission_id":   h.Get("PAYPAL-TRANSMISSION-ID"),
		"transmission_sig":  h.Get("PAYPAL-TRANSMISSION-SIG"),
		"transmission_time": h.Get("PAYPAL-TRANSMISSION-TIME"),
		"webhook_id":        p.webhookID,
		"webhook_event":     json.RawMessage(body),
	}
	var out struct {
		VerificationStatus string `json:"verification_status"`
	}
	if err := p.send(ctx, http.MethodPost, "/v1/notifications/verify-webhook-signature", "", req, &out); err != nil {
		return nil, fmt.Errorf("paypal verify webhook: %w", err)
	}
	if out.VerificationStatus != "SUCCESS" {
		return nil, fmt.Errorf("%w: webhook signature %s", ErrNotVerified, out.VerificationStatus)
	}
	return ev, nil
}
