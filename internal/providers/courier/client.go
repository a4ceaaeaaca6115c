// Package courier wraps the regional courier's REST API: shipment listing
// and creation, wilaya reference data, and credential validation.
package courier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tijara-apps/tijara/internal/providers"
	"github.com/tijara-apps/tijara/internal/window"
)

const providerName = "courier"

const callTimeout = 30 * time.Second

// Client talks to the courier REST API. Credentials are submitted per call
// in the token/key headers the courier expects.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	observer   providers.CallObserver
}

// NewClient constructs a courier client.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: callTimeout},
		logger:     logger,
	}
}

// SetObserver attaches a call counter. Every executed HTTP call reports one
// outcome, including the attempts inside a retry loop.
func (c *Client) SetObserver(o providers.CallObserver) {
	c.observer = o
}

// ListShipments returns every shipment created inside the window.
func (c *Client) ListShipments(ctx context.Context, creds Credentials, win window.Window) ([]Shipment, error) {
	var shipments []Shipment
	err := providers.Do(ctx, c.logger, func(ctx context.Context) error {
		query := url.Values{}
		query.Set("date_from", win.Since)
		query.Set("date_to", win.Until)

		var parsed shipmentsResponse
		if err := c.do(ctx, http.MethodGet, "/api/v1/get/colis?"+query.Encode(), creds, nil, &parsed); err != nil {
			return err
		}
		shipments = shipments[:0]
		for _, row := range parsed.Data {
			shipments = append(shipments, mapShipment(c.logger, row))
		}
		return nil
	})
	return shipments, err
}

// CreateShipment registers a new parcel and returns its tracking id.
func (c *Client) CreateShipment(ctx context.Context, creds Credentials, payload ShipmentRequest) (string, error) {
	var tracking string
	err := providers.Do(ctx, c.logger, func(ctx context.Context) error {
		var parsed createShipmentResponse
		if err := c.do(ctx, http.MethodPost, "/api/v1/create/colis", creds, payload, &parsed); err != nil {
			return err
		}
		if parsed.Tracking == "" {
			return providers.NewError(providerName, providers.KindBadResponse, "tracking missing in response", nil)
		}
		tracking = parsed.Tracking
		return nil
	})
	return tracking, err
}

// ListWilayas returns the province/fee reference table. The endpoint is
// public; no credentials are required.
func (c *Client) ListWilayas(ctx context.Context) ([]Wilaya, error) {
	var wilayas []Wilaya
	err := providers.Do(ctx, c.logger, func(ctx context.Context) error {
		var rows []wilayaRow
		if err := c.do(ctx, http.MethodGet, "/api/v1/get/wilayas", Credentials{}, nil, &rows); err != nil {
			return err
		}
		wilayas = wilayas[:0]
		for _, row := range rows {
			wilayas = append(wilayas, Wilaya{
				ID:          row.ID,
				Name:        row.Name,
				DeliveryFee: parseAmount(row.DeliveryFee),
				CancelFee:   parseAmount(row.CancelFee),
			})
		}
		return nil
	})
	return wilayas, err
}

// ValidateCredentials checks a token/key pair against the courier before it
// is stored.
func (c *Client) ValidateCredentials(ctx context.Context, token, key string) error {
	return providers.Do(ctx, c.logger, func(ctx context.Context) error {
		var parsed map[string]any
		return c.do(ctx, http.MethodGet, "/api/v1/get/fees", Credentials{Token: token, Key: key}, nil, &parsed)
	})
}

func (c *Client) do(ctx context.Context, method, path string, creds Credentials, payload, target any) (err error) {
	defer func() { providers.Observe(c.observer, providerName, err) }()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return providers.NewError(providerName, providers.KindInvalidInput, "marshal payload", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return providers.NewError(providerName, providers.KindNetwork, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if creds.Token != "" {
		req.Header.Set("token", creds.Token)
		req.Header.Set("key", creds.Key)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return providers.NewError(providerName, providers.KindNetwork, "execute request", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return providers.NewError(providerName, providers.KindAuthExpired, "credentials rejected", nil)
	case resp.StatusCode == http.StatusNotFound:
		return providers.NewError(providerName, providers.KindNotFound, "resource not found", nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		pe := providers.NewError(providerName, providers.KindRateLimited, "throttled", nil)
		if secs, err := strconv.ParseFloat(resp.Header.Get("Retry-After"), 64); err == nil && secs > 0 {
			pe.RetryAfter = time.Duration(secs * float64(time.Second))
		}
		return pe
	case resp.StatusCode >= 500:
		return providers.NewError(providerName, providers.KindBadResponse, fmt.Sprintf("status %d", resp.StatusCode), nil)
	case resp.StatusCode >= 400:
		return providers.NewError(providerName, providers.KindInvalidInput, fmt.Sprintf("status %d", resp.StatusCode), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return providers.NewError(providerName, providers.KindBadResponse, "decode response", err)
	}
	return nil
}

func mapShipment(logger *slog.Logger, row shipmentRow) Shipment {
	shipment := Shipment{
		Tracking:     row.Tracking,
		StatusID:     row.StatusID,
		TotalRevenue: parseAmount(row.TotalRevenue),
		ShippingFee:  parseAmount(row.ShippingFee),
		CancelFee:    parseAmount(row.CancelFee),
		OrderRef:     row.OrderRef,
	}
	if row.CreatedAt != "" {
		if t, err := time.Parse("2006-01-02 15:04:05", row.CreatedAt); err == nil {
			shipment.CreatedAt = t
		} else if logger != nil {
			logger.Warn("shipment date unparsable", slog.String("tracking", row.Tracking), slog.String("value", row.CreatedAt))
		}
	}
	return shipment
}

func parseAmount(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
