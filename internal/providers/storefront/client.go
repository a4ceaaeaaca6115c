// Package storefront wraps the storefront platform's admin GraphQL API:
// order listing over a date window and variant unit-cost updates.
package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/tijara-apps/tijara/internal/providers"
	"github.com/tijara-apps/tijara/internal/window"
)

const providerName = "orders"

// pageDelay keeps sequential pagination under the platform's burst ceiling.
const pageDelay = 250 * time.Millisecond

const callTimeout = 30 * time.Second

// Client talks to the platform's per-shop admin GraphQL endpoints.
type Client struct {
	baseURL    string
	apiVersion string
	httpClient *http.Client
	logger     *slog.Logger
	observer   providers.CallObserver
}

// NewClient constructs a client. baseURL overrides the per-shop endpoint
// when set (tests, local gateways); production leaves it empty and the
// client derives the endpoint from the shop domain.
func NewClient(baseURL, apiVersion string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		apiVersion: apiVersion,
		httpClient: &http.Client{Timeout: callTimeout},
		logger:     logger,
	}
}

// SetObserver attaches a call counter. Every executed HTTP call reports one
// outcome, including the attempts inside a retry loop.
func (c *Client) SetObserver(o providers.CallObserver) {
	c.observer = o
}

func (c *Client) endpoint(shop string) string {
	base := c.baseURL
	if base == "" {
		base = "https://" + shop
	}
	return fmt.Sprintf("%s/admin/api/%s/graphql.json", base, c.apiVersion)
}

const listOrdersQuery = `
query listOrders($first: Int!, $after: String, $query: String!) {
  orders(first: $first, after: $after, query: $query, sortKey: CREATED_AT, reverse: true) {
    edges {
      cursor
      node {
        id
        name
        createdAt
        currentTotalPriceSet { shopMoney { amount currencyCode } }
        lineItems(first: 100) {
          edges {
            node {
              title
              quantity
              originalUnitPriceSet { shopMoney { amount } }
              product { id }
              variant {
                id
                inventoryItem { id unitCost { amount } }
              }
            }
          }
        }
      }
    }
    pageInfo { hasNextPage endCursor }
  }
}`

// ListOrders fetches one page of orders created inside the window, newest
// first. pageSize is capped at 50.
func (c *Client) ListOrders(ctx context.Context, shop, token string, win window.Window, cursor string, pageSize int) (OrdersPage, error) {
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	variables := map[string]any{
		"first": pageSize,
		"query": fmt.Sprintf("created_at:>=%s created_at:<=%s", win.Since, win.Until),
	}
	if cursor != "" {
		variables["after"] = cursor
	}

	var page OrdersPage
	err := providers.Do(ctx, c.logger, func(ctx context.Context) error {
		data, err := c.execute(ctx, shop, token, gqlRequest{Query: listOrdersQuery, Variables: variables})
		if err != nil {
			return err
		}
		if data.Orders == nil {
			c.logger.Warn("orders response missing orders connection, degrading to empty")
			page = OrdersPage{}
			return nil
		}
		page = mapOrdersPage(c.logger, data.Orders)
		return nil
	})
	return page, err
}

// ListAllOrders paginates through every order in the window, sleeping between
// pages to respect the platform's burst limits.
func (c *Client) ListAllOrders(ctx context.Context, shop, token string, win window.Window) ([]Order, error) {
	var all []Order
	cursor := ""
	for {
		page, err := c.ListOrders(ctx, shop, token, win, cursor, maxPageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Nodes...)
		if page.NextCursor == "" {
			return all, nil
		}
		cursor = page.NextCursor

		timer := time.NewTimer(pageDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, providers.NewError(providerName, providers.KindNetwork, "pagination cancelled", ctx.Err())
		case <-timer.C:
		}
	}
}

const getOrderQuery = `
query getOrder($id: ID!) {
  order(id: $id) {
    id
    name
    createdAt
    currentTotalPriceSet { shopMoney { amount currencyCode } }
    lineItems(first: 100) {
      edges {
        node {
          title
          quantity
          originalUnitPriceSet { shopMoney { amount } }
          product { id }
          variant {
            id
            inventoryItem { id unitCost { amount } }
          }
        }
      }
    }
  }
}`

// GetOrder fetches a single order by its platform id.
func (c *Client) GetOrder(ctx context.Context, shop, token, orderID string) (Order, error) {
	var order Order
	err := providers.Do(ctx, c.logger, func(ctx context.Context) error {
		data, err := c.execute(ctx, shop, token, gqlRequest{Query: getOrderQuery, Variables: map[string]any{"id": orderID}})
		if err != nil {
			return err
		}
		if data.Order == nil {
			return providers.NewError(providerName, providers.KindNotFound, "order "+orderID+" not found", nil)
		}
		order = mapOrder(c.logger, *data.Order)
		return nil
	})
	return order, err
}

const variantInventoryQuery = `
query variantInventoryItem($id: ID!) {
  productVariant(id: $id) {
    id
    inventoryItem { id }
  }
}`

const inventoryCostMutation = `
mutation updateUnitCost($id: ID!, $cost: Decimal!) {
  inventoryItemUpdate(id: $id, input: { cost: $cost }) {
    inventoryItem { id unitCost { amount } }
    userErrors { field message }
  }
}`

// UpdateVariantUnitCost sets the unit cost on the inventory item backing a
// variant. The platform keys cost on the inventory item, so this is a
// two-step call: resolve the item id, then update the cost.
func (c *Client) UpdateVariantUnitCost(ctx context.Context, shop, token, variantID string, cost float64) error {
	var itemID string
	err := providers.Do(ctx, c.logger, func(ctx context.Context) error {
		data, err := c.execute(ctx, shop, token, gqlRequest{Query: variantInventoryQuery, Variables: map[string]any{"id": variantID}})
		if err != nil {
			return err
		}
		if data.ProductVariant == nil || data.ProductVariant.InventoryItem == nil {
			return providers.NewError(providerName, providers.KindNotFound, "variant "+variantID+" not found", nil)
		}
		itemID = data.ProductVariant.InventoryItem.ID
		return nil
	})
	if err != nil {
		return err
	}

	return providers.Do(ctx, c.logger, func(ctx context.Context) error {
		data, err := c.execute(ctx, shop, token, gqlRequest{Query: inventoryCostMutation, Variables: map[string]any{"id": itemID, "cost": cost}})
		if err != nil {
			return err
		}
		if data.InventoryItemUpdate != nil && len(data.InventoryItemUpdate.UserErrors) > 0 {
			return providers.NewError(providerName, providers.KindInvalidInput, data.InventoryItemUpdate.UserErrors[0].Message, nil)
		}
		return nil
	})
}

func (c *Client) execute(ctx context.Context, shop, token string, reqBody gqlRequest) (data gqlData, err error) {
	defer func() { providers.Observe(c.observer, providerName, err) }()
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return gqlData{}, providers.NewError(providerName, providers.KindInvalidInput, "marshal query", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(shop), bytes.NewReader(payload))
	if err != nil {
		return gqlData{}, providers.NewError(providerName, providers.KindNetwork, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return gqlData{}, providers.NewError(providerName, providers.KindNetwork, "execute request", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return gqlData{}, providers.NewError(providerName, providers.KindAuthExpired, "access token rejected", nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		pe := providers.NewError(providerName, providers.KindRateLimited, "throttled", nil)
		if secs, err := strconv.ParseFloat(resp.Header.Get("Retry-After"), 64); err == nil && secs > 0 {
			pe.RetryAfter = time.Duration(secs * float64(time.Second))
		}
		return gqlData{}, pe
	case resp.StatusCode >= 500:
		return gqlData{}, providers.NewError(providerName, providers.KindBadResponse, fmt.Sprintf("status %d", resp.StatusCode), nil)
	case resp.StatusCode >= 400:
		return gqlData{}, providers.NewError(providerName, providers.KindInvalidInput, fmt.Sprintf("status %d", resp.StatusCode), nil)
	}

	var parsed gqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return gqlData{}, providers.NewError(providerName, providers.KindBadResponse, "decode response", err)
	}
	if len(parsed.Errors) > 0 {
		first := parsed.Errors[0]
		if first.Extensions.Code == "THROTTLED" {
			return gqlData{}, providers.NewError(providerName, providers.KindRateLimited, first.Message, nil)
		}
		return gqlData{}, providers.NewError(providerName, providers.KindBadResponse, first.Message, nil)
	}
	return parsed.Data, nil
}

func mapOrdersPage(logger *slog.Logger, conn *gqlOrderConnection) OrdersPage {
	page := OrdersPage{}
	for _, edge := range conn.Edges {
		page.Nodes = append(page.Nodes, mapOrder(logger, edge.Node))
	}
	if conn.PageInfo.HasNextPage {
		page.NextCursor = conn.PageInfo.EndCursor
	}
	return page
}

func mapOrder(logger *slog.Logger, raw gqlOrder) Order {
	order := Order{ID: raw.ID, Name: raw.Name}
	if t, err := time.Parse(time.RFC3339, raw.CreatedAt); err == nil {
		order.CreatedAt = t
	} else if logger != nil {
		logger.Warn("order createdAt unparsable", slog.String("order", raw.ID), slog.String("value", raw.CreatedAt))
	}
	if raw.CurrentTotal != nil {
		order.TotalPrice = parseAmount(raw.CurrentTotal.ShopMoney.Amount)
		order.Currency = raw.CurrentTotal.ShopMoney.CurrencyCode
	} else if logger != nil {
		logger.Warn("order missing total price set", slog.String("order", raw.ID))
	}
	for _, edge := range raw.LineItems.Edges {
		order.LineItems = append(order.LineItems, mapLineItem(edge.Node))
	}
	return order
}

func mapLineItem(raw gqlLineItem) LineItem {
	item := LineItem{Title: raw.Title, Quantity: raw.Quantity}
	if raw.OriginalUnit != nil {
		item.Price = parseAmount(raw.OriginalUnit.ShopMoney.Amount)
	}
	if raw.Product != nil {
		item.ProductID = raw.Product.ID
	}
	if raw.Variant != nil {
		item.VariantID = raw.Variant.ID
		if raw.Variant.InventoryItem != nil && raw.Variant.InventoryItem.UnitCost != nil {
			cost := parseAmount(raw.Variant.InventoryItem.UnitCost.Amount)
			item.UnitCost = &cost
		}
	}
	return item
}

func parseAmount(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
