// Package cogs computes and persists per-order Cost of Goods Sold. One
// OrderCOGS record per (shop, order); the first write wins and later live
// cost changes never rewrite recorded history.
package cogs

import (
	"time"

	"github.com/tijara-apps/tijara/internal/providers/storefront"
)

// OrderCOGS is the persisted per-order cost record.
type OrderCOGS struct {
	ID           int64       `json:"id"`
	Shop         string      `json:"shop"`
	OrderID      string      `json:"orderId"`
	OrderName    string      `json:"orderName"`
	TotalRevenue float64     `json:"totalRevenue"`
	TotalCost    float64     `json:"totalCost"`
	Profit       float64     `json:"profit"`
	CreatedAt    time.Time   `json:"createdAt"`
	Items        []OrderItem `json:"items"`
}

// OrderItem is one line of an OrderCOGS record.
type OrderItem struct {
	ProductID    string  `json:"productId"`
	VariantID    string  `json:"variantId"`
	Title        string  `json:"title"`
	Quantity     int     `json:"quantity"`
	UnitCost     float64 `json:"unitCost"`
	Price        float64 `json:"price"`
	TotalCost    float64 `json:"totalCost"`
	TotalRevenue float64 `json:"totalRevenue"`
	Profit       float64 `json:"profit"`
}

// Summary is the windowed aggregate over persisted records.
type Summary struct {
	TotalOrders       int     `json:"totalOrders"`
	TotalRevenue      float64 `json:"totalRevenue"`
	TotalCost         float64 `json:"totalCost"`
	TotalProfit       float64 `json:"totalProfit"`
	AverageProfit     float64 `json:"averageProfit"`
	AverageOrderValue float64 `json:"averageOrderValue"`
	ProfitMargin      float64 `json:"profitMargin"`
}

// Compute derives an unsaved OrderCOGS from a storefront order. A nil unit
// cost contributes zero cost; an order without lines costs nothing, so its
// profit equals its revenue.
func Compute(shop string, order storefront.Order) OrderCOGS {
	record := OrderCOGS{
		Shop:         shop,
		OrderID:      order.ID,
		OrderName:    order.Name,
		TotalRevenue: order.TotalPrice,
		CreatedAt:    order.CreatedAt,
	}
	for _, line := range order.LineItems {
		unitCost := 0.0
		if line.UnitCost != nil {
			unitCost = *line.UnitCost
		}
		item := OrderItem{
			ProductID:    line.ProductID,
			VariantID:    line.VariantID,
			Title:        line.Title,
			Quantity:     line.Quantity,
			UnitCost:     unitCost,
			Price:        line.Price,
			TotalCost:    unitCost * float64(line.Quantity),
			TotalRevenue: line.Price * float64(line.Quantity),
		}
		item.Profit = item.TotalRevenue - item.TotalCost
		record.Items = append(record.Items, item)
		record.TotalCost += item.TotalCost
	}
	record.Profit = record.TotalRevenue - record.TotalCost
	return record
}

// SummaryOf reduces records into the windowed summary. Empty input yields
// zeros, never NaN.
func SummaryOf(records []OrderCOGS) Summary {
	var summary Summary
	summary.TotalOrders = len(records)
	for _, record := range records {
		summary.TotalRevenue += record.TotalRevenue
		summary.TotalCost += record.TotalCost
		summary.TotalProfit += record.Profit
	}
	if summary.TotalOrders > 0 {
		summary.AverageProfit = summary.TotalProfit / float64(summary.TotalOrders)
		summary.AverageOrderValue = summary.TotalRevenue / float64(summary.TotalOrders)
	}
	if summary.TotalRevenue != 0 {
		summary.ProfitMargin = summary.TotalProfit / summary.TotalRevenue * 100
	}
	return summary
}
