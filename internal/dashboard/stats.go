// Package dashboard joins orders, shipments, ad insights, and persisted COGS
// into the merchant's profit-and-loss view.
package dashboard

// StatusCounts buckets shipments by lifecycle stage. Courier status ids
// 1,2,3,4,7 count as pending, 5 as delivered, 6 as returned.
type StatusCounts struct {
	Pending   int `json:"pending"`
	Delivered int `json:"delivered"`
	Returned  int `json:"returned"`
}

// Stats is the dashboard's financial metrics object.
type Stats struct {
	OrderRevenue          float64      `json:"orderRevenue"`
	ShippingAndCancelFees float64      `json:"shippingAndCancelFees"`
	CogsCosts             float64      `json:"cogsCosts"`
	AdCosts               float64      `json:"adCosts"`
	TotalProfit           float64      `json:"totalProfit"`
	TotalOrders           int          `json:"totalOrders"`
	TotalShipments        int          `json:"totalShipments"`
	AdRevenue             float64      `json:"adRevenue"`
	AdPurchases           int64        `json:"adPurchases"`
	AdImpressions         int64        `json:"adImpressions"`
	ROAS                  float64      `json:"roas"`
	EffectiveROAS         float64      `json:"effectiveROAS"`
	MER                   float64      `json:"mer"`
	ShipmentStatus        StatusCounts `json:"shipmentStatus"`
}

// Result pairs the stats with the non-fatal warnings collected while
// building them.
type Result struct {
	Stats    Stats    `json:"stats"`
	Warnings []string `json:"warnings"`
}
