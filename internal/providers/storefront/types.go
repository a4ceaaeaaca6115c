package storefront

import "time"

// Order is the subset of a storefront order the engine consumes.
type Order struct {
	ID         string
	Name       string
	CreatedAt  time.Time
	TotalPrice float64
	Currency   string
	LineItems  []LineItem
}

// LineItem carries the per-line quantities and costs behind COGS.
// UnitCost is nil when the merchant has not entered a cost for the variant.
type LineItem struct {
	ProductID string
	VariantID string
	Title     string
	Quantity  int
	Price     float64
	UnitCost  *float64
}

// OrdersPage is one page of the order listing.
type OrdersPage struct {
	Nodes      []Order
	NextCursor string
}

const maxPageSize = 50

// graphql wire shapes

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type gqlResponse struct {
	Data   gqlData    `json:"data"`
	Errors []gqlError `json:"errors"`
}

type gqlError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

type gqlData struct {
	Orders *gqlOrderConnection `json:"orders"`
	Order  *gqlOrder           `json:"order"`

	ProductVariant      *gqlVariant `json:"productVariant"`
	InventoryItemUpdate *struct {
		InventoryItem *struct {
			ID       string `json:"id"`
			UnitCost *struct {
				Amount string `json:"amount"`
			} `json:"unitCost"`
		} `json:"inventoryItem"`
		UserErrors []gqlUserError `json:"userErrors"`
	} `json:"inventoryItemUpdate"`
}

type gqlUserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

type gqlOrderConnection struct {
	Edges []struct {
		Cursor string   `json:"cursor"`
		Node   gqlOrder `json:"node"`
	} `json:"edges"`
	PageInfo struct {
		HasNextPage bool   `json:"hasNextPage"`
		EndCursor   string `json:"endCursor"`
	} `json:"pageInfo"`
}

type gqlOrder struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	CreatedAt    string `json:"createdAt"`
	CurrentTotal *struct {
		ShopMoney struct {
			Amount       string `json:"amount"`
			CurrencyCode string `json:"currencyCode"`
		} `json:"shopMoney"`
	} `json:"currentTotalPriceSet"`
	LineItems struct {
		Edges []struct {
			Node gqlLineItem `json:"node"`
		} `json:"edges"`
	} `json:"lineItems"`
}

type gqlLineItem struct {
	Title        string `json:"title"`
	Quantity     int    `json:"quantity"`
	OriginalUnit *struct {
		ShopMoney struct {
			Amount string `json:"amount"`
		} `json:"shopMoney"`
	} `json:"originalUnitPriceSet"`
	Product *struct {
		ID string `json:"id"`
	} `json:"product"`
	Variant *struct {
		ID            string `json:"id"`
		InventoryItem *struct {
			ID       string `json:"id"`
			UnitCost *struct {
				Amount string `json:"amount"`
			} `json:"unitCost"`
		} `json:"inventoryItem"`
	} `json:"variant"`
}

type gqlVariant struct {
	ID            string `json:"id"`
	InventoryItem *struct {
		ID string `json:"id"`
	} `json:"inventoryItem"`
}
