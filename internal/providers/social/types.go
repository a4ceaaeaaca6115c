package social

import "time"

// AdAccount is one advertising account reachable with a user token.
type AdAccount struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

// Insights aggregates delivery metrics for an account or campaign window.
type Insights struct {
	Spend         float64 `json:"spend"`
	Impressions   int64   `json:"impressions"`
	Clicks        int64   `json:"clicks"`
	Purchases     int64   `json:"purchases"`
	PurchaseValue float64 `json:"purchaseValue"`
}

// Campaign pairs campaign metadata with its windowed insights.
type Campaign struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Status   string   `json:"status"`
	Insights Insights `json:"insights"`
}

// CampaignSpec is the thin creation payload forwarded to the provider.
type CampaignSpec struct {
	Name        string `json:"name"`
	Objective   string `json:"objective"`
	Status      string `json:"status"`
	DailyBudget int64  `json:"dailyBudget"`
}

// Token is a long-lived access token with its computed expiry.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// wire shapes

type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
		Subcode int    `json:"error_subcode"`
	} `json:"error"`
}

type adAccountsResponse struct {
	Data []AdAccount `json:"data"`
}

type insightsResponse struct {
	Data []insightsRow `json:"data"`
}

type insightsRow struct {
	Spend        string        `json:"spend"`
	Impressions  string        `json:"impressions"`
	Clicks       string        `json:"clicks"`
	Actions      []actionValue `json:"actions"`
	ActionValues []actionValue `json:"action_values"`
}

type actionValue struct {
	ActionType string `json:"action_type"`
	Value      string `json:"value"`
}

type campaignsResponse struct {
	Data []struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Status   string `json:"status"`
		Insights *struct {
			Data []insightsRow `json:"data"`
		} `json:"insights"`
	} `json:"data"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type createCampaignResponse struct {
	ID string `json:"id"`
}
