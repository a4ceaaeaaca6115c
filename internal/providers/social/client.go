// Package social wraps the social-ads platform's REST API: ad-account
// discovery, windowed insight queries, campaign creation, and the two-hop
// OAuth token exchange.
package social

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tijara-apps/tijara/internal/providers"
	"github.com/tijara-apps/tijara/internal/window"
)

const providerName = "ads"

const apiVersion = "v18.0"

const callTimeout = 30 * time.Second

// Rate-limit error codes documented by the provider.
var rateLimitCodes = map[int]bool{4: true, 17: true, 32: true}

const authErrorCode = 190

// Client talks to the social-ads REST API.
type Client struct {
	baseURL    string
	appID      string
	appSecret  string
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
	observer   providers.CallObserver
}

// NewClient constructs a client. appID and appSecret drive the OAuth
// exchange; every other call authenticates with a per-shop user token.
func NewClient(baseURL, appID, appSecret string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		appID:      appID,
		appSecret:  appSecret,
		httpClient: &http.Client{Timeout: callTimeout},
		logger:     logger,
		now:        time.Now,
	}
}

// SetObserver attaches a call counter. Every executed HTTP call reports one
// outcome, including the attempts inside a retry loop.
func (c *Client) SetObserver(o providers.CallObserver) {
	c.observer = o
}

// ListAdAccounts returns the ad accounts reachable with the token.
func (c *Client) ListAdAccounts(ctx context.Context, token string) ([]AdAccount, error) {
	var accounts []AdAccount
	err := providers.Do(ctx, c.logger, func(ctx context.Context) error {
		query := url.Values{}
		query.Set("fields", "id,name,currency")
		query.Set("access_token", token)
		var parsed adAccountsResponse
		if err := c.get(ctx, "/me/adaccounts", query, &parsed); err != nil {
			return err
		}
		accounts = parsed.Data
		return nil
	})
	return accounts, err
}

// AccountInsights returns account-level delivery metrics for the window.
func (c *Client) AccountInsights(ctx context.Context, token, accountID string, win window.Window) (Insights, error) {
	var insights Insights
	err := providers.Do(ctx, c.logger, func(ctx context.Context) error {
		query := url.Values{}
		query.Set("fields", "spend,impressions,clicks,actions,action_values")
		query.Set("time_range", timeRangeParam(win))
		query.Set("access_token", token)
		var parsed insightsResponse
		if err := c.get(ctx, "/"+accountID+"/insights", query, &parsed); err != nil {
			return err
		}
		insights = reduceInsights(parsed.Data)
		return nil
	})
	return insights, err
}

// CampaignsWithInsights lists the account's campaigns with nested windowed
// insights.
func (c *Client) CampaignsWithInsights(ctx context.Context, token, accountID string, win window.Window) ([]Campaign, error) {
	var campaigns []Campaign
	err := providers.Do(ctx, c.logger, func(ctx context.Context) error {
		query := url.Values{}
		query.Set("fields", fmt.Sprintf("id,name,status,insights.time_range(%s){spend,impressions,clicks,actions,action_values}", timeRangeParam(win)))
		query.Set("access_token", token)
		var parsed campaignsResponse
		if err := c.get(ctx, "/"+accountID+"/campaigns", query, &parsed); err != nil {
			return err
		}
		campaigns = campaigns[:0]
		for _, raw := range parsed.Data {
			campaign := Campaign{ID: raw.ID, Name: raw.Name, Status: raw.Status}
			if raw.Insights != nil {
				campaign.Insights = reduceInsights(raw.Insights.Data)
			}
			campaigns = append(campaigns, campaign)
		}
		return nil
	})
	return campaigns, err
}

// CreateCampaign creates a campaign under the account and returns its id.
func (c *Client) CreateCampaign(ctx context.Context, token, accountID string, spec CampaignSpec) (string, error) {
	var id string
	err := providers.Do(ctx, c.logger, func(ctx context.Context) error {
		form := url.Values{}
		form.Set("name", spec.Name)
		form.Set("objective", spec.Objective)
		form.Set("status", spec.Status)
		form.Set("special_ad_categories", "[]")
		if spec.DailyBudget > 0 {
			form.Set("daily_budget", strconv.FormatInt(spec.DailyBudget, 10))
		}
		form.Set("access_token", token)

		var parsed createCampaignResponse
		if err := c.postForm(ctx, "/"+accountID+"/campaigns", form, &parsed); err != nil {
			return err
		}
		if parsed.ID == "" {
			return providers.NewError(providerName, providers.KindBadResponse, "campaign id missing in response", nil)
		}
		id = parsed.ID
		return nil
	})
	return id, err
}

// ExchangeToken turns a login code into a long-lived token. Two hops: the
// code buys a short-lived token, which is then exchanged for a long-lived
// one. ExpiresAt is computed from the reported expires_in.
func (c *Client) ExchangeToken(ctx context.Context, code, redirectURI string) (Token, error) {
	var token Token
	err := providers.Do(ctx, c.logger, func(ctx context.Context) error {
		query := url.Values{}
		query.Set("client_id", c.appID)
		query.Set("client_secret", c.appSecret)
		query.Set("redirect_uri", redirectURI)
		query.Set("code", code)
		var short tokenResponse
		if err := c.get(ctx, "/oauth/access_token", query, &short); err != nil {
			return err
		}
		if short.AccessToken == "" {
			return providers.NewError(providerName, providers.KindBadResponse, "short-lived token missing", nil)
		}

		query = url.Values{}
		query.Set("grant_type", "fb_exchange_token")
		query.Set("client_id", c.appID)
		query.Set("client_secret", c.appSecret)
		query.Set("fb_exchange_token", short.AccessToken)
		var long tokenResponse
		if err := c.get(ctx, "/oauth/access_token", query, &long); err != nil {
			return err
		}
		if long.AccessToken == "" {
			return providers.NewError(providerName, providers.KindBadResponse, "long-lived token missing", nil)
		}

		token = Token{AccessToken: long.AccessToken}
		if long.ExpiresIn > 0 {
			token.ExpiresAt = c.now().Add(time.Duration(long.ExpiresIn) * time.Second)
		}
		return nil
	})
	return token, err
}

func timeRangeParam(win window.Window) string {
	raw, _ := json.Marshal(map[string]string{"since": win.Since, "until": win.Until})
	return string(raw)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, target any) error {
	endpoint := fmt.Sprintf("%s/%s%s?%s", c.baseURL, apiVersion, path, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return providers.NewError(providerName, providers.KindNetwork, "build request", err)
	}
	return c.do(req, target)
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, target any) error {
	endpoint := fmt.Sprintf("%s/%s%s", c.baseURL, apiVersion, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return providers.NewError(providerName, providers.KindNetwork, "build request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, target)
}

func (c *Client) do(req *http.Request, target any) (err error) {
	defer func() { providers.Observe(c.observer, providerName, err) }()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return providers.NewError(providerName, providers.KindNetwork, "execute request", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return providers.NewError(providerName, providers.KindNetwork, "read response", err)
	}

	if resp.StatusCode >= 400 {
		return c.normalizeError(resp, body)
	}

	if err := json.Unmarshal(body, target); err != nil {
		return providers.NewError(providerName, providers.KindBadResponse, "decode response", err)
	}
	return nil
}

func (c *Client) normalizeError(resp *http.Response, body []byte) error {
	var parsed apiErrorBody
	_ = json.Unmarshal(body, &parsed)
	message := parsed.Error.Message
	if message == "" {
		message = fmt.Sprintf("status %d", resp.StatusCode)
	}

	switch {
	case parsed.Error.Code == authErrorCode || resp.StatusCode == http.StatusUnauthorized:
		return providers.NewError(providerName, providers.KindAuthExpired, message, nil)
	case rateLimitCodes[parsed.Error.Code] || resp.StatusCode == http.StatusTooManyRequests:
		pe := providers.NewError(providerName, providers.KindRateLimited, message, nil)
		if secs, err := strconv.ParseFloat(resp.Header.Get("Retry-After"), 64); err == nil && secs > 0 {
			pe.RetryAfter = time.Duration(secs * float64(time.Second))
		}
		return pe
	case resp.StatusCode == http.StatusNotFound:
		return providers.NewError(providerName, providers.KindNotFound, message, nil)
	case resp.StatusCode >= 500:
		return providers.NewError(providerName, providers.KindBadResponse, message, nil)
	default:
		return providers.NewError(providerName, providers.KindInvalidInput, message, nil)
	}
}

func reduceInsights(rows []insightsRow) Insights {
	var out Insights
	for _, row := range rows {
		out.Spend += parseNumber(row.Spend)
		out.Impressions += int64(parseNumber(row.Impressions))
		out.Clicks += int64(parseNumber(row.Clicks))
		for _, action := range row.Actions {
			if isPurchaseAction(action.ActionType) {
				out.Purchases += int64(parseNumber(action.Value))
			}
		}
		for _, action := range row.ActionValues {
			if isPurchaseAction(action.ActionType) {
				out.PurchaseValue += parseNumber(action.Value)
			}
		}
	}
	return out
}

func isPurchaseAction(actionType string) bool {
	return actionType == "purchase" || actionType == "omni_purchase" ||
		actionType == "offsite_conversion.fb_pixel_purchase"
}

func parseNumber(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
