package square

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"savor-core-square-layer/internal/domain"

	"github.com/rs/zerolog"
)

// APIError is a non-2xx response from the Square API
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("square api error: status %d, body: %s", e.StatusCode, e.Body)
}

// Client is a thin HTTP adapter over the Square endpoints the sync engine
// consumes: OAuth token grants, Locations, Catalog and SearchOrders.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	logger       zerolog.Logger
}

// NewClient creates a Square API client for the given environment base URL
func NewClient(baseURL, clientID, clientSecret string, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:      baseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		logger:       logger,
	}
}

// ObtainToken calls the OAuth token endpoint with the given grant. Client
// credentials are filled in from the client configuration.
func (c *Client) ObtainToken(ctx context.Context, grant TokenRequest) (*TokenResponse, error) {
	grant.ClientID = c.clientID
	grant.ClientSecret = c.clientSecret

	var resp TokenResponse
	if err := c.do(ctx, http.MethodPost, "/oauth2/token", "", grant, &resp); err != nil {
		return nil, fmt.Errorf("failed to obtain token: %w", err)
	}
	return &resp, nil
}

// ListLocations returns all of the merchant's locations
func (c *Client) ListLocations(ctx context.Context, accessToken string) ([]Location, error) {
	var resp struct {
		Locations []Location `json:"locations"`
	}
	if err := c.do(ctx, http.MethodGet, "/v2/locations", accessToken, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	return resp.Locations, nil
}

// ListCatalog returns the merchant's full catalog of ITEM objects, following
// the list cursor until exhaustion so callers see a single bulk result.
func (c *Client) ListCatalog(ctx context.Context, accessToken string) ([]CatalogObject, error) {
	var objects []CatalogObject
	cursor := ""
	for {
		path := "/v2/catalog/list?types=" + CatalogTypeItem
		if cursor != "" {
			path += "&cursor=" + cursor
		}
		var resp struct {
			Objects []CatalogObject `json:"objects"`
			Cursor  string          `json:"cursor"`
		}
		if err := c.do(ctx, http.MethodGet, path, accessToken, nil, &resp); err != nil {
			return nil, fmt.Errorf("failed to list catalog: %w", err)
		}
		objects = append(objects, resp.Objects...)
		if resp.Cursor == "" {
			return objects, nil
		}
		cursor = resp.Cursor
	}
}

// SearchOrders fetches one page of orders for a location, time-filtered from
// the query's Begin watermark and sorted ascending by created_at so pages
// advance monotonically through the sync window.
func (c *Client) SearchOrders(ctx context.Context, accessToken, locationID string, q OrderQuery) (*OrderPage, error) {
	type createdAtFilter struct {
		StartAt string `json:"start_at"`
	}
	body := struct {
		LocationIDs []string `json:"location_ids"`
		Cursor      string   `json:"cursor,omitempty"`
		Limit       int      `json:"limit,omitempty"`
		Query       struct {
			Filter struct {
				DateTimeFilter struct {
					CreatedAt createdAtFilter `json:"created_at"`
				} `json:"date_time_filter"`
				StateFilter *struct {
					States []string `json:"states"`
				} `json:"state_filter,omitempty"`
			} `json:"filter"`
			Sort struct {
				SortField string `json:"sort_field"`
				SortOrder string `json:"sort_order"`
			} `json:"sort"`
		} `json:"query"`
	}{
		LocationIDs: []string{locationID},
		Cursor:      q.Cursor,
		Limit:       q.PageSize,
	}
	body.Query.Filter.DateTimeFilter.CreatedAt = createdAtFilter{StartAt: q.Begin.UTC().Format(time.RFC3339)}
	if len(q.States) > 0 {
		body.Query.Filter.StateFilter = &struct {
			States []string `json:"states"`
		}{States: q.States}
	}
	body.Query.Sort.SortField = "CREATED_AT"
	body.Query.Sort.SortOrder = "ASC"

	var page OrderPage
	if err := c.do(ctx, http.MethodPost, "/v2/orders/search", accessToken, body, &page); err != nil {
		return nil, fmt.Errorf("failed to search orders: %w", err)
	}
	return &page, nil
}

// do executes one request against the API and decodes the JSON response.
// Authentication failures and rate limits are mapped to their domain
// sentinels so callers can branch on them with errors.Is.
func (c *Client) do(ctx context.Context, method, path, accessToken string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.logger.Warn().Int("status", resp.StatusCode).Str("path", path).Msg("Square rejected access token")
		return fmt.Errorf("status %d: %w", resp.StatusCode, domain.ErrAuthenticationFailed)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("status %d: %w", resp.StatusCode, domain.ErrRateLimited)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
