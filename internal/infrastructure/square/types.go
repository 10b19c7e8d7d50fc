package square

import (
	"time"

	"github.com/shopspring/decimal"
)

// Money is Square's integer minor-unit monetary amount
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency,omitempty"`
}

var minorUnitsPerMajor = decimal.NewFromInt(100)

// Decimal converts the minor-unit amount to a decimal currency value
func (m Money) Decimal() decimal.Decimal {
	return decimal.NewFromInt(m.Amount).Div(minorUnitsPerMajor)
}

// Location is a Square business location
type Location struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
}

// Catalog object types we consume. The catalog list is filtered to ITEM
// objects; each ITEM embeds its ITEM_VARIATION children.
const (
	CatalogTypeItem          = "ITEM"
	CatalogTypeItemVariation = "ITEM_VARIATION"
)

// CatalogObject is a node in Square's catalog tree
type CatalogObject struct {
	Type              string                    `json:"type"`
	ID                string                    `json:"id"`
	ItemData          *CatalogItemData          `json:"item_data,omitempty"`
	ItemVariationData *CatalogItemVariationData `json:"item_variation_data,omitempty"`
}

// CatalogItemData is the payload of an ITEM object
type CatalogItemData struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Variations  []CatalogObject `json:"variations,omitempty"`
}

// CatalogItemVariationData is the payload of an ITEM_VARIATION object
type CatalogItemVariationData struct {
	ItemID     string `json:"item_id,omitempty"`
	Name       string `json:"name,omitempty"`
	PriceMoney *Money `json:"price_money,omitempty"`
}

// OrderStateCompleted is the only state the ingester asks for; open and
// canceled orders never reach the local store.
const OrderStateCompleted = "COMPLETED"

// Order is a Square transaction as returned by SearchOrders
type Order struct {
	ID         string          `json:"id"`
	LocationID string          `json:"location_id"`
	State      string          `json:"state"`
	CreatedAt  time.Time       `json:"created_at"`
	TotalMoney *Money          `json:"total_money,omitempty"`
	LineItems  []OrderLineItem `json:"line_items,omitempty"`
}

// OrderLineItem is a single line of a Square order. Quantity arrives as a
// decimal string; CatalogObjectID links the line to an ITEM_VARIATION when
// the sale went through the catalog.
type OrderLineItem struct {
	UID             string `json:"uid,omitempty"`
	CatalogObjectID string `json:"catalog_object_id,omitempty"`
	Name            string `json:"name"`
	Quantity        string `json:"quantity"`
	BasePriceMoney  *Money `json:"base_price_money,omitempty"`
}

// OrderQuery describes one SearchOrders page request
type OrderQuery struct {
	// Begin is the inclusive created_at lower bound (the sync watermark)
	Begin time.Time
	// States filters orders by state, e.g. COMPLETED
	States []string
	// PageSize bounds the page, Cursor continues a previous page
	PageSize int
	Cursor   string
}

// OrderPage is one page of SearchOrders results. An empty Cursor means the
// result set is exhausted.
type OrderPage struct {
	Orders []Order `json:"orders"`
	Cursor string  `json:"cursor"`
}

// TokenRequest is the OAuth token endpoint request body. GrantType selects
// between authorization_code (Code set) and refresh_token (RefreshToken set).
type TokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	GrantType    string `json:"grant_type"`
	Code         string `json:"code,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	RedirectURI  string `json:"redirect_uri,omitempty"`
}

// OAuth grant types accepted by the token endpoint
const (
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypeRefreshToken      = "refresh_token"
)

// TokenResponse is the OAuth token endpoint response
type TokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	MerchantID   string    `json:"merchant_id"`
	TokenType    string    `json:"token_type"`
}
