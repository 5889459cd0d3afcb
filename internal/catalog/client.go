// Package catalog provides an HTTP client for the product catalog service.
// The cart snapshots product details (name, price, image, category) at
// add-to-cart time, so this is the only place the cart service reads
// product data from.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/furnhaven/cart-service/pkg/httpclient"
)

// HTTPDoer is the interface for executing HTTP requests.
// Both httpclient.Client and httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Product is the catalog service's view of a product, as returned by
// GET /api/v1/products/{id}.
type Product struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Slug           string  `json:"slug"`
	Price          float64 `json:"price"`
	Image          string  `json:"image"`
	CategoryID     string  `json:"category_id"`
	Stock          int     `json:"stock"`
	TrackInventory bool    `json:"track_inventory"`
	IsActive       bool    `json:"is_active"`
}

// Client fetches products from the catalog service.
type Client struct {
	http    HTTPDoer
	baseURL string
}

// NewClient creates a catalog client. baseURL is the catalog service root,
// e.g. "http://catalog:8080".
func NewClient(http HTTPDoer, baseURL string) *Client {
	return &Client{
		http:    http,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// GetProduct fetches a single product by id. A 404 from the catalog maps to
// an apperrors.NotFound so callers can surface it directly.
func (c *Client) GetProduct(ctx context.Context, productID string) (*Product, error) {
	url := fmt.Sprintf("%s/api/v1/products/%s", c.baseURL, productID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create product request: %w", err)
	}

	resp, err := c.http.Do(ctx, httpReq)
	if err != nil {
		return nil, fmt.Errorf("call catalog service: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "catalog")
	}
	defer resp.Body.Close()

	// Catalog responses use the shared {"data": ...} envelope.
	var envelope struct {
		Data Product `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode product response: %w", err)
	}

	return &envelope.Data, nil
}
