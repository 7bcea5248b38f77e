// Package shopify wraps the storefront admin GraphQL API: product lookup and
// the staged-upload asset protocol (reserve, transfer, register), plus the
// deletion and variant-binding calls the replace flow needs.
package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/media-dispatch/internal/ratelimit"
	"go.uber.org/zap"
)

const defaultAPITimeout = 30 * time.Second

// Credentials identify one storefront's admin API. Resolved once at batch
// submission; a client never re-reads shared mutable configuration mid-run.
type Credentials struct {
	Domain     string
	APIToken   string
	APIVersion string
}

func (c Credentials) endpoint() string {
	return fmt.Sprintf("https://%s/admin/api/%s/graphql.json", c.Domain, c.APIVersion)
}

func (c Credentials) validate() error {
	if strings.TrimSpace(c.Domain) == "" {
		return fmt.Errorf("store domain is required")
	}
	if strings.TrimSpace(c.APIToken) == "" {
		return fmt.Errorf("api token is required")
	}
	if strings.TrimSpace(c.APIVersion) == "" {
		return fmt.Errorf("api version is required")
	}
	return nil
}

// ProductVariant is the lookup result for a product code or URL.
type ProductVariant struct {
	ProductID      string
	VariantID      string
	SKU            string
	Title          string
	Handle         string
	Status         string
	CurrentAssetID string
	OnlineStoreURL string
}

// IsDraft reports whether the product is not yet published.
func (p *ProductVariant) IsDraft() bool {
	return p != nil && strings.EqualFold(p.Status, "DRAFT")
}

// Client talks to one store. API calls are gated by the shared rate limiter
// keyed on the store domain; the staged-upload transfer goes to a separate
// storage host and is not gated.
type Client struct {
	api      *resty.Client
	transfer *resty.Client
	creds    Credentials
	endpoint string
	limiter  ratelimit.RateLimiter
	logger   *zap.Logger
}

func NewClient(creds Credentials, limiter ratelimit.RateLimiter, logger *zap.Logger) (*Client, error) {
	api := resty.New()
	api.SetTimeout(defaultAPITimeout)
	api.SetRetryCount(0)

	transfer := resty.New()
	transfer.SetTimeout(defaultAPITimeout)
	transfer.SetRetryCount(0)

	return NewClientWithHTTP(creds, api, transfer, limiter, logger)
}

func NewClientWithHTTP(
	creds Credentials,
	api *resty.Client,
	transfer *resty.Client,
	limiter ratelimit.RateLimiter,
	logger *zap.Logger,
) (*Client, error) {
	if err := creds.validate(); err != nil {
		return nil, err
	}
	if api == nil || transfer == nil {
		return nil, fmt.Errorf("resty clients are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		api:      api,
		transfer: transfer,
		creds:    creds,
		endpoint: creds.endpoint(),
		limiter:  limiter,
		logger:   logger,
	}, nil
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type gqlEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

type gqlError struct {
	Message string `json:"message"`
}

type userError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

func formatUserErrors(errs []userError) string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}

// do executes one GraphQL round-trip and unmarshals the data payload into out.
func (c *Client) do(ctx context.Context, query string, variables map[string]any, out any) error {
	if c == nil || c.api == nil {
		return fmt.Errorf("client is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, c.creds.Domain); err != nil {
			return fmt.Errorf("rate limiter wait failed: %w", err)
		}
	}

	response, err := c.api.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Shopify-Access-Token", c.creds.APIToken).
		SetBody(gqlRequest{Query: query, Variables: variables}).
		Post(c.endpoint)
	if err != nil {
		return &APIError{
			Message:   "admin api request failed",
			Transient: !isContextCanceled(err),
			Cause:     err,
		}
	}

	statusCode := response.StatusCode()
	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return &APIError{
			StatusCode: statusCode,
			Message:    fmt.Sprintf("admin api returned status %d", statusCode),
			Transient:  isTransientHTTPStatus(statusCode),
		}
	}

	var envelope gqlEnvelope
	if err := json.Unmarshal(response.Body(), &envelope); err != nil {
		return &APIError{
			StatusCode: statusCode,
			Message:    "admin api returned malformed response",
			Cause:      err,
		}
	}
	if len(envelope.Errors) > 0 {
		msgs := make([]string, 0, len(envelope.Errors))
		for _, e := range envelope.Errors {
			msgs = append(msgs, e.Message)
		}
		return &APIError{
			StatusCode: statusCode,
			Message:    strings.Join(msgs, "; "),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return &APIError{
			StatusCode: statusCode,
			Message:    "failed to decode admin api data",
			Cause:      err,
		}
	}
	return nil
}

func isContextCanceled(err error) bool {
	return err != nil && strings.Contains(err.Error(), context.Canceled.Error())
}

const searchVariantQuery = `
query variantByCode($query: String!) {
  productVariants(first: 1, query: $query) {
    edges {
      node {
        id
        sku
        product {
          id
          title
          handle
          status
          onlineStoreUrl
          featuredMedia { id }
        }
      }
    }
  }
}`

type variantNode struct {
	ID      string `json:"id"`
	SKU     string `json:"sku"`
	Product struct {
		ID             string `json:"id"`
		Title          string `json:"title"`
		Handle         string `json:"handle"`
		Status         string `json:"status"`
		OnlineStoreURL string `json:"onlineStoreUrl"`
		FeaturedMedia  *struct {
			ID string `json:"id"`
		} `json:"featuredMedia"`
	} `json:"product"`
}

func variantNodeToProduct(node variantNode) *ProductVariant {
	p := &ProductVariant{
		ProductID:      node.Product.ID,
		VariantID:      node.ID,
		SKU:            node.SKU,
		Title:          node.Product.Title,
		Handle:         node.Product.Handle,
		Status:         node.Product.Status,
		OnlineStoreURL: node.Product.OnlineStoreURL,
	}
	if node.Product.FeaturedMedia != nil {
		p.CurrentAssetID = node.Product.FeaturedMedia.ID
	}
	return p
}

// SearchProductByCode resolves a SKU to its variant and parent product.
// Returns ErrProductNotFound when the store has no variant with that SKU.
func (c *Client) SearchProductByCode(ctx context.Context, code string) (*ProductVariant, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return nil, fmt.Errorf("product code is required")
	}

	var result struct {
		ProductVariants struct {
			Edges []struct {
				Node variantNode `json:"node"`
			} `json:"edges"`
		} `json:"productVariants"`
	}

	query := fmt.Sprintf("sku:%q", trimmed)
	if err := c.do(ctx, searchVariantQuery, map[string]any{"query": query}, &result); err != nil {
		return nil, err
	}
	if len(result.ProductVariants.Edges) == 0 {
		return nil, fmt.Errorf("%w: no variant with sku %q", ErrProductNotFound, trimmed)
	}

	return variantNodeToProduct(result.ProductVariants.Edges[0].Node), nil
}

const productByHandleQuery = `
query productByHandle($handle: String!) {
  productByHandle(handle: $handle) {
    id
    title
    handle
    status
    onlineStoreUrl
    featuredMedia { id }
    variants(first: 1) {
      edges { node { id sku } }
    }
  }
}`

// GetProductFromURL resolves a storefront product URL to its product and
// first variant. Only the /products/<handle> path segment is used.
func (c *Client) GetProductFromURL(ctx context.Context, rawURL string) (*ProductVariant, error) {
	handle, err := handleFromURL(rawURL)
	if err != nil {
		return nil, err
	}

	var result struct {
		ProductByHandle *struct {
			ID             string `json:"id"`
			Title          string `json:"title"`
			Handle         string `json:"handle"`
			Status         string `json:"status"`
			OnlineStoreURL string `json:"onlineStoreUrl"`
			FeaturedMedia  *struct {
				ID string `json:"id"`
			} `json:"featuredMedia"`
			Variants struct {
				Edges []struct {
					Node struct {
						ID  string `json:"id"`
						SKU string `json:"sku"`
					} `json:"node"`
				} `json:"edges"`
			} `json:"variants"`
		} `json:"productByHandle"`
	}

	if err := c.do(ctx, productByHandleQuery, map[string]any{"handle": handle}, &result); err != nil {
		return nil, err
	}
	if result.ProductByHandle == nil {
		return nil, fmt.Errorf("%w: no product with handle %q", ErrProductNotFound, handle)
	}

	node := result.ProductByHandle
	p := &ProductVariant{
		ProductID:      node.ID,
		Title:          node.Title,
		Handle:         node.Handle,
		Status:         node.Status,
		OnlineStoreURL: node.OnlineStoreURL,
	}
	if node.FeaturedMedia != nil {
		p.CurrentAssetID = node.FeaturedMedia.ID
	}
	if len(node.Variants.Edges) > 0 {
		p.VariantID = node.Variants.Edges[0].Node.ID
		p.SKU = node.Variants.Edges[0].Node.SKU
	}
	return p, nil
}

func handleFromURL(rawURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("invalid product url: %w", err)
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	for i, segment := range segments {
		if segment == "products" && i+1 < len(segments) && segments[i+1] != "" {
			return segments[i+1], nil
		}
	}
	return "", fmt.Errorf("product url %q has no /products/<handle> segment", rawURL)
}

const previewLinkQuery = `
query previewLink($id: ID!) {
  product(id: $id) {
    onlineStorePreviewUrl
  }
}`

// PreviewLink returns the online-store preview URL for a product, used for
// draft products that have no live URL yet. Empty string when the API does
// not expose one.
func (c *Client) PreviewLink(ctx context.Context, productID string) (string, error) {
	var result struct {
		Product *struct {
			OnlineStorePreviewURL string `json:"onlineStorePreviewUrl"`
		} `json:"product"`
	}

	if err := c.do(ctx, previewLinkQuery, map[string]any{"id": productID}, &result); err != nil {
		return "", err
	}
	if result.Product == nil {
		return "", fmt.Errorf("%w: no product with id %q", ErrProductNotFound, productID)
	}
	return result.Product.OnlineStorePreviewURL, nil
}

// LiveURL derives the public product URL from its handle. No network call.
func (c *Client) LiveURL(handle string) string {
	return fmt.Sprintf("https://%s/products/%s", c.creds.Domain, strings.TrimSpace(handle))
}
