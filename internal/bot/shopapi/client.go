// Package shopapi is the bot's HTTP client for the shop persistence service.
package shopapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/broshop/broshop/internal/bot/workflow"
)

var (
	// ErrNotFound indicates the requested product does not exist.
	ErrNotFound = errors.New("shopapi: product not found")
	// ErrUnavailable indicates the persistence service could not serve the
	// call; the triggering operation is aborted with no partial state.
	ErrUnavailable = errors.New("shopapi: service unavailable")
)

// Product mirrors the service's wire representation.
type Product struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Price       int64          `json:"price"`
	Description string         `json:"description,omitempty"`
	ImageURL    string         `json:"imageUrl,omitempty"`
	Sizes       map[string]int `json:"sizes"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// TopProduct is one entry of the top viewed ranking.
type TopProduct struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Views int64  `json:"views"`
}

// Stats is the aggregate snapshot.
type Stats struct {
	TotalProducts int64        `json:"totalProducts"`
	TopViewed     []TopProduct `json:"topViewed"`
	RecentlyAdded []Product    `json:"recentlyAdded"`
}

type productRequest struct {
	Name        string         `json:"name"`
	Price       int64          `json:"price"`
	Description string         `json:"description"`
	ImageURL    string         `json:"imageUrl"`
	Sizes       map[string]int `json:"sizes"`
}

// Client calls the shop API with a bounded timeout per request.
type Client struct {
	base string
	http *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// CreateProduct persists a finished draft.
func (c *Client) CreateProduct(ctx context.Context, spec workflow.ProductSpec) (workflow.ProductInfo, error) {
	var out Product
	err := c.doJSON(ctx, http.MethodPost, "/admin/products", specRequest(spec), &out)
	if err != nil {
		return workflow.ProductInfo{}, err
	}
	return info(out), nil
}

// UpdateProduct replaces every mutable field of the identified product.
func (c *Client) UpdateProduct(ctx context.Context, id int64, spec workflow.ProductSpec) (workflow.ProductInfo, error) {
	var out Product
	err := c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/admin/products/%d", id), specRequest(spec), &out)
	if err != nil {
		return workflow.ProductInfo{}, err
	}
	return info(out), nil
}

// GetProduct fetches a single product.
func (c *Client) GetProduct(ctx context.Context, id int64) (workflow.ProductInfo, error) {
	var out Product
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/products/%d", id), nil, &out)
	if err != nil {
		return workflow.ProductInfo{}, err
	}
	return info(out), nil
}

// ListProducts returns the admin product list, newest first.
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	var out []Product
	if err := c.doJSON(ctx, http.MethodGet, "/admin/products", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Stats fetches the aggregate statistics snapshot.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var out Stats
	if err := c.doJSON(ctx, http.MethodGet, "/stats", nil, &out); err != nil {
		return Stats{}, err
	}
	return out, nil
}

// Upload streams a file to the media endpoint and returns its public URL.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/admin/upload", &body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: upload returned %d", ErrUnavailable, resp.StatusCode)
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return out.URL, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("%w: %s %s returned %d", ErrUnavailable, method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func specRequest(spec workflow.ProductSpec) productRequest {
	return productRequest{
		Name:        spec.Name,
		Price:       spec.Price,
		Description: spec.Description,
		ImageURL:    spec.ImageURL,
		Sizes:       spec.Sizes,
	}
}

func info(p Product) workflow.ProductInfo {
	return workflow.ProductInfo{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		Sizes:       p.Sizes,
	}
}
