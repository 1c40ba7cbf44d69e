package storeapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"
)

// Product is a catalog entry as returned by the store API
type Product struct {
	ID          string  `json:"_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Discount    float64 `json:"discount"`
	Ratings     float64 `json:"ratings"`
	Image       string  `json:"image"`
	Status      string  `json:"status"`
}

// OrderItem is one line of an order
type OrderItem struct {
	ID       string  `json:"_id"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Amount   float64 `json:"amount"`
}

// Order is a customer order as returned by the store API
type Order struct {
	ID            string      `json:"_id"`
	Name          string      `json:"name"`
	Email         string      `json:"email"`
	PaymentStatus string      `json:"paymentStatus"`
	TotalAmount   float64     `json:"totalAmount"`
	Items         []OrderItem `json:"items"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// Image is an optional file attached to a product form
type Image struct {
	Filename string
	Content  io.Reader
}

// ProductInput is the multipart form sent when adding or editing a product.
// Numeric fields stay strings: the store API parses them.
type ProductInput struct {
	Name        string
	Description string
	Price       string
	Quantity    string
	Category    string
	Discount    string
	Ratings     string
	Image       *Image
}

// RecentOrders returns the store's recent orders
func (c *Client) RecentOrders(ctx context.Context) ([]Order, error) {
	var orders []Order
	if _, err := c.call(ctx, http.MethodGet, "/api/order/recentOrder", nil, "", &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// Products returns every product in the catalog
func (c *Client) Products(ctx context.Context) ([]Product, error) {
	var products []Product
	if _, err := c.call(ctx, http.MethodGet, "/api/product/getProductAll", nil, "", &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Product returns a single product by ID
func (c *Client) Product(ctx context.Context, productID string) (*Product, error) {
	var product Product
	if _, err := c.call(ctx, http.MethodGet, "/api/product/getproduct/"+url.PathEscape(productID), nil, "", &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// AddProduct creates a product and returns the API message
func (c *Client) AddProduct(ctx context.Context, input ProductInput) (string, error) {
	return c.submitProduct(ctx, "/api/product/addProduct", input)
}

// EditProduct updates a product and returns the API message
func (c *Client) EditProduct(ctx context.Context, productID string, input ProductInput) (string, error) {
	return c.submitProduct(ctx, "/api/product/editProduct/"+url.PathEscape(productID), input)
}

// DeleteProduct removes a product and returns the API message
func (c *Client) DeleteProduct(ctx context.Context, productID string) (string, error) {
	env, err := c.call(ctx, http.MethodDelete, "/api/product/deleteProduct/"+url.PathEscape(productID), nil, "", nil)
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

func (c *Client) submitProduct(ctx context.Context, path string, input ProductInput) (string, error) {
	body, contentType, err := encodeProductForm(input)
	if err != nil {
		return "", err
	}

	env, err := c.call(ctx, http.MethodPost, path, body, contentType, nil)
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

func encodeProductForm(input ProductInput) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := []struct{ key, value string }{
		{"name", input.Name},
		{"description", input.Description},
		{"price", input.Price},
		{"quantity", input.Quantity},
		{"category", input.Category},
		{"discount", input.Discount},
		{"ratings", input.Ratings},
	}
	for _, f := range fields {
		if err := w.WriteField(f.key, f.value); err != nil {
			return nil, "", fmt.Errorf("failed to write form field %s: %w", f.key, err)
		}
	}

	if input.Image != nil {
		part, err := w.CreateFormFile("image", input.Image.Filename)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create image part: %w", err)
		}
		if _, err := io.Copy(part, input.Image.Content); err != nil {
			return nil, "", fmt.Errorf("failed to copy image: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close form: %w", err)
	}

	return &buf, w.FormDataContentType(), nil
}
