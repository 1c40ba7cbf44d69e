package products

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/storeadmin-dev/storeadmin/internal/storeapi"
)

const (
	addFailed    = "Add product failed. Please try again."
	updateFailed = "Update product failed. Please try again."
	deleteFailed = "Delete product failed. Please try again."
	noMessage    = "Something went wrong."
)

// Stock badges
const (
	OutOfStock = "Out of Stock"
	LowStock   = "Low Stock"
	InStock    = "In Stock"
)

// lowStockThreshold is the quantity below which a product is low on stock
const lowStockThreshold = 10

// Catalog is the part of the store API the products screen uses
type Catalog interface {
	Products(ctx context.Context) ([]storeapi.Product, error)
	Product(ctx context.Context, productID string) (*storeapi.Product, error)
	AddProduct(ctx context.Context, input storeapi.ProductInput) (string, error)
	EditProduct(ctx context.Context, productID string, input storeapi.ProductInput) (string, error)
	DeleteProduct(ctx context.Context, productID string) (string, error)
}

// Form is the add/edit product form
type Form struct {
	Name        string `form:"name" validate:"required"`
	Description string `form:"description"`
	Price       string `form:"price" validate:"required"`
	Quantity    string `form:"quantity" validate:"required"`
	Category    string `form:"category" validate:"required"`
	Discount    string `form:"discount"`
	Ratings     string `form:"ratings"`

	Image *storeapi.Image `form:"-"`
}

func (f Form) input() storeapi.ProductInput {
	return storeapi.ProductInput{
		Name:        strings.TrimSpace(f.Name),
		Description: strings.TrimSpace(f.Description),
		Price:       strings.TrimSpace(f.Price),
		Quantity:    strings.TrimSpace(f.Quantity),
		Category:    strings.TrimSpace(f.Category),
		Discount:    strings.TrimSpace(f.Discount),
		Ratings:     strings.TrimSpace(f.Ratings),
		Image:       f.Image,
	}
}

// Result is the outcome of a mutation. On success Products holds the
// re-fetched catalog.
type Result struct {
	Success  bool
	Message  string
	Error    string
	Products []storeapi.Product
}

// Service implements the products screen
type Service struct {
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewService creates a new products service
func NewService(validate *validator.Validate, logger zerolog.Logger) *Service {
	if validate == nil {
		validate = validator.New()
	}
	return &Service{
		validate: validate,
		logger:   logger.With().Str("component", "products_service").Logger(),
	}
}

// List returns the catalog filtered by search
func (s *Service) List(ctx context.Context, api Catalog, search string) ([]storeapi.Product, error) {
	all, err := api.Products(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(all, search), nil
}

// Get returns one product
func (s *Service) Get(ctx context.Context, api Catalog, productID string) (*storeapi.Product, error) {
	return api.Product(ctx, productID)
}

// Add creates a product and re-fetches the catalog
func (s *Service) Add(ctx context.Context, api Catalog, form Form) Result {
	if err := s.validate.Struct(form); err != nil {
		return Result{Error: requiredMessage(err)}
	}

	msg, err := api.AddProduct(ctx, form.input())
	if err != nil {
		s.logger.Warn().Err(err).Str("name", form.Name).Msg("Failed to add product")
		return Result{Error: failureMessage(err, addFailed)}
	}

	s.logger.Info().Str("name", form.Name).Msg("Product added")
	return s.refetch(ctx, api, msg)
}

// Edit updates a product and re-fetches the catalog
func (s *Service) Edit(ctx context.Context, api Catalog, productID string, form Form) Result {
	if err := s.validate.Struct(form); err != nil {
		return Result{Error: requiredMessage(err)}
	}

	msg, err := api.EditProduct(ctx, productID, form.input())
	if err != nil {
		s.logger.Warn().Err(err).Str("product_id", productID).Msg("Failed to update product")
		return Result{Error: failureMessage(err, updateFailed)}
	}

	s.logger.Info().Str("product_id", productID).Msg("Product updated")
	return s.refetch(ctx, api, msg)
}

// Delete removes a product and re-fetches the catalog
func (s *Service) Delete(ctx context.Context, api Catalog, productID string) Result {
	msg, err := api.DeleteProduct(ctx, productID)
	if err != nil {
		s.logger.Warn().Err(err).Str("product_id", productID).Msg("Failed to delete product")
		return Result{Error: failureMessage(err, deleteFailed)}
	}

	s.logger.Info().Str("product_id", productID).Msg("Product deleted")
	return s.refetch(ctx, api, msg)
}

func (s *Service) refetch(ctx context.Context, api Catalog, msg string) Result {
	all, err := api.Products(ctx)
	if err != nil {
		// The mutation went through; only the list is stale.
		s.logger.Warn().Err(err).Msg("Failed to re-fetch products")
		return Result{Success: true, Message: msg}
	}
	return Result{Success: true, Message: msg, Products: all}
}

// Filter keeps products whose name or category contains search, ignoring case
func Filter(products []storeapi.Product, search string) []storeapi.Product {
	term := strings.ToLower(strings.TrimSpace(search))
	if term == "" {
		return products
	}

	filtered := make([]storeapi.Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), term) ||
			strings.Contains(strings.ToLower(p.Category), term) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// StockBadge labels a product by its stock level
func StockBadge(p storeapi.Product) string {
	switch {
	case p.Status == "out_of_stock" || p.Quantity == 0:
		return OutOfStock
	case p.Quantity < lowStockThreshold:
		return LowStock
	default:
		return InStock
	}
}

// failureMessage prefers the store API's message. A business failure without
// one reads "Something went wrong."; anything else gets fallback.
func failureMessage(err error, fallback string) string {
	var apiErr *storeapi.APIError
	if errors.As(err, &apiErr) && apiErr.Message == "" && apiErr.Status < 300 {
		return noMessage
	}
	return storeapi.MessageOf(err, fallback)
}

func requiredMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.ToLower(fe.Field()))
	}
	return "Please fill in: " + strings.Join(fields, ", ")
}
