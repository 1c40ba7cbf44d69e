package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/storeadmin-dev/storeadmin/internal/products"
	"github.com/storeadmin-dev/storeadmin/internal/storeapi"
)

// ProductResponse is a product with its stock badge
type ProductResponse struct {
	storeapi.Product
	Stock string `json:"stock"`
}

func (s *Server) productsPage(c *gin.Context) {
	entry, _ := GetSessionEntry(c)
	search := c.Query("search")

	list, err := s.productsService.List(c.Request.Context(), entry.Client, search)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to load products")
		s.render(c, http.StatusOK, "products.html", gin.H{
			"Search": search,
			"Error":  storeapi.MessageOf(err, "Failed to load products"),
		})
		return
	}

	s.render(c, http.StatusOK, "products.html", gin.H{
		"Search":   search,
		"Products": list,
	})
}

func (s *Server) productPage(c *gin.Context) {
	entry, _ := GetSessionEntry(c)

	product, err := s.productsService.Get(c.Request.Context(), entry.Client, c.Param("id"))
	if err != nil {
		s.logger.Warn().Err(err).Str("product_id", c.Param("id")).Msg("Failed to load product")
		s.render(c, http.StatusNotFound, "product.html", gin.H{
			"Error": storeapi.MessageOf(err, "Product not found"),
		})
		return
	}

	s.render(c, http.StatusOK, "product.html", gin.H{"Product": *product})
}

func (s *Server) newProductPage(c *gin.Context) {
	s.render(c, http.StatusOK, "product_form.html", gin.H{
		"Action": "/products",
		"Form":   products.Form{},
	})
}

func (s *Server) editProductPage(c *gin.Context) {
	entry, _ := GetSessionEntry(c)
	id := c.Param("id")

	product, err := s.productsService.Get(c.Request.Context(), entry.Client, id)
	if err != nil {
		s.logger.Warn().Err(err).Str("product_id", id).Msg("Failed to load product")
		s.render(c, http.StatusNotFound, "product.html", gin.H{
			"Error": storeapi.MessageOf(err, "Product not found"),
		})
		return
	}

	s.render(c, http.StatusOK, "product_form.html", gin.H{
		"Action":    "/products/" + id,
		"ProductID": id,
		"Form":      formFromProduct(product),
	})
}

func (s *Server) createProduct(c *gin.Context) {
	entry, _ := GetSessionEntry(c)

	form, closeImage, err := bindProductForm(c)
	if err != nil {
		s.render(c, http.StatusBadRequest, "product_form.html", gin.H{"Action": "/products", "Form": form, "Error": "Invalid form"})
		return
	}
	defer closeImage()

	result := s.productsService.Add(c.Request.Context(), entry.Client, form)
	if !result.Success {
		s.render(c, http.StatusOK, "product_form.html", gin.H{
			"Action": "/products",
			"Form":   form,
			"Error":  result.Error,
		})
		return
	}

	s.renderProducts(c, result)
}

func (s *Server) updateProduct(c *gin.Context) {
	entry, _ := GetSessionEntry(c)
	id := c.Param("id")

	form, closeImage, err := bindProductForm(c)
	if err != nil {
		s.render(c, http.StatusBadRequest, "product_form.html", gin.H{"Action": "/products/" + id, "ProductID": id, "Form": form, "Error": "Invalid form"})
		return
	}
	defer closeImage()

	result := s.productsService.Edit(c.Request.Context(), entry.Client, id, form)
	if !result.Success {
		s.render(c, http.StatusOK, "product_form.html", gin.H{
			"Action":    "/products/" + id,
			"ProductID": id,
			"Form":      form,
			"Error":     result.Error,
		})
		return
	}

	s.renderProducts(c, result)
}

func (s *Server) deleteProduct(c *gin.Context) {
	entry, _ := GetSessionEntry(c)

	result := s.productsService.Delete(c.Request.Context(), entry.Client, c.Param("id"))
	if !result.Success {
		list, err := s.productsService.List(c.Request.Context(), entry.Client, "")
		if err != nil {
			s.logger.Warn().Err(err).Msg("Failed to load products")
		}
		s.render(c, http.StatusOK, "products.html", gin.H{
			"Products": list,
			"Error":    result.Error,
		})
		return
	}

	s.renderProducts(c, result)
}

// renderProducts shows the re-fetched catalog after a successful mutation
func (s *Server) renderProducts(c *gin.Context, result products.Result) {
	s.render(c, http.StatusOK, "products.html", gin.H{
		"Products": result.Products,
		"Message":  result.Message,
	})
}

func (s *Server) listProducts(c *gin.Context) {
	entry, _ := GetSessionEntry(c)

	list, err := s.productsService.List(c.Request.Context(), entry.Client, c.Query("search"))
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to load products")
		c.JSON(http.StatusBadGateway, gin.H{"error": storeapi.MessageOf(err, "Failed to load products")})
		return
	}

	response := make([]ProductResponse, 0, len(list))
	for _, p := range list {
		response = append(response, ProductResponse{Product: p, Stock: products.StockBadge(p)})
	}
	c.JSON(http.StatusOK, response)
}

func (s *Server) apiDeleteProduct(c *gin.Context) {
	entry, _ := GetSessionEntry(c)

	result := s.productsService.Delete(c.Request.Context(), entry.Client, c.Param("id"))
	if !result.Success {
		c.JSON(http.StatusBadGateway, gin.H{"error": result.Error})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  result.Message,
		"products": result.Products,
	})
}

// bindProductForm binds the product form and its optional image. The
// returned func closes the image.
func bindProductForm(c *gin.Context) (products.Form, func(), error) {
	var form products.Form
	if err := c.ShouldBind(&form); err != nil {
		return form, func() {}, err
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		// No image uploaded
		return form, func() {}, nil
	}

	file, err := fileHeader.Open()
	if err != nil {
		return form, func() {}, err
	}
	form.Image = &storeapi.Image{Filename: fileHeader.Filename, Content: file}

	return form, func() { _ = file.Close() }, nil
}

func formFromProduct(p *storeapi.Product) products.Form {
	return products.Form{
		Name:        p.Name,
		Description: p.Description,
		Price:       formatNumber(p.Price),
		Quantity:    formatNumber(float64(p.Quantity)),
		Category:    p.Category,
		Discount:    formatNumber(p.Discount),
		Ratings:     formatNumber(p.Ratings),
	}
}

// formatNumber renders a number without trailing zeros for form fields
func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
