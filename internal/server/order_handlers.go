package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/storeadmin-dev/storeadmin/internal/orders"
	"github.com/storeadmin-dev/storeadmin/internal/storeapi"
)

func (s *Server) ordersPage(c *gin.Context) {
	entry, _ := GetSessionEntry(c)
	search := c.Query("search")

	list, err := orders.List(c.Request.Context(), entry.Client, search)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to load orders")
		s.render(c, http.StatusOK, "orders.html", gin.H{
			"Search": search,
			"Error":  storeapi.MessageOf(err, "Failed to load orders"),
		})
		return
	}

	s.render(c, http.StatusOK, "orders.html", gin.H{
		"Search": search,
		"Orders": list,
	})
}

func (s *Server) customersPage(c *gin.Context) {
	entry, _ := GetSessionEntry(c)
	search := c.Query("search")

	list, err := orders.List(c.Request.Context(), entry.Client, "")
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to load orders")
		s.render(c, http.StatusOK, "customers.html", gin.H{
			"Search":     search,
			"Total":      0,
			"TotalSpent": 0.0,
			"Error":      storeapi.MessageOf(err, "Failed to load customers"),
		})
		return
	}

	all := orders.Customers(list)
	var spent float64
	for _, customer := range all {
		spent += customer.TotalSpent
	}

	s.render(c, http.StatusOK, "customers.html", gin.H{
		"Search":     search,
		"Customers":  orders.FilterCustomers(all, search),
		"Total":      len(all),
		"TotalSpent": spent,
	})
}

func (s *Server) listOrders(c *gin.Context) {
	entry, _ := GetSessionEntry(c)

	list, err := orders.List(c.Request.Context(), entry.Client, c.Query("search"))
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to load orders")
		c.JSON(http.StatusBadGateway, gin.H{"error": storeapi.MessageOf(err, "Failed to load orders")})
		return
	}

	c.JSON(http.StatusOK, list)
}

func (s *Server) listCustomers(c *gin.Context) {
	entry, _ := GetSessionEntry(c)

	list, err := orders.List(c.Request.Context(), entry.Client, "")
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to load orders")
		c.JSON(http.StatusBadGateway, gin.H{"error": storeapi.MessageOf(err, "Failed to load customers")})
		return
	}

	c.JSON(http.StatusOK, orders.FilterCustomers(orders.Customers(list), c.Query("search")))
}
