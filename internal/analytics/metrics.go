package analytics

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/storeadmin-dev/storeadmin/internal/models"
	"github.com/storeadmin-dev/storeadmin/internal/orders"
	"github.com/storeadmin-dev/storeadmin/internal/products"
	"github.com/storeadmin-dev/storeadmin/internal/storeapi"
)

// Currency prefixes money amounts on the admin screens
const Currency = "₹"

// Metrics are the dashboard figures derived from orders and the catalog
type Metrics struct {
	Revenue         float64 `json:"revenue"`
	Orders          int     `json:"orders"`
	PaidOrders      int     `json:"paid_orders"`
	PendingOrders   int     `json:"pending_orders"`
	CancelledOrders int     `json:"cancelled_orders"`
	Customers       int     `json:"customers"`
	Products        int     `json:"products"`
	LowStock        int     `json:"low_stock"`
}

// Compute derives metrics. Revenue only counts paid orders; LowStock counts
// every product not in stock.
func Compute(orderList []storeapi.Order, catalog []storeapi.Product) Metrics {
	m := Metrics{
		Orders:    len(orderList),
		Customers: len(orders.Customers(orderList)),
		Products:  len(catalog),
	}

	for _, o := range orderList {
		switch strings.ToLower(o.PaymentStatus) {
		case orders.StatusPaid:
			m.PaidOrders++
			m.Revenue += o.TotalAmount
		case orders.StatusPending:
			m.PendingOrders++
		case orders.StatusCancelled:
			m.CancelledOrders++
		}
	}

	for _, p := range catalog {
		if products.StockBadge(p) != products.InStock {
			m.LowStock++
		}
	}

	return m
}

// FromSnapshot reads the metrics back out of a stored snapshot
func FromSnapshot(s models.MetricSnapshot) Metrics {
	return Metrics{
		Revenue:         s.Revenue,
		Orders:          s.Orders,
		PaidOrders:      s.PaidOrders,
		PendingOrders:   s.PendingOrders,
		CancelledOrders: s.CancelledOrders,
		Customers:       s.Customers,
		Products:        s.Products,
		LowStock:        s.LowStock,
	}
}

// Card is one dashboard metric tile
type Card struct {
	Title    string `json:"title"`
	Value    string `json:"value"`
	Change   string `json:"change,omitempty"`
	Positive bool   `json:"positive"`
}

// Cards builds the dashboard tiles. Changes are relative to previous and left
// blank when there is nothing to compare against.
func Cards(current Metrics, previous *Metrics) []Card {
	cards := []Card{
		{Title: "Total Revenue", Value: FormatMoney(current.Revenue)},
		{Title: "Orders", Value: humanize.Comma(int64(current.Orders))},
		{Title: "Customers", Value: humanize.Comma(int64(current.Customers))},
		{Title: "Products", Value: humanize.Comma(int64(current.Products))},
	}
	if previous == nil {
		return cards
	}

	pairs := [][2]float64{
		{current.Revenue, previous.Revenue},
		{float64(current.Orders), float64(previous.Orders)},
		{float64(current.Customers), float64(previous.Customers)},
		{float64(current.Products), float64(previous.Products)},
	}
	for i, p := range pairs {
		cards[i].Change, cards[i].Positive = Change(p[0], p[1])
	}
	return cards
}

// Change formats the relative change from previous to current, e.g. "+20.1%"
func Change(current, previous float64) (string, bool) {
	if previous == 0 {
		return "", current >= 0
	}
	pct := (current - previous) / previous * 100
	return fmt.Sprintf("%+.1f%%", pct), pct >= 0
}

// FormatMoney renders an amount with thousands separators and two decimals
func FormatMoney(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	whole := int64(amount)
	cents := int64((amount-float64(whole))*100 + 0.5)
	if cents == 100 {
		whole++
		cents = 0
	}
	return fmt.Sprintf("%s%s%s.%02d", sign, Currency, humanize.Comma(whole), cents)
}
