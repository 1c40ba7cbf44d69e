// Package orders shapes the store API's recent orders for the dashboard,
// orders and customers screens.
package orders

import (
	"context"
	"sort"
	"strings"

	"github.com/storeadmin-dev/storeadmin/internal/storeapi"
)

// Source is the part of the store API that lists orders
type Source interface {
	RecentOrders(ctx context.Context) ([]storeapi.Order, error)
}

// Payment statuses the store API reports
const (
	StatusPaid      = "paid"
	StatusPending   = "pending"
	StatusCancelled = "cancelled"
)

// List returns recent orders, newest first, filtered by search
func List(ctx context.Context, src Source, search string) ([]storeapi.Order, error) {
	all, err := src.RecentOrders(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(SortNewest(all), search), nil
}

// SortNewest returns orders ordered by creation time, newest first
func SortNewest(orders []storeapi.Order) []storeapi.Order {
	sorted := make([]storeapi.Order, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	return sorted
}

// Filter keeps orders whose ID, name or email contains search, ignoring case
func Filter(orders []storeapi.Order, search string) []storeapi.Order {
	term := strings.ToLower(strings.TrimSpace(search))
	if term == "" {
		return orders
	}

	filtered := make([]storeapi.Order, 0, len(orders))
	for _, o := range orders {
		if strings.Contains(strings.ToLower(o.ID), term) ||
			strings.Contains(strings.ToLower(o.Name), term) ||
			strings.Contains(strings.ToLower(o.Email), term) {
			filtered = append(filtered, o)
		}
	}
	return filtered
}

// ShortID is the order number shown on the dashboard: the last six
// characters of the ID, upper-cased
func ShortID(id string) string {
	if len(id) > 6 {
		id = id[len(id)-6:]
	}
	return strings.ToUpper(id)
}

// BadgeClass maps a payment status to its badge style. Unknown statuses get
// the neutral style.
func BadgeClass(status string) string {
	switch strings.ToLower(status) {
	case StatusPaid:
		return "badge-paid"
	case StatusPending:
		return "badge-pending"
	case StatusCancelled:
		return "badge-cancelled"
	default:
		return "badge-neutral"
	}
}
