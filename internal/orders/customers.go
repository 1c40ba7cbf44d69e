package orders

import (
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/storeadmin-dev/storeadmin/internal/storeapi"
)

// Customer is a buyer derived from the orders placed under one email
type Customer struct {
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Orders     int       `json:"orders"`
	TotalSpent float64   `json:"total_spent"`
	LastOrder  time.Time `json:"last_order"`
}

// Initials returns the upper-cased first letter of each word of the name
func (c Customer) Initials() string {
	var b strings.Builder
	for _, word := range strings.Fields(c.Name) {
		r, _ := utf8.DecodeRuneInString(word)
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// Customers groups orders by email, case-insensitively. Cancelled orders
// count towards the order total but not the amount spent. The most recent
// order supplies the name. Customers are ordered by amount spent.
func Customers(list []storeapi.Order) []Customer {
	byEmail := make(map[string]*Customer)
	var keys []string

	for _, o := range list {
		key := strings.ToLower(strings.TrimSpace(o.Email))
		if key == "" {
			continue
		}

		c, ok := byEmail[key]
		if !ok {
			c = &Customer{Email: strings.TrimSpace(o.Email)}
			byEmail[key] = c
			keys = append(keys, key)
		}

		c.Orders++
		if !strings.EqualFold(o.PaymentStatus, StatusCancelled) {
			c.TotalSpent += o.TotalAmount
		}
		if c.Name == "" || o.CreatedAt.After(c.LastOrder) {
			c.Name = o.Name
		}
		if o.CreatedAt.After(c.LastOrder) {
			c.LastOrder = o.CreatedAt
		}
	}

	customers := make([]Customer, 0, len(keys))
	for _, key := range keys {
		customers = append(customers, *byEmail[key])
	}
	sort.SliceStable(customers, func(i, j int) bool {
		return customers[i].TotalSpent > customers[j].TotalSpent
	})
	return customers
}

// FilterCustomers keeps customers whose name or email contains search
func FilterCustomers(customers []Customer, search string) []Customer {
	term := strings.ToLower(strings.TrimSpace(search))
	if term == "" {
		return customers
	}

	filtered := make([]Customer, 0, len(customers))
	for _, c := range customers {
		if strings.Contains(strings.ToLower(c.Name), term) ||
			strings.Contains(strings.ToLower(c.Email), term) {
			filtered = append(filtered, c)
		}
	}
	return filtered
}
