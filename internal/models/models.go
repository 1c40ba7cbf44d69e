package models

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"

	"github.com/storeadmin-dev/storeadmin/internal/assert"
)

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = NewID()
	}
	return nil
}

// NewID returns a fresh ULID string
func NewID() string {
	id := ulid.Make().String()
	assert.Length(id, 26) // varchar(26) primary key
	return id
}

// BrowserSession is the admin panel's record of one browser. It holds the
// upstream store API cookies (sealed) so a reload or restart can re-run the
// identity check. The identity itself is never stored.
type BrowserSession struct {
	BaseModel
	Cookies    []byte    `json:"-" gorm:"type:blob"`
	LastSeenAt time.Time `json:"last_seen_at" gorm:"index;not null"`
}

// MetricSnapshot is one capture of the dashboard metrics
type MetricSnapshot struct {
	BaseModel
	CapturedAt      time.Time `json:"captured_at" gorm:"index;not null"`
	Revenue         float64   `json:"revenue" gorm:"not null;default:0"` // sum of paid order totals
	Orders          int       `json:"orders" gorm:"not null;default:0"`
	PaidOrders      int       `json:"paid_orders" gorm:"not null;default:0"`
	PendingOrders   int       `json:"pending_orders" gorm:"not null;default:0"`
	CancelledOrders int       `json:"cancelled_orders" gorm:"not null;default:0"`
	Customers       int       `json:"customers" gorm:"not null;default:0"`
	Products        int       `json:"products" gorm:"not null;default:0"`
	LowStock        int       `json:"low_stock" gorm:"not null;default:0"`
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	models := []interface{}{
		&BrowserSession{}, &MetricSnapshot{},
	}

	return db.AutoMigrate(models...)
}

// FindByID safely finds a record by string ID
func FindByID[T any](db *gorm.DB, id string, model *T) error {
	return db.Where("id = ?", id).First(model).Error
}
