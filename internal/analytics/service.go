// Package analytics computes dashboard metrics and keeps a history of
// periodic captures.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/storeadmin-dev/storeadmin/internal/models"
	"github.com/storeadmin-dev/storeadmin/internal/storeapi"
)

// DefaultHistory is how many snapshots the analytics screen shows
const DefaultHistory = 48

// Source is the part of the store API metrics are computed from
type Source interface {
	RecentOrders(ctx context.Context) ([]storeapi.Order, error)
	Products(ctx context.Context) ([]storeapi.Product, error)
}

// Service stores and reads metric snapshots
type Service struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewService creates a new analytics service
func NewService(db *gorm.DB, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger.With().Str("component", "analytics_service").Logger(),
	}
}

// Current fetches orders and products and computes live metrics
func (s *Service) Current(ctx context.Context, src Source) (Metrics, []storeapi.Order, error) {
	orderList, err := src.RecentOrders(ctx)
	if err != nil {
		return Metrics{}, nil, fmt.Errorf("failed to fetch orders: %w", err)
	}
	catalog, err := src.Products(ctx)
	if err != nil {
		return Metrics{}, nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	return Compute(orderList, catalog), orderList, nil
}

// Capture computes metrics from src and stores them as a snapshot
func (s *Service) Capture(ctx context.Context, src Source) (*models.MetricSnapshot, error) {
	m, _, err := s.Current(ctx, src)
	if err != nil {
		return nil, err
	}
	return s.Record(ctx, m, time.Now().UTC())
}

// Record stores metrics captured at the given time
func (s *Service) Record(ctx context.Context, m Metrics, capturedAt time.Time) (*models.MetricSnapshot, error) {
	snapshot := &models.MetricSnapshot{
		CapturedAt:      capturedAt.UTC(),
		Revenue:         m.Revenue,
		Orders:          m.Orders,
		PaidOrders:      m.PaidOrders,
		PendingOrders:   m.PendingOrders,
		CancelledOrders: m.CancelledOrders,
		Customers:       m.Customers,
		Products:        m.Products,
		LowStock:        m.LowStock,
	}
	if err := s.db.WithContext(ctx).Create(snapshot).Error; err != nil {
		return nil, fmt.Errorf("failed to store metric snapshot: %w", err)
	}

	s.logger.Info().
		Str("snapshot_id", snapshot.ID).
		Float64("revenue", snapshot.Revenue).
		Int("orders", snapshot.Orders).
		Msg("Captured metric snapshot")

	return snapshot, nil
}

// History returns up to limit snapshots, newest first
func (s *Service) History(ctx context.Context, limit int) ([]models.MetricSnapshot, error) {
	if limit <= 0 {
		limit = DefaultHistory
	}
	var snapshots []models.MetricSnapshot
	err := s.db.WithContext(ctx).
		Order("captured_at DESC").
		Limit(limit).
		Find(&snapshots).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list metric snapshots: %w", err)
	}
	return snapshots, nil
}

// Latest returns the newest snapshot, or nil when none has been captured
func (s *Service) Latest(ctx context.Context) (*models.MetricSnapshot, error) {
	var snapshot models.MetricSnapshot
	err := s.db.WithContext(ctx).Order("captured_at DESC").First(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find latest metric snapshot: %w", err)
	}
	return &snapshot, nil
}

// PruneBefore deletes snapshots captured before cutoff
func (s *Service) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("captured_at < ?", cutoff.UTC()).
		Delete(&models.MetricSnapshot{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune metric snapshots: %w", result.Error)
	}
	return result.RowsAffected, nil
}
