package demandfeed

import (
	"context"
	"fmt"
	"time"

	"github.com/arnavshah/staff-scheduler-go/pkg/apperrors"
	"github.com/arnavshah/staff-scheduler-go/pkg/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Metric selects which demand_records column drives forecasts.
type Metric string

const (
	MetricCustomers Metric = "customers"
	MetricOrders    Metric = "orders"
)

// SQLSource reads daily demand from the demand_records table.
type SQLSource struct {
	DB     *gorm.DB
	Metric Metric
}

// NewSQLSource creates a source counting customers.
func NewSQLSource(db *gorm.DB) *SQLSource {
	return &SQLSource{DB: db, Metric: MetricCustomers}
}

// HistoricalDemand returns one sample per recorded day between from and to inclusive.
func (s *SQLSource) HistoricalDemand(ctx context.Context, restaurantID uint, from, to time.Time) ([]models.HistoricalSample, error) {
	var records []models.DemandRecord
	err := s.DB.WithContext(ctx).
		Where("restaurant_id = ? AND date BETWEEN ? AND ?", restaurantID, models.FormatDate(from), models.FormatDate(to)).
		Order("date").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("load demand records: %w", err)
	}

	samples := make([]models.HistoricalSample, 0, len(records))
	for _, r := range records {
		d, err := models.ParseDate(r.Date)
		if err != nil {
			continue
		}
		count := r.Customers
		if s.Metric == MetricOrders {
			count = r.Orders
		}
		samples = append(samples, models.HistoricalSample{Date: d, Count: count})
	}
	return samples, nil
}

// DemandInput is one observed day.
type DemandInput struct {
	Date      string  `json:"date" validate:"required"`
	Customers float64 `json:"customers" validate:"min=0"`
	Orders    float64 `json:"orders" validate:"min=0"`
	Revenue   float64 `json:"revenue" validate:"min=0"`
}

// RecordDemand upserts observed days for the restaurant in one transaction.
func (s *SQLSource) RecordDemand(ctx context.Context, restaurantID uint, days []DemandInput) (int, error) {
	v := &apperrors.ValidationError{}
	records := make([]models.DemandRecord, 0, len(days))
	for i, d := range days {
		if _, err := models.ParseDate(d.Date); err != nil {
			v.Add(fmt.Sprintf("days[%d].date", i), err.Error())
			continue
		}
		if d.Customers < 0 || d.Orders < 0 || d.Revenue < 0 {
			v.Add(fmt.Sprintf("days[%d]", i), "values must not be negative")
			continue
		}
		records = append(records, models.DemandRecord{
			RestaurantID: restaurantID,
			Date:         d.Date,
			Customers:    d.Customers,
			Orders:       d.Orders,
			Revenue:      d.Revenue,
		})
	}
	if err := v.OrNil(); err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "restaurant_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"customers", "orders", "revenue"}),
	}).Create(&records).Error
	if err != nil {
		return 0, fmt.Errorf("record demand: %w", err)
	}
	return len(records), nil
}
