package models

import "time"

// ShiftType is the part of the day a shift covers.
type ShiftType string

const (
	ShiftMorning   ShiftType = "morning"
	ShiftAfternoon ShiftType = "afternoon"
	ShiftEvening   ShiftType = "evening"
	ShiftNight     ShiftType = "night"
)

// ShiftStatus is the lifecycle state of a shift.
type ShiftStatus string

const (
	StatusScheduled  ShiftStatus = "scheduled"
	StatusConfirmed  ShiftStatus = "confirmed"
	StatusInProgress ShiftStatus = "in_progress"
	StatusCompleted  ShiftStatus = "completed"
	StatusCancelled  ShiftStatus = "cancelled"
	StatusNoShow     ShiftStatus = "no_show"
)

// Terminal reports whether no further transitions are allowed from s.
func (s ShiftStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

// Shift is one employee working one block of time
type Shift struct {
	ID              uint        `gorm:"primaryKey" json:"id"`
	RestaurantID    uint        `gorm:"index:idx_shift_horizon;not null" json:"restaurant_id"`
	EmployeeID      uint        `gorm:"index;not null" json:"employee_id"`
	Date            string      `gorm:"index:idx_shift_horizon;size:10;not null" json:"date"`
	StartTime       string      `gorm:"size:5;not null" json:"start_time"`
	EndTime         string      `gorm:"size:5;not null" json:"end_time"`
	BreakMinutes    int         `json:"break_duration"`
	ShiftType       ShiftType   `gorm:"size:16;not null" json:"shift_type"`
	Position        Position    `gorm:"size:32;not null" json:"position"`
	Status          ShiftStatus `gorm:"size:16;not null;default:scheduled" json:"status"`
	PredictedDemand *int        `json:"predicted_demand,omitempty"`
	ActualDemand    *int        `json:"actual_demand,omitempty"`
	EfficiencyScore *float64    `json:"efficiency_score,omitempty"`
	LaborCost       float64     `json:"labor_cost"`
	AIGenerated     bool        `gorm:"index" json:"ai_generated"`
	AIConfidence    *float64    `json:"ai_confidence,omitempty"`
	BatchID         string      `gorm:"size:36;index" json:"batch_id,omitempty"`
	ScoredAt        *time.Time  `gorm:"index" json:"scored_at,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// Bounds returns the absolute start and end instants of the shift.
func (s *Shift) Bounds() (time.Time, time.Time, error) {
	day, err := ParseDate(s.Date)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start, end, err := ClockSpan(s.StartTime, s.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return day.Add(time.Duration(start) * time.Minute), day.Add(time.Duration(end) * time.Minute), nil
}

// PaidHours is the shift duration less its break.
func (s *Shift) PaidHours() float64 {
	start, end, err := ClockSpan(s.StartTime, s.EndTime)
	if err != nil {
		return 0
	}
	paid := float64(end-start-s.BreakMinutes) / 60
	if paid < 0 {
		return 0
	}
	return paid
}

// DemandRecord is one day of observed demand, the historical feed for forecasting.
type DemandRecord struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	RestaurantID uint      `gorm:"uniqueIndex:idx_demand_day;not null" json:"restaurant_id"`
	Date         string    `gorm:"uniqueIndex:idx_demand_day;size:10;not null" json:"date"`
	Customers    float64   `json:"customers"`
	Orders       float64   `json:"orders"`
	Revenue      float64   `json:"revenue"`
	CreatedAt    time.Time `json:"created_at"`
}
