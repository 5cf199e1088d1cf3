package scheduler

import (
	"fmt"
	"math"

	"github.com/arnavshah/staff-scheduler-go/pkg/apperrors"
	"github.com/arnavshah/staff-scheduler-go/pkg/models"
)

// ShiftTemplate is one shift of the day and the share of daily demand it serves.
type ShiftTemplate struct {
	Type         models.ShiftType `json:"shift_type" validate:"required"`
	StartTime    string           `json:"start_time" validate:"required"`
	EndTime      string           `json:"end_time" validate:"required"`
	BreakMinutes int              `json:"break_duration" validate:"min=0"`
	DemandShare  float64          `json:"demand_share" validate:"min=0,max=1"`
}

// StaffingRatio converts demand into headcount for one position.
type StaffingRatio struct {
	Position          models.Position `json:"position" validate:"required"`
	CustomersPerStaff float64         `json:"customers_per_staff" validate:"gt=0"`
	MinStaff          int             `json:"min_staff" validate:"min=0"`
}

// StaffingPolicy turns a forecast into slots.
type StaffingPolicy struct {
	Templates []ShiftTemplate `json:"templates" validate:"dive"`
	Ratios    []StaffingRatio `json:"ratios" validate:"dive"`
}

// DefaultPolicy covers a two-shift restaurant day with front and back of house.
func DefaultPolicy() StaffingPolicy {
	return StaffingPolicy{
		Templates: []ShiftTemplate{
			{Type: models.ShiftMorning, StartTime: "07:00", EndTime: "15:00", BreakMinutes: 30, DemandShare: 0.4},
			{Type: models.ShiftEvening, StartTime: "15:00", EndTime: "23:00", BreakMinutes: 30, DemandShare: 0.6},
		},
		Ratios: []StaffingRatio{
			{Position: models.PositionWaiter, CustomersPerStaff: 25, MinStaff: 1},
			{Position: models.PositionCook, CustomersPerStaff: 40, MinStaff: 1},
		},
	}
}

// BuildSlots expands each forecast day into one slot per template and ratio.
// Slots needing nobody are omitted.
func BuildSlots(demand []models.ForecastPeriod, policy StaffingPolicy) ([]models.Slot, error) {
	v := &apperrors.ValidationError{}
	for i, tpl := range policy.Templates {
		if _, _, err := models.ClockSpan(tpl.StartTime, tpl.EndTime); err != nil {
			v.Add(fmt.Sprintf("policy.templates[%d]", i), err.Error())
		}
	}
	for i, r := range policy.Ratios {
		if r.CustomersPerStaff <= 0 {
			v.Add(fmt.Sprintf("policy.ratios[%d].customers_per_staff", i), "must be greater than 0")
		}
	}
	for i, p := range demand {
		if _, err := models.ParseDate(p.Date); err != nil {
			v.Add(fmt.Sprintf("demand[%d].date", i), err.Error())
		}
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	var slots []models.Slot
	for _, p := range demand {
		for _, tpl := range policy.Templates {
			customers := float64(p.PredictedCount) * tpl.DemandShare
			for _, r := range policy.Ratios {
				headcount := int(math.Ceil(customers / r.CustomersPerStaff))
				if headcount < r.MinStaff {
					headcount = r.MinStaff
				}
				if headcount <= 0 {
					continue
				}
				slots = append(slots, models.Slot{
					Date:         p.Date,
					ShiftType:    tpl.Type,
					StartTime:    tpl.StartTime,
					EndTime:      tpl.EndTime,
					BreakMinutes: tpl.BreakMinutes,
					Position:     r.Position,
					Headcount:    headcount,
					Demand:       int(math.Round(customers)),
					Confidence:   p.Confidence,
				})
			}
		}
	}
	return slots, nil
}
