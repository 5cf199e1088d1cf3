package roster

import (
	"context"
	"errors"
	"fmt"

	"github.com/arnavshah/staff-scheduler-go/pkg/apperrors"
	"github.com/arnavshah/staff-scheduler-go/pkg/logging"
	"github.com/arnavshah/staff-scheduler-go/pkg/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// transitions lists the allowed forward moves. Cancellation is handled separately.
var transitions = map[models.ShiftStatus][]models.ShiftStatus{
	models.StatusScheduled:  {models.StatusConfirmed, models.StatusNoShow},
	models.StatusConfirmed:  {models.StatusInProgress, models.StatusNoShow},
	models.StatusInProgress: {models.StatusCompleted},
}

// CanTransition reports whether a shift may move from one status to another.
func CanTransition(from, to models.ShiftStatus) bool {
	if from.Terminal() {
		return false
	}
	if to == models.StatusCancelled {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ShiftFilter narrows ListShifts. Empty fields match everything.
type ShiftFilter struct {
	RestaurantID uint
	From         string
	To           string
	EmployeeID   uint
	Status       models.ShiftStatus
}

// ListShifts returns shifts ordered by date and start time.
func (r *Repository) ListShifts(ctx context.Context, f ShiftFilter) ([]models.Shift, error) {
	q := r.DB.WithContext(ctx).Where("restaurant_id = ?", f.RestaurantID)
	if f.From != "" {
		q = q.Where("date >= ?", f.From)
	}
	if f.To != "" {
		q = q.Where("date <= ?", f.To)
	}
	if f.EmployeeID != 0 {
		q = q.Where("employee_id = ?", f.EmployeeID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	shifts := []models.Shift{}
	if err := q.Order("date, start_time, id").Find(&shifts).Error; err != nil {
		return nil, fmt.Errorf("list shifts: %w", err)
	}
	return shifts, nil
}

// SaveShifts replaces the restaurant's AI-generated, still scheduled shifts between
// from and to with shifts, all in one transaction. Manually created shifts and
// shifts already confirmed or worked are kept. A non-empty employeeIDs limits the
// replacement to those employees.
func (r *Repository) SaveShifts(ctx context.Context, restaurantID uint, from, to string, employeeIDs []uint, shifts []models.Shift) (int64, error) {
	v := &apperrors.ValidationError{}
	if _, err := models.ParseDate(from); err != nil {
		v.Add("from", err.Error())
	}
	if _, err := models.ParseDate(to); err != nil {
		v.Add("to", err.Error())
	}
	planned := make(map[uint]bool, len(employeeIDs))
	for _, id := range employeeIDs {
		planned[id] = true
	}
	for i, sh := range shifts {
		if len(planned) > 0 && !planned[sh.EmployeeID] {
			v.Add(fmt.Sprintf("shifts[%d].employee_id", i), "not among the planned employees")
		}
		if sh.Date < from || sh.Date > to {
			v.Add(fmt.Sprintf("shifts[%d].date", i), "outside the horizon")
		}
		if _, _, err := models.ClockSpan(sh.StartTime, sh.EndTime); err != nil {
			v.Add(fmt.Sprintf("shifts[%d].start_time", i), err.Error())
		}
	}
	if err := v.OrNil(); err != nil {
		return 0, err
	}

	var replaced int64
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("restaurant_id = ? AND date BETWEEN ? AND ? AND ai_generated = ? AND status = ?",
			restaurantID, from, to, true, models.StatusScheduled)
		if len(employeeIDs) > 0 {
			q = q.Where("employee_id IN ?", employeeIDs)
		}
		res := q.Delete(&models.Shift{})
		if res.Error != nil {
			return fmt.Errorf("clear generated shifts: %w", res.Error)
		}
		replaced = res.RowsAffected

		if len(shifts) == 0 {
			return nil
		}
		for i := range shifts {
			shifts[i].ID = 0
			shifts[i].RestaurantID = restaurantID
			if shifts[i].Status == "" {
				shifts[i].Status = models.StatusScheduled
			}
		}
		if err := tx.CreateInBatches(shifts, 100).Error; err != nil {
			return fmt.Errorf("insert shifts: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logging.FromContext(ctx, r.Logger).Warn("replaced generated shifts",
		zap.Uint("restaurant_id", restaurantID),
		zap.String("from", from), zap.String("to", to),
		zap.Int64("removed", replaced), zap.Int("inserted", len(shifts)))
	return replaced, nil
}

// ShiftUpdate is a status change with optional outcome data.
type ShiftUpdate struct {
	Status          models.ShiftStatus `json:"status" validate:"required,oneof=scheduled confirmed in_progress completed cancelled no_show"`
	ActualDemand    *int               `json:"actual_demand" validate:"omitempty,min=0"`
	EfficiencyScore *float64           `json:"efficiency_score" validate:"omitempty,min=0,max=100"`
}

// UpdateShiftStatus moves a shift through its lifecycle.
func (r *Repository) UpdateShiftStatus(ctx context.Context, restaurantID, id uint, upd ShiftUpdate) (*models.Shift, error) {
	if err := apperrors.FromValidator(r.validate.Struct(upd)); err != nil {
		return nil, err
	}

	var sh models.Shift
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("restaurant_id = ? AND id = ?", restaurantID, id).First(&sh).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("shift", id)
		}
		if err != nil {
			return err
		}
		if !CanTransition(sh.Status, upd.Status) {
			return apperrors.NewValidation("status", fmt.Sprintf("cannot move from %s to %s", sh.Status, upd.Status))
		}
		sh.Status = upd.Status
		if upd.ActualDemand != nil {
			sh.ActualDemand = upd.ActualDemand
		}
		if upd.EfficiencyScore != nil {
			sh.EfficiencyScore = upd.EfficiencyScore
		}
		return tx.Save(&sh).Error
	})
	if err != nil {
		return nil, err
	}
	return &sh, nil
}
