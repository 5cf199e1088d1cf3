package conflict

import (
	"context"
	"fmt"

	"github.com/arnavshah/staff-scheduler-go/pkg/apperrors"
	"github.com/arnavshah/staff-scheduler-go/pkg/models"
	"gorm.io/gorm"
)

// Overlap checks if two half-open ranges [aStart, aEnd) and [bStart, bEnd) overlap
func Overlap(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}

// Window parses an optional start/end pair. Both empty means the whole day.
// A lone start runs to the end of the day.
func Window(start, end string) (int, int, error) {
	v := &apperrors.ValidationError{}
	if start == "" && end == "" {
		return 0, models.MinutesPerDay, nil
	}
	if start == "" {
		v.Add("start_time", "required when end_time is set")
		return 0, 0, v
	}
	s, err := models.ParseClock(start)
	if err != nil {
		v.Add("start_time", err.Error())
	}
	e := models.MinutesPerDay
	if end != "" {
		if e, err = models.ParseClock(end); err != nil {
			v.Add("end_time", err.Error())
		}
	}
	if v.HasErrors() {
		return 0, 0, v
	}
	if s >= e {
		return 0, 0, apperrors.NewValidation("start_time", "must be before end_time")
	}
	return s, e, nil
}

// FindOverlaps returns the records whose window intersects [start, end), skipping excludeID.
func FindOverlaps(existing []models.AvailabilityRecord, start, end int, excludeID *uint) []models.AvailabilityRecord {
	var overlaps []models.AvailabilityRecord
	for _, rec := range existing {
		if excludeID != nil && rec.ID == *excludeID {
			continue
		}
		rs, re, err := rec.Window()
		if err != nil {
			continue
		}
		if Overlap(rs, re, start, end) {
			overlaps = append(overlaps, rec)
		}
	}
	return overlaps
}

// IDs lists the ids of records.
func IDs(records []models.AvailabilityRecord) []uint {
	ids := make([]uint, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	return ids
}

// Detector finds stored availability records that would contradict a new or edited one.
type Detector struct {
	DB *gorm.DB
}

// NewDetector creates a detector over the availability_records table.
func NewDetector(db *gorm.DB) *Detector {
	return &Detector{DB: db}
}

// FindOverlaps loads the employee's records for date and returns those overlapping [start, end).
// It has no side effects; the caller decides whether to reject, merge or ignore.
func (d *Detector) FindOverlaps(ctx context.Context, employeeID uint, date, start, end string, excludeID *uint) ([]models.AvailabilityRecord, error) {
	if _, err := models.ParseDate(date); err != nil {
		return nil, apperrors.NewValidation("date", err.Error())
	}
	s, e, err := Window(start, end)
	if err != nil {
		return nil, err
	}

	var existing []models.AvailabilityRecord
	if err := d.DB.WithContext(ctx).
		Where("employee_id = ? AND date = ?", employeeID, date).
		Order("start_time").
		Find(&existing).Error; err != nil {
		return nil, fmt.Errorf("load availability for overlap check: %w", err)
	}
	return FindOverlaps(existing, s, e, excludeID), nil
}
