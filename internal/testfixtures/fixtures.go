package testfixtures

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/arnavshah/staff-scheduler-go/pkg/models"
	"gorm.io/gorm"
)

var employeeCounter uint64

// Monday is the canonical start of the fixture planning week.
var Monday = time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)

// EmployeeOption configures a generated employee.
type EmployeeOption func(*models.Employee)

// NewEmployee returns a deterministic waiter available 06:00-24:00 every day.
func NewEmployee(opts ...EmployeeOption) models.Employee {
	idx := atomic.AddUint64(&employeeCounter, 1)
	var week models.WeeklyAvailability
	for i := range week {
		week[i] = models.DayAvailability{Available: true, StartTime: "06:00", EndTime: "24:00", Preference: 3}
	}
	emp := models.Employee{
		RestaurantID:     1,
		Name:             fmt.Sprintf("Employee %03d", idx),
		Department:       models.DepartmentService,
		Position:         models.PositionWaiter,
		EmploymentType:   models.EmploymentPartTime,
		HourlyWage:       15,
		MinHoursPerWeek:  0,
		MaxHoursPerWeek:  40,
		SkillLevel:       5,
		Availability:     week,
		ShiftPreferences: models.ShiftPreferences{MaxConsecutiveDays: 6, MinRestHours: 8},
		PerformanceScore: models.DefaultRating,
		ReliabilityScore: models.DefaultRating,
		CustomerRating:   models.DefaultRating,
		IsActive:         true,
	}
	for _, opt := range opts {
		opt(&emp)
	}
	return emp
}

// WithID sets the employee id.
func WithID(id uint) EmployeeOption {
	return func(e *models.Employee) { e.ID = id }
}

// WithPosition sets position and department.
func WithPosition(p models.Position, d models.Department) EmployeeOption {
	return func(e *models.Employee) {
		e.Position = p
		e.Department = d
	}
}

// WithWage sets the hourly wage.
func WithWage(w float64) EmployeeOption {
	return func(e *models.Employee) { e.HourlyWage = w }
}

// WithHours sets the weekly hour bounds.
func WithHours(min, max float64) EmployeeOption {
	return func(e *models.Employee) {
		e.MinHoursPerWeek = min
		e.MaxHoursPerWeek = max
	}
}

// WithSkill sets skill level and performance score.
func WithSkill(skill int, performance float64) EmployeeOption {
	return func(e *models.Employee) {
		e.SkillLevel = skill
		e.PerformanceScore = performance
	}
}

// WithDayOff marks one weekday (Monday = 0) unavailable.
func WithDayOff(day int) EmployeeOption {
	return func(e *models.Employee) { e.Availability[day].Available = false }
}

// CreateEmployee inserts the employee and returns it with its id.
func CreateEmployee(tb testing.TB, db *gorm.DB, opts ...EmployeeOption) models.Employee {
	tb.Helper()
	emp := NewEmployee(opts...)
	if err := db.Create(&emp).Error; err != nil {
		tb.Fatalf("failed to create employee: %v", err)
	}
	return emp
}
