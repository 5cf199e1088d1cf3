package models

import "time"

// Department groups positions for adjacency scoring.
type Department string

const (
	DepartmentService    Department = "service"
	DepartmentKitchen    Department = "kitchen"
	DepartmentBar        Department = "bar"
	DepartmentManagement Department = "management"
)

// Position is the role an employee works in, or the role a shift needs.
type Position string

const (
	PositionService    Position = "service"
	PositionWaiter     Position = "waiter"
	PositionKitchen    Position = "kitchen"
	PositionCook       Position = "cook"
	PositionChef       Position = "chef"
	PositionBartender  Position = "bartender"
	PositionHost       Position = "host"
	PositionCashier    Position = "cashier"
	PositionDishwasher Position = "dishwasher"
	PositionManager    Position = "manager"
)

// EmploymentType describes the contract an employee works under.
type EmploymentType string

const (
	EmploymentFullTime EmploymentType = "full_time"
	EmploymentPartTime EmploymentType = "part_time"
	EmploymentContract EmploymentType = "contract"
	EmploymentSeasonal EmploymentType = "seasonal"
)

// DefaultRating is the starting value of every rolling score.
const DefaultRating = 5.0

// DayAvailability is one entry of an employee's weekly availability.
type DayAvailability struct {
	Available  bool   `json:"available"`
	StartTime  string `json:"start_time,omitempty"`
	EndTime    string `json:"end_time,omitempty"`
	Preference int    `json:"preference"` // 1-5
}

// WeeklyAvailability is indexed Monday (0) through Sunday (6).
type WeeklyAvailability [7]DayAvailability

// ShiftPreferences captures how an employee likes to be scheduled.
type ShiftPreferences struct {
	PreferredShiftTypes []ShiftType `json:"preferred_shift_types,omitempty"`
	AvoidNightShifts    bool        `json:"avoid_night_shifts"`
	MaxConsecutiveDays  int         `json:"max_consecutive_days"`
	MinRestHours        float64     `json:"min_rest_hours"`
}

// Prefers reports whether the shift type is one of the preferred ones.
func (p ShiftPreferences) Prefers(t ShiftType) bool {
	for _, pt := range p.PreferredShiftTypes {
		if pt == t {
			return true
		}
	}
	return false
}

// Employee represents a staff member of a restaurant
type Employee struct {
	ID               uint               `gorm:"primaryKey" json:"id"`
	RestaurantID     uint               `gorm:"index;not null" json:"restaurant_id"`
	Name             string             `gorm:"not null" json:"name"`
	Email            string             `json:"email,omitempty"`
	Department       Department         `gorm:"size:32" json:"department"`
	Position         Position           `gorm:"size:32;not null" json:"position"`
	EmploymentType   EmploymentType     `gorm:"size:32" json:"employment_type"`
	HourlyWage       float64            `json:"hourly_wage"`
	MinHoursPerWeek  float64            `json:"min_hours_per_week"`
	MaxHoursPerWeek  float64            `json:"max_hours_per_week"`
	SkillLevel       int                `gorm:"default:1" json:"skill_level"`
	Certifications   []string           `gorm:"serializer:json" json:"certifications,omitempty"`
	Languages        []string           `gorm:"serializer:json" json:"languages,omitempty"`
	Availability     WeeklyAvailability `gorm:"serializer:json" json:"availability"`
	ShiftPreferences ShiftPreferences   `gorm:"serializer:json" json:"shift_preferences"`
	PerformanceScore float64            `gorm:"default:5" json:"performance_score"`
	ReliabilityScore float64            `gorm:"default:5" json:"reliability_score"`
	CustomerRating   float64            `gorm:"default:5" json:"customer_rating"`
	IsActive         bool               `gorm:"default:true;index" json:"is_active"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// DayAvailabilityFor returns the weekly entry for the weekday of date.
func (e *Employee) DayAvailabilityFor(date time.Time) DayAvailability {
	return e.Availability[WeekdayIndex(date.Weekday())]
}

// WeekdayIndex converts time.Weekday (Sunday first) to a Monday-first index.
func WeekdayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}
