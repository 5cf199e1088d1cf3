package scheduler

import (
	"fmt"
	"math"
	"sort"

	"github.com/arnavshah/staff-scheduler-go/pkg/models"
)

// Constraints are the labor limits a schedule must respect. Zero values defer
// to each employee's own limits.
type Constraints struct {
	LaborBudget        float64 `json:"labor_budget" validate:"min=0"`
	MaxHoursPerWeek    float64 `json:"max_hours_per_week" validate:"min=0"`
	MinRestHours       float64 `json:"min_rest_hours" validate:"min=0"`
	MaxConsecutiveDays int     `json:"max_consecutive_days" validate:"min=0"`
}

// violation names the limit an assignment would break.
type violation string

const (
	fits            violation = ""
	violMaxHours    violation = "max_hours"
	violOverlap     violation = "overlap"
	violRest        violation = "rest"
	violConsecutive violation = "consecutive"
)

type interval struct {
	start, end int
}

// placement is a slot resolved to absolute minutes.
type placement struct {
	day      int
	week     string
	interval interval
	hours    float64
}

func newPlacement(date, start, end string, breakMinutes int) (placement, error) {
	d, err := models.ParseDate(date)
	if err != nil {
		return placement{}, err
	}
	s, e, err := models.ClockSpan(start, end)
	if err != nil {
		return placement{}, err
	}
	day := int(d.Unix() / 86400)
	paid := float64(e-s-breakMinutes) / 60
	if paid < 0 {
		paid = 0
	}
	monday := d.AddDate(0, 0, -models.WeekdayIndex(d.Weekday()))
	return placement{
		day:      day,
		week:     models.FormatDate(monday),
		interval: interval{day*models.MinutesPerDay + s, day*models.MinutesPerDay + e},
		hours:    paid,
	}, nil
}

type limits struct {
	maxHours       float64
	minRestMinutes int
	maxConsecutive int
}

// load tracks what one employee has been given so far.
type load struct {
	emp       *models.Employee
	limits    limits
	weekHours map[string]float64
	intervals []interval
	days      map[int]bool
	assigned  float64
}

// Scheduler tracks per-employee load while a schedule is built or replayed.
type Scheduler struct {
	loads map[uint]*load
	ids   []uint
}

// NewScheduler creates a scheduler over the roster.
func NewScheduler(employees []models.Employee, c Constraints) *Scheduler {
	s := &Scheduler{loads: make(map[uint]*load, len(employees))}
	for i := range employees {
		emp := &employees[i]
		s.loads[emp.ID] = &load{
			emp:       emp,
			limits:    effectiveLimits(emp, c),
			weekHours: make(map[string]float64),
			days:      make(map[int]bool),
		}
		s.ids = append(s.ids, emp.ID)
	}
	sort.Slice(s.ids, func(i, j int) bool { return s.ids[i] < s.ids[j] })
	return s
}

// effectiveLimits takes the stricter of the request constraint and the employee's own limit.
func effectiveLimits(emp *models.Employee, c Constraints) limits {
	l := limits{maxHours: math.Inf(1)}
	if emp.MaxHoursPerWeek > 0 {
		l.maxHours = emp.MaxHoursPerWeek
	}
	if c.MaxHoursPerWeek > 0 && c.MaxHoursPerWeek < l.maxHours {
		l.maxHours = c.MaxHoursPerWeek
	}
	rest := math.Max(emp.ShiftPreferences.MinRestHours, c.MinRestHours)
	l.minRestMinutes = int(math.Round(rest * 60))

	l.maxConsecutive = emp.ShiftPreferences.MaxConsecutiveDays
	if c.MaxConsecutiveDays > 0 && (l.maxConsecutive <= 0 || c.MaxConsecutiveDays < l.maxConsecutive) {
		l.maxConsecutive = c.MaxConsecutiveDays
	}
	return l
}

// Prefill records shifts the employees already work so new assignments respect them.
func (s *Scheduler) Prefill(shifts []models.Shift) {
	for _, sh := range shifts {
		l, ok := s.loads[sh.EmployeeID]
		if !ok || sh.Status == models.StatusCancelled {
			continue
		}
		p, err := newPlacement(sh.Date, sh.StartTime, sh.EndTime, sh.BreakMinutes)
		if err != nil {
			continue
		}
		l.place(p)
	}
}

// check reports which limit placing employeeID into p would break.
func (s *Scheduler) check(employeeID uint, p placement) violation {
	l, ok := s.loads[employeeID]
	if !ok {
		return violOverlap
	}
	if l.weekHours[p.week]+p.hours > l.limits.maxHours+1e-9 {
		return violMaxHours
	}
	for _, iv := range l.intervals {
		if iv.start < p.interval.end && p.interval.start < iv.end {
			return violOverlap
		}
		gap := p.interval.start - iv.end
		if iv.start >= p.interval.end {
			gap = iv.start - p.interval.end
		}
		if gap < l.limits.minRestMinutes {
			return violRest
		}
	}
	if l.limits.maxConsecutive > 0 && !l.days[p.day] {
		run := 1
		for d := p.day - 1; l.days[d]; d-- {
			run++
		}
		for d := p.day + 1; l.days[d]; d++ {
			run++
		}
		if run > l.limits.maxConsecutive {
			return violConsecutive
		}
	}
	return fits
}

func (s *Scheduler) assign(employeeID uint, p placement) {
	if l, ok := s.loads[employeeID]; ok {
		l.place(p)
		l.assigned += p.hours
	}
}

func (l *load) place(p placement) {
	l.weekHours[p.week] += p.hours
	l.intervals = append(l.intervals, p.interval)
	l.days[p.day] = true
}

// belowMinimum reports whether the employee has not yet reached their minimum weekly hours.
func (s *Scheduler) belowMinimum(employeeID uint) bool {
	l, ok := s.loads[employeeID]
	return ok && l.emp.MinHoursPerWeek > 0 && l.assigned < l.emp.MinHoursPerWeek
}

// AssignedHours returns the hours given to the employee by this run, excluding prefilled shifts.
func (s *Scheduler) AssignedHours(employeeID uint) float64 {
	if l, ok := s.loads[employeeID]; ok {
		return l.assigned
	}
	return 0
}

// CalculateFairnessScore returns a percentage (0-100) representing how evenly
// assigned hours are distributed. 100% is perfectly fair (Standard Deviation = 0).
func (s *Scheduler) CalculateFairnessScore() float64 {
	if len(s.loads) == 0 {
		return 100.0
	}

	var sum float64
	for _, l := range s.loads {
		sum += l.assigned
	}

	if sum == 0 {
		return 100.0 // Everyone having 0 hours is perfectly fair
	}

	mean := sum / float64(len(s.loads))

	var varianceSum float64
	for _, l := range s.loads {
		diff := l.assigned - mean
		varianceSum += diff * diff
	}
	stdDev := math.Sqrt(varianceSum / float64(len(s.loads)))

	// 100% means SD is 0. 0% means SD is >= mean.
	score := (1.0 - (stdDev / mean)) * 100.0
	if score < 0 {
		return 0.0
	}
	return score
}

// reasonCounts tallies why employees could not take a slot.
type reasonCounts struct {
	position, unavailable, lowScore int
	byViolation                     map[violation]int
}

func (r *reasonCounts) add(v violation) {
	if r.byViolation == nil {
		r.byViolation = make(map[violation]int)
	}
	r.byViolation[v]++
}

func (r *reasonCounts) reasons(rosterSize int) []string {
	var reasons []string
	if r.unavailable > 0 {
		reasons = append(reasons, fmt.Sprintf("%d employees were unavailable", r.unavailable))
	}
	if r.position > 0 {
		reasons = append(reasons, fmt.Sprintf("%d employees did not match the position", r.position))
	}
	if r.lowScore > 0 {
		reasons = append(reasons, fmt.Sprintf("%d employees scored below the minimum", r.lowScore))
	}
	if n := r.byViolation[violMaxHours]; n > 0 {
		reasons = append(reasons, fmt.Sprintf("%d employees were at max hours", n))
	}
	if n := r.byViolation[violOverlap]; n > 0 {
		reasons = append(reasons, fmt.Sprintf("%d employees had overlapping shifts", n))
	}
	if n := r.byViolation[violRest]; n > 0 {
		reasons = append(reasons, fmt.Sprintf("%d employees lacked minimum rest", n))
	}
	if n := r.byViolation[violConsecutive]; n > 0 {
		reasons = append(reasons, fmt.Sprintf("%d employees hit the consecutive day limit", n))
	}
	if len(reasons) == 0 {
		if rosterSize == 0 {
			reasons = append(reasons, "no employees on the roster")
		} else {
			reasons = append(reasons, "not enough eligible employees")
		}
	}
	return reasons
}
