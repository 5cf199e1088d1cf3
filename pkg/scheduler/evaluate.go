package scheduler

import (
	"math"
	"sort"
	"time"

	"github.com/arnavshah/staff-scheduler-go/pkg/models"
	"github.com/arnavshah/staff-scheduler-go/pkg/scoring"
)

// Weights are the composite score weights in percent.
type Weights struct {
	Coverage     float64 `json:"coverage" validate:"min=0"`
	Cost         float64 `json:"cost" validate:"min=0"`
	Satisfaction float64 `json:"satisfaction" validate:"min=0"`
	Compliance   float64 `json:"compliance" validate:"min=0"`
}

// DefaultWeights returns 40/30/20/10.
func DefaultWeights() Weights {
	return Weights{Coverage: 40, Cost: 30, Satisfaction: 20, Compliance: 10}
}

// AvailabilityResolver answers availability for a window from stored records
// and patterns. ok is false when it holds nothing for the employee on that date.
type AvailabilityResolver interface {
	Resolve(employeeID uint, date time.Time, start, end int) (res models.AvailabilityResolution, ok bool)
}

// Horizon is everything a schedule is judged against.
type Horizon struct {
	Slots        []models.Slot
	Employees    []models.Employee
	Constraints  Constraints
	Availability AvailabilityResolver
	// Existing shifts outside the schedule that still count toward limits.
	Existing []models.Shift
	// Fixed shifts inside the horizon stay as they are. They fill slot headcount
	// and are scored along with the schedule.
	Fixed []models.Shift
}

// Evaluation is a scored schedule.
type Evaluation struct {
	Score       float64
	Components  models.ScoreComponents
	Metrics     models.ScheduleMetrics
	Assignments []models.Assignment
}

// Evaluator computes the composite score of a set of assignments.
type Evaluator struct {
	Scorer  *scoring.Scorer
	Weights Weights
}

// request builds the scorer input for emp in slot, using stored availability when the resolver has any.
func request(slot models.Slot, emp *models.Employee, resolver AvailabilityResolver) scoring.ShiftRequest {
	req := scoring.ShiftRequest{
		Date:      slot.Date,
		StartTime: slot.StartTime,
		EndTime:   slot.EndTime,
		Position:  slot.Position,
		ShiftType: slot.ShiftType,
	}
	if resolver == nil {
		return req
	}
	date, err := models.ParseDate(slot.Date)
	if err != nil {
		return req
	}
	start, end, err := models.ClockSpan(slot.StartTime, slot.EndTime)
	if err != nil {
		return req
	}
	if res, ok := resolver.Resolve(emp.ID, date, start, end); ok {
		req.Availability = &res
	}
	return req
}

// laborCost is the wage paid for the slot's hours.
func laborCost(emp *models.Employee, p placement) float64 {
	return math.Round(emp.HourlyWage*p.hours*100) / 100
}

// Evaluate scores assignments together with the horizon's fixed shifts.
// Everything is replayed in chronological order to judge compliance; the returned
// copy carries per-assignment score, labor cost and compliance.
func (e *Evaluator) Evaluate(h Horizon, assignments []models.Assignment) Evaluation {
	slots, fixed := matchShifts(h.Slots, h.Fixed, true)
	h.Slots = slots
	return e.evaluate(h, append(fixed, assignments...))
}

func (e *Evaluator) evaluate(h Horizon, assignments []models.Assignment) Evaluation {
	employees := make(map[uint]*models.Employee, len(h.Employees))
	for i := range h.Employees {
		employees[h.Employees[i].ID] = &h.Employees[i]
	}
	placements := make([]placement, len(h.Slots))
	for i, slot := range h.Slots {
		placements[i], _ = newPlacement(slot.Date, slot.StartTime, slot.EndTime, slot.BreakMinutes)
	}

	ordered := make([]models.Assignment, len(assignments))
	copy(ordered, assignments)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		pa, pb := placements[a.SlotIndex].interval.start, placements[b.SlotIndex].interval.start
		if pa != pb {
			return pa < pb
		}
		if a.SlotIndex != b.SlotIndex {
			return a.SlotIndex < b.SlotIndex
		}
		return a.EmployeeID < b.EmployeeID
	})

	replay := NewScheduler(h.Employees, h.Constraints)
	replay.Prefill(h.Existing)

	filled := make([]int, len(h.Slots))
	var totalCost, totalScore float64
	compliant := 0
	for i := range ordered {
		a := &ordered[i]
		emp, ok := employees[a.EmployeeID]
		if !ok || a.SlotIndex < 0 || a.SlotIndex >= len(h.Slots) {
			a.Compliant = false
			continue
		}
		slot := h.Slots[a.SlotIndex]
		p := placements[a.SlotIndex]
		filled[a.SlotIndex]++

		a.Score = e.Scorer.Score(emp, request(slot, emp, h.Availability))
		a.LaborCost = laborCost(emp, p)
		a.Compliant = replay.check(emp.ID, p) == fits
		replay.assign(emp.ID, p)

		totalScore += a.Score
		totalCost += a.LaborCost
		if a.Compliant {
			compliant++
		}
	}

	var required, deviation, covered, gaps int
	for i, slot := range h.Slots {
		required += slot.Headcount
		deviation += abs(filled[i] - slot.Headcount)
		covered += min(filled[i], slot.Headcount)
		if filled[i] < slot.Headcount {
			gaps++
		}
	}

	var c models.ScoreComponents
	c.Coverage = 1
	if required > 0 {
		c.Coverage = math.Max(0, 1-float64(deviation)/float64(required))
	}
	c.Cost = 1
	if h.Constraints.LaborBudget > 0 && totalCost > 0 {
		c.Cost = math.Min(1, h.Constraints.LaborBudget/totalCost)
	}
	switch {
	case len(ordered) > 0:
		c.Satisfaction = totalScore / float64(len(ordered)) / 100
	case required == 0:
		c.Satisfaction = 1
	}
	c.Compliance = 1
	if len(ordered) > 0 {
		c.Compliance = float64(compliant) / float64(len(ordered))
	}

	m := models.ScheduleMetrics{
		CoveragePercent:   100,
		TotalLaborCost:    math.Round(totalCost*100) / 100,
		Violations:        gaps + len(ordered) - compliant,
		RequiredHeadcount: required,
		FilledHeadcount:   covered,
		FairnessPercent:   replay.CalculateFairnessScore(),
	}
	if required > 0 {
		m.CoveragePercent = float64(covered) / float64(required) * 100
	}
	if len(ordered) > 0 {
		m.AverageSatisfaction = totalScore / float64(len(ordered))
	}

	return Evaluation{
		Score:       e.composite(c),
		Components:  c,
		Metrics:     m,
		Assignments: ordered,
	}
}

// composite starts at 100 and subtracts each shortfall weighted by its percentage.
func (e *Evaluator) composite(c models.ScoreComponents) float64 {
	w := e.Weights
	score := 100 +
		(c.Coverage-1)*w.Coverage +
		(c.Cost-1)*w.Cost +
		(c.Satisfaction-1)*w.Satisfaction +
		(c.Compliance-1)*w.Compliance
	return math.Max(0, score)
}

// EvaluateShifts re-scores persisted shifts against the horizon's slots, counting
// the horizon's fixed shifts first. Shifts that match no slot are judged as
// overstaffing on an extra zero-headcount slot.
func (e *Evaluator) EvaluateShifts(h Horizon, shifts []models.Shift) Evaluation {
	slots, fixed := matchShifts(h.Slots, h.Fixed, true)
	slots, rest := matchShifts(slots, shifts, false)
	h.Slots = slots
	return e.evaluate(h, append(fixed, rest...))
}

// matchShifts turns shifts into assignments on slots with the same date, type,
// position and times. Unmatched shifts get a zero-headcount slot appended to the
// returned copy of slots. Cancelled shifts are skipped.
func matchShifts(slots []models.Slot, shifts []models.Shift, fixed bool) ([]models.Slot, []models.Assignment) {
	out := append([]models.Slot(nil), slots...)
	index := slotIndex(out)
	var assignments []models.Assignment
	for _, sh := range shifts {
		if sh.Status == models.StatusCancelled {
			continue
		}
		key := shiftKey(sh.Date, sh.ShiftType, sh.Position, sh.StartTime, sh.EndTime)
		idx, ok := index[key]
		if !ok {
			out = append(out, models.Slot{
				Date:         sh.Date,
				ShiftType:    sh.ShiftType,
				StartTime:    sh.StartTime,
				EndTime:      sh.EndTime,
				BreakMinutes: sh.BreakMinutes,
				Position:     sh.Position,
			})
			idx = len(out) - 1
			index[key] = idx
		}
		assignments = append(assignments, models.Assignment{SlotIndex: idx, EmployeeID: sh.EmployeeID, Fixed: fixed})
	}
	return out, assignments
}

// fixedCounts is how many fixed shifts already fill each slot.
func fixedCounts(slots []models.Slot, fixed []models.Shift) []int {
	index := slotIndex(slots)
	counts := make([]int, len(slots))
	for _, sh := range fixed {
		if sh.Status == models.StatusCancelled {
			continue
		}
		if i, ok := index[shiftKey(sh.Date, sh.ShiftType, sh.Position, sh.StartTime, sh.EndTime)]; ok {
			counts[i]++
		}
	}
	return counts
}

func slotIndex(slots []models.Slot) map[string]int {
	index := make(map[string]int, len(slots))
	for i, slot := range slots {
		index[shiftKey(slot.Date, slot.ShiftType, slot.Position, slot.StartTime, slot.EndTime)] = i
	}
	return index
}

func shiftKey(date string, t models.ShiftType, p models.Position, start, end string) string {
	return date + "/" + string(t) + "/" + string(p) + "/" + start + "-" + end
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
