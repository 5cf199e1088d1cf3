package scheduler

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/arnavshah/staff-scheduler-go/internal/testfixtures"
	"github.com/arnavshah/staff-scheduler-go/pkg/models"
	"github.com/arnavshah/staff-scheduler-go/pkg/scoring"
)

func newOptimizer() *Optimizer {
	return NewOptimizer(scoring.New(scoring.DefaultConfig()), DefaultConfig(), nil)
}

func waiterPolicy(templates ...ShiftTemplate) StaffingPolicy {
	return StaffingPolicy{
		Templates: templates,
		Ratios:    []StaffingRatio{{Position: models.PositionWaiter, CustomersPerStaff: 25, MinStaff: 1}},
	}
}

func dayTemplate() ShiftTemplate {
	return ShiftTemplate{Type: models.ShiftMorning, StartTime: "09:00", EndTime: "17:00", BreakMinutes: 30, DemandShare: 1}
}

func demandFor(days int) []models.ForecastPeriod {
	var out []models.ForecastPeriod
	for i := 0; i < days; i++ {
		out = append(out, models.ForecastPeriod{Date: models.FormatDate(testfixtures.Monday.AddDate(0, 0, i)), Confidence: 0.8})
	}
	return out
}

func hasReason(reasons []string, fragment string) bool {
	for _, r := range reasons {
		if strings.Contains(r, fragment) {
			return true
		}
	}
	return false
}

func TestBuildSlots(t *testing.T) {
	policy := StaffingPolicy{
		Templates: []ShiftTemplate{
			{Type: models.ShiftMorning, StartTime: "07:00", EndTime: "15:00", DemandShare: 0.4},
			{Type: models.ShiftEvening, StartTime: "15:00", EndTime: "23:00", DemandShare: 0.6},
		},
		Ratios: []StaffingRatio{
			{Position: models.PositionWaiter, CustomersPerStaff: 25, MinStaff: 1},
			{Position: models.PositionCook, CustomersPerStaff: 40},
		},
	}
	slots, err := BuildSlots([]models.ForecastPeriod{{Date: "2024-03-04", PredictedCount: 100}}, policy)
	if err != nil {
		t.Fatalf("Failed to build slots: %v", err)
	}
	if len(slots) != 4 {
		t.Fatalf("Expected 4 slots, got %d", len(slots))
	}
	// evening: 60 customers -> 3 waiters, 2 cooks
	if slots[2].Headcount != 3 || slots[3].Headcount != 2 || slots[2].Demand != 60 {
		t.Errorf("Unexpected evening slots %+v %+v", slots[2], slots[3])
	}

	slots, _ = BuildSlots([]models.ForecastPeriod{{Date: "2024-03-04", PredictedCount: 0}}, policy)
	if len(slots) != 2 {
		t.Errorf("Expected cook slots without minimum to be dropped on a quiet day, got %d slots", len(slots))
	}

	if _, err := BuildSlots([]models.ForecastPeriod{{Date: "04.03.2024"}}, policy); err == nil {
		t.Errorf("Expected error for malformed date")
	}
}

func TestOptimizeFillsSlots(t *testing.T) {
	employees := []models.Employee{
		testfixtures.NewEmployee(testfixtures.WithID(1)),
		testfixtures.NewEmployee(testfixtures.WithID(2)),
	}
	res, err := newOptimizer().Optimize(context.Background(), Request{
		RestaurantID: 7,
		Employees:    employees,
		Demand:       demandFor(1),
		Policy:       waiterPolicy(dayTemplate()),
	})
	if err != nil {
		t.Fatalf("Failed to optimize: %v", err)
	}
	if len(res.Schedule.Assignments) != 1 {
		t.Fatalf("Expected 1 assignment, got %d", len(res.Schedule.Assignments))
	}
	if res.Metrics.CoveragePercent != 100 || res.Metrics.Violations != 0 {
		t.Errorf("Expected full coverage without violations, got %+v", res.Metrics)
	}
	a := res.Schedule.Assignments[0]
	if a.LaborCost != 112.5 {
		t.Errorf("Expected labor cost 7.5h x 15 = 112.5, got %v", a.LaborCost)
	}

	sh := res.Schedule.Shifts[0]
	if sh.RestaurantID != 7 || !sh.AIGenerated || sh.BatchID != res.Schedule.ID || sh.Status != models.StatusScheduled {
		t.Errorf("Unexpected shift %+v", sh)
	}
	if sh.AIConfidence == nil || *sh.AIConfidence != 0.8 {
		t.Errorf("Expected shift to carry forecast confidence")
	}
}

func TestOptimizeRestBetweenShifts(t *testing.T) {
	employees := []models.Employee{testfixtures.NewEmployee(testfixtures.WithID(1))}
	policy := waiterPolicy(
		ShiftTemplate{Type: models.ShiftMorning, StartTime: "07:00", EndTime: "15:00", DemandShare: 0.5},
		ShiftTemplate{Type: models.ShiftEvening, StartTime: "15:00", EndTime: "23:00", DemandShare: 0.5},
	)
	res, err := newOptimizer().Optimize(context.Background(), Request{Employees: employees, Demand: demandFor(1), Policy: policy})
	if err != nil {
		t.Fatalf("Failed to optimize: %v", err)
	}
	if len(res.Schedule.Assignments) != 1 {
		t.Errorf("Expected only 1 shift to be assigned due to rest, got %d", len(res.Schedule.Assignments))
	}
	if len(res.Warnings) != 1 || !hasReason(res.Warnings[0].Reasons, "lacked minimum rest") {
		t.Errorf("Expected a rest gap warning, got %+v", res.Warnings)
	}
}

func TestOptimizeMaxHours(t *testing.T) {
	employees := []models.Employee{testfixtures.NewEmployee(testfixtures.WithID(1), testfixtures.WithHours(0, 8))}
	res, err := newOptimizer().Optimize(context.Background(), Request{Employees: employees, Demand: demandFor(2), Policy: waiterPolicy(dayTemplate())})
	if err != nil {
		t.Fatalf("Failed to optimize: %v", err)
	}
	if len(res.Schedule.Conflicts) != 1 || !hasReason(res.Schedule.Conflicts[0].Reasons, "were at max hours") {
		t.Errorf("Expected a max hours conflict, got %+v", res.Schedule.Conflicts)
	}
}

func TestOptimizeNoEligibleEmployees(t *testing.T) {
	cooks := []models.Employee{
		testfixtures.NewEmployee(testfixtures.WithID(1), testfixtures.WithPosition(models.PositionCook, models.DepartmentKitchen)),
	}
	res, err := newOptimizer().Optimize(context.Background(), Request{Employees: cooks, Demand: demandFor(1), Policy: waiterPolicy(dayTemplate())})
	if err != nil {
		t.Fatalf("Expected gaps rather than an error, got %v", err)
	}
	if res.Metrics.Violations < 1 || res.Metrics.CoveragePercent != 0 {
		t.Errorf("Expected an unfilled slot, got %+v", res.Metrics)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Missing != 1 || res.Warnings[0].Position != "waiter" {
		t.Errorf("Expected coverage gap warning for the waiter slot, got %+v", res.Warnings)
	}
	if !hasReason(res.Warnings[0].Reasons, "did not match the position") {
		t.Errorf("Expected position reason, got %v", res.Warnings[0].Reasons)
	}

	res, err = newOptimizer().Optimize(context.Background(), Request{Demand: demandFor(1), Policy: waiterPolicy(dayTemplate())})
	if err != nil {
		t.Fatalf("Expected empty roster to succeed, got %v", err)
	}
	if !hasReason(res.Warnings[0].Reasons, "no employees on the roster") {
		t.Errorf("Expected empty roster reason, got %v", res.Warnings[0].Reasons)
	}
}

type blockAll struct{}

func (blockAll) Resolve(uint, time.Time, int, int) (models.AvailabilityResolution, bool) {
	return models.AvailabilityResolution{Available: false, Source: models.SourceRecord, Type: models.AvailabilityVacation}, true
}

func TestOptimizeUsesStoredAvailability(t *testing.T) {
	employees := []models.Employee{testfixtures.NewEmployee(testfixtures.WithID(1))}
	res, err := newOptimizer().Optimize(context.Background(), Request{
		Employees:    employees,
		Demand:       demandFor(1),
		Policy:       waiterPolicy(dayTemplate()),
		Availability: blockAll{},
	})
	if err != nil {
		t.Fatalf("Failed to optimize: %v", err)
	}
	if len(res.Schedule.Assignments) != 0 || !hasReason(res.Warnings[0].Reasons, "were unavailable") {
		t.Errorf("Expected vacation record to keep the employee off the schedule, got %+v", res.Schedule.Assignments)
	}
}

func TestOptimizePrefersCheaperUnderBudget(t *testing.T) {
	employees := []models.Employee{
		testfixtures.NewEmployee(testfixtures.WithID(1), testfixtures.WithSkill(6, 5), testfixtures.WithWage(30)),
		testfixtures.NewEmployee(testfixtures.WithID(2), testfixtures.WithSkill(5, 5), testfixtures.WithWage(10)),
	}
	res, err := newOptimizer().Optimize(context.Background(), Request{
		Employees:   employees,
		Demand:      demandFor(1),
		Policy:      waiterPolicy(dayTemplate()),
		Constraints: Constraints{LaborBudget: 100},
	})
	if err != nil {
		t.Fatalf("Failed to optimize: %v", err)
	}
	if res.Schedule.Strategy != StrategyCost || res.Schedule.Assignments[0].EmployeeID != 2 {
		t.Errorf("Expected the cheaper employee from the cost-aware pass, got %s with %+v", res.Schedule.Strategy, res.Schedule.Assignments)
	}
	if len(res.Alternatives) != 1 || res.Alternatives[0].Assignments[0].EmployeeID != 1 {
		t.Errorf("Expected the compatibility pass as the only alternative, got %+v", res.Alternatives)
	}
	if res.Schedule.Components.Cost != 1 {
		t.Errorf("Expected cost ratio 1 within budget, got %v", res.Schedule.Components.Cost)
	}
}

func TestOptimizeAlternativesAreBoundedAndRanked(t *testing.T) {
	var employees []models.Employee
	for i := 1; i <= 6; i++ {
		employees = append(employees, testfixtures.NewEmployee(testfixtures.WithID(uint(i)), testfixtures.WithSkill(i, 5)))
	}
	policy := waiterPolicy(
		ShiftTemplate{Type: models.ShiftMorning, StartTime: "07:00", EndTime: "15:00", DemandShare: 0.5},
		ShiftTemplate{Type: models.ShiftEvening, StartTime: "15:00", EndTime: "23:00", DemandShare: 0.5},
	)
	res, err := newOptimizer().Optimize(context.Background(), Request{Employees: employees, Demand: demandFor(3), Policy: policy})
	if err != nil {
		t.Fatalf("Failed to optimize: %v", err)
	}
	if res.Evaluated > 8 {
		t.Errorf("Expected at most 8 candidates, got %d", res.Evaluated)
	}
	if len(res.Alternatives) == 0 || len(res.Alternatives) > 3 {
		t.Errorf("Expected 1 to 3 alternatives, got %d", len(res.Alternatives))
	}
	prev := res.Schedule.Score
	for _, alt := range res.Alternatives {
		if alt.Score > prev {
			t.Errorf("Expected alternatives in descending score order")
		}
		prev = alt.Score
	}
}

func TestOptimizeDeadlineReturnsBestSoFar(t *testing.T) {
	employees := []models.Employee{
		testfixtures.NewEmployee(testfixtures.WithID(1)),
		testfixtures.NewEmployee(testfixtures.WithID(2)),
	}
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	res, err := newOptimizer().Optimize(ctx, Request{Employees: employees, Demand: demandFor(2), Policy: waiterPolicy(dayTemplate())})
	if err != nil {
		t.Fatalf("Failed to optimize: %v", err)
	}
	if !res.Truncated || res.Evaluated != 1 || len(res.Schedule.Assignments) != 2 {
		t.Errorf("Expected the first greedy candidate only, got truncated=%v evaluated=%d", res.Truncated, res.Evaluated)
	}
}

func TestOptimizeCountsFixedShiftsTowardHeadcount(t *testing.T) {
	employees := []models.Employee{
		testfixtures.NewEmployee(testfixtures.WithID(1)),
		testfixtures.NewEmployee(testfixtures.WithID(2)),
	}
	fixed := []models.Shift{{
		EmployeeID:   1,
		Date:         "2024-03-04",
		StartTime:    "09:00",
		EndTime:      "17:00",
		BreakMinutes: 30,
		ShiftType:    models.ShiftMorning,
		Position:     models.PositionWaiter,
		Status:       models.StatusConfirmed,
	}}
	opt := newOptimizer()

	// Already covered: nothing new is placed.
	res, err := opt.Optimize(context.Background(), Request{Employees: employees, Demand: demandFor(1), Policy: waiterPolicy(dayTemplate()), Fixed: fixed})
	if err != nil {
		t.Fatalf("Failed to optimize: %v", err)
	}
	if len(res.Schedule.Shifts) != 0 || len(res.Warnings) != 0 {
		t.Errorf("Expected no new shifts for a covered slot, got %+v", res.Schedule.Shifts)
	}
	if res.Schedule.Components.Coverage != 1 || res.Metrics.FilledHeadcount != 1 {
		t.Errorf("Expected the fixed shift to cover the slot, got %+v", res.Metrics)
	}
	if len(res.Schedule.Assignments) != 1 || !res.Schedule.Assignments[0].Fixed {
		t.Errorf("Expected the fixed shift among the assignments, got %+v", res.Schedule.Assignments)
	}

	// Two needed, one fixed: the other employee fills the rest.
	policy := StaffingPolicy{
		Templates: []ShiftTemplate{dayTemplate()},
		Ratios:    []StaffingRatio{{Position: models.PositionWaiter, CustomersPerStaff: 25, MinStaff: 2}},
	}
	res, err = opt.Optimize(context.Background(), Request{Employees: employees, Demand: demandFor(1), Policy: policy, Fixed: fixed})
	if err != nil {
		t.Fatalf("Failed to optimize: %v", err)
	}
	if len(res.Schedule.Shifts) != 1 || res.Schedule.Shifts[0].EmployeeID != 2 {
		t.Fatalf("Expected one new shift for employee 2, got %+v", res.Schedule.Shifts)
	}
	if res.Metrics.CoveragePercent != 100 || res.Metrics.FilledHeadcount != 2 {
		t.Errorf("Expected full coverage from fixed and new shifts, got %+v", res.Metrics)
	}

	stored := append(append([]models.Shift(nil), fixed...), res.Schedule.Shifts...)
	ev := opt.Evaluator().EvaluateShifts(Horizon{Slots: res.Slots, Employees: employees}, stored)
	if ev.Components != res.Schedule.Components || math.Abs(ev.Score-res.Schedule.Score) > 1e-9 {
		t.Errorf("Expected re-scored %+v (%v), got %+v (%v)", res.Schedule.Components, res.Schedule.Score, ev.Components, ev.Score)
	}
}

func TestOptimizeRestrictsToCandidates(t *testing.T) {
	employees := []models.Employee{
		testfixtures.NewEmployee(testfixtures.WithID(1), testfixtures.WithSkill(9, 9)),
		testfixtures.NewEmployee(testfixtures.WithID(2)),
	}
	res, err := newOptimizer().Optimize(context.Background(), Request{
		Employees:  employees,
		Demand:     demandFor(1),
		Policy:     waiterPolicy(dayTemplate()),
		Candidates: []uint{2},
	})
	if err != nil {
		t.Fatalf("Failed to optimize: %v", err)
	}
	if len(res.Schedule.Shifts) != 1 || res.Schedule.Shifts[0].EmployeeID != 2 {
		t.Errorf("Expected only the candidate to be assigned, got %+v", res.Schedule.Shifts)
	}
}

// lateContext has a deadline that passes after its first Err call.
type lateContext struct {
	context.Context
	calls int
}

func (c *lateContext) Deadline() (time.Time, bool) { return time.Now().Add(time.Hour), true }

func (c *lateContext) Err() error {
	c.calls++
	if c.calls > 1 {
		return context.DeadlineExceeded
	}
	return nil
}

func TestOptimizeNotTruncatedWhenNothingSkipped(t *testing.T) {
	employees := []models.Employee{testfixtures.NewEmployee(testfixtures.WithID(1))}
	ctx := &lateContext{Context: context.Background()}

	// One employee leaves no runner-ups, so both greedy passes are all there is.
	res, err := newOptimizer().Optimize(ctx, Request{Employees: employees, Demand: demandFor(1), Policy: waiterPolicy(dayTemplate())})
	if err != nil {
		t.Fatalf("Failed to optimize: %v", err)
	}
	if ctx.Err() == nil {
		t.Fatalf("Expected the deadline to have passed by now")
	}
	if res.Truncated {
		t.Errorf("Expected a complete search not to be reported as truncated")
	}
}

func TestOptimizeRejectsInvalidInput(t *testing.T) {
	_, err := newOptimizer().Optimize(context.Background(), Request{Policy: waiterPolicy(dayTemplate())})
	if err == nil {
		t.Errorf("Expected error for missing demand")
	}
	_, err = newOptimizer().Optimize(context.Background(), Request{
		Demand:      demandFor(1),
		Policy:      waiterPolicy(dayTemplate()),
		Constraints: Constraints{MaxHoursPerWeek: -1},
	})
	if err == nil {
		t.Errorf("Expected error for negative hours")
	}
}

func TestEvaluateComposite(t *testing.T) {
	eval := &Evaluator{Scorer: scoring.New(scoring.DefaultConfig()), Weights: DefaultWeights()}
	emp := testfixtures.NewEmployee(testfixtures.WithID(1), testfixtures.WithSkill(9, 8.5))
	slots := []models.Slot{
		{Date: "2024-03-04", ShiftType: models.ShiftMorning, StartTime: "09:00", EndTime: "17:00", Position: models.PositionWaiter, Headcount: 2},
	}

	ev := eval.Evaluate(Horizon{
		Slots:       slots,
		Employees:   []models.Employee{emp},
		Constraints: Constraints{LaborBudget: 60},
	}, []models.Assignment{{SlotIndex: 0, EmployeeID: 1}})

	// coverage 1/2, cost 60/120, satisfaction 0.9, compliance 1
	want := 100 + (0.5-1)*40 + (0.5-1)*30 + (0.9-1)*20
	if math.Abs(ev.Score-want) > 1e-9 {
		t.Errorf("Expected %v, got %v", want, ev.Score)
	}
	if ev.Metrics.Violations != 1 || ev.Metrics.FilledHeadcount != 1 || ev.Metrics.TotalLaborCost != 120 {
		t.Errorf("Unexpected metrics %+v", ev.Metrics)
	}
}

func TestEvaluateShiftsRoundTrip(t *testing.T) {
	var employees []models.Employee
	for i := 1; i <= 4; i++ {
		employees = append(employees, testfixtures.NewEmployee(testfixtures.WithID(uint(i)), testfixtures.WithSkill(3+i, 5), testfixtures.WithWage(12+float64(i))))
	}
	opt := newOptimizer()
	req := Request{
		Employees:   employees,
		Demand:      demandFor(5),
		Policy:      waiterPolicy(dayTemplate()),
		Constraints: Constraints{LaborBudget: 500},
	}
	res, err := opt.Optimize(context.Background(), req)
	if err != nil {
		t.Fatalf("Failed to optimize: %v", err)
	}

	ev := opt.Evaluator().EvaluateShifts(Horizon{Slots: res.Slots, Employees: employees, Constraints: req.Constraints}, res.Schedule.Shifts)
	got, want := ev.Components, res.Schedule.Components
	if math.Abs(got.Coverage-want.Coverage) > 1e-9 || math.Abs(got.Cost-want.Cost) > 1e-9 ||
		math.Abs(got.Satisfaction-want.Satisfaction) > 1e-9 || math.Abs(got.Compliance-want.Compliance) > 1e-9 {
		t.Errorf("Expected re-scored components %+v, got %+v", want, got)
	}
	if math.Abs(ev.Score-res.Schedule.Score) > 1e-9 {
		t.Errorf("Expected score %v, got %v", res.Schedule.Score, ev.Score)
	}
}

func TestSchedulerCheck(t *testing.T) {
	emp := testfixtures.NewEmployee(testfixtures.WithID(1))
	emp.ShiftPreferences.MaxConsecutiveDays = 2
	s := NewScheduler([]models.Employee{emp}, Constraints{})

	day := func(offset int, start, end string) placement {
		p, err := newPlacement(models.FormatDate(testfixtures.Monday.AddDate(0, 0, offset)), start, end, 0)
		if err != nil {
			t.Fatalf("Failed to build placement: %v", err)
		}
		return p
	}

	s.assign(1, day(0, "09:00", "17:00"))
	if v := s.check(1, day(0, "16:00", "20:00")); v != violOverlap {
		t.Errorf("Expected overlap, got %q", v)
	}
	if v := s.check(1, day(1, "00:00", "06:00")); v != violRest {
		t.Errorf("Expected rest violation, got %q", v)
	}
	s.assign(1, day(1, "09:00", "17:00"))
	if v := s.check(1, day(2, "09:00", "17:00")); v != violConsecutive {
		t.Errorf("Expected consecutive day violation, got %q", v)
	}
	if v := s.check(1, day(3, "09:00", "17:00")); v != fits {
		t.Errorf("Expected a day after a break to fit, got %q", v)
	}

	// Overnight shifts roll past midnight.
	p := day(4, "22:00", "06:00")
	if p.hours != 8 {
		t.Errorf("Expected overnight shift to be 8 hours, got %v", p.hours)
	}
}

func TestCalculateFairnessScore(t *testing.T) {
	employees := []models.Employee{
		testfixtures.NewEmployee(testfixtures.WithID(1)),
		testfixtures.NewEmployee(testfixtures.WithID(2)),
	}
	s := NewScheduler(employees, Constraints{})
	if got := s.CalculateFairnessScore(); got != 100 {
		t.Errorf("Expected 100 with no hours, got %v", got)
	}

	p, _ := newPlacement("2024-03-04", "09:00", "17:00", 0)
	s.assign(1, p)
	if got := s.CalculateFairnessScore(); got != 0 {
		t.Errorf("Expected 0 when one employee has every hour, got %v", got)
	}
	s.assign(2, p)
	if got := s.CalculateFairnessScore(); got != 100 {
		t.Errorf("Expected 100 with equal hours, got %v", got)
	}
}
