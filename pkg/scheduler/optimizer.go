package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/arnavshah/staff-scheduler-go/pkg/apperrors"
	"github.com/arnavshah/staff-scheduler-go/pkg/logging"
	"github.com/arnavshah/staff-scheduler-go/pkg/models"
	"github.com/arnavshah/staff-scheduler-go/pkg/scoring"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	StrategyCompatibility = "greedy_compatibility"
	StrategyCost          = "greedy_cost"
	StrategySwap          = "swap"
)

// Config bounds the optimizer.
type Config struct {
	Weights Weights
	// SwapLimit is how many contested slots get a runner-up swap candidate.
	SwapLimit int
	// Deadline applies when the caller's context has none.
	Deadline        time.Duration
	MaxAlternatives int
	// RunnerUps is how many feasible losers are remembered per slot.
	RunnerUps int
}

// DefaultConfig allows at most 2 greedy and 6 swap candidates.
func DefaultConfig() Config {
	return Config{
		Weights:         DefaultWeights(),
		SwapLimit:       6,
		Deadline:        5 * time.Second,
		MaxAlternatives: 3,
		RunnerUps:       3,
	}
}

// Preferences tune one optimization run.
type Preferences struct {
	// Weights override the configured composite weights when set.
	Weights *Weights `json:"weights,omitempty"`
	// MinScore excludes employees scoring at or below it. Unavailable employees are always excluded.
	MinScore float64 `json:"min_score" validate:"min=0,max=100"`
}

// Request is one optimization over a horizon.
type Request struct {
	RestaurantID uint
	Employees    []models.Employee
	Demand       []models.ForecastPeriod
	Policy       StaffingPolicy
	Preferences  Preferences
	Constraints  Constraints
	Availability AvailabilityResolver
	// Existing shifts around the horizon count toward limits only.
	Existing []models.Shift
	// Fixed shifts inside the horizon stay. They fill slot headcount, count
	// toward limits and are scored with every candidate.
	Fixed []models.Shift
	// Candidates restricts who may be assigned. Empty means every active employee.
	Candidates []uint
}

// Result is the selected schedule plus ranked alternatives.
type Result struct {
	RunID        string                         `json:"run_id"`
	Slots        []models.Slot                  `json:"slots"`
	Schedule     models.ScheduleCandidate       `json:"schedule"`
	Alternatives []models.ScheduleCandidate     `json:"alternatives"`
	Metrics      models.ScheduleMetrics         `json:"metrics"`
	Warnings     []apperrors.CoverageGapWarning `json:"warnings,omitempty"`
	Evaluated    int                            `json:"candidates_evaluated"`
	Truncated    bool                           `json:"truncated"`
}

// Optimizer builds and ranks schedule candidates.
type Optimizer struct {
	Scorer   *scoring.Scorer
	Config   Config
	Logger   *zap.Logger
	validate *validator.Validate
}

// NewOptimizer creates an optimizer.
func NewOptimizer(scorer *scoring.Scorer, cfg Config, logger *zap.Logger) *Optimizer {
	if cfg.MaxAlternatives <= 0 {
		cfg.MaxAlternatives = 3
	}
	if cfg.RunnerUps <= 0 {
		cfg.RunnerUps = 3
	}
	return &Optimizer{Scorer: scorer, Config: cfg, Logger: logging.OrNop(logger), validate: apperrors.NewValidator()}
}

// option is one employee's standing for one slot.
type option struct {
	employeeID uint
	score      float64
	available  bool
	matches    bool
	wage       float64
}

// construction is the output of one greedy pass.
type construction struct {
	assignments []models.Assignment
	conflicts   []models.ConflictReason
	runnerUps   map[int][]option
}

type plan struct {
	req        Request
	horizon    Horizon
	slots      []models.Slot
	placements []placement
	options    [][]option
	fixed      []int
	order      []int
	refWage    float64
	minScore   float64
}

// Optimize returns the best schedule found before the deadline. Slots nobody can
// fill are left open and reported; it only fails on invalid input.
func (o *Optimizer) Optimize(ctx context.Context, req Request) (*Result, error) {
	started := time.Now()
	if err := o.validateRequest(req); err != nil {
		return nil, err
	}
	slots, err := BuildSlots(req.Demand, req.Policy)
	if err != nil {
		return nil, err
	}
	if _, ok := ctx.Deadline(); !ok && o.Config.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Config.Deadline)
		defer cancel()
	}

	weights := o.Config.Weights
	if req.Preferences.Weights != nil {
		weights = *req.Preferences.Weights
	}
	eval := &Evaluator{Scorer: o.Scorer, Weights: weights}
	p := o.newPlan(req, slots)

	res := &Result{RunID: uuid.NewString(), Slots: slots}
	var candidates []models.ScheduleCandidate
	seen := make(map[string]bool)
	add := func(strategy string, assignments []models.Assignment, conflicts []models.ConflictReason) {
		sig := signature(assignments)
		if seen[sig] {
			return
		}
		seen[sig] = true
		ev := eval.Evaluate(p.horizon, assignments)
		candidates = append(candidates, models.ScheduleCandidate{
			ID:          uuid.NewString(),
			Strategy:    strategy,
			Assignments: ev.Assignments,
			Score:       ev.Score,
			Components:  ev.Components,
			Metrics:     ev.Metrics,
			Conflicts:   conflicts,
		})
		res.Evaluated++
	}

	base := o.construct(p, StrategyCompatibility)
	add(StrategyCompatibility, base.assignments, base.conflicts)

	if ctx.Err() == nil {
		cost := o.construct(p, StrategyCost)
		add(StrategyCost, cost.assignments, cost.conflicts)
	} else {
		res.Truncated = true
	}

	for _, sw := range o.contested(base) {
		if ctx.Err() != nil {
			res.Truncated = true
			break
		}
		if swapped, ok := o.swap(p, base.assignments, sw); ok {
			add(StrategySwap, swapped, base.conflicts)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
	for i := range candidates {
		candidates[i].Shifts = buildShifts(req.RestaurantID, candidates[i].ID, slots, candidates[i].Assignments)
	}
	res.Schedule = candidates[0]
	if n := len(candidates) - 1; n > 0 {
		res.Alternatives = candidates[1 : 1+min(n, o.Config.MaxAlternatives)]
	} else {
		res.Alternatives = []models.ScheduleCandidate{}
	}
	res.Metrics = res.Schedule.Metrics
	res.Warnings = gapWarnings(slots, res.Schedule.Conflicts)

	logging.FromContext(ctx, o.Logger).Info("schedule optimized",
		zap.String("run_id", res.RunID),
		zap.Uint("restaurant_id", req.RestaurantID),
		zap.Int("slots", len(slots)),
		zap.Int("employees", len(p.horizon.Employees)),
		zap.Int("candidates", res.Evaluated),
		zap.Float64("score", res.Schedule.Score),
		zap.Int("violations", res.Metrics.Violations),
		zap.Bool("truncated", res.Truncated),
		zap.Duration("elapsed", time.Since(started)),
	)
	return res, nil
}

// Evaluator returns an evaluator using the configured weights.
func (o *Optimizer) Evaluator() *Evaluator {
	return &Evaluator{Scorer: o.Scorer, Weights: o.Config.Weights}
}

func (o *Optimizer) validateRequest(req Request) error {
	v := &apperrors.ValidationError{}
	if len(req.Demand) == 0 {
		v.Add("demand", "is required")
	}
	for _, target := range []any{req.Policy, req.Preferences, req.Constraints} {
		err := apperrors.FromValidator(o.validate.Struct(target))
		if err == nil {
			continue
		}
		var fieldErrs *apperrors.ValidationError
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for f, msg := range fieldErrs.FieldErrors {
			v.Add(f, msg)
		}
	}
	return v.OrNil()
}

func (o *Optimizer) newPlan(req Request, slots []models.Slot) *plan {
	roster := append([]models.Employee(nil), req.Employees...)
	sort.Slice(roster, func(i, j int) bool { return roster[i].ID < roster[j].ID })

	var allowed map[uint]bool
	if len(req.Candidates) > 0 {
		allowed = make(map[uint]bool, len(req.Candidates))
		for _, id := range req.Candidates {
			allowed[id] = true
		}
	}
	var employees []models.Employee
	for _, emp := range roster {
		if emp.IsActive && (allowed == nil || allowed[emp.ID]) {
			employees = append(employees, emp)
		}
	}

	// The whole roster is judged so fixed shifts of anyone keep their load.
	p := &plan{
		req: req,
		horizon: Horizon{
			Slots:        slots,
			Employees:    roster,
			Constraints:  req.Constraints,
			Availability: req.Availability,
			Existing:     req.Existing,
			Fixed:        req.Fixed,
		},
		slots:      slots,
		placements: make([]placement, len(slots)),
		options:    make([][]option, len(slots)),
		fixed:      fixedCounts(slots, req.Fixed),
		minScore:   req.Preferences.MinScore,
	}
	for _, emp := range employees {
		if emp.HourlyWage > 0 && (p.refWage == 0 || emp.HourlyWage < p.refWage) {
			p.refWage = emp.HourlyWage
		}
	}

	eligible := make([]int, len(slots))
	for i, slot := range slots {
		p.placements[i], _ = newPlacement(slot.Date, slot.StartTime, slot.EndTime, slot.BreakMinutes)
		opts := make([]option, 0, len(employees))
		for j := range employees {
			emp := &employees[j]
			b := o.Scorer.Breakdown(emp, request(slot, emp, req.Availability))
			opt := option{
				employeeID: emp.ID,
				score:      b.Total,
				available:  b.Available,
				matches:    o.Scorer.Matches(emp, slot.Position),
				wage:       emp.HourlyWage,
			}
			if opt.matches && opt.available && opt.score > p.minScore {
				eligible[i]++
			}
			opts = append(opts, opt)
		}
		p.options[i] = opts
	}

	// Scarce slots first so contested employees go where they are needed most.
	p.order = make([]int, len(slots))
	for i := range p.order {
		p.order[i] = i
	}
	sort.SliceStable(p.order, func(a, b int) bool {
		i, j := p.order[a], p.order[b]
		if eligible[i] != eligible[j] {
			return eligible[i] < eligible[j]
		}
		return p.placements[i].interval.start < p.placements[j].interval.start
	})
	return p
}

// scheduler returns a scheduler loaded with every shift the plan keeps.
func (p *plan) scheduler() *Scheduler {
	s := NewScheduler(p.horizon.Employees, p.req.Constraints)
	s.Prefill(p.req.Existing)
	s.Prefill(p.req.Fixed)
	return s
}

// construct fills every slot greedily, best ranked feasible employee first.
// Headcount already covered by fixed shifts is not filled again.
func (o *Optimizer) construct(p *plan, strategy string) construction {
	s := p.scheduler()
	out := construction{runnerUps: make(map[int][]option)}

	for _, idx := range p.order {
		slot := p.slots[idx]
		pl := p.placements[idx]
		need := slot.Headcount - p.fixed[idx]
		if need <= 0 {
			continue
		}

		var counts reasonCounts
		var feasible []option
		for _, opt := range p.options[idx] {
			switch {
			case !opt.matches:
				counts.position++
			case !opt.available:
				counts.unavailable++
			case opt.score <= p.minScore:
				counts.lowScore++
			default:
				if v := s.check(opt.employeeID, pl); v != fits {
					counts.add(v)
				} else {
					feasible = append(feasible, opt)
				}
			}
		}

		sort.SliceStable(feasible, func(i, j int) bool {
			return o.better(p, s, strategy, feasible[i], feasible[j])
		})

		filled := 0
		for _, opt := range feasible {
			if filled == need {
				break
			}
			s.assign(opt.employeeID, pl)
			out.assignments = append(out.assignments, models.Assignment{
				SlotIndex:  idx,
				EmployeeID: opt.employeeID,
				Score:      opt.score,
				Compliant:  true,
			})
			filled++
		}
		if rest := feasible[filled:]; len(rest) > 0 {
			out.runnerUps[idx] = rest[:min(len(rest), o.Config.RunnerUps)]
		}

		if filled < need {
			out.conflicts = append(out.conflicts, models.ConflictReason{
				Slot:    slot.Key(),
				Missing: need - filled,
				Reasons: counts.reasons(len(p.options[idx])),
			})
		}
	}
	return out
}

// better ranks a ahead of b. Ties go to employees short of their minimum hours,
// then to whoever has fewer hours so far, then to the lower id.
func (o *Optimizer) better(p *plan, s *Scheduler, strategy string, a, b option) bool {
	va, vb := a.score, b.score
	if strategy == StrategyCost && p.refWage > 0 {
		va = costAdjusted(a, p.refWage)
		vb = costAdjusted(b, p.refWage)
	}
	if math.Abs(va-vb) > 1e-9 {
		return va > vb
	}
	ma, mb := s.belowMinimum(a.employeeID), s.belowMinimum(b.employeeID)
	if ma != mb {
		return ma
	}
	ha, hb := s.AssignedHours(a.employeeID), s.AssignedHours(b.employeeID)
	if ha != hb {
		return ha < hb
	}
	return a.employeeID < b.employeeID
}

// costAdjusted scales the score by how cheap the employee is relative to the cheapest on the roster.
func costAdjusted(opt option, refWage float64) float64 {
	if opt.wage <= 0 {
		return opt.score
	}
	return opt.score * refWage / opt.wage
}

type swapMove struct {
	slot     int
	replaced uint
	runners  []option
	gap      float64
}

// contested lists up to SwapLimit slots where a runner-up came closest to the weakest assignee.
func (o *Optimizer) contested(base construction) []swapMove {
	weakest := make(map[int]models.Assignment)
	for _, a := range base.assignments {
		w, ok := weakest[a.SlotIndex]
		if !ok || a.Score <= w.Score {
			weakest[a.SlotIndex] = a
		}
	}

	var moves []swapMove
	for idx, runners := range base.runnerUps {
		w, ok := weakest[idx]
		if !ok || len(runners) == 0 {
			continue
		}
		moves = append(moves, swapMove{slot: idx, replaced: w.EmployeeID, runners: runners, gap: w.Score - runners[0].score})
	}
	sort.Slice(moves, func(i, j int) bool {
		if moves[i].gap != moves[j].gap {
			return moves[i].gap < moves[j].gap
		}
		return moves[i].slot < moves[j].slot
	})
	if len(moves) > o.Config.SwapLimit {
		moves = moves[:max(o.Config.SwapLimit, 0)]
	}
	return moves
}

// swap replaces the weakest assignee of one slot with the first runner-up that
// keeps every limit satisfied.
func (o *Optimizer) swap(p *plan, assignments []models.Assignment, m swapMove) ([]models.Assignment, bool) {
	s := p.scheduler()

	out := make([]models.Assignment, 0, len(assignments))
	inSlot := make(map[uint]bool)
	for _, a := range assignments {
		if a.SlotIndex == m.slot {
			inSlot[a.EmployeeID] = true
			if a.EmployeeID == m.replaced {
				continue
			}
		}
		s.assign(a.EmployeeID, p.placements[a.SlotIndex])
		out = append(out, a)
	}
	for _, r := range m.runners {
		if inSlot[r.employeeID] || s.check(r.employeeID, p.placements[m.slot]) != fits {
			continue
		}
		return append(out, models.Assignment{SlotIndex: m.slot, EmployeeID: r.employeeID, Score: r.score, Compliant: true}), true
	}
	return nil, false
}

func signature(assignments []models.Assignment) string {
	keys := make([]string, len(assignments))
	for i, a := range assignments {
		keys[i] = fmt.Sprintf("%d:%d", a.SlotIndex, a.EmployeeID)
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

// buildShifts turns a candidate's new assignments into unsaved AI-generated shifts.
func buildShifts(restaurantID uint, batchID string, slots []models.Slot, assignments []models.Assignment) []models.Shift {
	shifts := make([]models.Shift, 0, len(assignments))
	for _, a := range assignments {
		if a.Fixed {
			continue
		}
		slot := slots[a.SlotIndex]
		demand := slot.Demand
		confidence := slot.Confidence
		shifts = append(shifts, models.Shift{
			RestaurantID:    restaurantID,
			EmployeeID:      a.EmployeeID,
			Date:            slot.Date,
			StartTime:       slot.StartTime,
			EndTime:         slot.EndTime,
			BreakMinutes:    slot.BreakMinutes,
			ShiftType:       slot.ShiftType,
			Position:        slot.Position,
			Status:          models.StatusScheduled,
			PredictedDemand: &demand,
			LaborCost:       a.LaborCost,
			AIGenerated:     true,
			AIConfidence:    &confidence,
			BatchID:         batchID,
		})
	}
	return shifts
}

func gapWarnings(slots []models.Slot, conflicts []models.ConflictReason) []apperrors.CoverageGapWarning {
	byKey := make(map[string]models.Slot, len(slots))
	for _, s := range slots {
		byKey[s.Key()] = s
	}
	var warnings []apperrors.CoverageGapWarning
	for _, c := range conflicts {
		s := byKey[c.Slot]
		warnings = append(warnings, apperrors.CoverageGapWarning{
			Date:      s.Date,
			ShiftType: string(s.ShiftType),
			Position:  string(s.Position),
			Missing:   c.Missing,
			Reasons:   c.Reasons,
		})
	}
	return warnings
}
