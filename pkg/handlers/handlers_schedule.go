package handlers

import (
	"context"
	"net/http"

	"github.com/arnavshah/staff-scheduler-go/pkg/apperrors"
	"github.com/arnavshah/staff-scheduler-go/pkg/availability"
	"github.com/arnavshah/staff-scheduler-go/pkg/forecast"
	"github.com/arnavshah/staff-scheduler-go/pkg/models"
	"github.com/arnavshah/staff-scheduler-go/pkg/roster"
	"github.com/arnavshah/staff-scheduler-go/pkg/scheduler"
	"github.com/gin-gonic/gin"
)

// contextDays is how far around a horizon existing shifts count toward weekly
// hours, rest and consecutive day limits.
const contextDays = 7

// horizonRequest describes the days to plan and where their demand comes from.
// Without explicit demand the forecast service predicts it.
type horizonRequest struct {
	From        string                      `json:"from" binding:"required"`
	To          string                      `json:"to" binding:"required"`
	Demand      []models.ForecastPeriod     `json:"demand"`
	Weather     []models.WeatherObservation `json:"weather"`
	Events      []forecast.EventImpact      `json:"events"`
	Seasonal    map[string]float64          `json:"seasonal"`
	Policy      *scheduler.StaffingPolicy   `json:"policy"`
	Constraints scheduler.Constraints       `json:"constraints"`
	EmployeeIDs []uint                      `json:"employee_ids"`
}

type optimizeRequest struct {
	horizonRequest
	Preferences scheduler.Preferences `json:"preferences"`
	// Persist replaces the horizon's generated shifts with the selected schedule.
	Persist bool `json:"persist"`
}

// planningInput is everything loaded from storage for one horizon.
type planningInput struct {
	demand   []models.ForecastPeriod
	warnings []apperrors.DegradedForecastWarning
	policy   scheduler.StaffingPolicy
	// employees is the whole roster, former staff included; candidates are the
	// active employees a run may assign, narrowed by employee_ids.
	employees    []models.Employee
	candidates   []models.Employee
	availability *availability.Snapshot
	// inside are the horizon's shifts; outside are the surrounding days'.
	inside, outside []models.Shift
}

func (h *Handler) loadPlanning(ctx context.Context, rid uint, req horizonRequest) (*planningInput, error) {
	from, err := models.ParseDate(req.From)
	if err != nil {
		return nil, apperrors.NewValidation("from", err.Error())
	}
	to, err := models.ParseDate(req.To)
	if err != nil {
		return nil, apperrors.NewValidation("to", err.Error())
	}
	if to.Before(from) {
		return nil, apperrors.NewValidation("to", "must not be before from")
	}

	in := &planningInput{demand: req.Demand, policy: h.Policy}
	if req.Policy != nil {
		in.policy = *req.Policy
	}
	if len(in.demand) == 0 {
		fc, err := h.Forecasts.Forecast(ctx, forecast.Input{
			RestaurantID: rid,
			From:         req.From,
			To:           req.To,
			Weather:      req.Weather,
			Events:       req.Events,
			Seasonal:     req.Seasonal,
		})
		if err != nil {
			return nil, err
		}
		in.demand, in.warnings = fc.Periods, fc.Warnings
	}

	if in.employees, err = h.Roster.ListEmployees(ctx, rid, true); err != nil {
		return nil, err
	}
	in.candidates = candidates(in.employees, req.EmployeeIDs)

	ids := make([]uint, len(in.employees))
	for i, e := range in.employees {
		ids[i] = e.ID
	}
	if in.availability, err = h.Availability.Snapshot(ctx, ids, req.From, req.To); err != nil {
		return nil, err
	}

	shifts, err := h.Roster.ListShifts(ctx, roster.ShiftFilter{
		RestaurantID: rid,
		From:         models.FormatDate(from.AddDate(0, 0, -contextDays)),
		To:           models.FormatDate(to.AddDate(0, 0, contextDays)),
	})
	if err != nil {
		return nil, err
	}
	for _, sh := range shifts {
		if sh.Date >= req.From && sh.Date <= req.To {
			in.inside = append(in.inside, sh)
		} else {
			in.outside = append(in.outside, sh)
		}
	}
	return in, nil
}

func candidates(employees []models.Employee, ids []uint) []models.Employee {
	want := idSet(ids)
	out := make([]models.Employee, 0, len(employees))
	for _, e := range employees {
		if e.IsActive && (want == nil || want[e.ID]) {
			out = append(out, e)
		}
	}
	return out
}

func idSet(ids []uint) map[uint]bool {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// fixedShifts are the horizon's shifts a run keeps. Generated shifts still only
// scheduled are replaced, but only for the employees being planned.
func fixedShifts(inside []models.Shift, planned []uint) []models.Shift {
	want := idSet(planned)
	var fixed []models.Shift
	for _, sh := range inside {
		replaceable := sh.AIGenerated && sh.Status == models.StatusScheduled && (want == nil || want[sh.EmployeeID])
		if !replaceable && sh.Status != models.StatusCancelled {
			fixed = append(fixed, sh)
		}
	}
	return fixed
}

// Forecast predicts daily demand for a horizon.
func (h *Handler) Forecast(c *gin.Context) {
	var in forecast.Input
	if !bindJSON(c, &in) {
		return
	}
	in.RestaurantID = restaurantID(c)
	res, err := h.Forecasts.Forecast(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Optimize builds the best schedule for the horizon and, with persist, stores it.
func (h *Handler) Optimize(c *gin.Context) {
	var req optimizeRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	rid := restaurantID(c)

	in, err := h.loadPlanning(ctx, rid, req.horizonRequest)
	if err != nil {
		h.respondError(c, err)
		return
	}

	res, err := h.Optimizer.Optimize(ctx, scheduler.Request{
		RestaurantID: rid,
		Employees:    in.employees,
		Demand:       in.demand,
		Policy:       in.policy,
		Preferences:  req.Preferences,
		Constraints:  req.Constraints,
		Availability: in.availability,
		Existing:     in.outside,
		Fixed:        fixedShifts(in.inside, req.EmployeeIDs),
		Candidates:   req.EmployeeIDs,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	body := gin.H{
		"result":            res,
		"forecast_warnings": in.warnings,
	}
	if req.Persist {
		replaced, err := h.Roster.SaveShifts(ctx, rid, req.From, req.To, req.EmployeeIDs, res.Schedule.Shifts)
		if err != nil {
			h.respondError(c, err)
			return
		}
		body["persisted"] = len(res.Schedule.Shifts)
		body["replaced"] = replaced
	}

	h.RecordUsage(c, len(res.Slots), len(in.candidates))
	c.JSON(http.StatusOK, body)
}

// Evaluate re-scores the stored shifts of a horizon against its demand. The
// whole roster is judged; employee_ids only narrows who optimize may assign.
func (h *Handler) Evaluate(c *gin.Context) {
	var req struct {
		horizonRequest
		Weights *scheduler.Weights `json:"weights"`
	}
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()

	in, err := h.loadPlanning(ctx, restaurantID(c), req.horizonRequest)
	if err != nil {
		h.respondError(c, err)
		return
	}
	slots, err := scheduler.BuildSlots(in.demand, in.policy)
	if err != nil {
		h.respondError(c, err)
		return
	}

	eval := h.Optimizer.Evaluator()
	if req.Weights != nil {
		eval.Weights = *req.Weights
	}
	ev := eval.EvaluateShifts(scheduler.Horizon{
		Slots:        slots,
		Employees:    in.employees,
		Constraints:  req.Constraints,
		Availability: in.availability,
		Existing:     in.outside,
	}, in.inside)

	h.RecordUsage(c, len(in.inside), len(in.employees))
	c.JSON(http.StatusOK, gin.H{
		"score":             ev.Score,
		"components":        ev.Components,
		"metrics":           ev.Metrics,
		"assignments":       ev.Assignments,
		"forecast_warnings": in.warnings,
	})
}
