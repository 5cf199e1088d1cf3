package handlers

import (
	"net/http"
	"strconv"

	"github.com/arnavshah/staff-scheduler-go/pkg/demandfeed"
	"github.com/arnavshah/staff-scheduler-go/pkg/logging"
	"github.com/arnavshah/staff-scheduler-go/pkg/models"
	"github.com/arnavshah/staff-scheduler-go/pkg/roster"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ListEmployees returns the restaurant's roster. ?include_inactive=true adds former staff.
func (h *Handler) ListEmployees(c *gin.Context) {
	includeInactive, _ := strconv.ParseBool(c.Query("include_inactive"))
	employees, err := h.Roster.ListEmployees(c.Request.Context(), restaurantID(c), includeInactive)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"employees": employees})
}

func (h *Handler) GetEmployee(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	emp, err := h.Roster.GetEmployee(c.Request.Context(), restaurantID(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, emp)
}

func (h *Handler) CreateEmployee(c *gin.Context) {
	var in roster.EmployeeInput
	if !bindJSON(c, &in) {
		return
	}
	emp, err := h.Roster.CreateEmployee(c.Request.Context(), restaurantID(c), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, emp)
}

func (h *Handler) UpdateEmployee(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in roster.EmployeeInput
	if !bindJSON(c, &in) {
		return
	}
	emp, err := h.Roster.UpdateEmployee(c.Request.Context(), restaurantID(c), id, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, emp)
}

func (h *Handler) DeactivateEmployee(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Roster.DeactivateEmployee(c.Request.Context(), restaurantID(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Employee deactivated"})
}

// DeleteEmployee removes the employee with their availability and shifts.
func (h *Handler) DeleteEmployee(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Roster.DeleteEmployee(c.Request.Context(), restaurantID(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Employee deleted"})
}

// ListShifts filters by ?from, ?to, ?employee_id and ?status.
func (h *Handler) ListShifts(c *gin.Context) {
	f := roster.ShiftFilter{
		RestaurantID: restaurantID(c),
		From:         c.Query("from"),
		To:           c.Query("to"),
		Status:       models.ShiftStatus(c.Query("status")),
	}
	if v := c.Query("employee_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid employee_id"})
			return
		}
		f.EmployeeID = uint(id)
	}
	shifts, err := h.Roster.ListShifts(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shifts": shifts})
}

func (h *Handler) UpdateShiftStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var upd roster.ShiftUpdate
	if !bindJSON(c, &upd) {
		return
	}
	shift, err := h.Roster.UpdateShiftStatus(c.Request.Context(), restaurantID(c), id, upd)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shift)
}

// RecordDemand ingests observed daily demand for forecasting.
func (h *Handler) RecordDemand(c *gin.Context) {
	var req struct {
		Days []demandfeed.DemandInput `json:"days"`
	}
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	rid := restaurantID(c)
	n, err := h.Demand.RecordDemand(ctx, rid, req.Days)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.Forecasts.Invalidate(ctx, rid); err != nil {
		logging.FromContext(ctx, h.Logger).Warn("stale forecasts may be served", zap.Uint("restaurant_id", rid), zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"recorded": n})
}
