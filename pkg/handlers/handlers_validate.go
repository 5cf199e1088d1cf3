package handlers

import (
	"fmt"
	"net/http"

	"github.com/arnavshah/staff-scheduler-go/pkg/scheduler"
	"github.com/gin-gonic/gin"
)

// ValidateInput checks an optimize request without running it and reports
// how much work it would be.
func (h *Handler) ValidateInput(c *gin.Context) {
	var req optimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	in, err := h.loadPlanning(c.Request.Context(), restaurantID(c), req.horizonRequest)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}

	if len(in.candidates) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"valid": false,
			"error": "At least one active employee is required",
		})
		return
	}

	// Check for requested employees outside the roster
	if len(req.EmployeeIDs) > 0 && len(in.candidates) != len(idSet(req.EmployeeIDs)) {
		c.JSON(http.StatusOK, gin.H{
			"valid": false,
			"error": fmt.Sprintf("%d requested employees are unknown or inactive", len(idSet(req.EmployeeIDs))-len(in.candidates)),
		})
		return
	}

	slots, err := scheduler.BuildSlots(in.demand, in.policy)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}

	required := 0
	for _, s := range slots {
		required += s.Headcount
	}

	c.JSON(http.StatusOK, gin.H{
		"valid": true,
		"stats": gin.H{
			"employee_count":     len(in.candidates),
			"slot_count":         len(slots),
			"required_headcount": required,
			"forecast_days":      len(in.demand),
			"existing_shifts":    len(in.inside),
			"fixed_shifts":       len(fixedShifts(in.inside, req.EmployeeIDs)),
		},
		"forecast_warnings": in.warnings,
	})
}
