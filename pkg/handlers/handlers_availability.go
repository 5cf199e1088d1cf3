package handlers

import (
	"net/http"
	"strconv"

	"github.com/arnavshah/staff-scheduler-go/pkg/apperrors"
	"github.com/arnavshah/staff-scheduler-go/pkg/availability"
	"github.com/arnavshah/staff-scheduler-go/pkg/conflict"
	"github.com/arnavshah/staff-scheduler-go/pkg/models"
	"github.com/gin-gonic/gin"
)

// employeeID resolves the :id path parameter to an employee of the caller's restaurant.
func (h *Handler) employeeID(c *gin.Context) (uint, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return 0, false
	}
	if _, err := h.Roster.GetEmployee(c.Request.Context(), restaurantID(c), id); err != nil {
		h.respondError(c, err)
		return 0, false
	}
	return id, true
}

// recordID resolves the :id path parameter to an availability record owned by
// an employee of the caller's restaurant.
func (h *Handler) recordID(c *gin.Context) (uint, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return 0, false
	}
	var count int64
	err := h.DB.WithContext(c.Request.Context()).Model(&models.AvailabilityRecord{}).
		Joins("JOIN employees ON employees.id = availability_records.employee_id").
		Where("availability_records.id = ? AND employees.restaurant_id = ?", id, restaurantID(c)).
		Count(&count).Error
	if err != nil {
		h.respondError(c, err)
		return 0, false
	}
	if count == 0 {
		h.respondError(c, apperrors.NotFound("availability record", id))
		return 0, false
	}
	return id, true
}

// GetAvailability returns records between ?from and ?to plus the weekly pattern.
func (h *Handler) GetAvailability(c *gin.Context) {
	empID, ok := h.employeeID(c)
	if !ok {
		return
	}
	view, err := h.Availability.GetAvailability(c.Request.Context(), empID, c.Query("from"), c.Query("to"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// UpsertAvailability creates or replaces the record keyed by date and start time.
func (h *Handler) UpsertAvailability(c *gin.Context) {
	empID, ok := h.employeeID(c)
	if !ok {
		return
	}
	var in availability.RecordInput
	if !bindJSON(c, &in) {
		return
	}
	rec, err := h.Availability.UpsertAvailability(c.Request.Context(), empID, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// CreateAvailability inserts a record, rejecting duplicates and overlaps with 409.
func (h *Handler) CreateAvailability(c *gin.Context) {
	empID, ok := h.employeeID(c)
	if !ok {
		return
	}
	var in availability.RecordInput
	if !bindJSON(c, &in) {
		return
	}
	rec, err := h.Availability.CreateAvailability(c.Request.Context(), empID, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (h *Handler) BulkUpsertAvailability(c *gin.Context) {
	empID, ok := h.employeeID(c)
	if !ok {
		return
	}
	var req availability.BulkRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.Availability.BulkUpsertAvailability(c.Request.Context(), empID, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) SavePattern(c *gin.Context) {
	empID, ok := h.employeeID(c)
	if !ok {
		return
	}
	var in availability.PatternInput
	if !bindJSON(c, &in) {
		return
	}
	p, err := h.Availability.SavePattern(c.Request.Context(), empID, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) PreviewPattern(c *gin.Context) {
	empID, ok := h.employeeID(c)
	if !ok {
		return
	}
	days, err := h.Availability.GeneratePreviewFromPattern(c.Request.Context(), empID, c.Query("from"), c.Query("to"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": days})
}

// EffectiveAvailability answers whether the employee works at ?date and ?time.
func (h *Handler) EffectiveAvailability(c *gin.Context) {
	empID, ok := h.employeeID(c)
	if !ok {
		return
	}
	available, err := h.Availability.DeriveEffectiveAvailability(c.Request.Context(), empID, c.Query("date"), c.Query("time"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"employee_id": empID, "available": available})
}

func (h *Handler) ResolveShiftAvailability(c *gin.Context) {
	empID, ok := h.employeeID(c)
	if !ok {
		return
	}
	res, err := h.Availability.ResolveShiftAvailability(c.Request.Context(), empID, c.Query("date"), c.Query("start"), c.Query("end"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// FindConflicts lists records overlapping ?date ?start ?end, ignoring ?exclude.
func (h *Handler) FindConflicts(c *gin.Context) {
	empID, ok := h.employeeID(c)
	if !ok {
		return
	}
	var exclude *uint
	if v := c.Query("exclude"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exclude"})
			return
		}
		ex := uint(id)
		exclude = &ex
	}
	overlaps, err := h.Detector.FindOverlaps(c.Request.Context(), empID, c.Query("date"), c.Query("start"), c.Query("end"), exclude)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"has_conflict": len(overlaps) > 0,
		"conflict_ids": conflict.IDs(overlaps),
		"conflicts":    overlaps,
	})
}

func (h *Handler) UpdateAvailability(c *gin.Context) {
	id, ok := h.recordID(c)
	if !ok {
		return
	}
	var in availability.RecordInput
	if !bindJSON(c, &in) {
		return
	}
	rec, err := h.Availability.UpdateAvailability(c.Request.Context(), id, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) DeleteAvailability(c *gin.Context) {
	id, ok := h.recordID(c)
	if !ok {
		return
	}
	if err := h.Availability.DeleteAvailability(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Availability deleted"})
}
