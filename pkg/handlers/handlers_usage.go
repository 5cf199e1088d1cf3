package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/arnavshah/staff-scheduler-go/pkg/database"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	defaultUsageDays = 30
	maxUsageDays     = 365
)

type usageTotals struct {
	Requests  int64 `json:"requests"`
	Shifts    int64 `json:"shifts"`
	Employees int64 `json:"employees"`
}

type usageReport struct {
	KeyID          uint                `json:"key_id"`
	KeyName        string              `json:"key_name"`
	RestaurantID   uint                `json:"restaurant_id"`
	RateLimit      int                 `json:"rate_limit"`
	RequestsToday  int                 `json:"requests_today"`
	RemainingToday *int                `json:"remaining_today,omitempty"`
	Revoked        bool                `json:"revoked"`
	Days           int                 `json:"days"`
	History        []database.APIUsage `json:"usage_history"`
	Totals         usageTotals         `json:"totals"`
}

// usageDays reads ?days, answering 400 when it is not a count in range.
func usageDays(c *gin.Context) (int, bool) {
	raw := c.Query("days")
	if raw == "" {
		return defaultUsageDays, true
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 1 || days > maxUsageDays {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be between 1 and " + strconv.Itoa(maxUsageDays)})
		return 0, false
	}
	return days, true
}

// buildUsage summarizes the most recent days of a key's counters, newest first.
func (h *Handler) buildUsage(key *database.APIKey, days int) (*usageReport, error) {
	var history []database.APIUsage
	if err := h.DB.Where("key_id = ?", key.ID).Order("date desc").Limit(days).Find(&history).Error; err != nil {
		return nil, err
	}

	report := &usageReport{
		KeyID:        key.ID,
		KeyName:      key.Name,
		RestaurantID: key.RestaurantID,
		RateLimit:    key.RateLimit,
		Revoked:      key.RevokedAt != nil,
		Days:         days,
		History:      history,
	}
	d := today()
	for _, u := range history {
		report.Totals.Requests += int64(u.RequestCount)
		report.Totals.Shifts += int64(u.TotalShifts)
		report.Totals.Employees += int64(u.TotalEmployees)
		if u.Date == d {
			report.RequestsToday = u.RequestCount
		}
	}
	if key.RateLimit > 0 {
		left := max(key.RateLimit-report.RequestsToday, 0)
		report.RemainingToday = &left
	}
	return report, nil
}

// GetMyUsage returns usage stats for the authenticated API key
func (h *Handler) GetMyUsage(c *gin.Context) {
	key, ok := c.MustGet("apiKey").(*database.APIKey)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "API Key context missing"})
		return
	}
	days, ok := usageDays(c)
	if !ok {
		return
	}
	report, err := h.buildUsage(key, days)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetUsage returns usage stats for any key; admin only.
func (h *Handler) GetUsage(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	days, ok := usageDays(c)
	if !ok {
		return
	}
	var key database.APIKey
	if err := h.DB.First(&key, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "API key not found"})
			return
		}
		h.respondError(c, err)
		return
	}
	report, err := h.buildUsage(&key, days)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
