package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/arnavshah/staff-scheduler-go/pkg/apperrors"
	"github.com/arnavshah/staff-scheduler-go/pkg/export"
	"github.com/arnavshah/staff-scheduler-go/pkg/models"
	"github.com/arnavshah/staff-scheduler-go/pkg/roster"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Export downloads the stored schedule between ?from and ?to as ?format=csv (default) or xlsx.
// Cancelled shifts are left out.
func (h *Handler) Export(c *gin.Context) {
	ctx := c.Request.Context()
	rid := restaurantID(c)

	fromStr, toStr := c.Query("from"), c.Query("to")
	from, err := models.ParseDate(fromStr)
	if err != nil {
		h.respondError(c, apperrors.NewValidation("from", err.Error()))
		return
	}
	to, err := models.ParseDate(toStr)
	if err != nil {
		h.respondError(c, apperrors.NewValidation("to", err.Error()))
		return
	}
	if to.Before(from) {
		h.respondError(c, apperrors.NewValidation("to", "must not be before from"))
		return
	}

	shifts, err := h.Roster.ListShifts(ctx, roster.ShiftFilter{RestaurantID: rid, From: fromStr, To: toStr})
	if err != nil {
		h.respondError(c, err)
		return
	}
	kept := shifts[:0]
	for _, sh := range shifts {
		if sh.Status != models.StatusCancelled {
			kept = append(kept, sh)
		}
	}
	employees, err := h.Roster.ListEmployees(ctx, rid, true)
	if err != nil {
		h.respondError(c, err)
		return
	}

	var buf bytes.Buffer
	name := fmt.Sprintf("schedule_%s_%s", fromStr, toStr)
	switch c.DefaultQuery("format", "csv") {
	case "csv":
		err = export.WriteCSV(&buf, kept, employees)
		name += ".csv"
		c.Header("Content-Type", "text/csv")
	case "xlsx":
		err = export.WriteXLSX(&buf, from, to, kept, employees)
		name += ".xlsx"
		c.Header("Content-Type", xlsxContentType)
	default:
		h.respondError(c, apperrors.NewValidation("format", "must be csv or xlsx"))
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, c.Writer.Header().Get("Content-Type"), buf.Bytes())
}
