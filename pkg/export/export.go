package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/arnavshah/staff-scheduler-go/pkg/models"
	"github.com/xuri/excelize/v2"
)

// CSVHeader is the first row of a CSV export.
var CSVHeader = []string{"shift_id", "employee_id", "employee_name", "position", "date", "start", "end", "duration_hours", "labor_cost", "status"}

// WriteCSV writes one row per shift ordered by date, start and employee.
func WriteCSV(w io.Writer, shifts []models.Shift, employees []models.Employee) error {
	names := nameIndex(employees)
	writer := csv.NewWriter(w)
	if err := writer.Write(CSVHeader); err != nil {
		return err
	}

	for _, sh := range sorted(shifts) {
		err := writer.Write([]string{
			strconv.FormatUint(uint64(sh.ID), 10),
			strconv.FormatUint(uint64(sh.EmployeeID), 10),
			names[sh.EmployeeID],
			string(sh.Position),
			sh.Date,
			sh.StartTime,
			sh.EndTime,
			fmt.Sprintf("%.2f", sh.PaidHours()),
			fmt.Sprintf("%.2f", sh.LaborCost),
			string(sh.Status),
		})
		if err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// SheetName is the worksheet holding the schedule grid.
const SheetName = "Schedule"

// WriteXLSX writes a workbook with one row per employee and one column per
// day of [from, to]. Weekend headers are highlighted.
func WriteXLSX(w io.Writer, from, to time.Time, shifts []models.Shift, employees []models.Employee) error {
	if to.Before(from) {
		return fmt.Errorf("end date %s is before start date %s", models.FormatDate(to), models.FormatDate(from))
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Border:    borders(),
	})
	if err != nil {
		return err
	}
	weekendStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#C00000"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Border:    borders(),
	})
	if err != nil {
		return err
	}

	if err := f.SetCellValue(SheetName, "A1", "Employee"); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", "A1", headerStyle); err != nil {
		return err
	}

	columns := make(map[string]int)
	col := 2
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		cell, err := excelize.CoordinatesToCellName(col, 1)
		if err != nil {
			return err
		}
		date := models.FormatDate(d)
		f.SetCellValue(SheetName, cell, date+" "+d.Weekday().String()[:3])
		style := headerStyle
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			style = weekendStyle
		}
		f.SetCellStyle(SheetName, cell, cell, style)
		columns[date] = col
		col++
	}
	if last, err := excelize.ColumnNumberToName(col - 1); err == nil {
		f.SetColWidth(SheetName, "A", last, 18)
	}

	rows := make(map[uint]int, len(employees))
	for i, emp := range employees {
		row := i + 2
		rows[emp.ID] = row
		cell, _ := excelize.CoordinatesToCellName(1, row)
		f.SetCellValue(SheetName, cell, emp.Name)
	}

	cells := make(map[string]string)
	for _, sh := range sorted(shifts) {
		row, ok := rows[sh.EmployeeID]
		if !ok {
			continue
		}
		c, ok := columns[sh.Date]
		if !ok {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(c, row)
		entry := fmt.Sprintf("%s-%s %s", sh.StartTime, sh.EndTime, sh.Position)
		if prev, ok := cells[cell]; ok {
			entry = prev + "\n" + entry
		}
		cells[cell] = entry
	}
	for cell, v := range cells {
		if err := f.SetCellValue(SheetName, cell, v); err != nil {
			return err
		}
	}

	_, err = f.WriteTo(w)
	return err
}

func borders() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "#000000", Style: 1},
		{Type: "top", Color: "#000000", Style: 1},
		{Type: "right", Color: "#000000", Style: 1},
		{Type: "bottom", Color: "#000000", Style: 1},
	}
}

func nameIndex(employees []models.Employee) map[uint]string {
	names := make(map[uint]string, len(employees))
	for _, e := range employees {
		names[e.ID] = e.Name
	}
	return names
}

func sorted(shifts []models.Shift) []models.Shift {
	out := append([]models.Shift(nil), shifts...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].EmployeeID < out[j].EmployeeID
	})
	return out
}
