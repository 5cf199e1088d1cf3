package apperrors

import "fmt"

// DegradedForecastWarning marks a forecast date computed without enough history.
type DegradedForecastWarning struct {
	Date   string `json:"date"`
	Reason string `json:"reason"`
}

func (w DegradedForecastWarning) String() string {
	return fmt.Sprintf("degraded forecast for %s: %s", w.Date, w.Reason)
}

// CoverageGapWarning marks a slot the optimizer could not fully staff.
type CoverageGapWarning struct {
	Date      string   `json:"date"`
	ShiftType string   `json:"shift_type"`
	Position  string   `json:"position"`
	Missing   int      `json:"missing"`
	Reasons   []string `json:"reasons"`
}

func (w CoverageGapWarning) String() string {
	return fmt.Sprintf("coverage gap %s %s %s: %d missing", w.Date, w.ShiftType, w.Position, w.Missing)
}
