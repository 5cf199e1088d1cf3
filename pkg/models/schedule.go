package models

// Slot is a staffing requirement: headcount for one position on one shift.
type Slot struct {
	Date         string    `json:"date"`
	ShiftType    ShiftType `json:"shift_type"`
	StartTime    string    `json:"start_time"`
	EndTime      string    `json:"end_time"`
	BreakMinutes int       `json:"break_duration"`
	Position     Position  `json:"position"`
	Headcount    int       `json:"headcount"`
	Demand       int       `json:"predicted_demand"`
	Confidence   float64   `json:"confidence"`
}

// Key identifies the slot within a horizon.
func (s Slot) Key() string {
	return s.Date + "/" + string(s.ShiftType) + "/" + string(s.Position)
}

// Assignment places one employee into one slot.
type Assignment struct {
	SlotIndex  int     `json:"slot_index"`
	EmployeeID uint    `json:"employee_id"`
	Score      float64 `json:"score"`
	LaborCost  float64 `json:"labor_cost"`
	Compliant  bool    `json:"compliant"`
	// Fixed marks a shift that was already on the roster rather than a new placement.
	Fixed bool `json:"fixed,omitempty"`
}

// ConflictReason explains why a slot could not be filled
type ConflictReason struct {
	Slot    string   `json:"slot"`
	Missing int      `json:"missing"`
	Reasons []string `json:"reasons"`
}

// ScheduleMetrics summarises a candidate.
type ScheduleMetrics struct {
	CoveragePercent     float64 `json:"coverage_percent"`
	TotalLaborCost      float64 `json:"total_labor_cost"`
	AverageSatisfaction float64 `json:"average_satisfaction"`
	Violations          int     `json:"violations"`
	RequiredHeadcount   int     `json:"required_headcount"`
	FilledHeadcount     int     `json:"filled_headcount"`

	// FairnessPercent is 100 when assigned hours are spread evenly across the roster.
	FairnessPercent float64 `json:"fairness_percent"`
}

// ScoreComponents are the ratios feeding the composite score.
type ScoreComponents struct {
	Coverage     float64 `json:"coverage"`
	Cost         float64 `json:"cost"`
	Satisfaction float64 `json:"satisfaction"`
	Compliance   float64 `json:"compliance"`
}

// ScheduleCandidate is one complete proposed assignment for a horizon.
type ScheduleCandidate struct {
	ID          string           `json:"id"`
	Strategy    string           `json:"strategy"`
	Assignments []Assignment     `json:"assignments"`
	Score       float64          `json:"score"`
	Components  ScoreComponents  `json:"components"`
	Metrics     ScheduleMetrics  `json:"metrics"`
	Conflicts   []ConflictReason `json:"conflicts,omitempty"`
	Shifts      []Shift          `json:"shifts"`
}
