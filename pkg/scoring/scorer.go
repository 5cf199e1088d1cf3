package scoring

import (
	"math"

	"github.com/arnavshah/staff-scheduler-go/pkg/models"
)

// Config holds the additive scoring constants.
type Config struct {
	ExactPositionBonus    float64
	AdjacentPositionBonus float64
	OtherPositionBonus    float64
	SkillWeight           float64
	PreferenceWeight      float64
	UnavailablePenalty    float64
	PreferredTypeBonus    float64
	NightAvoidPenalty     float64
	PerformanceWeight     float64
	// DefaultPreference is used when an available day carries no preference weight.
	DefaultPreference int
	// Adjacent lists position pairs that earn the adjacent bonus in either direction.
	Adjacent [][2]models.Position
}

// DefaultConfig returns the standard scoring constants.
func DefaultConfig() Config {
	return Config{
		ExactPositionBonus:    40,
		AdjacentPositionBonus: 30,
		OtherPositionBonus:    10,
		SkillWeight:           2,
		PreferenceWeight:      5,
		UnavailablePenalty:    50,
		PreferredTypeBonus:    15,
		NightAvoidPenalty:     20,
		PerformanceWeight:     2,
		DefaultPreference:     3,
		Adjacent: [][2]models.Position{
			{models.PositionService, models.PositionWaiter},
			{models.PositionKitchen, models.PositionCook},
		},
	}
}

// ShiftRequest is the shift an employee is scored against.
type ShiftRequest struct {
	Date      string
	StartTime string
	EndTime   string
	Position  models.Position
	ShiftType models.ShiftType
	// Availability, when set, is the resolved record/pattern answer for this
	// window and replaces the employee's embedded weekly availability.
	Availability *models.AvailabilityResolution
}

// Breakdown itemises a score.
type Breakdown struct {
	Position     float64 `json:"position"`
	Skill        float64 `json:"skill"`
	Availability float64 `json:"availability"`
	ShiftType    float64 `json:"shift_type"`
	Performance  float64 `json:"performance"`
	Available    bool    `json:"available"`
	Total        float64 `json:"total"`
}

// Scorer computes compatibility scores. It holds no state beyond its config and
// is safe for concurrent use.
type Scorer struct {
	cfg Config
}

// New creates a scorer.
func New(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score returns a value in [0,100] for how well emp fits the shift.
func (s *Scorer) Score(emp *models.Employee, req ShiftRequest) float64 {
	return s.Breakdown(emp, req).Total
}

// Breakdown returns each additive component and the clamped total.
func (s *Scorer) Breakdown(emp *models.Employee, req ShiftRequest) Breakdown {
	var b Breakdown
	b.Position = s.positionBonus(emp, req.Position)
	b.Skill = float64(emp.SkillLevel) * s.cfg.SkillWeight

	available, pref := s.availability(emp, req)
	b.Available = available
	if available {
		b.Availability = float64(pref) * s.cfg.PreferenceWeight
	} else {
		b.Availability = -s.cfg.UnavailablePenalty
	}

	if emp.ShiftPreferences.Prefers(req.ShiftType) {
		b.ShiftType += s.cfg.PreferredTypeBonus
	}
	if req.ShiftType == models.ShiftNight && emp.ShiftPreferences.AvoidNightShifts {
		b.ShiftType -= s.cfg.NightAvoidPenalty
	}

	b.Performance = emp.PerformanceScore * s.cfg.PerformanceWeight

	sum := b.Position + b.Skill + b.Availability + b.ShiftType + b.Performance
	b.Total = math.Max(0, math.Min(100, sum))
	return b
}

// Matches reports whether emp holds the wanted position or one adjacent to it.
func (s *Scorer) Matches(emp *models.Employee, want models.Position) bool {
	return emp.Position == want || s.isAdjacent(emp, want)
}

func (s *Scorer) positionBonus(emp *models.Employee, want models.Position) float64 {
	switch {
	case emp.Position == want:
		return s.cfg.ExactPositionBonus
	case s.isAdjacent(emp, want):
		return s.cfg.AdjacentPositionBonus
	}
	return s.cfg.OtherPositionBonus
}

func (s *Scorer) isAdjacent(emp *models.Employee, want models.Position) bool {
	for _, pair := range s.cfg.Adjacent {
		if adjacent(pair, emp.Position, want) || adjacent(pair, models.Position(emp.Department), want) {
			return true
		}
	}
	return false
}

func adjacent(pair [2]models.Position, a, b models.Position) bool {
	return (pair[0] == a && pair[1] == b) || (pair[1] == a && pair[0] == b)
}

// availability returns whether the employee can work the window and the preference weight to apply.
func (s *Scorer) availability(emp *models.Employee, req ShiftRequest) (bool, int) {
	date, err := models.ParseDate(req.Date)
	if err != nil {
		return false, 0
	}
	day := emp.DayAvailabilityFor(date)
	pref := day.Preference
	if pref <= 0 {
		pref = s.cfg.DefaultPreference
	}
	if pref > 5 {
		pref = 5
	}

	if req.Availability != nil {
		return req.Availability.Available, pref
	}
	if !day.Available {
		return false, pref
	}
	if day.StartTime == "" || day.EndTime == "" || req.StartTime == "" || req.EndTime == "" {
		return true, pref
	}
	ws, we, err := models.ClockSpan(day.StartTime, day.EndTime)
	if err != nil {
		return false, pref
	}
	ss, se, err := models.ClockSpan(req.StartTime, req.EndTime)
	if err != nil {
		return false, pref
	}
	return ss >= ws && se <= we, pref
}
