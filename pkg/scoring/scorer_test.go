package scoring

import (
	"testing"

	"github.com/arnavshah/staff-scheduler-go/internal/testfixtures"
	"github.com/arnavshah/staff-scheduler-go/pkg/models"
)

func request(position models.Position, shiftType models.ShiftType) ShiftRequest {
	return ShiftRequest{
		Date:      "2024-03-05",
		StartTime: "11:00",
		EndTime:   "17:00",
		Position:  position,
		ShiftType: shiftType,
	}
}

func TestScoreExactMatchScenario(t *testing.T) {
	emp := testfixtures.NewEmployee(testfixtures.WithSkill(9, 8.5))
	s := New(DefaultConfig())

	got := s.Score(&emp, request(models.PositionWaiter, models.ShiftAfternoon))
	if got != 90 {
		t.Errorf("Expected 90, got %v", got)
	}
	b := s.Breakdown(&emp, request(models.PositionWaiter, models.ShiftAfternoon))
	if b.Position != 40 || b.Skill != 18 || b.Availability != 15 || b.ShiftType != 0 || b.Performance != 17 {
		t.Errorf("Unexpected breakdown %+v", b)
	}
}

func TestScorePositionBonus(t *testing.T) {
	s := New(DefaultConfig())
	cases := []struct {
		name     string
		position models.Position
		dept     models.Department
		want     models.Position
		bonus    float64
	}{
		{"exact", models.PositionCook, models.DepartmentKitchen, models.PositionCook, 40},
		{"waiter for service", models.PositionWaiter, models.DepartmentService, models.PositionService, 30},
		{"kitchen dept for cook", models.PositionChef, models.DepartmentKitchen, models.PositionCook, 30},
		{"unrelated", models.PositionBartender, models.DepartmentBar, models.PositionCook, 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			emp := testfixtures.NewEmployee(testfixtures.WithPosition(tc.position, tc.dept))
			if got := s.Breakdown(&emp, request(tc.want, models.ShiftMorning)).Position; got != tc.bonus {
				t.Errorf("Expected %v, got %v", tc.bonus, got)
			}
		})
	}
}

func TestScoreAvailability(t *testing.T) {
	s := New(DefaultConfig())

	// Tuesday is weekday index 1.
	off := testfixtures.NewEmployee(testfixtures.WithDayOff(1))
	b := s.Breakdown(&off, request(models.PositionWaiter, models.ShiftAfternoon))
	if b.Available || b.Availability != -50 {
		t.Errorf("Expected -50 for day off, got %+v", b)
	}

	early := testfixtures.NewEmployee()
	req := request(models.PositionWaiter, models.ShiftMorning)
	req.StartTime, req.EndTime = "05:00", "09:00"
	if b := s.Breakdown(&early, req); b.Available {
		t.Errorf("Expected shift starting before the weekly window to be unavailable")
	}

	// A resolved record overrides the weekly availability.
	req = request(models.PositionWaiter, models.ShiftAfternoon)
	req.Availability = &models.AvailabilityResolution{Available: false, Source: models.SourceRecord}
	if b := s.Breakdown(&early, req); b.Available {
		t.Errorf("Expected resolved unavailability to win")
	}
	req.Availability = &models.AvailabilityResolution{Available: true, Source: models.SourceRecord}
	if b := s.Breakdown(&off, req); !b.Available {
		t.Errorf("Expected resolved availability to win over day off")
	}

	unset := testfixtures.NewEmployee()
	unset.Availability[1].Preference = 0
	if b := s.Breakdown(&unset, request(models.PositionWaiter, models.ShiftAfternoon)); b.Availability != 15 {
		t.Errorf("Expected unset preference to count as 3, got %v", b.Availability)
	}
}

func TestScoreShiftTypeAdjustments(t *testing.T) {
	s := New(DefaultConfig())
	emp := testfixtures.NewEmployee()
	emp.ShiftPreferences.PreferredShiftTypes = []models.ShiftType{models.ShiftNight}
	emp.ShiftPreferences.AvoidNightShifts = true

	req := request(models.PositionWaiter, models.ShiftNight)
	req.StartTime, req.EndTime = "18:00", "23:00"
	if got := s.Breakdown(&emp, req).ShiftType; got != -5 {
		t.Errorf("Expected +15 and -20 to both apply, got %v", got)
	}
}

func TestScoreIsBounded(t *testing.T) {
	s := New(DefaultConfig())

	low := testfixtures.NewEmployee(testfixtures.WithSkill(1, 0), testfixtures.WithDayOff(1),
		testfixtures.WithPosition(models.PositionDishwasher, models.DepartmentKitchen))
	low.ShiftPreferences.AvoidNightShifts = true
	req := request(models.PositionBartender, models.ShiftNight)
	if got := s.Score(&low, req); got != 0 {
		t.Errorf("Expected score clamped to 0, got %v", got)
	}

	high := testfixtures.NewEmployee(testfixtures.WithSkill(10, 10))
	high.Availability[1].Preference = 5
	high.ShiftPreferences.PreferredShiftTypes = []models.ShiftType{models.ShiftAfternoon}
	req = request(models.PositionWaiter, models.ShiftAfternoon)
	if got := s.Score(&high, req); got != 100 {
		t.Errorf("Expected score clamped to 100, got %v", got)
	}
	if s.Score(&high, req) != s.Score(&high, req) {
		t.Errorf("Expected deterministic score")
	}
}

func TestMatches(t *testing.T) {
	s := New(DefaultConfig())
	waiter := testfixtures.NewEmployee()
	if !s.Matches(&waiter, models.PositionWaiter) || !s.Matches(&waiter, models.PositionService) {
		t.Errorf("Expected waiter to match waiter and service slots")
	}
	if s.Matches(&waiter, models.PositionCook) {
		t.Errorf("Expected waiter not to match a cook slot")
	}
}
