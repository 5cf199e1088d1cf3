package conflict

import (
	"context"
	"errors"
	"testing"

	"github.com/arnavshah/staff-scheduler-go/internal/testfixtures"
	"github.com/arnavshah/staff-scheduler-go/pkg/apperrors"
	"github.com/arnavshah/staff-scheduler-go/pkg/models"
)

func TestOverlap(t *testing.T) {
	cases := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd int
		want                       bool
	}{
		{"identical", 540, 600, 540, 600, true},
		{"partial", 540, 600, 570, 660, true},
		{"contained", 540, 720, 600, 660, true},
		{"touching end to start", 540, 600, 600, 660, false},
		{"disjoint", 540, 600, 700, 760, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Overlap(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd); got != tc.want {
				t.Errorf("Expected %v, got %v", tc.want, got)
			}
			if got := Overlap(tc.bStart, tc.bEnd, tc.aStart, tc.aEnd); got != tc.want {
				t.Errorf("Expected overlap to be symmetric")
			}
		})
	}
}

func TestWindowValidation(t *testing.T) {
	if s, e, err := Window("", ""); err != nil || s != 0 || e != models.MinutesPerDay {
		t.Errorf("Expected whole day window, got %d-%d (%v)", s, e, err)
	}
	if s, e, err := Window("18:00", ""); err != nil || s != 1080 || e != models.MinutesPerDay {
		t.Errorf("Expected open ended window to run to midnight, got %d-%d (%v)", s, e, err)
	}

	var vErr *apperrors.ValidationError
	for _, pair := range [][2]string{{"10:00", "09:00"}, {"10:00", "10:00"}, {"9am", "10:00"}, {"", "10:00"}} {
		if _, _, err := Window(pair[0], pair[1]); !errors.As(err, &vErr) {
			t.Errorf("Expected ValidationError for %v, got %v", pair, err)
		}
	}
}

func TestFindOverlapsPure(t *testing.T) {
	existing := []models.AvailabilityRecord{
		{ID: 1, StartTime: "09:00", EndTime: "12:00"},
		{ID: 2, StartTime: "13:00", EndTime: "17:00"},
		{ID: 3},
	}

	got := FindOverlaps(existing, 11*60, 14*60, nil)
	if len(got) != 3 {
		t.Fatalf("Expected 3 overlaps including the whole-day record, got %d", len(got))
	}

	exclude := uint(3)
	got = FindOverlaps(existing, 12*60, 13*60, &exclude)
	if len(got) != 0 {
		t.Errorf("Expected no overlap in the gap once the whole-day record is excluded, got %v", IDs(got))
	}
}

func TestDetectorFindOverlaps(t *testing.T) {
	db := testfixtures.NewDB(t)
	emp := testfixtures.CreateEmployee(t, db)
	other := testfixtures.CreateEmployee(t, db)

	records := []models.AvailabilityRecord{
		{EmployeeID: emp.ID, Date: "2024-03-04", StartTime: "09:00", EndTime: "12:00", IsAvailable: true, AvailabilityType: models.AvailabilityWorking},
		{EmployeeID: emp.ID, Date: "2024-03-04", StartTime: "14:00", EndTime: "18:00", IsAvailable: false, AvailabilityType: models.AvailabilityMeeting},
		{EmployeeID: emp.ID, Date: "2024-03-05", StartTime: "09:00", EndTime: "12:00", IsAvailable: true, AvailabilityType: models.AvailabilityWorking},
		{EmployeeID: other.ID, Date: "2024-03-04", StartTime: "09:00", EndTime: "12:00", IsAvailable: true, AvailabilityType: models.AvailabilityWorking},
	}
	if err := db.Create(&records).Error; err != nil {
		t.Fatalf("Failed to seed records: %v", err)
	}

	d := NewDetector(db)
	ctx := context.Background()

	got, err := d.FindOverlaps(ctx, emp.ID, "2024-03-04", "11:00", "15:00", nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Expected 2 overlapping records, got %d", len(got))
	}

	got, err = d.FindOverlaps(ctx, emp.ID, "2024-03-04", "12:00", "14:00", nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected disjoint window to return no overlaps, got %d", len(got))
	}

	got, err = d.FindOverlaps(ctx, emp.ID, "2024-03-04", "10:00", "11:00", &records[0].ID)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected the edited record itself to be excluded, got %d", len(got))
	}

	if _, err := d.FindOverlaps(ctx, emp.ID, "04/03/2024", "10:00", "11:00", nil); apperrors.Kind(err) != "validation" {
		t.Errorf("Expected validation error for malformed date, got %v", err)
	}
}
