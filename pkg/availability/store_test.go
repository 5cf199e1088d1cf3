package availability

import (
	"context"
	"errors"
	"testing"

	"github.com/arnavshah/staff-scheduler-go/internal/testfixtures"
	"github.com/arnavshah/staff-scheduler-go/pkg/apperrors"
	"github.com/arnavshah/staff-scheduler-go/pkg/models"
)

func newStore(t *testing.T) (*Store, models.Employee) {
	t.Helper()
	db := testfixtures.NewDB(t)
	emp := testfixtures.CreateEmployee(t, db)
	return NewStore(db, nil), emp
}

func TestUpsertIsIdempotentPerKey(t *testing.T) {
	store, emp := newStore(t)
	ctx := context.Background()

	in := RecordInput{Date: "2024-03-05", StartTime: "09:00", EndTime: "12:00", IsAvailable: true}
	first, err := store.UpsertAvailability(ctx, emp.ID, in)
	if err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}
	if first.AvailabilityType != models.AvailabilityWorking {
		t.Errorf("Expected type to default to working, got %s", first.AvailabilityType)
	}

	in.EndTime = "15:00"
	in.IsAvailable = false
	in.Type = models.AvailabilityMeeting
	second, err := store.UpsertAvailability(ctx, emp.ID, in)
	if err != nil {
		t.Fatalf("Failed to upsert again: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("Expected same row to be updated, got ids %d and %d", first.ID, second.ID)
	}
	if second.EndTime != "15:00" || second.IsAvailable || second.AvailabilityType != models.AvailabilityMeeting {
		t.Errorf("Expected updated fields, got %+v", second)
	}

	var count int64
	store.DB.Model(&models.AvailabilityRecord{}).Where("employee_id = ?", emp.ID).Count(&count)
	if count != 1 {
		t.Errorf("Expected 1 record, got %d", count)
	}
}

func TestUpsertValidatesBeforeWrite(t *testing.T) {
	store, emp := newStore(t)
	ctx := context.Background()

	var vErr *apperrors.ValidationError
	_, err := store.UpsertAvailability(ctx, emp.ID, RecordInput{Date: "2024-03-05", StartTime: "12:00", EndTime: "09:00"})
	if !errors.As(err, &vErr) {
		t.Errorf("Expected ValidationError for reversed window, got %v", err)
	}
	_, err = store.UpsertAvailability(ctx, emp.ID, RecordInput{Date: "05/03/2024"})
	if !errors.As(err, &vErr) {
		t.Errorf("Expected ValidationError for bad date, got %v", err)
	}
	_, err = store.UpsertAvailability(ctx, emp.ID, RecordInput{Date: "2024-03-05", Type: "holiday"})
	if !errors.As(err, &vErr) {
		t.Errorf("Expected ValidationError for unknown type, got %v", err)
	}
	if _, err := store.UpsertAvailability(ctx, 9999, RecordInput{Date: "2024-03-05"}); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Expected not found for unknown employee, got %v", err)
	}
}

func TestCreateAvailabilityIsStrict(t *testing.T) {
	store, emp := newStore(t)
	ctx := context.Background()

	first, err := store.CreateAvailability(ctx, emp.ID, RecordInput{Date: "2024-03-05", StartTime: "09:00", EndTime: "12:00", IsAvailable: true})
	if err != nil {
		t.Fatalf("Failed to create: %v", err)
	}

	var cErr *apperrors.ConflictError
	_, err = store.CreateAvailability(ctx, emp.ID, RecordInput{Date: "2024-03-05", StartTime: "09:00", EndTime: "10:00"})
	if !errors.As(err, &cErr) || len(cErr.Existing) != 1 || cErr.Existing[0] != first.ID {
		t.Errorf("Expected conflict on duplicate key, got %v", err)
	}
	_, err = store.CreateAvailability(ctx, emp.ID, RecordInput{Date: "2024-03-05", StartTime: "11:00", EndTime: "13:00"})
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Errorf("Expected conflict on overlap, got %v", err)
	}
	if _, err := store.CreateAvailability(ctx, emp.ID, RecordInput{Date: "2024-03-05", StartTime: "12:00", EndTime: "14:00"}); err != nil {
		t.Errorf("Expected adjacent window to be accepted, got %v", err)
	}
}

func TestUpdateAndDeleteAvailability(t *testing.T) {
	store, emp := newStore(t)
	ctx := context.Background()

	morning, _ := store.CreateAvailability(ctx, emp.ID, RecordInput{Date: "2024-03-05", StartTime: "09:00", EndTime: "12:00", IsAvailable: true})
	_, _ = store.CreateAvailability(ctx, emp.ID, RecordInput{Date: "2024-03-05", StartTime: "13:00", EndTime: "17:00", IsAvailable: true})

	updated, err := store.UpdateAvailability(ctx, morning.ID, RecordInput{Date: "2024-03-05", StartTime: "08:00", EndTime: "12:30", IsAvailable: true})
	if err != nil {
		t.Fatalf("Failed to update: %v", err)
	}
	if updated.StartTime != "08:00" || updated.EndTime != "12:30" {
		t.Errorf("Expected 08:00-12:30, got %s-%s", updated.StartTime, updated.EndTime)
	}

	_, err = store.UpdateAvailability(ctx, morning.ID, RecordInput{Date: "2024-03-05", StartTime: "08:00", EndTime: "14:00", IsAvailable: true})
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Errorf("Expected conflict when extending into afternoon record, got %v", err)
	}
	if _, err := store.UpdateAvailability(ctx, 9999, RecordInput{Date: "2024-03-05"}); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}

	if err := store.DeleteAvailability(ctx, morning.ID); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if err := store.DeleteAvailability(ctx, morning.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Expected not found on second delete, got %v", err)
	}
}

func TestBulkUpsertAvailability(t *testing.T) {
	store, emp := newStore(t)
	ctx := context.Background()

	req := BulkRequest{Entries: []RecordInput{
		{Date: "2024-03-04", IsAvailable: true},
		{Date: "2024-03-05", IsAvailable: false, Type: models.AvailabilityVacation},
		{Date: "2024-03-06", StartTime: "10:00", EndTime: "14:00", IsAvailable: true},
	}}
	res, err := store.BulkUpsertAvailability(ctx, emp.ID, req)
	if err != nil {
		t.Fatalf("Failed bulk upsert: %v", err)
	}
	if res.Upserted != 3 || res.Deleted {
		t.Errorf("Expected 3 upserted, got %+v", res)
	}

	// One bad row rolls back the whole batch.
	bad := BulkRequest{Entries: []RecordInput{
		{Date: "2024-03-07", IsAvailable: true},
		{Date: "2024-03-08", StartTime: "14:00", EndTime: "10:00"},
	}}
	var vErr *apperrors.ValidationError
	if _, err := store.BulkUpsertAvailability(ctx, emp.ID, bad); !errors.As(err, &vErr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if _, ok := vErr.FieldErrors["entries[1].start_time"]; !ok {
		t.Errorf("Expected error keyed on entries[1].start_time, got %v", vErr.FieldErrors)
	}
	var count int64
	store.DB.Model(&models.AvailabilityRecord{}).Where("date = ?", "2024-03-07").Count(&count)
	if count != 0 {
		t.Errorf("Expected no partial write, got %d rows", count)
	}
}

func TestBulkUpsertRollsBackOnWriteFailure(t *testing.T) {
	store, emp := newStore(t)
	ctx := context.Background()

	if _, err := store.BulkUpsertAvailability(ctx, emp.ID, BulkRequest{Entries: []RecordInput{
		{Date: "2024-03-04", IsAvailable: true},
	}}); err != nil {
		t.Fatalf("Failed bulk upsert: %v", err)
	}

	testfixtures.FailNthCreate(t, store.DB, "availability_records", 2)
	_, err := store.BulkUpsertAvailability(ctx, emp.ID, BulkRequest{Entries: []RecordInput{
		{Date: "2024-03-04", IsAvailable: false, Type: models.AvailabilitySick},
		{Date: "2024-03-09", IsAvailable: true},
		{Date: "2024-03-10", IsAvailable: true},
	}})
	if !errors.Is(err, testfixtures.ErrInjected) {
		t.Fatalf("Expected the injected failure, got %v", err)
	}

	var records []models.AvailabilityRecord
	store.DB.Where("employee_id = ?", emp.ID).Order("date").Find(&records)
	if len(records) != 1 {
		t.Fatalf("Expected only the original record after rollback, got %d", len(records))
	}
	if !records[0].IsAvailable || records[0].AvailabilityType != models.AvailabilityWorking {
		t.Errorf("Expected the first entry's update to be rolled back, got %+v", records[0])
	}
}

func TestBulkUpsertRejectsOversizedBatch(t *testing.T) {
	store, emp := newStore(t)

	entries := make([]RecordInput, MaxBulkEntries+1)
	for i := range entries {
		entries[i] = RecordInput{Date: "2024-03-04", IsAvailable: true}
	}
	var vErr *apperrors.ValidationError
	if _, err := store.BulkUpsertAvailability(context.Background(), emp.ID, BulkRequest{Entries: entries}); !errors.As(err, &vErr) {
		t.Errorf("Expected ValidationError for %d entries, got %v", len(entries), err)
	}
}

func TestBulkUpsertEmptyDeletesWindow(t *testing.T) {
	store, emp := newStore(t)
	ctx := context.Background()

	for _, d := range []string{"2024-03-04", "2024-03-06", "2024-03-10", "2024-03-12"} {
		if _, err := store.UpsertAvailability(ctx, emp.ID, RecordInput{Date: d, IsAvailable: true}); err != nil {
			t.Fatalf("Failed to seed %s: %v", d, err)
		}
	}

	res, err := store.BulkUpsertAvailability(ctx, emp.ID, BulkRequest{From: "2024-03-04", To: "2024-03-10"})
	if err != nil {
		t.Fatalf("Failed empty bulk: %v", err)
	}
	if !res.Deleted || res.DeletedCount != 3 {
		t.Errorf("Expected 3 deleted, got %+v", res)
	}

	view, err := store.GetAvailability(ctx, emp.ID, "2024-03-01", "2024-03-31")
	if err != nil {
		t.Fatalf("Failed to read: %v", err)
	}
	if len(view.Records) != 1 || view.Records[0].Date != "2024-03-12" {
		t.Errorf("Expected only the record outside the window to remain, got %+v", view.Records)
	}

	var vErr *apperrors.ValidationError
	if _, err := store.BulkUpsertAvailability(ctx, emp.ID, BulkRequest{}); !errors.As(err, &vErr) {
		t.Errorf("Expected empty bulk without a window to be rejected, got %v", err)
	}
}

func TestDeriveEffectiveAvailability(t *testing.T) {
	store, emp := newStore(t)
	ctx := context.Background()

	if ok, err := store.DeriveEffectiveAvailability(ctx, emp.ID, "2024-03-05", "10:00"); err != nil || ok {
		t.Errorf("Expected unavailable with no data, got %v (%v)", ok, err)
	}

	if _, err := store.SavePattern(ctx, emp.ID, PatternInput{
		Days:           [7]bool{true, true, true, true, true, false, false},
		PreferredStart: "09:00",
		PreferredEnd:   "17:00",
	}); err != nil {
		t.Fatalf("Failed to save pattern: %v", err)
	}
	if ok, _ := store.DeriveEffectiveAvailability(ctx, emp.ID, "2024-03-05", "10:00"); !ok {
		t.Errorf("Expected pattern to make Tuesday 10:00 available")
	}
	if ok, _ := store.DeriveEffectiveAvailability(ctx, emp.ID, "2024-03-09", "10:00"); ok {
		t.Errorf("Expected Saturday to be unavailable")
	}

	if _, err := store.UpsertAvailability(ctx, emp.ID, RecordInput{Date: "2024-03-05", IsAvailable: false, Type: models.AvailabilitySick}); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}
	if ok, _ := store.DeriveEffectiveAvailability(ctx, emp.ID, "2024-03-05", "10:00"); ok {
		t.Errorf("Expected sick record to override the pattern")
	}
	if ok, _ := store.DeriveEffectiveAvailability(ctx, emp.ID, "2024-03-06", "10:00"); !ok {
		t.Errorf("Expected Wednesday to still follow the pattern")
	}

	var vErr *apperrors.ValidationError
	if _, err := store.DeriveEffectiveAvailability(ctx, emp.ID, "2024-03-05", "25:00"); !errors.As(err, &vErr) {
		t.Errorf("Expected ValidationError for bad time, got %v", err)
	}
}

func TestSavePatternReplaces(t *testing.T) {
	store, emp := newStore(t)
	ctx := context.Background()

	if _, err := store.SavePattern(ctx, emp.ID, PatternInput{Days: [7]bool{true}}); err != nil {
		t.Fatalf("Failed to save pattern: %v", err)
	}
	p, err := store.SavePattern(ctx, emp.ID, PatternInput{Days: [7]bool{false, true}, PreferredStart: "18:00", PreferredEnd: "02:00"})
	if err != nil {
		t.Fatalf("Failed to replace pattern: %v", err)
	}
	if p.Monday || !p.Tuesday || p.PreferredEnd != "02:00" {
		t.Errorf("Expected replaced pattern, got %+v", p)
	}
	var count int64
	store.DB.Model(&models.AvailabilityPattern{}).Count(&count)
	if count != 1 {
		t.Errorf("Expected a single pattern row, got %d", count)
	}

	preview, err := store.GeneratePreviewFromPattern(ctx, emp.ID, "2024-03-04", "2024-03-10")
	if err != nil {
		t.Fatalf("Failed preview: %v", err)
	}
	if len(preview) != 1 || preview[0].Date != "2024-03-05" {
		t.Errorf("Expected one Tuesday preview day, got %+v", preview)
	}
}

func TestSnapshotResolve(t *testing.T) {
	store, emp := newStore(t)
	ctx := context.Background()
	other := testfixtures.CreateEmployee(t, store.DB)

	if _, err := store.UpsertAvailability(ctx, emp.ID, RecordInput{Date: "2024-03-05", StartTime: "09:00", EndTime: "15:00", IsAvailable: true}); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}
	snap, err := store.Snapshot(ctx, []uint{emp.ID, other.ID}, "2024-03-04", "2024-03-10")
	if err != nil {
		t.Fatalf("Failed snapshot: %v", err)
	}

	tuesday := testfixtures.Monday.AddDate(0, 0, 1)
	if res, ok := snap.Resolve(emp.ID, tuesday, 10*60, 14*60); !ok || !res.Available {
		t.Errorf("Expected record to resolve available, got %+v ok=%v", res, ok)
	}
	if res, ok := snap.Resolve(emp.ID, testfixtures.Monday, 10*60, 14*60); ok {
		t.Errorf("Expected no resolution for a day without record or pattern, got %+v", res)
	}
	if _, ok := snap.Resolve(other.ID, tuesday, 10*60, 14*60); ok {
		t.Errorf("Expected no resolution for employee without availability data")
	}
}
