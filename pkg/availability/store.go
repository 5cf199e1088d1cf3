package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arnavshah/staff-scheduler-go/pkg/apperrors"
	"github.com/arnavshah/staff-scheduler-go/pkg/conflict"
	"github.com/arnavshah/staff-scheduler-go/pkg/logging"
	"github.com/arnavshah/staff-scheduler-go/pkg/models"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// MaxBulkEntries caps a single bulk write.
	MaxBulkEntries = 100
	// MaxRangeDays caps read and delete windows.
	MaxRangeDays = 366
)

// RecordInput is one availability write.
type RecordInput struct {
	Date        string                  `json:"date" validate:"required"`
	StartTime   string                  `json:"start_time"`
	EndTime     string                  `json:"end_time"`
	IsAvailable bool                    `json:"is_available"`
	Type        models.AvailabilityType `json:"availability_type" validate:"omitempty,oneof=working vacation sick break meeting unavailable"`
	Notes       string                  `json:"notes" validate:"max=500"`
}

// BulkRequest applies up to MaxBulkEntries writes atomically. An empty entry
// list with a From/To window marks the employee unavailable for that window by
// deleting every record in it.
type BulkRequest struct {
	From    string        `json:"from"`
	To      string        `json:"to"`
	Entries []RecordInput `json:"entries" validate:"max=100,dive"`
}

// BulkResult reports what a bulk write did.
type BulkResult struct {
	Upserted     int                         `json:"upserted"`
	Deleted      bool                        `json:"deleted"`
	DeletedCount int64                       `json:"deleted_count"`
	Records      []models.AvailabilityRecord `json:"records,omitempty"`
}

// PatternInput replaces an employee's weekly pattern.
type PatternInput struct {
	Days           [7]bool `json:"days"`
	PreferredStart string  `json:"preferred_start"`
	PreferredEnd   string  `json:"preferred_end"`
	Notes          string  `json:"notes" validate:"max=500"`
}

// View is an employee's records in a range plus the weekly pattern, if any.
type View struct {
	EmployeeID uint                        `json:"employee_id"`
	Records    []models.AvailabilityRecord `json:"records"`
	Pattern    *models.AvailabilityPattern `json:"pattern"`
}

// Store persists availability records and patterns.
type Store struct {
	DB       *gorm.DB
	Detector *conflict.Detector
	Logger   *zap.Logger
	validate *validator.Validate
}

// NewStore creates a store over db.
func NewStore(db *gorm.DB, logger *zap.Logger) *Store {
	return &Store{
		DB:       db,
		Detector: conflict.NewDetector(db),
		Logger:   logging.OrNop(logger),
		validate: apperrors.NewValidator(),
	}
}

// GetAvailability returns the employee's records between from and to (inclusive) and the pattern.
func (s *Store) GetAvailability(ctx context.Context, employeeID uint, from, to string) (*View, error) {
	if _, _, err := parseRange(from, to); err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)
	if err := ensureEmployee(db, employeeID); err != nil {
		return nil, err
	}

	view := &View{EmployeeID: employeeID, Records: []models.AvailabilityRecord{}}
	if err := db.Where("employee_id = ? AND date BETWEEN ? AND ?", employeeID, from, to).
		Order("date, start_time").
		Find(&view.Records).Error; err != nil {
		return nil, fmt.Errorf("load availability records: %w", err)
	}

	pattern, err := loadPattern(db, employeeID)
	if err != nil {
		return nil, err
	}
	view.Pattern = pattern
	return view, nil
}

// UpsertAvailability writes the record keyed on (employee, date, start_time),
// overwriting end time, flag, type and notes when the key already exists.
func (s *Store) UpsertAvailability(ctx context.Context, employeeID uint, in RecordInput) (*models.AvailabilityRecord, error) {
	rec, err := s.normalize(employeeID, in)
	if err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)
	if err := ensureEmployee(db, employeeID); err != nil {
		return nil, err
	}
	return upsert(db, rec)
}

// CreateAvailability inserts a record strictly: an existing key or any overlapping window is a ConflictError.
func (s *Store) CreateAvailability(ctx context.Context, employeeID uint, in RecordInput) (*models.AvailabilityRecord, error) {
	rec, err := s.normalize(employeeID, in)
	if err != nil {
		return nil, err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureEmployee(tx, employeeID); err != nil {
			return err
		}
		overlaps, err := (&conflict.Detector{DB: tx}).FindOverlaps(ctx, employeeID, rec.Date, rec.StartTime, rec.EndTime, nil)
		if err != nil {
			return err
		}
		for _, o := range overlaps {
			if o.StartTime == rec.StartTime {
				return &apperrors.ConflictError{Reason: "a record already exists for this date and start time", Existing: []uint{o.ID}}
			}
		}
		if len(overlaps) > 0 {
			return &apperrors.ConflictError{Reason: "overlapping availability window", Existing: conflict.IDs(overlaps)}
		}
		return tx.Create(rec).Error
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// UpdateAvailability edits the record with id, rejecting edits that would overlap another record.
func (s *Store) UpdateAvailability(ctx context.Context, id uint, in RecordInput) (*models.AvailabilityRecord, error) {
	var rec models.AvailabilityRecord
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&rec, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("availability record", id)
			}
			return err
		}
		next, err := s.normalize(rec.EmployeeID, in)
		if err != nil {
			return err
		}
		overlaps, err := (&conflict.Detector{DB: tx}).FindOverlaps(ctx, rec.EmployeeID, next.Date, next.StartTime, next.EndTime, &rec.ID)
		if err != nil {
			return err
		}
		if len(overlaps) > 0 {
			return &apperrors.ConflictError{Reason: "overlapping availability window", Existing: conflict.IDs(overlaps)}
		}
		rec.Date = next.Date
		rec.StartTime = next.StartTime
		rec.EndTime = next.EndTime
		rec.IsAvailable = next.IsAvailable
		rec.AvailabilityType = next.AvailabilityType
		rec.Notes = next.Notes
		return tx.Save(&rec).Error
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteAvailability removes the record with id.
func (s *Store) DeleteAvailability(ctx context.Context, id uint) error {
	res := s.DB.WithContext(ctx).Delete(&models.AvailabilityRecord{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete availability record: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("availability record", id)
	}
	return nil
}

// BulkUpsertAvailability applies every entry in one transaction; any failure rolls back the batch.
func (s *Store) BulkUpsertAvailability(ctx context.Context, employeeID uint, req BulkRequest) (*BulkResult, error) {
	if len(req.Entries) > MaxBulkEntries {
		return nil, apperrors.NewValidation("entries", fmt.Sprintf("must contain at most %d entries", MaxBulkEntries))
	}
	if err := apperrors.FromValidator(s.validate.Struct(req)); err != nil {
		return nil, err
	}

	var from, to time.Time
	hasWindow := req.From != "" || req.To != ""
	if hasWindow || len(req.Entries) == 0 {
		var err error
		if from, to, err = parseRange(req.From, req.To); err != nil {
			return nil, err
		}
	}

	records := make([]*models.AvailabilityRecord, 0, len(req.Entries))
	verr := &apperrors.ValidationError{}
	for i, in := range req.Entries {
		rec, err := s.normalize(employeeID, in)
		if err != nil {
			var entryErr *apperrors.ValidationError
			if errors.As(err, &entryErr) {
				for f, msg := range entryErr.FieldErrors {
					verr.Add(fmt.Sprintf("entries[%d].%s", i, f), msg)
				}
				continue
			}
			return nil, err
		}
		if hasWindow && (rec.Date < models.FormatDate(from) || rec.Date > models.FormatDate(to)) {
			verr.Add(fmt.Sprintf("entries[%d].date", i), "outside the requested window")
			continue
		}
		records = append(records, rec)
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	log := logging.FromContext(ctx, s.Logger).With(zap.Uint("employee_id", employeeID))
	result := &BulkResult{}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureEmployee(tx, employeeID); err != nil {
			return err
		}
		if len(records) == 0 {
			res := tx.Where("employee_id = ? AND date BETWEEN ? AND ?", employeeID, req.From, req.To).
				Delete(&models.AvailabilityRecord{})
			if res.Error != nil {
				return fmt.Errorf("clear availability window: %w", res.Error)
			}
			result.Deleted = true
			result.DeletedCount = res.RowsAffected
			return nil
		}
		for _, rec := range records {
			saved, err := upsert(tx, rec)
			if err != nil {
				return err
			}
			result.Records = append(result.Records, *saved)
		}
		result.Upserted = len(result.Records)
		return nil
	})
	if err != nil {
		log.Error("bulk availability write rolled back", zap.Int("entries", len(records)), zap.Error(err))
		return nil, err
	}

	if result.Deleted {
		log.Warn("cleared availability window",
			zap.String("from", req.From), zap.String("to", req.To), zap.Int64("deleted", result.DeletedCount))
	} else {
		log.Info("bulk availability write committed", zap.Int("upserted", result.Upserted))
	}
	return result, nil
}

// SavePattern replaces the employee's weekly pattern, creating it on first save.
func (s *Store) SavePattern(ctx context.Context, employeeID uint, in PatternInput) (*models.AvailabilityPattern, error) {
	if err := apperrors.FromValidator(s.validate.Struct(in)); err != nil {
		return nil, err
	}
	if (in.PreferredStart == "") != (in.PreferredEnd == "") {
		return nil, apperrors.NewValidation("preferred_start", "preferred_start and preferred_end must be set together")
	}
	if in.PreferredStart != "" {
		if _, _, err := models.ClockSpan(in.PreferredStart, in.PreferredEnd); err != nil {
			return nil, apperrors.NewValidation("preferred_start", err.Error())
		}
		if in.PreferredStart == in.PreferredEnd {
			return nil, apperrors.NewValidation("preferred_end", "must differ from preferred_start")
		}
	}

	p := models.AvailabilityPattern{
		EmployeeID:     employeeID,
		Monday:         in.Days[0],
		Tuesday:        in.Days[1],
		Wednesday:      in.Days[2],
		Thursday:       in.Days[3],
		Friday:         in.Days[4],
		Saturday:       in.Days[5],
		Sunday:         in.Days[6],
		PreferredStart: in.PreferredStart,
		PreferredEnd:   in.PreferredEnd,
		Notes:          in.Notes,
	}

	db := s.DB.WithContext(ctx)
	if err := ensureEmployee(db, employeeID); err != nil {
		return nil, err
	}
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "employee_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
			"preferred_start", "preferred_end", "notes", "updated_at",
		}),
	}).Create(&p).Error
	if err != nil {
		return nil, fmt.Errorf("save availability pattern: %w", err)
	}
	return loadPattern(db, employeeID)
}

// DeriveEffectiveAvailability reports whether the employee is available at clock on date.
func (s *Store) DeriveEffectiveAvailability(ctx context.Context, employeeID uint, date, clock string) (bool, error) {
	t, err := models.ParseClock(clock)
	if err != nil || t >= models.MinutesPerDay {
		return false, apperrors.NewValidation("time", fmt.Sprintf("invalid time %q, expected HH:MM", clock))
	}
	res, err := s.resolve(ctx, employeeID, date, t, t+1)
	if err != nil {
		return false, err
	}
	return res.Available, nil
}

// ResolveShiftAvailability resolves a whole shift window, rolling end past midnight when end <= start.
func (s *Store) ResolveShiftAvailability(ctx context.Context, employeeID uint, date, start, end string) (models.AvailabilityResolution, error) {
	st, en, err := models.ClockSpan(start, end)
	if err != nil {
		return models.AvailabilityResolution{}, apperrors.NewValidation("start_time", err.Error())
	}
	return s.resolve(ctx, employeeID, date, st, en)
}

func (s *Store) resolve(ctx context.Context, employeeID uint, date string, start, end int) (models.AvailabilityResolution, error) {
	day, err := models.ParseDate(date)
	if err != nil {
		return models.AvailabilityResolution{}, apperrors.NewValidation("date", err.Error())
	}
	db := s.DB.WithContext(ctx)
	if err := ensureEmployee(db, employeeID); err != nil {
		return models.AvailabilityResolution{}, err
	}

	var records []models.AvailabilityRecord
	if err := db.Where("employee_id = ? AND date = ?", employeeID, date).Find(&records).Error; err != nil {
		return models.AvailabilityResolution{}, fmt.Errorf("load availability records: %w", err)
	}
	pattern, err := loadPattern(db, employeeID)
	if err != nil {
		return models.AvailabilityResolution{}, err
	}
	return Resolve(records, pattern, day, start, end), nil
}

// GeneratePreviewFromPattern materialises the weekly pattern into daily windows without persisting.
func (s *Store) GeneratePreviewFromPattern(ctx context.Context, employeeID uint, from, to string) ([]PreviewDay, error) {
	f, t, err := parseRange(from, to)
	if err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)
	if err := ensureEmployee(db, employeeID); err != nil {
		return nil, err
	}
	pattern, err := loadPattern(db, employeeID)
	if err != nil {
		return nil, err
	}
	return PreviewFromPattern(pattern, f, t), nil
}

// Snapshot loads every record and pattern for the employees over a horizon so
// the optimizer can resolve availability without further queries.
func (s *Store) Snapshot(ctx context.Context, employeeIDs []uint, from, to string) (*Snapshot, error) {
	if _, _, err := parseRange(from, to); err != nil {
		return nil, err
	}
	snap := &Snapshot{
		records:  make(map[uint]map[string][]models.AvailabilityRecord),
		patterns: make(map[uint]*models.AvailabilityPattern),
	}
	if len(employeeIDs) == 0 {
		return snap, nil
	}
	db := s.DB.WithContext(ctx)

	var records []models.AvailabilityRecord
	if err := db.Where("employee_id IN ? AND date BETWEEN ? AND ?", employeeIDs, from, to).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("load availability snapshot: %w", err)
	}
	for _, r := range records {
		if snap.records[r.EmployeeID] == nil {
			snap.records[r.EmployeeID] = make(map[string][]models.AvailabilityRecord)
		}
		snap.records[r.EmployeeID][r.Date] = append(snap.records[r.EmployeeID][r.Date], r)
	}

	var patterns []models.AvailabilityPattern
	if err := db.Where("employee_id IN ?", employeeIDs).Find(&patterns).Error; err != nil {
		return nil, fmt.Errorf("load availability patterns: %w", err)
	}
	for i := range patterns {
		snap.patterns[patterns[i].EmployeeID] = &patterns[i]
	}
	return snap, nil
}

// Snapshot is a read-only, in-memory view of availability for a horizon.
type Snapshot struct {
	records  map[uint]map[string][]models.AvailabilityRecord
	patterns map[uint]*models.AvailabilityPattern
}

// Resolve resolves a window for one employee. ok is false when the employee has
// neither a record for the date nor a stored pattern.
func (s *Snapshot) Resolve(employeeID uint, date time.Time, start, end int) (models.AvailabilityResolution, bool) {
	recs := s.records[employeeID][models.FormatDate(date)]
	pattern := s.patterns[employeeID]
	if len(recs) == 0 && pattern == nil {
		return models.AvailabilityResolution{}, false
	}
	return Resolve(recs, pattern, date, start, end), true
}

func (s *Store) normalize(employeeID uint, in RecordInput) (*models.AvailabilityRecord, error) {
	if err := apperrors.FromValidator(s.validate.Struct(in)); err != nil {
		return nil, err
	}
	if _, err := models.ParseDate(in.Date); err != nil {
		return nil, apperrors.NewValidation("date", err.Error())
	}
	if _, _, err := conflict.Window(in.StartTime, in.EndTime); err != nil {
		return nil, err
	}
	kind := in.Type
	if kind == "" {
		kind = models.AvailabilityUnavailable
		if in.IsAvailable {
			kind = models.AvailabilityWorking
		}
	}
	return &models.AvailabilityRecord{
		EmployeeID:       employeeID,
		Date:             in.Date,
		StartTime:        in.StartTime,
		EndTime:          in.EndTime,
		IsAvailable:      in.IsAvailable,
		AvailabilityType: kind,
		Notes:            in.Notes,
	}, nil
}

func upsert(db *gorm.DB, rec *models.AvailabilityRecord) (*models.AvailabilityRecord, error) {
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "employee_id"}, {Name: "date"}, {Name: "start_time"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"end_time", "is_available", "availability_type", "notes", "updated_at",
		}),
	}).Create(rec).Error
	if err != nil {
		return nil, fmt.Errorf("upsert availability record: %w", err)
	}

	var saved models.AvailabilityRecord
	if err := db.Where("employee_id = ? AND date = ? AND start_time = ?", rec.EmployeeID, rec.Date, rec.StartTime).
		First(&saved).Error; err != nil {
		return nil, fmt.Errorf("reload availability record: %w", err)
	}
	return &saved, nil
}

func ensureEmployee(db *gorm.DB, employeeID uint) error {
	var count int64
	if err := db.Model(&models.Employee{}).Where("id = ?", employeeID).Count(&count).Error; err != nil {
		return fmt.Errorf("look up employee: %w", err)
	}
	if count == 0 {
		return apperrors.NotFound("employee", employeeID)
	}
	return nil
}

func loadPattern(db *gorm.DB, employeeID uint) (*models.AvailabilityPattern, error) {
	var p models.AvailabilityPattern
	err := db.Where("employee_id = ?", employeeID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load availability pattern: %w", err)
	}
	return &p, nil
}

func parseRange(from, to string) (time.Time, time.Time, error) {
	v := &apperrors.ValidationError{}
	f, err := models.ParseDate(from)
	if err != nil {
		v.Add("from", err.Error())
	}
	t, err := models.ParseDate(to)
	if err != nil {
		v.Add("to", err.Error())
	}
	if v.HasErrors() {
		return time.Time{}, time.Time{}, v
	}
	if t.Before(f) {
		return time.Time{}, time.Time{}, apperrors.NewValidation("to", "must not be before from")
	}
	if t.Sub(f) > MaxRangeDays*24*time.Hour {
		return time.Time{}, time.Time{}, apperrors.NewValidation("to", fmt.Sprintf("range must not exceed %d days", MaxRangeDays))
	}
	return f, t, nil
}
