package roster

import (
	"context"
	"errors"
	"fmt"

	"github.com/arnavshah/staff-scheduler-go/pkg/apperrors"
	"github.com/arnavshah/staff-scheduler-go/pkg/logging"
	"github.com/arnavshah/staff-scheduler-go/pkg/models"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Repository is tenant-scoped access to employees and shifts.
type Repository struct {
	DB       *gorm.DB
	Logger   *zap.Logger
	validate *validator.Validate
}

// New creates a repository.
func New(db *gorm.DB, logger *zap.Logger) *Repository {
	return &Repository{DB: db, Logger: logging.OrNop(logger), validate: apperrors.NewValidator()}
}

// EmployeeInput is the writable part of an employee.
type EmployeeInput struct {
	Name             string                    `json:"name" validate:"required,max=200"`
	Email            string                    `json:"email" validate:"omitempty,email"`
	Department       models.Department         `json:"department" validate:"omitempty,oneof=service kitchen bar management"`
	Position         models.Position           `json:"position" validate:"required,oneof=service waiter kitchen cook chef bartender host cashier dishwasher manager"`
	EmploymentType   models.EmploymentType     `json:"employment_type" validate:"omitempty,oneof=full_time part_time contract seasonal"`
	HourlyWage       float64                   `json:"hourly_wage" validate:"min=0"`
	MinHoursPerWeek  float64                   `json:"min_hours_per_week" validate:"min=0,max=168"`
	MaxHoursPerWeek  float64                   `json:"max_hours_per_week" validate:"min=0,max=168"`
	SkillLevel       int                       `json:"skill_level" validate:"min=1,max=10"`
	Certifications   []string                  `json:"certifications"`
	Languages        []string                  `json:"languages"`
	Availability     models.WeeklyAvailability `json:"availability"`
	ShiftPreferences models.ShiftPreferences   `json:"shift_preferences"`
}

func (in EmployeeInput) check(v *validator.Validate) error {
	if err := apperrors.FromValidator(v.Struct(in)); err != nil {
		return err
	}
	verr := &apperrors.ValidationError{}
	if in.MaxHoursPerWeek > 0 && in.MinHoursPerWeek > in.MaxHoursPerWeek {
		verr.Add("min_hours_per_week", "must not exceed max_hours_per_week")
	}
	for i, day := range in.Availability {
		if day.Preference < 0 || day.Preference > 5 {
			verr.Add(fmt.Sprintf("availability[%d].preference", i), "must be between 1 and 5")
		}
		if day.StartTime == "" && day.EndTime == "" {
			continue
		}
		if _, _, err := models.ClockSpan(day.StartTime, day.EndTime); err != nil {
			verr.Add(fmt.Sprintf("availability[%d]", i), err.Error())
		}
	}
	if in.ShiftPreferences.MaxConsecutiveDays < 0 || in.ShiftPreferences.MinRestHours < 0 {
		verr.Add("shift_preferences", "limits must not be negative")
	}
	return verr.OrNil()
}

// ListEmployees returns the restaurant's employees, active only unless includeInactive.
func (r *Repository) ListEmployees(ctx context.Context, restaurantID uint, includeInactive bool) ([]models.Employee, error) {
	q := r.DB.WithContext(ctx).Where("restaurant_id = ?", restaurantID)
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	employees := []models.Employee{}
	if err := q.Order("id").Find(&employees).Error; err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	return employees, nil
}

// GetEmployee loads one employee of the restaurant.
func (r *Repository) GetEmployee(ctx context.Context, restaurantID, id uint) (*models.Employee, error) {
	var emp models.Employee
	err := r.DB.WithContext(ctx).Where("restaurant_id = ? AND id = ?", restaurantID, id).First(&emp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("employee", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get employee: %w", err)
	}
	return &emp, nil
}

// CreateEmployee hires an employee with default rolling scores.
func (r *Repository) CreateEmployee(ctx context.Context, restaurantID uint, in EmployeeInput) (*models.Employee, error) {
	if err := in.check(r.validate); err != nil {
		return nil, err
	}
	emp := models.Employee{
		RestaurantID:     restaurantID,
		Name:             in.Name,
		Email:            in.Email,
		Department:       in.Department,
		Position:         in.Position,
		EmploymentType:   in.EmploymentType,
		HourlyWage:       in.HourlyWage,
		MinHoursPerWeek:  in.MinHoursPerWeek,
		MaxHoursPerWeek:  in.MaxHoursPerWeek,
		SkillLevel:       in.SkillLevel,
		Certifications:   in.Certifications,
		Languages:        in.Languages,
		Availability:     in.Availability,
		ShiftPreferences: in.ShiftPreferences,
		PerformanceScore: models.DefaultRating,
		ReliabilityScore: models.DefaultRating,
		CustomerRating:   models.DefaultRating,
		IsActive:         true,
	}
	if err := r.DB.WithContext(ctx).Create(&emp).Error; err != nil {
		return nil, fmt.Errorf("create employee: %w", err)
	}
	return &emp, nil
}

// UpdateEmployee replaces the writable fields of an employee.
func (r *Repository) UpdateEmployee(ctx context.Context, restaurantID, id uint, in EmployeeInput) (*models.Employee, error) {
	if err := in.check(r.validate); err != nil {
		return nil, err
	}
	emp, err := r.GetEmployee(ctx, restaurantID, id)
	if err != nil {
		return nil, err
	}
	emp.Name = in.Name
	emp.Email = in.Email
	emp.Department = in.Department
	emp.Position = in.Position
	emp.EmploymentType = in.EmploymentType
	emp.HourlyWage = in.HourlyWage
	emp.MinHoursPerWeek = in.MinHoursPerWeek
	emp.MaxHoursPerWeek = in.MaxHoursPerWeek
	emp.SkillLevel = in.SkillLevel
	emp.Certifications = in.Certifications
	emp.Languages = in.Languages
	emp.Availability = in.Availability
	emp.ShiftPreferences = in.ShiftPreferences
	if err := r.DB.WithContext(ctx).Save(emp).Error; err != nil {
		return nil, fmt.Errorf("update employee: %w", err)
	}
	return emp, nil
}

// DeactivateEmployee soft-deletes an employee; their history stays.
func (r *Repository) DeactivateEmployee(ctx context.Context, restaurantID, id uint) error {
	res := r.DB.WithContext(ctx).Model(&models.Employee{}).
		Where("restaurant_id = ? AND id = ?", restaurantID, id).
		Update("is_active", false)
	if res.Error != nil {
		return fmt.Errorf("deactivate employee: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("employee", id)
	}
	return nil
}

// DeleteEmployee removes an employee with their availability and shifts.
func (r *Repository) DeleteEmployee(ctx context.Context, restaurantID, id uint) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("restaurant_id = ? AND id = ?", restaurantID, id).Delete(&models.Employee{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.NotFound("employee", id)
		}
		for _, m := range []any{&models.AvailabilityRecord{}, &models.AvailabilityPattern{}, &models.Shift{}} {
			if err := tx.Where("employee_id = ?", id).Delete(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.Logger.Warn("employee hard deleted", zap.Uint("restaurant_id", restaurantID), zap.Uint("employee_id", id))
	return nil
}
