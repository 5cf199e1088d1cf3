package jobs

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/arnavshah/staff-scheduler-go/pkg/logging"
	"github.com/arnavshah/staff-scheduler-go/pkg/models"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BlendFactor is the weight of the newest observation in a rolling score.
const BlendFactor = 0.3

// ShiftOutcomes summarises one employee's finished shifts.
type ShiftOutcomes struct {
	Completed     int
	NoShows       int
	EfficiencySum float64
	Efficiencies  int
}

// RollScores blends the outcomes into the current reliability and performance
// scores. A score with no new evidence is returned unchanged.
func RollScores(reliability, performance float64, o ShiftOutcomes) (float64, float64) {
	if total := o.Completed + o.NoShows; total > 0 {
		observed := 10 * float64(o.Completed) / float64(total)
		reliability = blend(reliability, observed)
	}
	if o.Efficiencies > 0 {
		observed := o.EfficiencySum / float64(o.Efficiencies) / 10
		performance = blend(performance, observed)
	}
	return reliability, performance
}

func blend(current, observed float64) float64 {
	v := (1-BlendFactor)*current + BlendFactor*observed
	v = math.Max(0, math.Min(10, v))
	return math.Round(v*100) / 100
}

// PerformanceUpdater recomputes rolling employee scores from shift history.
type PerformanceUpdater struct {
	DB     *gorm.DB
	Logger *zap.Logger
	cron   *cron.Cron
}

// NewPerformanceUpdater creates an updater.
func NewPerformanceUpdater(db *gorm.DB, logger *zap.Logger) *PerformanceUpdater {
	return &PerformanceUpdater{DB: db, Logger: logging.OrNop(logger)}
}

// Start runs Run on the cron expression expr.
func (u *PerformanceUpdater) Start(expr string) error {
	u.cron = cron.New()
	_, err := u.cron.AddFunc(expr, func() {
		if _, err := u.Run(context.Background()); err != nil {
			u.Logger.Error("performance update failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add performance job: %w", err)
	}
	u.cron.Start()
	u.Logger.Info("performance update job scheduled", zap.String("cron", expr))
	return nil
}

// Stop waits for a running update to finish.
func (u *PerformanceUpdater) Stop() {
	if u.cron != nil {
		<-u.cron.Stop().Done()
	}
}

// markBatch bounds the ids per UPDATE so SQLite stays under its variable limit.
const markBatch = 500

type outcomeRow struct {
	ID              uint
	EmployeeID      uint
	Status          models.ShiftStatus
	EfficiencyScore *float64
}

// Run blends every finished shift not yet scored into its employee's scores,
// then marks those shifts scored in the same transaction so no outcome counts
// twice. It returns how many employees changed.
func (u *PerformanceUpdater) Run(ctx context.Context) (int, error) {
	log := logging.FromContext(ctx, u.Logger)

	updated := 0
	err := u.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []outcomeRow
		err := tx.Model(&models.Shift{}).
			Select("id, employee_id, status, efficiency_score").
			Where("status IN ? AND scored_at IS NULL", []models.ShiftStatus{models.StatusCompleted, models.StatusNoShow}).
			Scan(&rows).Error
		if err != nil {
			return fmt.Errorf("load shift outcomes: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}

		outcomes := make(map[uint]*ShiftOutcomes)
		shiftIDs := make([]uint, 0, len(rows))
		for _, r := range rows {
			shiftIDs = append(shiftIDs, r.ID)
			o := outcomes[r.EmployeeID]
			if o == nil {
				o = &ShiftOutcomes{}
				outcomes[r.EmployeeID] = o
			}
			switch r.Status {
			case models.StatusCompleted:
				o.Completed++
				if r.EfficiencyScore != nil {
					o.EfficiencySum += *r.EfficiencyScore
					o.Efficiencies++
				}
			case models.StatusNoShow:
				o.NoShows++
			}
		}

		ids := make([]uint, 0, len(outcomes))
		for id := range outcomes {
			ids = append(ids, id)
		}
		var employees []models.Employee
		if err := tx.Where("id IN ? AND is_active = ?", ids, true).Find(&employees).Error; err != nil {
			return fmt.Errorf("load employees: %w", err)
		}
		for _, emp := range employees {
			rel, perf := RollScores(emp.ReliabilityScore, emp.PerformanceScore, *outcomes[emp.ID])
			if rel == emp.ReliabilityScore && perf == emp.PerformanceScore {
				continue
			}
			err := tx.Model(&models.Employee{}).Where("id = ?", emp.ID).
				Updates(map[string]any{"reliability_score": rel, "performance_score": perf}).Error
			if err != nil {
				return fmt.Errorf("update employee %d scores: %w", emp.ID, err)
			}
			updated++
		}

		now := time.Now()
		for start := 0; start < len(shiftIDs); start += markBatch {
			batch := shiftIDs[start:min(start+markBatch, len(shiftIDs))]
			if err := tx.Model(&models.Shift{}).Where("id IN ?", batch).Update("scored_at", &now).Error; err != nil {
				return fmt.Errorf("mark shifts scored: %w", err)
			}
		}
		log.Info("shift outcomes scored", zap.Int("shifts", len(shiftIDs)))
		return nil
	})
	if err != nil {
		return 0, err
	}
	log.Info("employee scores updated", zap.Int("employees", updated))
	return updated, nil
}
