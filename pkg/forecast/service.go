package forecast

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/arnavshah/staff-scheduler-go/pkg/apperrors"
	"github.com/arnavshah/staff-scheduler-go/pkg/logging"
	"github.com/arnavshah/staff-scheduler-go/pkg/models"
	"go.uber.org/zap"
)

// HistoricalSource supplies daily demand history for a restaurant.
type HistoricalSource interface {
	HistoricalDemand(ctx context.Context, restaurantID uint, from, to time.Time) ([]models.HistoricalSample, error)
}

// Cache stores computed forecasts. Implementations must treat a miss as (false, nil).
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
}

// Input is a forecast request for one restaurant and horizon.
type Input struct {
	RestaurantID uint                        `json:"-"`
	From         string                      `json:"from" validate:"required"`
	To           string                      `json:"to" validate:"required"`
	Weather      []models.WeatherObservation `json:"weather"`
	Events       []EventImpact               `json:"events"`
	Seasonal     map[string]float64          `json:"seasonal"`
}

// Result is a forecast with the warnings raised while computing it.
type Result struct {
	Periods  []models.ForecastPeriod             `json:"periods"`
	Warnings []apperrors.DegradedForecastWarning `json:"warnings,omitempty"`
	Cached   bool                                `json:"cached"`
}

// MaxHorizonDays bounds a single forecast request.
const MaxHorizonDays = 92

// Service loads history, runs the forecaster and caches the result.
type Service struct {
	Forecaster *Forecaster
	Source     HistoricalSource
	Cache      Cache
	Logger     *zap.Logger
}

// NewService wires a forecast service. cache may be nil.
func NewService(f *Forecaster, source HistoricalSource, cache Cache, logger *zap.Logger) *Service {
	return &Service{Forecaster: f, Source: source, Cache: cache, Logger: logging.OrNop(logger)}
}

// Forecast predicts demand for in.From through in.To.
func (s *Service) Forecast(ctx context.Context, in Input) (*Result, error) {
	from, to, err := horizon(in.From, in.To)
	if err != nil {
		return nil, err
	}
	if err := validateSignals(in); err != nil {
		return nil, err
	}
	log := logging.FromContext(ctx, s.Logger)

	key, err := cacheKey(in, s.generation(ctx, in.RestaurantID))
	if err != nil {
		return nil, err
	}
	if s.Cache != nil {
		var cached Result
		hit, err := s.Cache.Get(ctx, key, &cached)
		if err != nil {
			log.Warn("forecast cache read failed", zap.String("key", key), zap.Error(err))
		} else if hit {
			cached.Cached = true
			return &cached, nil
		}
	}

	lookback := from.AddDate(0, 0, -7*s.Forecaster.cfg.LookbackWeeks)
	history, err := s.Source.HistoricalDemand(ctx, in.RestaurantID, lookback, to)
	if err != nil {
		return nil, fmt.Errorf("load historical demand: %w", err)
	}

	periods, warnings := s.Forecaster.Predict(Request{
		From:     from,
		To:       to,
		History:  history,
		Weather:  in.Weather,
		Events:   in.Events,
		Seasonal: in.Seasonal,
	})
	if len(warnings) > 0 {
		log.Info("forecast degraded for dates without history",
			zap.Uint("restaurant_id", in.RestaurantID), zap.Int("dates", len(warnings)))
	}

	res := &Result{Periods: periods, Warnings: warnings}
	if s.Cache != nil {
		if err := s.Cache.Set(ctx, key, res); err != nil {
			log.Warn("forecast cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return res, nil
}

// Invalidate retires every cached forecast of the restaurant. Cached entries are
// keyed by a per-restaurant generation, so bumping it makes them unreachable.
func (s *Service) Invalidate(ctx context.Context, restaurantID uint) error {
	if s.Cache == nil {
		return nil
	}
	if err := s.Cache.Set(ctx, generationKey(restaurantID), time.Now().UnixNano()); err != nil {
		return fmt.Errorf("invalidate forecasts: %w", err)
	}
	return nil
}

// generation is 0 until the restaurant's forecasts are first invalidated.
func (s *Service) generation(ctx context.Context, restaurantID uint) int64 {
	if s.Cache == nil {
		return 0
	}
	var gen int64
	if _, err := s.Cache.Get(ctx, generationKey(restaurantID), &gen); err != nil {
		logging.FromContext(ctx, s.Logger).Warn("forecast generation read failed", zap.Error(err))
	}
	return gen
}

func generationKey(restaurantID uint) string {
	return fmt.Sprintf("forecast:%d:generation", restaurantID)
}

func validateSignals(in Input) error {
	v := &apperrors.ValidationError{}
	for i, w := range in.Weather {
		if _, err := models.ParseDate(w.Date); err != nil {
			v.Add(fmt.Sprintf("weather[%d].date", i), err.Error())
		}
	}
	for i, e := range in.Events {
		if _, err := models.ParseDate(e.Date); err != nil {
			v.Add(fmt.Sprintf("events[%d].date", i), err.Error())
		}
	}
	for date := range in.Seasonal {
		if _, err := models.ParseDate(date); err != nil {
			v.Add("seasonal", err.Error())
		}
	}
	return v.OrNil()
}

func horizon(fromStr, toStr string) (time.Time, time.Time, error) {
	v := &apperrors.ValidationError{}
	from, err := models.ParseDate(fromStr)
	if err != nil {
		v.Add("from", err.Error())
	}
	to, err := models.ParseDate(toStr)
	if err != nil {
		v.Add("to", err.Error())
	}
	if v.HasErrors() {
		return time.Time{}, time.Time{}, v
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, apperrors.NewValidation("to", "must not be before from")
	}
	if to.Sub(from) >= MaxHorizonDays*24*time.Hour {
		return time.Time{}, time.Time{}, apperrors.NewValidation("to", fmt.Sprintf("horizon must not exceed %d days", MaxHorizonDays))
	}
	return from, to, nil
}

func cacheKey(in Input, generation int64) (string, error) {
	signals, err := json.Marshal(struct {
		W []models.WeatherObservation
		E []EventImpact
		S map[string]float64
	}{in.Weather, in.Events, in.Seasonal})
	if err != nil {
		return "", fmt.Errorf("encode forecast signals: %w", err)
	}
	sum := sha256.Sum256(signals)
	return fmt.Sprintf("forecast:%d:%d:%s:%s:%s", in.RestaurantID, generation, in.From, in.To, hex.EncodeToString(sum[:8])), nil
}
