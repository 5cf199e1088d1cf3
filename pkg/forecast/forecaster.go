package forecast

import (
	"math"
	"sort"
	"time"

	"github.com/arnavshah/staff-scheduler-go/pkg/apperrors"
	"github.com/arnavshah/staff-scheduler-go/pkg/models"
)

// WeatherRules are the thresholds and factors of the weather multiplier.
type WeatherRules struct {
	RainThresholdMM      float64
	RainFactor           float64
	HeavyRainThresholdMM float64
	HeavyRainFactor      float64
	ColdThresholdC       float64
	ColdFactor           float64
	HeatThresholdC       float64
	HeatFactor           float64
	// The weekend bonus applies on Saturday and Sunday when it is warm and dry.
	WeekendWarmC       float64
	WeekendDryMM       float64
	WeekendBonusFactor float64
}

// Config tunes the forecaster.
type Config struct {
	// LookbackWeeks is how many prior same-weekday samples feed a baseline.
	LookbackWeeks int
	// FullConfidenceSamples is the sample count at which confidence stops being discounted.
	FullConfidenceSamples int
	Weather               WeatherRules
	// MonthlyFactors is the seasonal multiplier per month, January first.
	MonthlyFactors [12]float64
}

// DefaultConfig returns the standard forecasting parameters.
func DefaultConfig() Config {
	return Config{
		LookbackWeeks:         8,
		FullConfidenceSamples: 4,
		Weather: WeatherRules{
			RainThresholdMM:      5,
			RainFactor:           0.85,
			HeavyRainThresholdMM: 15,
			HeavyRainFactor:      0.88,
			ColdThresholdC:       0,
			ColdFactor:           0.90,
			HeatThresholdC:       30,
			HeatFactor:           1.10,
			WeekendWarmC:         20,
			WeekendDryMM:         2,
			WeekendBonusFactor:   1.25,
		},
		MonthlyFactors: [12]float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
	}
}

// EventImpact is an externally scored event, already expressed as a multiplier.
type EventImpact struct {
	Date       string  `json:"date"`
	Name       string  `json:"name,omitempty"`
	Multiplier float64 `json:"multiplier"`
}

// Request is the input of one prediction.
type Request struct {
	From    time.Time
	To      time.Time
	History []models.HistoricalSample
	Weather []models.WeatherObservation
	Events  []EventImpact
	// Seasonal overrides the monthly factor for specific dates (YYYY-MM-DD).
	Seasonal map[string]float64
}

// Forecaster predicts daily demand. It is a pure function of its inputs.
type Forecaster struct {
	cfg Config
}

// New creates a forecaster.
func New(cfg Config) *Forecaster {
	if cfg.LookbackWeeks <= 0 {
		cfg.LookbackWeeks = 8
	}
	if cfg.FullConfidenceSamples <= 0 {
		cfg.FullConfidenceSamples = 4
	}
	return &Forecaster{cfg: cfg}
}

// Predict returns one period per date from req.From through req.To. Dates without
// usable history get baseline 0 and confidence 0 plus a warning.
func (f *Forecaster) Predict(req Request) ([]models.ForecastPeriod, []apperrors.DegradedForecastWarning) {
	history := make([]models.HistoricalSample, len(req.History))
	copy(history, req.History)
	sort.Slice(history, func(i, j int) bool { return history[i].Date.Before(history[j].Date) })

	weather := make(map[string]models.WeatherObservation, len(req.Weather))
	for _, w := range req.Weather {
		if _, err := models.ParseDate(w.Date); err == nil {
			weather[w.Date] = w
		}
	}
	events := make(map[string]float64)
	for _, e := range req.Events {
		key := e.Date
		if _, err := models.ParseDate(key); err != nil {
			continue
		}
		if _, ok := events[key]; !ok {
			events[key] = 1
		}
		events[key] *= e.Multiplier
	}

	periods := []models.ForecastPeriod{}
	var warnings []apperrors.DegradedForecastWarning
	for _, day := range models.DateRange(req.From, req.To) {
		key := models.FormatDate(day)
		baseline, confidence, n := f.baseline(history, day)
		if n == 0 {
			warnings = append(warnings, apperrors.DegradedForecastWarning{Date: key, Reason: "no historical samples for this weekday"})
		}

		weatherMult := 1.0
		if w, ok := weather[key]; ok {
			weatherMult = f.WeatherMultiplier(w.TemperatureC, w.PrecipitationMM, models.IsWeekend(day))
		}
		eventMult := 1.0
		if m, ok := events[key]; ok {
			eventMult = math.Max(0, m)
		}
		seasonal := f.cfg.MonthlyFactors[day.Month()-1]
		if s, ok := req.Seasonal[key]; ok {
			seasonal = s
		}
		seasonal = math.Max(0, seasonal)

		count := int(math.Round(baseline * weatherMult * eventMult * seasonal))
		if count < 0 {
			count = 0
		}
		periods = append(periods, models.ForecastPeriod{
			Date:               key,
			Baseline:           baseline,
			WeatherMultiplier:  weatherMult,
			EventMultiplier:    eventMult,
			SeasonalMultiplier: seasonal,
			PredictedCount:     count,
			Confidence:         confidence,
			Samples:            n,
		})
	}
	return periods, warnings
}

// WeatherMultiplier applies the rain, cold and heat rules, then the warm dry weekend bonus.
func (f *Forecaster) WeatherMultiplier(tempC, precipMM float64, weekend bool) float64 {
	r := f.cfg.Weather
	m := 1.0
	if precipMM > r.RainThresholdMM {
		m *= r.RainFactor
		if precipMM > r.HeavyRainThresholdMM {
			m *= r.HeavyRainFactor
		}
	}
	if tempC < r.ColdThresholdC {
		m *= r.ColdFactor
	}
	if tempC > r.HeatThresholdC {
		m *= r.HeatFactor
	}
	if weekend && tempC > r.WeekendWarmC && precipMM < r.WeekendDryMM {
		m *= r.WeekendBonusFactor
	}
	return m
}

// baseline averages the most recent same-weekday samples strictly before day.
// history must be sorted by date.
func (f *Forecaster) baseline(history []models.HistoricalSample, day time.Time) (float64, float64, int) {
	var values []float64
	earliest := day.AddDate(0, 0, -7*f.cfg.LookbackWeeks)
	for i := len(history) - 1; i >= 0 && len(values) < f.cfg.LookbackWeeks; i-- {
		s := history[i]
		if !s.Date.Before(day) {
			continue
		}
		if s.Date.Before(earliest) {
			break
		}
		if s.Date.Weekday() == day.Weekday() {
			values = append(values, math.Max(0, s.Count))
		}
	}
	n := len(values)
	if n == 0 {
		return 0, 0, 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)
	if mean == 0 {
		return 0, 0, n
	}
	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	cv := math.Sqrt(sq/float64(n)) / mean

	confidence := (1 - math.Min(cv, 1)) * math.Min(1, float64(n)/float64(f.cfg.FullConfidenceSamples))
	return mean, clamp01(confidence), n
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
