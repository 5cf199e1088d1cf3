package models

import "time"

// ForecastPeriod is the predicted demand for one day with its factor breakdown.
type ForecastPeriod struct {
	Date               string  `json:"date"`
	Baseline           float64 `json:"baseline"`
	WeatherMultiplier  float64 `json:"weather_multiplier"`
	EventMultiplier    float64 `json:"event_multiplier"`
	SeasonalMultiplier float64 `json:"seasonal_multiplier"`
	PredictedCount     int     `json:"predicted_count"`
	Confidence         float64 `json:"confidence"`
	Samples            int     `json:"samples"`
}

// HistoricalSample is one observed demand value.
type HistoricalSample struct {
	Date  time.Time `json:"date"`
	Count float64   `json:"count"`
}

// WeatherObservation is the weather expected on a date (YYYY-MM-DD).
type WeatherObservation struct {
	Date            string  `json:"date"`
	TemperatureC    float64 `json:"temperature_c"`
	PrecipitationMM float64 `json:"precipitation_mm"`
}
