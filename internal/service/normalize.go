package service

import (
	"math"

	"github.com/kjstillabower/portfolio-service/internal/client"
	"github.com/kjstillabower/portfolio-service/internal/models"
)

const defaultUnit = "°C"

// normalize reduces a raw forecast to the fixed response shape. The daily
// block falls back to the current temperature so the result is always complete.
func normalize(resp client.ForecastResponse) models.ForecastResult {
	cw := resp.CurrentWeather

	var maxSeries, minSeries []*float64
	if resp.Daily != nil {
		maxSeries = resp.Daily.TemperatureMax
		minSeries = resp.Daily.TemperatureMin
	}
	unit := defaultUnit
	if resp.DailyUnits != nil && resp.DailyUnits.TemperatureMax != "" {
		unit = resp.DailyUnits.TemperatureMax
	}

	return models.ForecastResult{
		Now: models.CurrentConditions{
			Temperature: roundHalfUp(cw.Temperature),
			Windspeed:   roundHalfUp(cw.Windspeed),
			Weathercode: int(cw.Weathercode),
			Time:        cw.Time,
		},
		Daily: models.DailyRange{
			TMax: roundHalfUp(firstOr(maxSeries, cw.Temperature)),
			TMin: roundHalfUp(firstOr(minSeries, cw.Temperature)),
			Unit: unit,
		},
	}
}

// firstOr returns the first element of series, or fallback when the series
// is empty or its first element is null.
func firstOr(series []*float64, fallback float64) float64 {
	if len(series) == 0 || series[0] == nil {
		return fallback
	}
	return *series[0]
}

// roundHalfUp rounds to the nearest integer with halves going toward +Inf,
// so 2.5 becomes 3 and -2.5 becomes -2.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
