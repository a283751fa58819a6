package models

// ForecastResult is the normalized weather payload returned by /api/weather.
// Its shape is fixed regardless of what else the upstream returns.
type ForecastResult struct {
	Now   CurrentConditions `json:"now"`
	Daily DailyRange        `json:"daily"`
}

// CurrentConditions holds the instantaneous reading, rounded to whole units.
type CurrentConditions struct {
	Temperature int    `json:"temperature"`
	Windspeed   int    `json:"windspeed"`
	Weathercode int    `json:"weathercode"`
	Time        string `json:"time"`
}

// DailyRange holds today's max/min temperature and the unit they are expressed in.
type DailyRange struct {
	TMax int    `json:"tmax"`
	TMin int    `json:"tmin"`
	Unit string `json:"unit"`
}

// Coordinates identifies a forecast location. Timezone may be empty (meaning "auto").
type Coordinates struct {
	Latitude  float64 `json:"lat" yaml:"lat"`
	Longitude float64 `json:"lon" yaml:"lon"`
	Timezone  string  `json:"tz,omitempty" yaml:"tz"`
}

// Place is the best geocoding match for a free-text query.
type Place struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	Country   string  `json:"country"`
}
