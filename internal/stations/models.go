package stations

// Station is one DWD observation site, extracted from the upstream
// station-list table.
type Station struct {
	Name string `json:"name"`
	ID   string `json:"id"`
	// Code is the short alphanumeric station code and the join key
	// to forecast data.
	Code     string  `json:"code"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Altitude int     `json:"altitude"`
	// Recency is the last-contact date in ISO YYYY-MM-DD form. If the
	// upstream cell did not parse as a date, it carries the raw text.
	Recency string `json:"recency"`
}

// Point is a query coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// StationWithDistance pairs a station with its distance in kilometers
// from the query point.
type StationWithDistance struct {
	Point    Point   `json:"point"`
	Distance float64 `json:"distance"`
	Station  Station `json:"station"`
}

// ForecastDay is one normalized forecast day. Temperatures are in °C
// with one decimal, derived from upstream tenths-of-degree integers.
type ForecastDay struct {
	Date           string  `json:"date"`
	TemperatureMin float64 `json:"temperatureMin"`
	TemperatureMax float64 `json:"temperatureMax"`
	Precipitation  float64 `json:"precipitation"`
	Icon           int     `json:"icon"`
}

// ForecastBundle is the ordered per-day forecast for one station. It
// may be empty when upstream has no data for the station's code.
type ForecastBundle struct {
	Days []ForecastDay `json:"days"`
}

// ForecastResult joins a station with its forecast bundle.
type ForecastResult struct {
	Station  Station        `json:"station"`
	Forecast ForecastBundle `json:"forecast"`
}
