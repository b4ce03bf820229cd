package stations

import "github.com/akramer-zibra/nexus-wetter/internal/dwd"

// distinctCodes returns the station codes in first-seen order, without
// duplicates.
func distinctCodes(sts []Station) []string {
	seen := make(map[string]struct{}, len(sts))
	codes := make([]string, 0, len(sts))
	for _, st := range sts {
		if _, ok := seen[st.Code]; ok {
			continue
		}
		seen[st.Code] = struct{}{}
		codes = append(codes, st.Code)
	}
	return codes
}

// joinForecasts pairs each station with its forecast payload, keeping
// station order and at most one result per code. A code absent from
// the payload map drops the station; a payload with zero days keeps it
// with an empty bundle.
func joinForecasts(sts []Station, payloads map[string]dwd.ForecastPayload) []ForecastResult {
	results := make([]ForecastResult, 0, len(sts))
	emitted := make(map[string]struct{}, len(sts))

	for _, st := range sts {
		if _, ok := emitted[st.Code]; ok {
			continue
		}
		payload, ok := payloads[st.Code]
		if !ok {
			continue
		}
		emitted[st.Code] = struct{}{}
		results = append(results, ForecastResult{
			Station:  st,
			Forecast: toBundle(payload),
		})
	}
	return results
}

// toBundle normalizes a raw forecast payload. Upstream temperatures
// are integers in tenths of a degree.
func toBundle(p dwd.ForecastPayload) ForecastBundle {
	days := make([]ForecastDay, 0, len(p.Days))
	for _, d := range p.Days {
		days = append(days, ForecastDay{
			Date:           d.DayDate,
			TemperatureMin: float64(d.TemperatureMin) / 10.0,
			TemperatureMax: float64(d.TemperatureMax) / 10.0,
			Precipitation:  d.Precipitation,
			Icon:           d.Icon,
		})
	}
	return ForecastBundle{Days: days}
}
