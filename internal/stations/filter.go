package stations

import (
	"strings"
	"time"

	"github.com/akramer-zibra/nexus-wetter/internal/common"
)

// ByName matches stations whose name contains place, case-insensitively.
func ByName(place string) Predicate {
	needle := strings.ToLower(place)
	return func(s Station) bool {
		return strings.Contains(strings.ToLower(s.Name), needle)
	}
}

// ByRecency matches stations whose last contact is no older than
// recencyDays. A nil threshold means no recency constraint. A station
// whose recency cell did not parse as a date cannot be shown to be
// fresh and fails a present threshold.
func ByRecency(recencyDays *int, now func() time.Time) Predicate {
	return func(s Station) bool {
		if recencyDays == nil {
			return true
		}
		last, err := common.ParseGermanDate(s.Recency)
		if err != nil {
			return false
		}
		window := time.Duration(*recencyDays) * 24 * time.Hour
		return last.Add(window).After(now())
	}
}

// ByRadius matches stations within radiusKm of the query point.
func ByRadius(lat, lng, radiusKm float64) Predicate {
	return func(s Station) bool {
		return common.HaversineKm(lat, lng, s.Lat, s.Lng) <= radiusKm
	}
}

// And composes predicates; every predicate must pass.
func And(preds ...Predicate) Predicate {
	return func(s Station) bool {
		for _, p := range preds {
			if !p(s) {
				return false
			}
		}
		return true
	}
}
