package stations

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/akramer-zibra/nexus-wetter/internal/cache"
	"github.com/akramer-zibra/nexus-wetter/internal/common"
	"github.com/akramer-zibra/nexus-wetter/internal/dwd"
)

// Fetcher is the raw upstream boundary the service depends on. The
// production implementation is dwd.Client; tests substitute fakes.
type Fetcher interface {
	StationListHTML(ctx context.Context) (string, error)
	ForecastsByCodes(ctx context.Context, codes []string) (map[string]dwd.ForecastPayload, error)
}

// Service is the query facade over the station directory: it fetches
// the raw table, scans it with the requested predicates and memoizes
// results per argument tuple.
type Service struct {
	fetcher Fetcher
	parser  *Parser
	log     *zap.SugaredLogger

	stationCache  *cache.Cache[[]Station]
	forecastCache *cache.Cache[[]ForecastResult]

	// now is swappable for tests.
	now func() time.Time
}

// NewService creates a Service. stationTTL bounds memoized station
// lookups (the upstream table refreshes about once a day), forecastTTL
// bounds memoized forecast aggregations.
func NewService(fetcher Fetcher, parser *Parser, stationTTL, forecastTTL time.Duration, log *zap.SugaredLogger) *Service {
	return &Service{
		fetcher:       fetcher,
		parser:        parser,
		log:           log,
		stationCache:  cache.New[[]Station](stationTTL),
		forecastCache: cache.New[[]ForecastResult](forecastTTL),
		now:           time.Now,
	}
}

// StationsByName returns stations whose name contains place,
// case-insensitively, in upstream row order. A non-nil recencyDays
// additionally requires the last contact to be at most that many days
// old.
func (s *Service) StationsByName(ctx context.Context, place string, recencyDays *int) ([]Station, error) {
	key := "name:" + place + ":" + recencyKey(recencyDays)
	return s.stationCache.GetOrCompute(ctx, key, func(ctx context.Context) ([]Station, error) {
		return s.scan(ctx, And(ByName(place), ByRecency(recencyDays, s.now)))
	})
}

// StationsByLocation returns stations within radiusKm of the query
// point, in upstream row order.
func (s *Service) StationsByLocation(ctx context.Context, lat, lng, radiusKm float64, recencyDays *int) ([]Station, error) {
	key := fmt.Sprintf("geo:%v:%v:%v:%s", lat, lng, radiusKm, recencyKey(recencyDays))
	return s.stationCache.GetOrCompute(ctx, key, func(ctx context.Context) ([]Station, error) {
		return s.scan(ctx, And(ByRadius(lat, lng, radiusKm), ByRecency(recencyDays, s.now)))
	})
}

// StationsByLocationWithDistance is StationsByLocation with the
// distance from the query point attached to each record. Results keep
// upstream row order; callers wanting nearest-first must sort
// themselves.
func (s *Service) StationsByLocationWithDistance(ctx context.Context, lat, lng, radiusKm float64, recencyDays *int) ([]StationWithDistance, error) {
	matched, err := s.StationsByLocation(ctx, lat, lng, radiusKm, recencyDays)
	if err != nil {
		return nil, err
	}

	result := make([]StationWithDistance, 0, len(matched))
	for _, st := range matched {
		result = append(result, StationWithDistance{
			Point:    Point{Lat: lat, Lng: lng},
			Distance: common.HaversineKm(lat, lng, st.Lat, st.Lng),
			Station:  st,
		})
	}
	return result, nil
}

// Forecast resolves the stations within radiusKm of the query point
// and joins them with their upstream forecasts. Stations whose code is
// missing from the forecast response are dropped; stations present
// with no days are kept with an empty bundle.
func (s *Service) Forecast(ctx context.Context, lat, lng, radiusKm float64) ([]ForecastResult, error) {
	key := fmt.Sprintf("forecast:%v:%v:%v", lat, lng, radiusKm)
	return s.forecastCache.GetOrCompute(ctx, key, func(ctx context.Context) ([]ForecastResult, error) {
		matched, err := s.StationsByLocation(ctx, lat, lng, radiusKm, nil)
		if err != nil {
			return nil, err
		}
		if len(matched) == 0 {
			return []ForecastResult{}, nil
		}

		payloads, err := s.fetcher.ForecastsByCodes(ctx, distinctCodes(matched))
		if err != nil {
			return nil, err
		}

		return joinForecasts(matched, payloads), nil
	})
}

// scan fetches the raw table and runs one parser pass. Records without
// a station code are never valid, whatever the query asks for.
func (s *Service) scan(ctx context.Context, include Predicate) ([]Station, error) {
	doc, err := s.fetcher.StationListHTML(ctx)
	if err != nil {
		return nil, err
	}

	result, rows := s.parser.Parse(doc, And(hasCode, include))
	if rows == 0 {
		// Not a per-row glitch: the expected table structure was
		// absent. The query still answers with an empty list.
		s.log.Warnw("station table yielded no rows; upstream layout may have changed",
			"documentBytes", len(doc))
	}
	if result == nil {
		result = []Station{}
	}
	return result, nil
}

func hasCode(s Station) bool {
	return s.Code != ""
}

func recencyKey(recencyDays *int) string {
	if recencyDays == nil {
		return ""
	}
	return strconv.Itoa(*recencyDays)
}
