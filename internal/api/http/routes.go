package httpapi

import (
	"context"
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/akramer-zibra/nexus-wetter/internal/dwd"
	"github.com/akramer-zibra/nexus-wetter/internal/stations"
)

var validate = validator.New()

// StationService is the slice of the query facade the HTTP layer needs.
type StationService interface {
	StationsByName(ctx context.Context, place string, recencyDays *int) ([]stations.Station, error)
	StationsByLocationWithDistance(ctx context.Context, lat, lng, radiusKm float64, recencyDays *int) ([]stations.StationWithDistance, error)
	Forecast(ctx context.Context, lat, lng, radiusKm float64) ([]stations.ForecastResult, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service StationService) {
	grp := app.Group("/dwd")

	grp.Get("/stations-by-place", func(c *fiber.Ctx) error {
		var req placeQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		result, err := service.StationsByName(c.UserContext(), req.Place, req.Recency)
		if err != nil {
			return mapServiceError(err)
		}
		return c.JSON(result)
	})

	grp.Get("/stations-by-location", func(c *fiber.Ctx) error {
		var req locationQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		result, err := service.StationsByLocationWithDistance(c.UserContext(), req.Lat, req.Lng, req.RangeKm, req.Recency)
		if err != nil {
			return mapServiceError(err)
		}
		return c.JSON(result)
	})

	grp.Get("/forecast-by-location", func(c *fiber.Ctx) error {
		var req locationQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		result, err := service.Forecast(c.UserContext(), req.Lat, req.Lng, req.RangeKm)
		if err != nil {
			return mapServiceError(err)
		}
		return c.JSON(result)
	})
}

func mapServiceError(err error) error {
	if errors.Is(err, dwd.ErrUpstream) {
		return fiber.NewError(fiber.StatusBadGateway, "upstream weather service unavailable")
	}
	return fiber.NewError(fiber.StatusInternalServerError, "failed to answer station query")
}

// placeQuery holds parameters of the name lookup.
type placeQuery struct {
	Place   string `validate:"required"`
	Recency *int
}

func (q *placeQuery) bind(c *fiber.Ctx) error {
	q.Place = c.Query("place")

	recency, err := parsePositiveInt(c.Query("recency"))
	if err != nil {
		return errors.New("recency must be a positive integer of days")
	}
	q.Recency = recency

	return validate.Struct(q)
}

// locationQuery holds parameters of the geo lookups. Range defaults to
// 10 km, matching the public API contract.
type locationQuery struct {
	Lat     float64 `validate:"min=-90,max=90"`
	Lng     float64 `validate:"min=-180,max=180"`
	RangeKm float64 `validate:"gt=0"`
	Recency *int
}

func (q *locationQuery) bind(c *fiber.Ctx) error {
	latStr := c.Query("lat")
	lngStr := c.Query("lng")
	if latStr == "" || lngStr == "" {
		return errors.New("lat and lng query parameters are required")
	}

	var err error
	if q.Lat, err = strconv.ParseFloat(latStr, 64); err != nil {
		return errors.New("lat must be a decimal degree value")
	}
	if q.Lng, err = strconv.ParseFloat(lngStr, 64); err != nil {
		return errors.New("lng must be a decimal degree value")
	}

	q.RangeKm = 10
	if rangeStr := c.Query("range"); rangeStr != "" {
		if q.RangeKm, err = strconv.ParseFloat(rangeStr, 64); err != nil {
			return errors.New("range must be a distance in km")
		}
	}

	recency, err := parsePositiveInt(c.Query("recency"))
	if err != nil {
		return errors.New("recency must be a positive integer of days")
	}
	q.Recency = recency

	return validate.Struct(q)
}

// parsePositiveInt parses an optional day count; absent means nil.
func parsePositiveInt(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, errors.New("must be at least 1")
	}
	return &n, nil
}
