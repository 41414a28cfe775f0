package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/i474232898/trip-context-aggregation/internal/itinerary"
	"github.com/i474232898/trip-context-aggregation/internal/obs"
	"github.com/i474232898/trip-context-aggregation/internal/store"
)

var validate = validator.New()

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Service *itinerary.Service
	Probes  *store.MemoryStore
	Metrics *obs.Metrics

	GeoapifyKeyLoaded bool
}

// ErrorHandler renders every error as {"error": true, "message": ...}.
// Aggregation failures surface as 500 with the underlying cause.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fe *fiber.Error
	var ve *itinerary.ValidationError
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.As(err, &ve):
		code = fiber.StatusBadRequest
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		probes := []store.ProbeResult{}
		if deps.Probes != nil {
			probes = deps.Probes.Latest()
		}
		return c.JSON(fiber.Map{
			"status":              "ok",
			"geoapify_key_loaded": deps.GeoapifyKeyLoaded,
			"weather_service":     "open-meteo (no key required)",
			"geocoder_enabled":    deps.Service.GeocoderEnabled(),
			"probes":              probes,
		})
	})

	app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))

	v1 := app.Group("/api/v1")

	v1.Post("/itinerary/context", func(c *fiber.Ctx) error {
		req := contextRequest{
			RadiusKm:   itinerary.DefaultRadiusKm,
			MaxResults: itinerary.DefaultMaxResults,
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		loc, err := req.location(c, deps.Service)
		if err != nil {
			return err
		}

		q := itinerary.NewSearchQuery(loc, req.RadiusKm, req.MaxResults)
		out, err := deps.Service.BuildContext(c.UserContext(), q)
		if err != nil {
			return err
		}

		return c.JSON(out)
	})

	v1.Get("/probes", func(c *fiber.Ctx) error {
		if deps.Probes == nil {
			return fiber.NewError(fiber.StatusNotFound, "probes are not enabled")
		}

		var req probeHistoryQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		loc := req.Location.toLocation()
		results, err := deps.Probes.GetRange(loc, req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no probe results for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch probe results")
		}

		return c.JSON(fiber.Map{
			"location": loc,
			"from":     req.From,
			"to":       req.To,
			"results":  results,
		})
	})
}

// contextRequest is the body of POST /api/v1/itinerary/context. Either
// lat and lng or an address must be given.
type contextRequest struct {
	Lat        *float64      `json:"lat" validate:"omitempty,gte=-90,lte=90"`
	Lng        *float64      `json:"lng" validate:"omitempty,gte=-180,lte=180"`
	RadiusKm   int           `json:"radius_km" validate:"gte=1,lte=30"`
	MaxResults int           `json:"max_results" validate:"gte=1,lte=20"`
	Address    *addressInput `json:"address" validate:"omitempty"`
}

type addressInput struct {
	Street  string `json:"street"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state"`
	Country string `json:"country"`
}

func (r contextRequest) location(c *fiber.Ctx, svc *itinerary.Service) (itinerary.Location, error) {
	if r.Lat != nil && r.Lng != nil {
		return itinerary.Location{Lat: *r.Lat, Lng: *r.Lng}, nil
	}
	if r.Address == nil {
		return itinerary.Location{}, fiber.NewError(fiber.StatusBadRequest, "lat and lng are required")
	}

	loc, err := svc.Resolve(c.UserContext(), itinerary.Address{
		Street:  r.Address.Street,
		City:    r.Address.City,
		State:   r.Address.State,
		Country: r.Address.Country,
	})
	if err != nil {
		if errors.Is(err, itinerary.ErrGeocoderDisabled) {
			return itinerary.Location{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		var ve *itinerary.ValidationError
		if errors.As(err, &ve) {
			return itinerary.Location{}, err
		}
		return itinerary.Location{}, fiber.NewError(fiber.StatusBadGateway, "failed to resolve address: "+err.Error())
	}
	return loc, nil
}

// locationQuery holds query parameters for identifying a probed location.
type locationQuery struct {
	Lat float64 `validate:"gte=-90,lte=90"`
	Lng float64 `validate:"gte=-180,lte=180"`
}

func (l locationQuery) toLocation() itinerary.Location {
	return itinerary.Location{Lat: l.Lat, Lng: l.Lng}
}

func parseLocationQuery(c *fiber.Ctx) (locationQuery, error) {
	var q locationQuery

	latStr, lngStr := c.Query("lat"), c.Query("lng")
	if latStr == "" || lngStr == "" {
		return q, errors.New("lat and lng query parameters are required")
	}

	var err error
	if q.Lat, err = strconv.ParseFloat(latStr, 64); err != nil {
		return q, errors.New("lat must be a number")
	}
	if q.Lng, err = strconv.ParseFloat(lngStr, 64); err != nil {
		return q, errors.New("lng must be a number")
	}

	if err := validate.Struct(q); err != nil {
		return q, err
	}

	return q, nil
}

// probeHistoryQuery holds query parameters for the probe history endpoint.
type probeHistoryQuery struct {
	Location locationQuery
	From     time.Time `validate:"required"`
	To       time.Time `validate:"required,gtefield=From"`
}

func (h *probeHistoryQuery) bind(c *fiber.Ctx) error {
	loc, err := parseLocationQuery(c)
	if err != nil {
		return err
	}
	h.Location = loc

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
