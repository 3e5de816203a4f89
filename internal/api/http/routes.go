package httpapi

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/i474232898/irrigation-advisor/internal/advisor"
	"github.com/i474232898/irrigation-advisor/internal/metrics"
	"github.com/i474232898/irrigation-advisor/internal/store"
	"github.com/i474232898/irrigation-advisor/internal/weather"
)

var validate = validator.New()

// Features advertised on the root endpoint.
var Features = []string{
	"ML-based irrigation prediction",
	"Optimal timing recommendations",
	"Irrigation efficiency analysis",
	"Evapotranspiration risk assessment",
	"Weather integration",
	"Recommendation history",
	"MQTT sensor ingest and pump control",
}

// ErrorHandler renders every error as {"error":true,"message":...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// RegisterRoutes wires the HTTP handlers into the Fiber app. m may be nil.
func RegisterRoutes(app *fiber.App, adv *advisor.Service, weatherSvc *weather.Service, m *metrics.Metrics) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message":  "Smart Irrigation API is running",
			"features": Features,
		})
	})

	if m != nil {
		app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
	}

	v1 := app.Group("/api/v1")

	v1.Post("/predict", func(c *fiber.Ctx) error {
		var req advisor.Request
		if body := c.Body(); len(body) > 0 {
			if err := json.Unmarshal(body, &req); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
			}
		}

		rec, err := adv.Evaluate(c.UserContext(), req, store.TriggerAPI)
		if err != nil {
			if errors.Is(err, advisor.ErrInvalidInput) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "prediction failed: "+err.Error())
		}

		return c.JSON(newPredictResponse(rec))
	})

	v1.Get("/timing-analysis", func(c *fiber.Ctx) error {
		return c.JSON(newTimingAnalysisResponse(adv.TimingAnalysis(c.UserContext())))
	})

	v1.Get("/history", func(c *fiber.Ctx) error {
		q := historyLimit{Limit: c.QueryInt("limit", defaultHistoryLimit)}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "limit must be between 1 and 100")
		}

		records, err := adv.History(c.UserContext(), q.Limit)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch history")
		}
		if records == nil {
			records = []store.Record{}
		}
		return c.JSON(records)
	})

	v1.Get("/weather/current", func(c *fiber.Ctx) error {
		locReq, err := parseLocationQuery(c, weatherSvc.Location())
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		loc := locReq.toLocation(weatherSvc.Location())
		snapshot, err := weatherSvc.GetLatest(loc)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no weather data for requested location")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather data")
		}

		return c.JSON(snapshot)
	})

	v1.Get("/weather/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c, weatherSvc.Location()); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		loc := req.Location.toLocation(weatherSvc.Location())
		snapshots, err := weatherSvc.GetRange(loc, req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no weather history for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather history")
		}

		return c.JSON(fiber.Map{
			"location":  loc,
			"from":      req.From,
			"to":        req.To,
			"snapshots": snapshots,
		})
	})
}

const defaultHistoryLimit = 10

type historyLimit struct {
	Limit int `validate:"gte=1,lte=100"`
}

// locationQuery holds query parameters for identifying a location.
// Both empty means the tracked plot.
type locationQuery struct {
	City    string `validate:"required"`
	Country string `validate:"required"`
}

func (l locationQuery) toLocation(tracked weather.Location) weather.Location {
	if l.City == tracked.City && l.Country == tracked.Country {
		return tracked
	}
	return weather.Location{
		City:    l.City,
		Country: l.Country,
	}
}

func parseLocationQuery(c *fiber.Ctx, tracked weather.Location) (locationQuery, error) {
	q := locationQuery{
		City:    c.Query("city"),
		Country: c.Query("country"),
	}
	if q.City == "" && q.Country == "" {
		q.City, q.Country = tracked.City, tracked.Country
	}

	if err := validate.Struct(q); err != nil {
		return q, err
	}

	return q, nil
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	Location locationQuery
	From     time.Time `validate:"required"`
	To       time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx, tracked weather.Location) error {
	loc, err := parseLocationQuery(c, tracked)
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
