package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/BigBossQ8e/kuwait-social-ai-digitalocean-sub000/internal/common"
	"github.com/BigBossQ8e/kuwait-social-ai-digitalocean-sub000/internal/prayer"
)

var validate = validator.New()

// ErrorHandler renders every error as {"error": true, "message": ...}.
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

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, registry *prayer.Registry) {
	app.Get("/health", func(c *fiber.Ctx) error {
		locations := make([]fiber.Map, 0, len(registry.Services()))
		status := "ok"
		for _, svc := range registry.Services() {
			failures := svc.FailureCount()
			if failures > 0 {
				status = "degraded"
			}
			locations = append(locations, fiber.Map{
				"location":             svc.Location(),
				"consecutive_failures": failures,
			})
		}
		return c.JSON(fiber.Map{
			"status":    status,
			"service":   "prayer-times",
			"locations": locations,
		})
	})

	v1 := app.Group("/api/v1")

	v1.Get("/prayer-times", func(c *fiber.Ctx) error {
		var req dayQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		svc, err := lookup(registry, req.Location)
		if err != nil {
			return err
		}

		date := time.Now().In(svc.TimeZone())
		if req.Date != "" {
			date, err = time.ParseInLocation(common.DateLayout, req.Date, svc.TimeZone())
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid date; use YYYY-MM-DD")
			}
		}

		sched, err := svc.GetPrayerTimes(c.UserContext(), date)
		if err != nil {
			return serviceError(err)
		}

		return c.JSON(fiber.Map{
			"location":     svc.Location(),
			"date":         sched.Date,
			"order":        sched.Names(),
			"times":        sched.Windows,
			"source":       sched.Source,
			"provider":     sched.Provider,
			"cached_at":    sched.CachedAt,
			"shifted_days": sched.ShiftedDays,
		})
	})

	v1.Get("/prayer-times/status", func(c *fiber.Ctx) error {
		svc, at, err := bindAt(c, registry)
		if err != nil {
			return err
		}

		active, name := svc.IsPrayerTime(c.UserContext(), at)
		return c.JSON(fiber.Map{
			"location":       svc.Location(),
			"at":             at.In(svc.TimeZone()),
			"is_prayer_time": active,
			"prayer":         name,
		})
	})

	v1.Get("/prayer-times/next", func(c *fiber.Ctx) error {
		svc, at, err := bindAt(c, registry)
		if err != nil {
			return err
		}

		next, err := svc.GetNextPrayer(c.UserContext(), at)
		if err != nil {
			return serviceError(err)
		}
		return c.JSON(fiber.Map{
			"location":      svc.Location(),
			"name":          next.Name,
			"time":          next.Time,
			"minutes_until": next.MinutesUntil,
		})
	})

	v1.Get("/schedule/slot", func(c *fiber.Ctx) error {
		svc, at, err := bindAt(c, registry)
		if err != nil {
			return err
		}

		slot, err := svc.NextAvailableSlot(c.UserContext(), at)
		if err != nil {
			return serviceError(err)
		}
		return c.JSON(fiber.Map{
			"location":     svc.Location(),
			"requested":    slot.Requested.In(svc.TimeZone()),
			"scheduled_at": slot.ScheduledAt.In(svc.TimeZone()),
			"shifted":      slot.Shifted,
			"prayer":       slot.Prayer,
		})
	})
}

// locationQuery identifies a configured location; both fields empty selects
// the default one.
type locationQuery struct {
	City    string `validate:"required_with=Country,max=100"`
	Country string `validate:"required_with=City,max=100"`
}

func parseLocationQuery(c *fiber.Ctx) (locationQuery, error) {
	q := locationQuery{
		City:    c.Query("city"),
		Country: c.Query("country"),
	}
	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}

// dayQuery holds query parameters for the prayer times endpoint.
type dayQuery struct {
	Location locationQuery
	Date     string `validate:"omitempty,datetime=2006-01-02"`
}

func (d *dayQuery) bind(c *fiber.Ctx) error {
	loc, err := parseLocationQuery(c)
	if err != nil {
		return err
	}
	d.Location = loc
	d.Date = c.Query("date")
	return validate.Struct(d)
}

func bindAt(c *fiber.Ctx, registry *prayer.Registry) (*prayer.Service, time.Time, error) {
	loc, err := parseLocationQuery(c)
	if err != nil {
		return nil, time.Time{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	svc, err := lookup(registry, loc)
	if err != nil {
		return nil, time.Time{}, err
	}

	at := time.Now()
	if s := c.Query("at"); s != "" {
		at, err = parseTime(s)
		if err != nil {
			return nil, time.Time{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
	}
	return svc, at, nil
}

func lookup(registry *prayer.Registry, q locationQuery) (*prayer.Service, error) {
	svc, ok := registry.Lookup(q.City, q.Country)
	if !ok {
		return nil, fiber.NewError(fiber.StatusNotFound, "no prayer times configured for requested location")
	}
	return svc, nil
}

func serviceError(err error) error {
	if errors.Is(err, prayer.ErrInvalidDate) {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, "failed to compute prayer times")
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
