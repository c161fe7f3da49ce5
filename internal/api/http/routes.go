package httpapi

import (
	"bytes"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/i474232898/weather-planner/internal/geocode"
	"github.com/i474232898/weather-planner/internal/weather"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-planner",
		})
	})

	app.Post("/describe_capabilities", func(c *fiber.Ctx) error {
		caps := service.DescribeCapabilities(c.UserContext())
		return respond(c, caps)
	})

	app.Post("/resolve_location", func(c *fiber.Ctx) error {
		var req resolveRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		loc, err := service.ResolveLocation(c.UserContext(), req.Query)
		if err != nil {
			return mapError(err)
		}
		return respond(c, loc)
	})

	app.Post("/plan_query", func(c *fiber.Ctx) error {
		var req weather.PlanRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
		}

		plan, err := service.PlanQuery(c.UserContext(), req)
		if err != nil {
			return mapError(err)
		}
		return respond(c, plan)
	})

	app.Post("/execute_plan", func(c *fiber.Ctx) error {
		var req executeRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		res, err := service.ExecutePlan(c.UserContext(), req.Plan)
		if err != nil {
			return mapError(err)
		}
		return respond(c, res)
	})
}

// ErrorHandler renders every error as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

type resolveRequest struct {
	Query string `json:"query" validate:"required"`
}

type executeRequest struct {
	Plan *weather.Plan `json:"plan" validate:"required"`
}

// mapError turns a service error into an HTTP status.
func mapError(err error) error {
	var upErr *weather.UpstreamFetchError
	switch {
	case weather.IsValidation(err):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, geocode.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, weather.ErrGeocodingDisabled):
		return fiber.NewError(fiber.StatusNotImplemented, err.Error())
	case errors.Is(err, weather.ErrMissingCoordinates), errors.Is(err, weather.ErrMissingBBox):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, weather.ErrUpstreamTimeout):
		return fiber.NewError(fiber.StatusGatewayTimeout, err.Error())
	case errors.As(err, &upErr):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}

// respond writes JSON, or MessagePack when ?format=msgpack is set. Both use
// the json field names.
func respond(c *fiber.Ctx, data any) error {
	if c.Query("format") != "msgpack" {
		return c.JSON(data)
	}

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(data); err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "application/x-msgpack")
	return c.Send(buf.Bytes())
}
