package server

import (
	"appx/internal/middleware"
	"appx/internal/models"
	"appx/internal/service"

	"github.com/gofiber/fiber/v2"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

// parsePagination reads limit and offset, falling back to def for a missing
// or non-positive limit and capping it at maxPageSize.
func parsePagination(c *fiber.Ctx, def int) Pagination {
	p := Pagination{
		Limit:  c.QueryInt("limit", def),
		Offset: c.QueryInt("offset", 0),
	}
	switch {
	case p.Limit <= 0:
		p.Limit = def
	case p.Limit > maxPageSize:
		p.Limit = maxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// paramLabels names route params in error messages.
var paramLabels = map[string]string{
	"id":     "ID",
	"userId": "user ID",
}

// paramID reads a positive numeric route param. The error is a validation
// AppError ready for respond.
func paramID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		label, ok := paramLabels[param]
		if !ok {
			label = param
		}
		return 0, models.NewValidationError("Invalid " + label)
	}
	return uint(id), nil
}

// actor returns the caller identity set by the auth middleware. Anonymous
// callers get the zero Actor.
func actor(c *fiber.Ctx) service.Actor {
	id, _ := middleware.UserID(c)
	return service.NewActor(id)
}

// respond writes err with the status derived from its AppError code.
func respond(c *fiber.Ctx, err error) error {
	return models.RespondWithAppError(c, err)
}

func badRequest(c *fiber.Ctx, msg string) error {
	return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError(msg))
}
