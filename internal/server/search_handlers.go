package server

import (
	"github.com/gofiber/fiber/v2"
)

// Search handles GET /api/search?q=...
// @Summary Search posts and users
// @Tags search
// @Produce json
// @Param q query string true "Search terms"
// @Success 200 {object} service.SearchResult
// @Failure 400 {object} models.ErrorResponse
// @Router /search [get]
func (s *Server) Search(c *fiber.Ctx) error {
	res, err := s.searchService.Search(c.UserContext(), actor(c), c.Query("q"))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(res)
}
