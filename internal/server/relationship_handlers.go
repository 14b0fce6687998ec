package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetFollowers handles GET /api/relationships/:userId/followers
// @Summary List followers
// @Tags relationships
// @Produce json
// @Param userId path int true "User ID"
// @Success 200 {array} models.User
// @Router /relationships/{userId}/followers [get]
func (s *Server) GetFollowers(c *fiber.Ctx) error {
	userID, err := paramID(c, "userId")
	if err != nil {
		return respond(c, err)
	}
	page := parsePagination(c, 50)
	users, err := s.relationshipService.Followers(c.UserContext(), userID, page.Limit, page.Offset)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(users)
}

// GetFollowing handles GET /api/relationships/:userId/following
// @Summary List followed users
// @Tags relationships
// @Produce json
// @Param userId path int true "User ID"
// @Success 200 {array} models.User
// @Router /relationships/{userId}/following [get]
func (s *Server) GetFollowing(c *fiber.Ctx) error {
	userID, err := paramID(c, "userId")
	if err != nil {
		return respond(c, err)
	}
	page := parsePagination(c, 50)
	users, err := s.relationshipService.Following(c.UserContext(), userID, page.Limit, page.Offset)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(users)
}

// GetRelationshipStatus handles GET /api/relationships/status/:userId
// @Summary Relationship status
// @Tags relationships
// @Produce json
// @Security BearerAuth
// @Param userId path int true "User ID"
// @Success 200 {object} models.RelationshipStatus
// @Router /relationships/status/{userId} [get]
func (s *Server) GetRelationshipStatus(c *fiber.Ctx) error {
	userID, err := paramID(c, "userId")
	if err != nil {
		return respond(c, err)
	}
	status, err := s.relationshipService.Status(c.UserContext(), actor(c), userID)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(status)
}

// Follow handles POST /api/relationships/follow/:userId
// @Summary Follow a user
// @Tags relationships
// @Produce json
// @Security BearerAuth
// @Param userId path int true "User ID"
// @Success 200 {object} models.RelationshipEdge
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /relationships/follow/{userId} [post]
func (s *Server) Follow(c *fiber.Ctx) error {
	userID, err := paramID(c, "userId")
	if err != nil {
		return respond(c, err)
	}
	edge, err := s.relationshipService.Follow(c.UserContext(), actor(c), userID)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(edge)
}

// Unfollow handles DELETE /api/relationships/follow/:userId
// @Summary Unfollow a user
// @Tags relationships
// @Produce json
// @Security BearerAuth
// @Param userId path int true "User ID"
// @Success 200 {object} object{message=string}
// @Failure 404 {object} models.ErrorResponse
// @Router /relationships/follow/{userId} [delete]
func (s *Server) Unfollow(c *fiber.Ctx) error {
	userID, err := paramID(c, "userId")
	if err != nil {
		return respond(c, err)
	}
	if err := s.relationshipService.Unfollow(c.UserContext(), actor(c), userID); err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Unfollowed"})
}

// Block handles POST /api/relationships/block/:userId
// @Summary Block a user
// @Description Removes follows in both directions
// @Tags relationships
// @Produce json
// @Security BearerAuth
// @Param userId path int true "User ID"
// @Success 200 {object} models.RelationshipEdge
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /relationships/block/{userId} [post]
func (s *Server) Block(c *fiber.Ctx) error {
	userID, err := paramID(c, "userId")
	if err != nil {
		return respond(c, err)
	}
	edge, err := s.relationshipService.Block(c.UserContext(), actor(c), userID)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(edge)
}

// Unblock handles DELETE /api/relationships/block/:userId
// @Summary Unblock a user
// @Tags relationships
// @Produce json
// @Security BearerAuth
// @Param userId path int true "User ID"
// @Success 200 {object} object{message=string}
// @Router /relationships/block/{userId} [delete]
func (s *Server) Unblock(c *fiber.Ctx) error {
	userID, err := paramID(c, "userId")
	if err != nil {
		return respond(c, err)
	}
	if err := s.relationshipService.Unblock(c.UserContext(), actor(c), userID); err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Unblocked"})
}
