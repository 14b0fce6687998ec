package server

import (
	"io"

	"appx/internal/models"
	"appx/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetUserProfile handles GET /api/users/:id
// @Summary Get a user profile
// @Description Full profile with follow counts, or a reduced view when a block separates viewer and owner
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} models.UserProfile
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respond(c, err)
	}

	profile, err := s.userService.GetProfile(c.UserContext(), actor(c), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(profile)
}

// UpdateMyProfile handles PUT /api/users/me
// @Summary Update the current user's profile
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{name=string,bio=string,location=string} true "Fields to change"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Router /users/me [put]
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req struct {
		Name     *string `json:"name"`
		Bio      *string `json:"bio"`
		Location *string `json:"location"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), actor(c), service.UpdateProfileInput{
		Name:     req.Name,
		Bio:      req.Bio,
		Location: req.Location,
	})
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(user)
}

// readUpload reads a multipart file field into memory.
func readUpload(c *fiber.Ctx, field string) (service.Upload, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return service.Upload{}, models.NewValidationError("No " + field + " file provided")
	}
	f, err := fh.Open()
	if err != nil {
		return service.Upload{}, models.NewInternalError(err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return service.Upload{}, models.NewInternalError(err)
	}
	return service.Upload{Filename: fh.Filename, Data: data}, nil
}

// UpdateMyAvatar handles PUT /api/users/me/avatar
// @Summary Upload a profile picture
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param avatar formData file true "Image file"
// @Success 200 {object} object{avatar_url=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /users/me/avatar [put]
func (s *Server) UpdateMyAvatar(c *fiber.Ctx) error {
	up, err := readUpload(c, "avatar")
	if err != nil {
		return respond(c, err)
	}

	url, err := s.userService.UpdateAvatar(c.UserContext(), actor(c), up)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"avatar_url": url})
}

// GetMySettings handles GET /api/users/me/settings
// @Summary Get notification settings
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.NotificationPreference
// @Router /users/me/settings [get]
func (s *Server) GetMySettings(c *fiber.Ctx) error {
	pref, err := s.userService.Settings(c.UserContext(), actor(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(pref)
}

// UpdateMySettings handles PUT /api/users/me/settings
// @Summary Update notification settings
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{notifications_enabled=bool} true "Settings"
// @Success 200 {object} models.NotificationPreference
// @Failure 400 {object} models.ErrorResponse
// @Router /users/me/settings [put]
func (s *Server) UpdateMySettings(c *fiber.Ctx) error {
	var req struct {
		NotificationsEnabled *bool `json:"notifications_enabled"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.NotificationsEnabled == nil {
		return badRequest(c, "notifications_enabled is required")
	}

	pref, err := s.userService.UpdateSettings(c.UserContext(), actor(c), *req.NotificationsEnabled)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(pref)
}
