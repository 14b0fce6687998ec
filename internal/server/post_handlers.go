package server

import (
	"io"
	"strings"

	"appx/internal/models"
	"appx/internal/service"

	"github.com/gofiber/fiber/v2"
)

const maxMediaPerPost = 10

// GetPosts handles GET /api/posts
// @Summary List the feed
// @Description Newest posts first. Authors separated from the caller by a block are left out.
// @Tags posts
// @Produce json
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {array} models.Post
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	page := parsePagination(c, defaultPageSize)
	posts, err := s.postService.ListPosts(c.UserContext(), actor(c), service.ListPostsInput{
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(posts)
}

// GetPost handles GET /api/posts/:id
// @Summary Get a post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} models.Post
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respond(c, err)
	}

	post, err := s.postService.GetPost(c.UserContext(), actor(c), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(post)
}

// GetUserPosts handles GET /api/users/:id/posts
// @Summary List a user's posts
// @Tags posts
// @Produce json
// @Param id path int true "User ID"
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {array} models.Post
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/posts [get]
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	authorID, err := paramID(c, "id")
	if err != nil {
		return respond(c, err)
	}

	page := parsePagination(c, defaultPageSize)
	posts, err := s.postService.ListUserPosts(c.UserContext(), actor(c), authorID, service.ListPostsInput{
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(posts)
}

func parseCreatePost(c *fiber.Ctx) (service.CreatePostInput, error) {
	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		var req struct {
			Text string `json:"text"`
		}
		if err := c.BodyParser(&req); err != nil {
			return service.CreatePostInput{}, models.NewValidationError("Invalid request body")
		}
		return service.CreatePostInput{Text: req.Text}, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return service.CreatePostInput{}, models.NewValidationError("Invalid multipart form")
	}
	in := service.CreatePostInput{Text: c.FormValue("text")}
	files := form.File["media"]
	if len(files) > maxMediaPerPost {
		return service.CreatePostInput{}, models.NewValidationError("Too many media files (max 10)")
	}
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return service.CreatePostInput{}, models.NewInternalError(err)
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return service.CreatePostInput{}, models.NewInternalError(err)
		}
		in.Media = append(in.Media, service.Upload{Filename: fh.Filename, Data: data})
	}
	return in, nil
}

// CreatePost handles POST /api/posts
// @Summary Create a post
// @Description JSON body with text, or multipart form with text and one or more media files
// @Tags posts
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param text formData string false "Post text"
// @Param media formData file false "Image or video"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	in, err := parseCreatePost(c)
	if err != nil {
		return respond(c, err)
	}

	post, err := s.postService.CreatePost(c.UserContext(), actor(c), in)
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// UpdatePost handles PUT /api/posts/:id
// @Summary Edit a post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body object{text=string} true "New text"
// @Success 200 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /posts/{id} [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	postID, err := paramID(c, "id")
	if err != nil {
		return respond(c, err)
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	post, err := s.postService.UpdatePost(c.UserContext(), actor(c), service.UpdatePostInput{
		PostID: postID,
		Text:   req.Text,
	})
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
// @Summary Delete a post
// @Tags posts
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	postID, err := paramID(c, "id")
	if err != nil {
		return respond(c, err)
	}

	if err := s.postService.DeletePost(c.UserContext(), actor(c), postID); err != nil {
		return respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// LikePost handles POST /api/posts/:id/like
// @Summary Like a post
// @Description Idempotent. Only the first like notifies the author.
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 201 {object} object{message=string}
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/like [post]
func (s *Server) LikePost(c *fiber.Ctx) error {
	postID, err := paramID(c, "id")
	if err != nil {
		return respond(c, err)
	}

	if err := s.reactionService.Like(c.UserContext(), actor(c), postID); err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Post liked"})
}

// UnlikePost handles DELETE /api/posts/:id/like
// @Summary Remove a like
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} object{message=string}
// @Router /posts/{id}/like [delete]
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	postID, err := paramID(c, "id")
	if err != nil {
		return respond(c, err)
	}

	if err := s.reactionService.Unlike(c.UserContext(), actor(c), postID); err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Like removed"})
}
