package server

import (
	"github.com/arvi1709/AI-library/internal/models"
	"github.com/arvi1709/AI-library/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListUsers handles GET /api/users
func (s *Server) ListUsers(c *fiber.Ctx) error {
	users, err := s.userService.ListUsers(c.UserContext())
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(users)
}

// GetMe handles GET /api/users/me
// @Summary Current user
// @Description The signed-in user with follower, following and bookmark ids.
// @Tags users
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.User
// @Router /users/me [get]
func (s *Server) GetMe(c *fiber.Ctx) error {
	user, err := s.userService.GetMe(c.UserContext(), currentUserID(c))
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(user)
}

// UpdateMe handles PUT /api/users/me
// @Summary Update profile
// @Description Changes the display name and optionally replaces the profile image (multipart field "image").
// @Tags users
// @Security BearerAuth
// @Accept json,mpfd
// @Produce json
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Router /users/me [put]
func (s *Server) UpdateMe(c *fiber.Ctx) error {
	var req struct {
		Name string `json:"name" form:"name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	image, err := readUpload(c, "image", s.config.ImageMaxUploadSizeMB)
	if err != nil {
		return s.mapServiceError(c, err)
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), service.UpdateProfileInput{
		UserID: currentUserID(c),
		Name:   req.Name,
		Image:  image,
	})
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(user)
}

// DeleteAccount handles DELETE /api/users/me
// @Summary Delete account
// @Description Removes the user's stories, their engagement, the social graph edges, notifications,
// @Description images and the account itself. Requires a recent login.
// @Tags users
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.AccountDeletion
// @Failure 401 {object} models.ErrorResponse "UNAUTHORIZED or REQUIRES_RECENT_LOGIN"
// @Failure 500 {object} models.ErrorResponse
// @Router /users/me [delete]
func (s *Server) DeleteAccount(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)

	user, err := s.userService.GetMe(ctx, userID)
	if err != nil {
		return s.mapServiceError(c, err)
	}

	deletion, err := s.deletionService.Start(ctx, currentSession(c), user.Email, user.ImageURL)
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(deletion)
}

// GetBookmarks handles GET /api/users/me/bookmarks
// @Summary Bookmarked stories
// @Tags users
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.Story
// @Router /users/me/bookmarks [get]
func (s *Server) GetBookmarks(c *fiber.Ctx) error {
	stories, err := s.storyService.ListBookmarked(c.UserContext(), currentUserID(c))
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(stories)
}

// GetProfile handles GET /api/users/:id/profile
// @Summary Public profile
// @Description The user, follow counts and their published stories with like counts.
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} service.PublicProfile
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/profile [get]
func (s *Server) GetProfile(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	profile, err := s.userService.GetProfile(c.UserContext(), id)
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(profile)
}

// GetUserStories handles GET /api/users/:id/stories. Authors also see their
// stories pending review.
func (s *Server) GetUserStories(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	stories, err := s.storyService.ListByAuthor(c.UserContext(), id, currentUserID(c))
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(stories)
}

// GetFollowers handles GET /api/users/:id/followers
// @Summary Followers
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {array} models.User
// @Router /users/{id}/followers [get]
func (s *Server) GetFollowers(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	users, err := s.userService.Followers(c.UserContext(), id)
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(users)
}

// GetFollowing handles GET /api/users/:id/following
// @Summary Following
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {array} models.User
// @Router /users/{id}/following [get]
func (s *Server) GetFollowing(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	users, err := s.userService.Following(c.UserContext(), id)
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(users)
}

// ToggleFollow handles POST /api/users/:id/follow
// @Summary Follow or unfollow
// @Tags users
// @Security BearerAuth
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} service.FollowState
// @Failure 400 {object} models.ErrorResponse
// @Router /users/{id}/follow [post]
func (s *Server) ToggleFollow(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	state, err := s.socialService.ToggleFollow(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(state)
}
