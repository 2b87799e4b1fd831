package server

import (
	"github.com/arvi1709/AI-library/internal/models"
	"github.com/arvi1709/AI-library/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListComments handles GET /api/stories/:id/comments
// @Summary List comments
// @Description Comments on a story, oldest first.
// @Tags comments
// @Produce json
// @Param id path int true "Story ID"
// @Success 200 {array} models.Comment
// @Router /stories/{id}/comments [get]
func (s *Server) ListComments(c *fiber.Ctx) error {
	storyID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	comments, err := s.commentService.ListComments(c.UserContext(), storyID)
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(comments)
}

// AddComment handles POST /api/stories/:id/comments
// @Summary Add comment
// @Description Rejected with a validation error when the word filter matches.
// @Tags comments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Story ID"
// @Param request body object{text=string} true "Comment"
// @Success 201 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Router /stories/{id}/comments [post]
func (s *Server) AddComment(c *fiber.Ctx) error {
	storyID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Text string `json:"text"`
	}
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
	}

	comment, err := s.commentService.AddComment(c.UserContext(), service.CreateCommentInput{
		UserID:  currentUserID(c),
		StoryID: storyID,
		Text:    req.Text,
	})
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// DeleteComment handles DELETE /api/comments/:id
// @Summary Delete comment
// @Description Only the comment's author may delete it.
// @Tags comments
// @Security BearerAuth
// @Param id path int true "Comment ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Router /comments/{id} [delete]
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	commentID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if _, err := s.commentService.DeleteComment(c.UserContext(), service.DeleteCommentInput{
		UserID:    currentUserID(c),
		CommentID: commentID,
	}); err != nil {
		return s.mapServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListNotifications handles GET /api/notifications
// @Summary List notifications
// @Description The caller's notifications, newest first.
// @Tags notifications
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.Notification
// @Router /notifications [get]
func (s *Server) ListNotifications(c *fiber.Ctx) error {
	list, err := s.notificationService.ListNotifications(c.UserContext(), currentUserID(c))
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(list)
}

// MarkNotificationsRead handles POST /api/notifications/read
// @Summary Mark all notifications read
// @Tags notifications
// @Security BearerAuth
// @Produce json
// @Success 200 {object} object{updated=int}
// @Router /notifications/read [post]
func (s *Server) MarkNotificationsRead(c *fiber.Ctx) error {
	n, err := s.notificationService.MarkAllRead(c.UserContext(), currentUserID(c))
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"updated": n})
}
