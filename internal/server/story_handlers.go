package server

import (
	"github.com/arvi1709/AI-library/internal/models"
	"github.com/arvi1709/AI-library/internal/service"

	"github.com/gofiber/fiber/v2"
)

// storyRequest is the body of story create and edit requests. Tags and
// categories are comma-separated, as the editor submits them. Action is the
// edit page's button ("publish" or "draft") and takes precedence over Status.
type storyRequest struct {
	Title            *string `json:"title" form:"title"`
	ShortDescription *string `json:"short_description" form:"short_description"`
	Content          *string `json:"content" form:"content"`
	Summary          *string `json:"summary" form:"summary"`
	Tags             *string `json:"tags" form:"tags"`
	Categories       *string `json:"categories" form:"categories"`
	Status           *string `json:"status" form:"status"`
	Action           *string `json:"action" form:"action"`
	FileName         string  `json:"file_name" form:"file_name"`
}

func (r storyRequest) status() (*models.StoryStatus, error) {
	if r.Action != nil && *r.Action != "" {
		st, ok := service.StatusForAction(*r.Action)
		if !ok {
			return nil, models.NewValidationError("Action must be publish or draft.")
		}
		return &st, nil
	}
	if r.Status != nil && *r.Status != "" {
		st := models.StoryStatus(*r.Status)
		if !st.Valid() {
			return nil, models.NewValidationError("Status must be published or pending_review.")
		}
		return &st, nil
	}
	return nil, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func csvField(s *string) []string {
	if s == nil {
		return nil
	}
	out := splitCSV(*s)
	if out == nil {
		out = []string{}
	}
	return out
}

// ListStories handles GET /api/stories
// @Summary List stories
// @Description Published stories, newest first, with like counts and the viewer's like and bookmark state.
// @Tags stories
// @Produce json
// @Success 200 {array} models.Story
// @Router /stories [get]
func (s *Server) ListStories(c *fiber.Ctx) error {
	stories, err := s.storyService.ListStories(c.UserContext(), currentUserID(c))
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(stories)
}

// GetStory handles GET /api/stories/:id
// @Summary Get story
// @Tags stories
// @Produce json
// @Param id path int true "Story ID"
// @Success 200 {object} models.Story
// @Failure 404 {object} models.ErrorResponse
// @Router /stories/{id} [get]
func (s *Server) GetStory(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	story, err := s.storyService.GetStory(c.UserContext(), id, currentUserID(c))
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(story)
}

// CreateStory handles POST /api/stories
// @Summary Create story
// @Description Saves a story directly. Send multipart/form-data with an "image" field to upload a banner.
// @Tags stories
// @Security BearerAuth
// @Accept json,mpfd
// @Produce json
// @Param request body storyRequest true "Story"
// @Success 201 {object} models.Story
// @Failure 400 {object} models.ErrorResponse
// @Router /stories [post]
func (s *Server) CreateStory(c *fiber.Ctx) error {
	var req storyRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	status, err := req.status()
	if err != nil {
		return s.mapServiceError(c, err)
	}
	image, err := readUpload(c, "image", s.config.ImageMaxUploadSizeMB)
	if err != nil {
		return s.mapServiceError(c, err)
	}

	in := service.CreateStoryInput{
		AuthorID:         currentUserID(c),
		Title:            deref(req.Title),
		ShortDescription: deref(req.ShortDescription),
		Content:          deref(req.Content),
		Summary:          deref(req.Summary),
		Tags:             csvField(req.Tags),
		Categories:       csvField(req.Categories),
		FileName:         req.FileName,
		Image:            image,
	}
	if status != nil {
		in.Status = *status
	}

	story, err := s.storyService.CreateStory(c.UserContext(), in)
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(story)
}

// UpdateStory handles PUT /api/stories/:id
// @Summary Edit story
// @Description Partial update by the author. Omitted fields are unchanged.
// @Tags stories
// @Security BearerAuth
// @Accept json,mpfd
// @Produce json
// @Param id path int true "Story ID"
// @Param request body storyRequest true "Changes"
// @Success 200 {object} models.Story
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /stories/{id} [put]
func (s *Server) UpdateStory(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req storyRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	status, err := req.status()
	if err != nil {
		return s.mapServiceError(c, err)
	}
	image, err := readUpload(c, "image", s.config.ImageMaxUploadSizeMB)
	if err != nil {
		return s.mapServiceError(c, err)
	}

	story, err := s.storyService.UpdateStory(c.UserContext(), service.UpdateStoryInput{
		UserID:           currentUserID(c),
		StoryID:          id,
		Title:            req.Title,
		ShortDescription: req.ShortDescription,
		Content:          req.Content,
		Summary:          req.Summary,
		Tags:             csvField(req.Tags),
		Categories:       csvField(req.Categories),
		Status:           status,
		Image:            image,
	})
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(story)
}

// DeleteStory handles DELETE /api/stories/:id
// @Summary Delete story
// @Description Author only. Removes the story with its comments, likes, reports, ratings and bookmarks.
// @Tags stories
// @Security BearerAuth
// @Param id path int true "Story ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Router /stories/{id} [delete]
func (s *Server) DeleteStory(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.storyService.DeleteStory(c.UserContext(), currentUserID(c), id); err != nil {
		return s.mapServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetLikes handles GET /api/stories/:id/likes
func (s *Server) GetLikes(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	record, err := s.socialService.Likes(c.UserContext(), id)
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(record)
}

// ToggleLike handles POST /api/stories/:id/like
// @Summary Like or unlike
// @Tags stories
// @Security BearerAuth
// @Produce json
// @Param id path int true "Story ID"
// @Success 200 {object} models.LikeRecord
// @Router /stories/{id}/like [post]
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	record, err := s.socialService.ToggleLike(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(record)
}

// ToggleBookmark handles POST /api/stories/:id/bookmark
// @Summary Bookmark or unbookmark
// @Tags stories
// @Security BearerAuth
// @Produce json
// @Param id path int true "Story ID"
// @Success 200 {object} service.BookmarkState
// @Router /stories/{id}/bookmark [post]
func (s *Server) ToggleBookmark(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	state, err := s.socialService.ToggleBookmark(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(state)
}

// GetEmpathy handles GET /api/stories/:id/empathy
// @Summary Empathy ratings
// @Description Every rating of the story and their average.
// @Tags stories
// @Produce json
// @Param id path int true "Story ID"
// @Success 200 {object} models.EmpathySummary
// @Router /stories/{id}/empathy [get]
func (s *Server) GetEmpathy(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	summary, err := s.empathyService.Summary(c.UserContext(), id)
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(summary)
}

// RateEmpathy handles PUT /api/stories/:id/empathy
// @Summary Rate empathy
// @Description Records the caller's 0-100 rating; a later rating replaces it.
// @Tags stories
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Story ID"
// @Param request body object{rating=int} true "Rating"
// @Success 200 {object} models.EmpathySummary
// @Failure 400 {object} models.ErrorResponse
// @Router /stories/{id}/empathy [put]
func (s *Server) RateEmpathy(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Rating *int `json:"rating"`
	}
	if err := c.BodyParser(&req); err != nil || req.Rating == nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Rating is required"))
	}
	summary, err := s.empathyService.Rate(c.UserContext(), currentUserID(c), id, *req.Rating)
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(summary)
}

// ReportStory handles POST /api/stories/:id/report
// @Summary Report story
// @Tags stories
// @Security BearerAuth
// @Produce json
// @Param id path int true "Story ID"
// @Success 201 {object} models.Report
// @Failure 404 {object} models.ErrorResponse
// @Router /stories/{id}/report [post]
func (s *Server) ReportStory(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	report, err := s.reportService.ReportContent(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

// ListReports handles GET /api/reports
func (s *Server) ListReports(c *fiber.Ctx) error {
	reports, err := s.reportService.ListReports(c.UserContext())
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(reports)
}
