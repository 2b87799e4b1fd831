package server

import (
	"github.com/arvi1709/AI-library/internal/models"
	"github.com/arvi1709/AI-library/internal/service"

	"github.com/gofiber/fiber/v2"
)

type signupRequest struct {
	Name     string `json:"name" form:"name"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// Signup handles POST /api/auth/signup
// @Summary User signup
// @Description Register a new account. Send multipart/form-data to include a profile image.
// @Tags auth
// @Accept json,mpfd
// @Produce json
// @Param request body signupRequest true "Signup request"
// @Success 201 {object} service.AuthResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /auth/signup [post]
func (s *Server) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	image, err := readUpload(c, "image", s.config.ImageMaxUploadSizeMB)
	if err != nil {
		return s.mapServiceError(c, err)
	}

	result, err := s.authService.Signup(c.UserContext(), service.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Image:    image,
	})
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// Login handles POST /api/auth/login
// @Summary User login
// @Description Authenticate user and return JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string,password=string} true "Login credentials"
// @Success 200 {object} service.AuthResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	result, err := s.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(result)
}

// Refresh handles POST /api/auth/refresh
// @Summary Refresh session token
// @Description Issues a new token carrying the original login time and revokes the presented one.
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} service.AuthResult
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/refresh [post]
func (s *Server) Refresh(c *fiber.Ctx) error {
	result, err := s.authService.Refresh(c.UserContext(), currentSession(c))
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(result)
}

// Logout handles POST /api/auth/logout
// @Summary Logout
// @Tags auth
// @Security BearerAuth
// @Success 204
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	session := currentSession(c)
	if err := s.authService.Logout(c.UserContext(), session); err != nil {
		return s.mapServiceError(c, err)
	}
	s.closeTokenSessions(session.TokenID)
	return c.SendStatus(fiber.StatusNoContent)
}

// IssueWSTicket handles POST /api/ws/ticket
// @Summary Issue a WebSocket ticket
// @Description Returns a short-lived single-use ticket for /ws and /ws/sync.
// @Tags realtime
// @Security BearerAuth
// @Produce json
// @Success 200 {object} object{ticket=string}
// @Router /ws/ticket [post]
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	ticket, err := s.authService.WebSocketTicket(c.UserContext(), currentSession(c))
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"ticket": ticket})
}
