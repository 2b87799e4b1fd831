package server

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/arvi1709/AI-library/internal/auth"
	"github.com/arvi1709/AI-library/internal/ingest"
	"github.com/arvi1709/AI-library/internal/middleware"
	"github.com/arvi1709/AI-library/internal/models"
	"github.com/arvi1709/AI-library/internal/recording"
	"github.com/arvi1709/AI-library/internal/service"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
// The error message is derived from the parameter name (e.g. "id" -> "Invalid ID",
// "userId" -> "Invalid user ID", "commentId" -> "Invalid comment ID").
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "userId" -> "user ID", "flowId" -> "flow ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		words := splitCamel(param[:len(param)-2])
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}

// currentUserID is the authenticated user, or 0 for anonymous readers.
func currentUserID(c *fiber.Ctx) uint {
	id, _ := middleware.UserID(c)
	return id
}

func currentSession(c *fiber.Ctx) *auth.Session {
	session, _ := middleware.SessionFrom(c)
	return session
}

// mapServiceError writes the response for an error returned by a service.
// Sentinels from the ingestion and recording state machines are translated;
// anything unclassified is logged and reported as a generic failure.
func (s *Server) mapServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ingest.ErrFlowNotFound):
		return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundMessage("Draft not found."))
	case errors.Is(err, recording.ErrNotFound):
		return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundMessage("Recording not found."))
	case errors.Is(err, ingest.ErrInvalidTransition), errors.Is(err, recording.ErrInvalidState):
		return models.RespondWithError(c, fiber.StatusConflict, models.NewConflictError(err.Error()))
	case errors.Is(err, recording.ErrTooLarge):
		return models.RespondWithError(c, fiber.StatusRequestEntityTooLarge, models.NewValidationError(err.Error()))
	case errors.Is(err, recording.ErrEmpty):
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError(err.Error()))
	}

	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		appErr = models.NewInternalErrorMessage(models.GenericFailureMessage, err)
	}
	status := models.StatusFor(appErr)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			"path", c.Path(), "method", c.Method(), "error", err)
	}
	return models.RespondWithError(c, status, appErr)
}

// readUpload returns the multipart file in field, or nil when none was sent.
// Files larger than maxMB are rejected.
func readUpload(c *fiber.Ctx, field string, maxMB int) (*service.UploadedFile, error) {
	if !isMultipart(c) {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, models.NewValidationError("Invalid file upload")
	}
	files := form.File[field]
	if len(files) == 0 {
		return nil, nil
	}
	header := files[0]
	limit := int64(maxMB) * 1024 * 1024
	if header.Size > limit {
		return nil, models.NewValidationError(fmt.Sprintf("File exceeds the %d MB limit", maxMB))
	}

	f, err := header.Open()
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if int64(len(data)) > limit {
		return nil, models.NewValidationError(fmt.Sprintf("File exceeds the %d MB limit", maxMB))
	}

	return &service.UploadedFile{
		Filename:    header.Filename,
		ContentType: header.Header.Get(fiber.HeaderContentType),
		Content:     data,
	}, nil
}

// isMultipart reports whether the request body is a multipart form.
func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm)
}

// splitCSV splits a comma-separated form value, dropping blanks.
func splitCSV(raw string) []string {
	return ingest.SplitList(raw)
}
