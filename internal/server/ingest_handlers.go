package server

import (
	"github.com/arvi1709/AI-library/internal/ingest"
	"github.com/arvi1709/AI-library/internal/models"
	"github.com/arvi1709/AI-library/internal/recording"
	"github.com/arvi1709/AI-library/internal/service"

	"github.com/gofiber/fiber/v2"
)

type submitRequest struct {
	Title            string `json:"title" form:"title"`
	Category         string `json:"category" form:"category"`
	ShortDescription string `json:"short_description" form:"short_description"`
	Content          string `json:"content" form:"content"`
	Summary          string `json:"summary" form:"summary"`
	Tags             string `json:"tags" form:"tags"`
	Status           string `json:"status" form:"status"`
	FileName         string `json:"file_name" form:"file_name"`
}

type flowRecordingRequest struct {
	FlowID string `json:"flow_id"`
}

type flowRecordingResponse struct {
	Flow      *ingest.Flow     `json:"flow"`
	Recording recording.Status `json:"recording"`
}

// CreateFlow handles POST /api/ingest/flows
// @Summary Start an add-story draft
// @Tags ingest
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body object{mode=string} true "upload, text or record"
// @Success 201 {object} ingest.Flow
// @Failure 400 {object} models.ErrorResponse
// @Router /ingest/flows [post]
func (s *Server) CreateFlow(c *fiber.Ctx) error {
	var req struct {
		Mode ingest.Mode `json:"mode"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	flow, err := s.ingestService.CreateFlow(currentUserID(c), req.Mode)
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(flow)
}

// GetFlow handles GET /api/ingest/flows/:flowId
func (s *Server) GetFlow(c *fiber.Ctx) error {
	flow, err := s.ingestService.GetFlow(currentUserID(c), c.Params("flowId"))
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(flow)
}

// DeleteFlow handles DELETE /api/ingest/flows/:flowId
func (s *Server) DeleteFlow(c *fiber.Ctx) error {
	if err := s.ingestService.DeleteFlow(currentUserID(c), c.Params("flowId")); err != nil {
		return s.mapServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RestartFlow handles POST /api/ingest/flows/:flowId/restart
func (s *Server) RestartFlow(c *fiber.Ctx) error {
	flow, err := s.ingestService.RestartFlow(currentUserID(c), c.Params("flowId"))
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(flow)
}

// UploadToFlow handles POST /api/ingest/flows/:flowId/upload
// @Summary Process an uploaded file
// @Description Extracts the text, a summary, tags and categories from a PDF, DOC, TXT or audio file.
// @Description Model failures produce the fallback result with "fallback": true.
// @Tags ingest
// @Security BearerAuth
// @Accept mpfd
// @Produce json
// @Param flowId path string true "Flow ID"
// @Param file formData file true "Story file"
// @Success 200 {object} ingest.Flow
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /ingest/flows/{flowId}/upload [post]
func (s *Server) UploadToFlow(c *fiber.Ctx) error {
	file, err := readUpload(c, "file", s.config.FileMaxUploadSizeMB)
	if err != nil {
		return s.mapServiceError(c, err)
	}
	if file == nil {
		file = &service.UploadedFile{}
	}
	flow, err := s.ingestService.ProcessUpload(c.UserContext(), currentUserID(c), c.Params("flowId"), *file)
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(flow)
}

// SubmitTextToFlow handles POST /api/ingest/flows/:flowId/text
// @Summary Process typed text
// @Tags ingest
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param flowId path string true "Flow ID"
// @Param request body object{text=string} true "Story text"
// @Success 200 {object} ingest.Flow
// @Failure 400 {object} models.ErrorResponse
// @Router /ingest/flows/{flowId}/text [post]
func (s *Server) SubmitTextToFlow(c *fiber.Ctx) error {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	flow, err := s.ingestService.ProcessText(c.UserContext(), currentUserID(c), c.Params("flowId"), req.Text)
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(flow)
}

// SubmitFlow handles POST /api/ingest/flows/:flowId/submit
// @Summary Save the reviewed draft as a story
// @Description Tags are comma-separated. Send multipart/form-data with an "image" field to upload a banner.
// @Tags ingest
// @Security BearerAuth
// @Accept json,mpfd
// @Produce json
// @Param flowId path string true "Flow ID"
// @Param request body submitRequest true "Story details"
// @Success 201 {object} object{flow=ingest.Flow,story=models.Story}
// @Failure 400 {object} models.ErrorResponse
// @Router /ingest/flows/{flowId}/submit [post]
func (s *Server) SubmitFlow(c *fiber.Ctx) error {
	var req submitRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	image, err := readUpload(c, "image", s.config.ImageMaxUploadSizeMB)
	if err != nil {
		return s.mapServiceError(c, err)
	}

	flow, story, err := s.ingestService.Submit(c.UserContext(), service.SubmitFlowInput{
		UserID: currentUserID(c),
		FlowID: c.Params("flowId"),
		Submission: ingest.Submission{
			Title:            req.Title,
			Category:         req.Category,
			ShortDescription: req.ShortDescription,
			Content:          req.Content,
			Summary:          req.Summary,
			Tags:             req.Tags,
			Status:           req.Status,
		},
		FileName: req.FileName,
		Image:    image,
	})
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"flow": flow, "story": story})
}

// Summarize handles POST /api/ingest/summarize
// @Summary Summarize text
// @Tags ingest
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body object{text=string} true "Text"
// @Success 200 {object} object{summary=string}
// @Router /ingest/summarize [post]
func (s *Server) Summarize(c *fiber.Ctx) error {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	summary, err := s.ingestService.Summarize(c.UserContext(), req.Text)
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"summary": summary})
}

// Chat handles POST /api/ingest/chat
// @Summary Chat with the writing assistant
// @Tags ingest
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body object{history=[]ingest.ChatTurn,message=string} true "Conversation"
// @Success 200 {object} object{reply=string}
// @Router /ingest/chat [post]
func (s *Server) Chat(c *fiber.Ctx) error {
	var req struct {
		History []ingest.ChatTurn `json:"history"`
		Message string            `json:"message"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	reply, err := s.ingestService.Chat(c.UserContext(), req.History, req.Message)
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"reply": reply})
}

// StartRecording handles POST /api/recordings
// @Summary Start recording
// @Tags recordings
// @Security BearerAuth
// @Produce json
// @Success 201 {object} recording.Status
// @Router /recordings [post]
func (s *Server) StartRecording(c *fiber.Ctx) error {
	status, err := s.ingestService.StartRecording(currentUserID(c))
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(status)
}

// GetRecording handles GET /api/recordings/:recordingId
func (s *Server) GetRecording(c *fiber.Ctx) error {
	status, err := s.ingestService.RecordingStatus(currentUserID(c), c.Params("recordingId"))
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(status)
}

// AppendRecording handles POST /api/recordings/:recordingId/chunks. The body
// is the raw audio chunk.
// @Summary Append audio
// @Tags recordings
// @Security BearerAuth
// @Accept octet-stream
// @Produce json
// @Param recordingId path string true "Recording ID"
// @Success 200 {object} recording.Status
// @Failure 409 {object} models.ErrorResponse
// @Router /recordings/{recordingId}/chunks [post]
func (s *Server) AppendRecording(c *fiber.Ctx) error {
	chunk := append([]byte(nil), c.Body()...)
	status, err := s.ingestService.AppendRecording(currentUserID(c), c.Params("recordingId"), chunk)
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(status)
}

// PauseRecording handles POST /api/recordings/:recordingId/pause
func (s *Server) PauseRecording(c *fiber.Ctx) error {
	status, err := s.ingestService.PauseRecording(currentUserID(c), c.Params("recordingId"))
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(status)
}

// ResumeRecording handles POST /api/recordings/:recordingId/resume
func (s *Server) ResumeRecording(c *fiber.Ctx) error {
	status, err := s.ingestService.ResumeRecording(currentUserID(c), c.Params("recordingId"))
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(status)
}

// CancelRecording handles DELETE /api/recordings/:recordingId
func (s *Server) CancelRecording(c *fiber.Ctx) error {
	if err := s.ingestService.CancelRecording(currentUserID(c), c.Params("recordingId")); err != nil {
		return s.mapServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// StopRecording handles POST /api/recordings/:recordingId/stop
// @Summary Stop and transcribe
// @Description Finalizes the audio and transcribes it into the record-mode draft named by flow_id.
// @Description A failed transcription leaves the flow at upload with an error; call retry to try again.
// @Tags recordings
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param recordingId path string true "Recording ID"
// @Param request body flowRecordingRequest true "Draft"
// @Success 200 {object} flowRecordingResponse
// @Router /recordings/{recordingId}/stop [post]
func (s *Server) StopRecording(c *fiber.Ctx) error {
	var req flowRecordingRequest
	if err := c.BodyParser(&req); err != nil || req.FlowID == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("flow_id is required"))
	}
	flow, status, err := s.ingestService.StopRecording(c.UserContext(), currentUserID(c), c.Params("recordingId"), req.FlowID)
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(flowRecordingResponse{Flow: flow, Recording: status})
}

// RetryTranscription handles POST /api/recordings/:recordingId/retry
func (s *Server) RetryTranscription(c *fiber.Ctx) error {
	var req flowRecordingRequest
	if err := c.BodyParser(&req); err != nil || req.FlowID == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("flow_id is required"))
	}
	flow, status, err := s.ingestService.RetryTranscription(c.UserContext(), currentUserID(c), c.Params("recordingId"), req.FlowID)
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(flowRecordingResponse{Flow: flow, Recording: status})
}
