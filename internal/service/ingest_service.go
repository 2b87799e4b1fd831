package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/arvi1709/AI-library/internal/ingest"
	"github.com/arvi1709/AI-library/internal/models"
	"github.com/arvi1709/AI-library/internal/recording"
)

var errTranscriptionFallback = errors.New("transcription returned the fallback result")

// IngestService drives a draft from its input through the model to a saved
// story. Flows and recordings live in memory and belong to one user each.
type IngestService struct {
	flows      *ingest.FlowRegistry
	ingestor   *ingest.Ingestor
	recordings *recording.Manager
	stories    *StoryService
}

type SubmitFlowInput struct {
	UserID     uint
	FlowID     string
	Submission ingest.Submission
	FileName   string
	Image      *UploadedFile
}

func NewIngestService(
	flows *ingest.FlowRegistry,
	ingestor *ingest.Ingestor,
	recordings *recording.Manager,
	stories *StoryService,
) *IngestService {
	return &IngestService{
		flows:      flows,
		ingestor:   ingestor,
		recordings: recordings,
		stories:    stories,
	}
}

func (s *IngestService) CreateFlow(userID uint, mode ingest.Mode) (*ingest.Flow, error) {
	if !mode.Valid() {
		return nil, models.NewValidationError("Mode must be upload, text or record.")
	}
	return s.flows.Create(userID, mode), nil
}

func (s *IngestService) GetFlow(userID uint, flowID string) (*ingest.Flow, error) {
	return s.flows.Get(flowID, userID)
}

func (s *IngestService) DeleteFlow(userID uint, flowID string) error {
	return s.flows.Delete(flowID, userID)
}

// RestartFlow discards the processed result so the user can pick another input.
func (s *IngestService) RestartFlow(userID uint, flowID string) (*ingest.Flow, error) {
	return s.flows.Restart(flowID, userID)
}

// ProcessUpload sends an uploaded file to the model. Model failures produce
// the fallback result rather than an error.
func (s *IngestService) ProcessUpload(ctx context.Context, userID uint, flowID string, file UploadedFile) (*ingest.Flow, error) {
	contentType := ingest.BaseMIMEType(file.ContentType)
	if err := ingest.ValidateUpload(file.Content, contentType); err != nil {
		return nil, err
	}
	if _, err := s.flows.BeginProcessing(flowID, userID, file.Filename, contentType); err != nil {
		return nil, err
	}
	res, fallback := s.ingestor.ProcessFile(ctx, file.Content, contentType)
	return s.flows.CompleteProcessing(flowID, userID, res, fallback)
}

// ProcessText sends typed text down the same path as a plain-text upload.
func (s *IngestService) ProcessText(ctx context.Context, userID uint, flowID, text string) (*ingest.Flow, error) {
	if err := ingest.ValidateText(text); err != nil {
		return nil, err
	}
	if _, err := s.flows.BeginProcessing(flowID, userID, models.DefaultStoryFileName, ingest.MIMEPlainText); err != nil {
		return nil, err
	}
	res, fallback := s.ingestor.ProcessText(ctx, text)
	return s.flows.CompleteProcessing(flowID, userID, res, fallback)
}

// Submit saves the reviewed details as a story. A failed save returns the
// flow to the details stage.
func (s *IngestService) Submit(ctx context.Context, in SubmitFlowInput) (*ingest.Flow, *models.Story, error) {
	if err := in.Submission.Validate(); err != nil {
		return nil, nil, err
	}
	flow, err := s.flows.BeginSubmit(in.FlowID, in.UserID)
	if err != nil {
		return nil, nil, err
	}

	fileName := in.FileName
	if fileName == "" {
		fileName = flow.FileName
	}
	draft := in.Submission.Story(fileName)
	story, err := s.stories.CreateStory(ctx, CreateStoryInput{
		AuthorID:         in.UserID,
		Title:            draft.Title,
		ShortDescription: draft.ShortDescription,
		Content:          draft.Content,
		Summary:          draft.Summary,
		Tags:             draft.Tags,
		Categories:       draft.Categories,
		Status:           draft.Status,
		FileName:         draft.FileName,
		Image:            in.Image,
	})
	if err != nil {
		msg := ingest.MsgSubmissionFailed
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeValidation {
			msg = appErr.Message
		}
		if _, ferr := s.flows.FailSubmit(in.FlowID, in.UserID, msg); ferr != nil {
			slog.WarnContext(ctx, "failed to reset ingestion flow", "flow_id", in.FlowID, "error", ferr)
		}
		return nil, nil, err
	}

	flow, err = s.flows.CompleteSubmit(in.FlowID, in.UserID, story.ID)
	if err != nil {
		return nil, story, err
	}
	return flow, story, nil
}

// Summarize returns a short summary or the fallback text.
func (s *IngestService) Summarize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", models.NewValidationError(ingest.MsgEmptyText)
	}
	return s.ingestor.Summarize(ctx, text), nil
}

// Chat answers message given the prior turns, or returns the fallback text.
func (s *IngestService) Chat(ctx context.Context, history []ingest.ChatTurn, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", models.NewValidationError("Message is required")
	}
	return s.ingestor.Chat(ctx, history, message), nil
}

// StartRecording opens a new capture for the user.
func (s *IngestService) StartRecording(userID uint) (recording.Status, error) {
	rec := s.recordings.Create(userID)
	if err := rec.Start(); err != nil {
		_ = s.recordings.Remove(rec.ID, userID)
		return recording.Status{}, err
	}
	return rec.Status(), nil
}

func (s *IngestService) RecordingStatus(userID uint, recordingID string) (recording.Status, error) {
	rec, err := s.recordings.Get(recordingID, userID)
	if err != nil {
		return recording.Status{}, err
	}
	return rec.Status(), nil
}

func (s *IngestService) AppendRecording(userID uint, recordingID string, chunk []byte) (recording.Status, error) {
	return s.withRecording(userID, recordingID, func(rec *recording.Session) error {
		return rec.Append(chunk)
	})
}

func (s *IngestService) PauseRecording(userID uint, recordingID string) (recording.Status, error) {
	return s.withRecording(userID, recordingID, (*recording.Session).Pause)
}

func (s *IngestService) ResumeRecording(userID uint, recordingID string) (recording.Status, error) {
	return s.withRecording(userID, recordingID, (*recording.Session).Resume)
}

// CancelRecording discards the capture and forgets the session.
func (s *IngestService) CancelRecording(userID uint, recordingID string) error {
	return s.recordings.Remove(recordingID, userID)
}

// StopRecording finalizes the audio and transcribes it into the flow. On a
// failed transcription the flow returns to upload with the error and the
// recording keeps its audio for RetryTranscription.
func (s *IngestService) StopRecording(ctx context.Context, userID uint, recordingID, flowID string) (*ingest.Flow, recording.Status, error) {
	rec, err := s.recordings.Get(recordingID, userID)
	if err != nil {
		return nil, recording.Status{}, err
	}
	if _, err := s.recordings.Finalize(ctx, rec); err != nil {
		return nil, rec.Status(), err
	}
	return s.transcribe(ctx, userID, rec, flowID)
}

// RetryTranscription re-runs the model over a stopped recording's audio.
func (s *IngestService) RetryTranscription(ctx context.Context, userID uint, recordingID, flowID string) (*ingest.Flow, recording.Status, error) {
	rec, err := s.recordings.Get(recordingID, userID)
	if err != nil {
		return nil, recording.Status{}, err
	}
	return s.transcribe(ctx, userID, rec, flowID)
}

func (s *IngestService) transcribe(ctx context.Context, userID uint, rec *recording.Session, flowID string) (*ingest.Flow, recording.Status, error) {
	audio := rec.Audio()
	if audio == nil {
		return nil, rec.Status(), recording.ErrInvalidState
	}
	if _, err := s.flows.BeginProcessing(flowID, userID, audio.FileName, audio.MIMEType); err != nil {
		return nil, rec.Status(), err
	}

	var result ingest.Result
	transcriber := recording.TranscriberFunc(func(ctx context.Context, a *recording.Audio) (string, error) {
		res, fallback := s.ingestor.ProcessFile(ctx, a.Bytes(), a.MIMEType)
		if fallback {
			return "", errTranscriptionFallback
		}
		if err := ingest.ValidateTranscript(res.Content); err != nil {
			return "", err
		}
		result = res
		return res.Content, nil
	})

	if _, err := rec.Transcribe(ctx, transcriber); err != nil {
		flow, ferr := s.flows.FailProcessing(flowID, userID, recording.TranscriptionFailedMessage)
		if ferr != nil {
			return nil, rec.Status(), ferr
		}
		return flow, rec.Status(), nil
	}

	flow, err := s.flows.CompleteProcessing(flowID, userID, result, false)
	return flow, rec.Status(), err
}

func (s *IngestService) withRecording(userID uint, recordingID string, fn func(*recording.Session) error) (recording.Status, error) {
	rec, err := s.recordings.Get(recordingID, userID)
	if err != nil {
		return recording.Status{}, err
	}
	if err := fn(rec); err != nil {
		return rec.Status(), err
	}
	return rec.Status(), nil
}
