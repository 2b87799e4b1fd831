package ingest

import (
	"mime"
	"strings"

	"github.com/arvi1709/AI-library/internal/models"
)

// MIME types accepted for upload, besides any audio/* type.
const (
	MIMEPDF       = "application/pdf"
	MIMEPlainText = "text/plain"
	MIMEDoc       = "application/msword"
	MIMEDocx      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// User-facing messages for rejected input.
const (
	MsgInvalidFileType  = "Please upload a valid PDF, DOC, TXT, or audio file."
	MsgMissingFile      = "Please select a file before proceeding."
	MsgEmptyText        = "Please write some content before proceeding."
	MsgEmptyTranscript  = "The transcript is empty. Please record something first."
	MsgProcessingFailed = "There was an error processing your content. Please try again later."
	MsgMissingFields    = "Please fill in all required fields."
	MsgInvalidStatus    = "Status must be published or pending_review."
	MsgSubmissionFailed = "There was an unexpected error saving your story. Please try again."
)

var allowedTypes = map[string]bool{
	MIMEPDF:       true,
	MIMEPlainText: true,
	MIMEDoc:       true,
	MIMEDocx:      true,
}

// BaseMIMEType strips parameters such as charset from a Content-Type value.
func BaseMIMEType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

// AllowedMIMEType reports whether an upload of this type can be ingested.
func AllowedMIMEType(contentType string) bool {
	mt := BaseMIMEType(contentType)
	return allowedTypes[mt] || strings.HasPrefix(mt, "audio/")
}

// ValidateUpload checks an uploaded file before it is sent to the model.
func ValidateUpload(data []byte, contentType string) error {
	if len(data) == 0 {
		return models.NewValidationError(MsgMissingFile)
	}
	if !AllowedMIMEType(contentType) {
		return models.NewValidationError(MsgInvalidFileType)
	}
	return nil
}

// ValidateText rejects empty or whitespace-only text.
func ValidateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return models.NewValidationError(MsgEmptyText)
	}
	return nil
}

// ValidateTranscript rejects an empty recording transcript.
func ValidateTranscript(text string) error {
	if strings.TrimSpace(text) == "" {
		return models.NewValidationError(MsgEmptyTranscript)
	}
	return nil
}

// SplitList splits a comma-separated list, trimming items and dropping empties.
func SplitList(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinList is the inverse of SplitList for prefilling form fields.
func JoinList(items []string) string {
	return strings.Join(items, ", ")
}

// Submission is the details form of a draft.
type Submission struct {
	Title            string `json:"title"`
	Category         string `json:"category"`
	ShortDescription string `json:"short_description"`
	Content          string `json:"content"`
	Summary          string `json:"summary"`
	Tags             string `json:"tags"`
	Status           string `json:"status"`
}

// Validate checks the required fields and the status.
func (s Submission) Validate() error {
	if strings.TrimSpace(s.Title) == "" ||
		strings.TrimSpace(s.Category) == "" ||
		strings.TrimSpace(s.ShortDescription) == "" ||
		strings.TrimSpace(s.Content) == "" {
		return models.NewValidationError(MsgMissingFields)
	}
	if !models.StoryStatus(s.Status).Valid() {
		return models.NewValidationError(MsgInvalidStatus)
	}
	return nil
}

// Story builds the story fields of a valid submission. fileName falls back
// to the default for typed stories.
func (s Submission) Story(fileName string) *models.Story {
	if fileName == "" {
		fileName = models.DefaultStoryFileName
	}
	return &models.Story{
		Title:            strings.TrimSpace(s.Title),
		ShortDescription: strings.TrimSpace(s.ShortDescription),
		Content:          s.Content,
		Summary:          s.Summary,
		Tags:             SplitList(s.Tags),
		Categories:       SplitList(s.Category),
		Status:           models.StoryStatus(s.Status),
		FileName:         fileName,
	}
}
