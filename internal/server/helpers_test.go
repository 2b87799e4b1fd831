package server

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/arvi1709/AI-library/internal/ingest"
	"github.com/arvi1709/AI-library/internal/models"
	"github.com/arvi1709/AI-library/internal/recording"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func itoa(id uint) string {
	return fmt.Sprintf("%d", id)
}

// --- humanizeParam (pure function, no HTTP) ---

func TestHumanizeParam(t *testing.T) {
	tests := []struct {
		param    string
		expected string
	}{
		{"id", "ID"},
		{"userId", "user ID"},
		{"flowId", "flow ID"},
		{"recordingId", "recording ID"},
		{"storyCommentId", "story comment ID"},
		{"something", "something"},
	}
	for _, tt := range tests {
		t.Run(tt.param, func(t *testing.T) {
			assert.Equal(t, tt.expected, humanizeParam(tt.param))
		})
	}
}

func TestSplitCSV(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitCSV(" a, ,b ,"))
	assert.Empty(t, splitCSV(""))
}

func TestMapServiceError(t *testing.T) {
	s := &Server{}
	app := fiber.New()
	var next error
	app.Get("/", func(c *fiber.Ctx) error { return s.mapServiceError(c, next) })

	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"flow not found", fmt.Errorf("get: %w", ingest.ErrFlowNotFound), http.StatusNotFound, "Draft not found."},
		{"recording not found", recording.ErrNotFound, http.StatusNotFound, "Recording not found."},
		{"bad transition", ingest.ErrInvalidTransition, http.StatusConflict, ""},
		{"bad recording state", recording.ErrInvalidState, http.StatusConflict, ""},
		{"too large", recording.ErrTooLarge, http.StatusRequestEntityTooLarge, ""},
		{"empty", recording.ErrEmpty, http.StatusBadRequest, ""},
		{"validation", models.NewValidationError("Title is required"), http.StatusBadRequest, "Title is required"},
		{"forbidden", models.NewForbiddenError("nope"), http.StatusForbidden, "nope"},
		{"recent login", models.NewRequiresRecentLoginError(), http.StatusUnauthorized, ""},
		{"unclassified", errors.New("disk on fire"), http.StatusInternalServerError, models.GenericFailureMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next = tt.err
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			body := decode[models.ErrorResponse](t, resp)
			if tt.msg != "" {
				assert.Equal(t, tt.msg, body.Error)
			}
			assert.NotContains(t, body.Error, "disk on fire")
		})
	}
}

func uploadRequest(t *testing.T, field, name string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("title", "x"))
	if field != "" {
		part, err := w.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	return req
}

func TestReadUpload(t *testing.T) {
	app := fiber.New()
	app.Post("/", func(c *fiber.Ctx) error {
		f, err := readUpload(c, "file", 1)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).SendString(err.Error())
		}
		if f == nil {
			return c.SendString("none")
		}
		return c.SendString(fmt.Sprintf("%s:%d", f.Filename, len(f.Content)))
	})

	read := func(req *http.Request) (int, string) {
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		var b bytes.Buffer
		_, _ = b.ReadFrom(resp.Body)
		return resp.StatusCode, b.String()
	}

	code, body := read(uploadRequest(t, "file", "story.txt", []byte("hello")))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "story.txt:5", body)

	code, body = read(uploadRequest(t, "", "", nil))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "none", body)

	code, body = read(uploadRequest(t, "file", "big.txt", bytes.Repeat([]byte("a"), 1024*1024+1)))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body, "1 MB")

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"x"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	code, body = read(req)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "none", body)
}
