package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) ProcessFile(ctx context.Context, data []byte, mimeType string) (Result, error) {
	args := m.Called(ctx, data, mimeType)
	return args.Get(0).(Result), args.Error(1)
}

func (m *mockGenerator) Summarize(ctx context.Context, text string) (string, error) {
	args := m.Called(ctx, text)
	return args.String(0), args.Error(1)
}

func (m *mockGenerator) Chat(ctx context.Context, history []ChatTurn, message string) (string, error) {
	args := m.Called(ctx, history, message)
	return args.String(0), args.Error(1)
}

func TestIngestor_ProcessFile(t *testing.T) {
	ctx := context.Background()

	t.Run("success normalizes nil lists", func(t *testing.T) {
		gen := new(mockGenerator)
		gen.On("ProcessFile", mock.Anything, []byte("%PDF"), MIMEPDF).
			Return(Result{Content: "text", Summary: "short"}, nil)

		res, fallback := NewIngestor(gen, time.Second).ProcessFile(ctx, []byte("%PDF"), MIMEPDF)
		assert.False(t, fallback)
		assert.Equal(t, "text", res.Content)
		assert.NotNil(t, res.Tags)
		assert.NotNil(t, res.Categories)
		gen.AssertExpectations(t)
	})

	t.Run("failure yields the fallback payload", func(t *testing.T) {
		gen := new(mockGenerator)
		gen.On("ProcessFile", mock.Anything, mock.Anything, mock.Anything).
			Return(Result{}, errors.New("quota exhausted"))

		res, fallback := NewIngestor(gen, time.Second).ProcessFile(ctx, []byte("x"), "audio/webm")
		assert.True(t, fallback)
		assert.Equal(t, FallbackResult(), res)
		assert.Equal(t, []string{}, res.Tags)
		assert.Equal(t, []string{}, res.Categories)
	})

	t.Run("text goes through the file path as text/plain", func(t *testing.T) {
		gen := new(mockGenerator)
		gen.On("ProcessFile", mock.Anything, []byte("once upon a time"), MIMEPlainText).
			Return(Result{Content: "once upon a time", Tags: []string{"tale"}}, nil)

		res, fallback := NewIngestor(gen, 0).ProcessText(ctx, "once upon a time")
		assert.False(t, fallback)
		assert.Equal(t, []string{"tale"}, res.Tags)
		gen.AssertExpectations(t)
	})

	t.Run("no generator configured", func(t *testing.T) {
		res, fallback := NewIngestor(nil, 0).ProcessFile(ctx, []byte("x"), MIMEPlainText)
		assert.True(t, fallback)
		assert.Equal(t, ProcessFailedContent, res.Content)
	})
}

func TestIngestor_Timeout(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Summarize", mock.Anything, "slow").
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return("", context.DeadlineExceeded)

	out := NewIngestor(gen, 20*time.Millisecond).Summarize(context.Background(), "slow")
	assert.Equal(t, SummarizeFailed, out)
}

func TestIngestor_SummarizeAndChat(t *testing.T) {
	ctx := context.Background()
	history := []ChatTurn{{Role: "user", Text: "hi"}, {Role: "model", Text: "hello"}}

	tests := []struct {
		name      string
		text      string
		err       error
		summary   string
		chatReply string
	}{
		{"answer", "done", nil, "done", "done"},
		{"empty answer", "", nil, NoResponse, NoResponse},
		{"error", "", errors.New("boom"), SummarizeFailed, ChatFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := new(mockGenerator)
			gen.On("Summarize", mock.Anything, "story").Return(tt.text, tt.err)
			gen.On("Chat", mock.Anything, history, "next?").Return(tt.text, tt.err)

			in := NewIngestor(gen, time.Second)
			assert.Equal(t, tt.summary, in.Summarize(ctx, "story"))
			assert.Equal(t, tt.chatReply, in.Chat(ctx, history, "next?"))
		})
	}
}

func TestAllowedMIMEType(t *testing.T) {
	t.Parallel()
	tests := []struct {
		contentType string
		want        bool
	}{
		{MIMEPDF, true},
		{"text/plain; charset=utf-8", true},
		{MIMEDoc, true},
		{MIMEDocx, true},
		{"audio/webm", true},
		{"audio/mpeg", true},
		{"image/png", false},
		{"application/zip", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AllowedMIMEType(tt.contentType), tt.contentType)
	}
}

func TestValidateInput(t *testing.T) {
	t.Parallel()
	assert.ErrorContains(t, ValidateUpload(nil, MIMEPDF), MsgMissingFile)
	assert.ErrorContains(t, ValidateUpload([]byte("x"), "image/png"), MsgInvalidFileType)
	assert.NoError(t, ValidateUpload([]byte("x"), "audio/ogg"))

	assert.ErrorContains(t, ValidateText("  \n\t "), MsgEmptyText)
	assert.NoError(t, ValidateText("words"))
	assert.ErrorContains(t, ValidateTranscript(""), MsgEmptyTranscript)
}

func TestSplitList(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"Poetry", "Identity"}, SplitList(" Poetry , ,Identity,"))
	assert.Equal(t, []string{}, SplitList(""))
	assert.Equal(t, "a, b", JoinList([]string{"a", "b"}))
}

func TestSubmission(t *testing.T) {
	t.Parallel()
	valid := Submission{
		Title:            "River",
		Category:         "Migration, Culture",
		ShortDescription: "A crossing",
		Content:          "We crossed at dawn.",
		Tags:             "river, dawn,",
		Status:           "published",
	}
	require.NoError(t, valid.Validate())

	story := valid.Story("")
	assert.Equal(t, "text-story.txt", story.FileName)
	assert.Equal(t, []string{"Migration", "Culture"}, []string(story.Categories))
	assert.Equal(t, []string{"river", "dawn"}, []string(story.Tags))
	assert.Equal(t, "recording-1.webm", valid.Story("recording-1.webm").FileName)

	missing := valid
	missing.ShortDescription = " "
	assert.ErrorContains(t, missing.Validate(), MsgMissingFields)

	badStatus := valid
	badStatus.Status = "draft"
	assert.ErrorContains(t, badStatus.Validate(), MsgInvalidStatus)
}
