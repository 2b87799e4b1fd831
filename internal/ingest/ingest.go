// Package ingest turns uploaded files, typed text and recordings into story
// drafts through a generative model, and tracks each draft's progress.
package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/arvi1709/AI-library/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// Messages shown in place of a model answer when the model call fails.
const (
	ProcessFailedContent = "Sorry, I couldn't process the file. Please try again."
	ProcessFailedSummary = "Sorry, a summary could not be generated for this file."
	SummarizeFailed      = "Sorry, I couldn't generate a summary. Please try again later."
	ChatFailed           = "I'm sorry, but I encountered an error. Please try again."
	NoResponse           = "No response received from Gemini API."
)

// Result is the structured answer for one piece of content. Tags and
// Categories are never nil.
type Result struct {
	Content    string   `json:"content"`
	Summary    string   `json:"summary"`
	Tags       []string `json:"tags"`
	Categories []string `json:"categories"`
}

// ChatTurn is one message of a chat history. Role is "user" or "model".
type ChatTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Generator is the model port. Implementations may fail; Ingestor never
// lets those failures reach callers.
type Generator interface {
	ProcessFile(ctx context.Context, data []byte, mimeType string) (Result, error)
	Summarize(ctx context.Context, text string) (string, error)
	Chat(ctx context.Context, history []ChatTurn, message string) (string, error)
}

// FallbackResult is returned when a file could not be processed.
func FallbackResult() Result {
	return Result{
		Content:    ProcessFailedContent,
		Summary:    ProcessFailedSummary,
		Tags:       []string{},
		Categories: []string{},
	}
}

func (r Result) normalized() Result {
	if r.Tags == nil {
		r.Tags = []string{}
	}
	if r.Categories == nil {
		r.Categories = []string{}
	}
	return r
}

// Ingestor wraps a Generator with timeouts, metrics and fallbacks.
type Ingestor struct {
	gen     Generator
	timeout time.Duration
}

func NewIngestor(gen Generator, timeout time.Duration) *Ingestor {
	return &Ingestor{gen: gen, timeout: timeout}
}

func (i *Ingestor) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if i.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, i.timeout)
}

// ProcessFile extracts, summarizes and tags a file. The second return value
// reports whether the fallback was used.
func (i *Ingestor) ProcessFile(ctx context.Context, data []byte, mimeType string) (Result, bool) {
	span, ctx := observability.StartClientSpan(ctx, "ingest.process_file",
		attribute.String("mime_type", mimeType), attribute.Int("bytes", len(data)))
	defer span.End()

	start := time.Now()
	callCtx, cancel := i.callContext(ctx)
	defer cancel()

	if i.gen == nil {
		observability.ObserveIngestion("process_file", true, start)
		return FallbackResult(), true
	}
	res, err := i.gen.ProcessFile(callCtx, data, mimeType)
	if err != nil {
		span.SetError(err)
		observability.ObserveIngestion("process_file", true, start)
		slog.WarnContext(ctx, "file processing failed, using fallback", "mime_type", mimeType, "error", err)
		return FallbackResult(), true
	}
	observability.ObserveIngestion("process_file", false, start)
	return res.normalized(), false
}

// ProcessText runs typed text through the same path as an uploaded text file.
func (i *Ingestor) ProcessText(ctx context.Context, text string) (Result, bool) {
	return i.ProcessFile(ctx, []byte(text), MIMEPlainText)
}

// Summarize returns a summary of text or the summary fallback message.
func (i *Ingestor) Summarize(ctx context.Context, text string) string {
	span, ctx := observability.StartClientSpan(ctx, "ingest.summarize")
	defer span.End()

	start := time.Now()
	callCtx, cancel := i.callContext(ctx)
	defer cancel()

	if i.gen == nil {
		observability.ObserveIngestion("summarize", true, start)
		return SummarizeFailed
	}
	out, err := i.gen.Summarize(callCtx, text)
	if err != nil {
		span.SetError(err)
		observability.ObserveIngestion("summarize", true, start)
		slog.WarnContext(ctx, "summarize failed, using fallback", "error", err)
		return SummarizeFailed
	}
	observability.ObserveIngestion("summarize", false, start)
	if out == "" {
		return NoResponse
	}
	return out
}

// Chat answers message given the prior history, or returns the chat fallback.
func (i *Ingestor) Chat(ctx context.Context, history []ChatTurn, message string) string {
	span, ctx := observability.StartClientSpan(ctx, "ingest.chat", attribute.Int("history", len(history)))
	defer span.End()

	start := time.Now()
	callCtx, cancel := i.callContext(ctx)
	defer cancel()

	if i.gen == nil {
		observability.ObserveIngestion("chat", true, start)
		return ChatFailed
	}
	out, err := i.gen.Chat(callCtx, history, message)
	if err != nil {
		span.SetError(err)
		observability.ObserveIngestion("chat", true, start)
		slog.WarnContext(ctx, "chat failed, using fallback", "error", err)
		return ChatFailed
	}
	observability.ObserveIngestion("chat", false, start)
	if out == "" {
		return NoResponse
	}
	return out
}
