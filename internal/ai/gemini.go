// Package ai implements the ingestion model port on Google Gemini.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/arvi1709/AI-library/internal/ingest"

	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

const extractionPrompt = "First, extract the full text content from this file. If it's audio, transcribe it. " +
	"If it's a document, extract the text. Second, based on the extracted content, generate a concise summary " +
	"of the content. Third, generate 5-7 relevant keywords or tags that describe the main themes. Fourth, " +
	"suggest 1-3 relevant categories for the story (e.g., 'Technology', 'Health', 'Science'). Return the result " +
	"as a JSON object with four keys: 'content' for the extracted text, 'summary' for the generated summary, " +
	"'tags' for the array of keywords, and 'categories' for the array of categories."

const summaryPromptFormat = "Please provide a concise, easy-to-read summary of the following text:\n\n---\n\n%s"

const extractionTemperature float32 = 0.2

var (
	ErrMissingAPIKey = errors.New("GEMINI_API_KEY is required")
	ErrEmptyResponse = errors.New("empty model response")
)

// Gemini is an ingest.Generator backed by the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

var _ ingest.Generator = (*Gemini)(nil)

// NewGemini creates a client for apiKey. An empty model selects DefaultModel.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}
	return &Gemini{client: client, model: model}, nil
}

// ProcessFile sends the file inline with the extraction prompt and decodes
// the JSON answer.
func (g *Gemini) ProcessFile(ctx context.Context, data []byte, mimeType string) (ingest.Result, error) {
	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{Data: data, MIMEType: mimeType}},
			{Text: extractionPrompt},
		},
	}}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, extractionConfig())
	if err != nil {
		return ingest.Result{}, fmt.Errorf("generate content: %w", err)
	}
	text := responseText(resp)
	if text == "" {
		return ingest.Result{}, ErrEmptyResponse
	}
	return decodeResult(text)
}

// Summarize asks for a short summary of text. An empty answer is returned
// as an empty string.
func (g *Gemini) Summarize(ctx context.Context, text string) (string, error) {
	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: fmt.Sprintf(summaryPromptFormat, text)}},
	}}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate summary: %w", err)
	}
	return responseText(resp), nil
}

// Chat replays history and asks for the next model turn.
func (g *Gemini) Chat(ctx context.Context, history []ingest.ChatTurn, message string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, chatContents(history, message), nil)
	if err != nil {
		return "", fmt.Errorf("generate chat reply: %w", err)
	}
	return responseText(resp), nil
}

func extractionConfig() *genai.GenerateContentConfig {
	temperature := extractionTemperature
	return &genai.GenerateContentConfig{
		Temperature:      &temperature,
		ResponseMIMEType: "application/json",
		ResponseSchema:   resultSchema(),
	}
}

func resultSchema() *genai.Schema {
	list := &genai.Schema{Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"content":    {Type: genai.TypeString},
			"summary":    {Type: genai.TypeString},
			"tags":       list,
			"categories": list,
		},
		Required: []string{"content", "summary", "tags", "categories"},
	}
}

func chatContents(history []ingest.ChatTurn, message string) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, turn := range history {
		role := "user"
		if turn.Role == "model" || turn.Role == "assistant" {
			role = "model"
		}
		contents = append(contents, &genai.Content{Role: role, Parts: []*genai.Part{{Text: turn.Text}}})
	}
	return append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: message}}})
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

func decodeResult(text string) (ingest.Result, error) {
	var res ingest.Result
	if err := json.Unmarshal([]byte(cleanJSON(text)), &res); err != nil {
		return ingest.Result{}, fmt.Errorf("decode model result: %w", err)
	}
	if res.Tags == nil {
		res.Tags = []string{}
	}
	if res.Categories == nil {
		res.Categories = []string{}
	}
	return res, nil
}

func cleanJSON(input string) string {
	input = strings.TrimSpace(input)
	input = strings.TrimPrefix(input, "```json")
	input = strings.TrimPrefix(input, "```")
	input = strings.TrimSuffix(input, "```")
	return strings.TrimSpace(input)
}
