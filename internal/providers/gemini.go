package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/outstaffer/content-finder/internal/metrics"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com"

// LLMError reports a failed or unusable model response
type LLMError struct {
	Status  int
	Message string
}

func (e *LLMError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("gemini API error (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("gemini API error: %s", e.Message)
}

// Schema is the OpenAPI subset accepted as a response schema
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
}

// Schema type names
const (
	TypeObject  = "OBJECT"
	TypeArray   = "ARRAY"
	TypeString  = "STRING"
	TypeNumber  = "NUMBER"
	TypeBoolean = "BOOLEAN"
)

// GenerateRequest describes one model call
type GenerateRequest struct {
	Model           string
	System          string
	Prompt          string
	Temperature     float64
	MaxOutputTokens int
	Schema          *Schema
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
	ResponseSchema   *Schema `json:"responseSchema,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Gemini is the LLM client for the generateContent REST API
type Gemini struct {
	apiKey string
	model  string
	opts   options
}

var (
	_ Provider = (*Gemini)(nil)
	_ LLM      = (*Gemini)(nil)
)

// NewGemini creates a Gemini client using model unless a request names another
func NewGemini(apiKey, model string, opts ...Option) *Gemini {
	return &Gemini{
		apiKey: apiKey,
		model:  model,
		opts:   newOptions(geminiBaseURL, 120*time.Second, opts),
	}
}

func (g *Gemini) GetName() string {
	return "gemini"
}

func (g *Gemini) IsEnabled() bool {
	return g.apiKey != ""
}

// DefaultModel returns the model used when a request names none
func (g *Gemini) DefaultModel() string {
	return g.model
}

// GenerateText returns the first candidate's text
func (g *Gemini) GenerateText(ctx context.Context, req GenerateRequest) (string, error) {
	return g.generate(ctx, req, "text/plain")
}

// GenerateJSON requests a JSON response, constrained by req.Schema when set
func (g *Gemini) GenerateJSON(ctx context.Context, req GenerateRequest) (json.RawMessage, error) {
	text, err := g.generate(ctx, req, "application/json")
	if err != nil {
		return nil, err
	}

	cleaned := StripCodeFence(text)
	if !json.Valid([]byte(cleaned)) {
		return nil, &LLMError{Message: fmt.Sprintf("model returned non-JSON output: %s", truncate(cleaned, 200))}
	}
	return json.RawMessage(cleaned), nil
}

func (g *Gemini) generate(ctx context.Context, req GenerateRequest, mimeType string) (text string, err error) {
	if !g.IsEnabled() {
		return "", fmt.Errorf("gemini: %w", ErrNotConfigured)
	}

	model := req.Model
	if model == "" {
		model = g.model
	}

	payload := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:      req.Temperature,
			MaxOutputTokens:  req.MaxOutputTokens,
			ResponseMimeType: mimeType,
			ResponseSchema:   req.Schema,
		},
	}
	if req.System != "" {
		payload.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}

	start := time.Now()
	defer func() { metrics.ObserveProvider(g.GetName(), "generate", start, err) }()

	var body geminiResponse
	var apiErr geminiErrorResponse
	resp, err := g.opts.client().R().
		SetContext(ctx).
		SetHeader("x-goog-api-key", g.apiKey).
		SetPathParam("model", model).
		SetBody(payload).
		SetResult(&body).
		SetError(&apiErr).
		Post("/v1beta/models/{model}:generateContent")
	if err != nil {
		return "", &LLMError{Message: fmt.Sprintf("request failed: %v", err)}
	}
	if resp.IsError() {
		msg := apiErr.Error.Message
		if msg == "" {
			msg = truncate(string(resp.Body()), 300)
		}
		return "", &LLMError{Status: resp.StatusCode(), Message: msg}
	}

	if body.PromptFeedback.BlockReason != "" {
		return "", &LLMError{Message: fmt.Sprintf("prompt blocked: %s", body.PromptFeedback.BlockReason)}
	}
	if len(body.Candidates) == 0 || len(body.Candidates[0].Content.Parts) == 0 {
		return "", &LLMError{Message: "no content generated"}
	}

	var sb strings.Builder
	for _, part := range body.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	text = strings.TrimSpace(sb.String())
	if text == "" {
		return "", &LLMError{Message: "no content generated"}
	}

	logrus.WithFields(logrus.Fields{
		"operation":     "gemini_generate",
		"model":         model,
		"finish_reason": body.Candidates[0].FinishReason,
		"duration_ms":   time.Since(start).Milliseconds(),
	}).Debug("Gemini response received")

	return text, nil
}

// StripCodeFence removes a surrounding markdown code fence
func StripCodeFence(text string) string {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	if nl := strings.Index(t, "\n"); nl >= 0 {
		t = t[nl+1:]
	} else {
		t = strings.TrimPrefix(t, "json")
	}
	t = strings.TrimSuffix(strings.TrimSpace(t), "```")
	return strings.TrimSpace(t)
}
