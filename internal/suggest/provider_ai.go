package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const defaultBaseURL = "https://api.openai.com/v1"

// suggestionSchema validates the model's output before it reaches callers.
// Anything that doesn't parse as a non-empty array of suggestion objects is
// treated as a provider failure.
const suggestionSchema = `{
	"type": "array",
	"minItems": 1,
	"items": {
		"type": "object",
		"required": ["type", "title", "description", "priority"],
		"properties": {
			"type": {"type": "string"},
			"title": {"type": "string", "minLength": 1},
			"description": {"type": "string", "minLength": 1},
			"priority": {"type": "string", "enum": ["high", "medium", "low"]},
			"action_text": {"type": "string"},
			"action_link": {"type": "string"}
		}
	}
}`

// AIProvider generates suggestions through an OpenAI-compatible
// chat-completions API. The base URL is configurable, so DeepSeek, Groq and
// similar services work too.
type AIProvider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	schema  *gojsonschema.Schema
}

// AIOption configures an AIProvider.
type AIOption func(*AIProvider)

// WithBaseURL sets the base URL for the OpenAI-compatible API.
func WithBaseURL(url string) AIOption {
	return func(p *AIProvider) {
		p.baseURL = url
	}
}

// WithModel sets the model used for suggestion generation.
func WithModel(model string) AIOption {
	return func(p *AIProvider) {
		p.model = model
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) AIOption {
	return func(p *AIProvider) {
		p.client = client
	}
}

// NewAIProvider creates an AI-backed suggestion provider.
func NewAIProvider(apiKey string, opts ...AIOption) *AIProvider {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(suggestionSchema))
	if err != nil {
		// The schema is a compile-time constant; failing to parse it is a bug.
		panic(fmt.Sprintf("suggest: invalid suggestion schema: %v", err))
	}
	p := &AIProvider{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		model:   "gpt-4o-mini",
		client:  http.DefaultClient,
		schema:  schema,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (p *AIProvider) Suggest(ctx context.Context, sc StudyContext) ([]Suggestion, error) {
	body, err := json.Marshal(chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(sc)},
		},
		MaxTokens:   1024,
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ai api error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var chat chatResponse
	if err := json.Unmarshal(respBody, &chat); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	return p.parseSuggestions(chat.Choices[0].Message.Content)
}

// parseSuggestions extracts the JSON array from the model output, validates it
// against the suggestion schema, and decodes it.
func (p *AIProvider) parseSuggestions(content string) ([]Suggestion, error) {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("no JSON array in model output")
	}
	raw := content[start : end+1]

	result, err := p.schema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("validate suggestions: %w", err)
	}
	if !result.Valid() {
		return nil, fmt.Errorf("suggestions failed schema validation: %v", result.Errors())
	}

	var suggestions []Suggestion
	if err := json.Unmarshal([]byte(raw), &suggestions); err != nil {
		return nil, fmt.Errorf("unmarshal suggestions: %w", err)
	}
	return suggestions, nil
}

const systemPrompt = `You are a study coach for an online learning platform.
Given a student's progress summary, respond with a JSON array of 3 to 5 study
suggestions. Each element must be an object with keys: type (chapter, quiz,
practice, review or streak), title, description, priority (high, medium or
low), action_text and action_link. Respond with the JSON array only.`

func buildPrompt(sc StudyContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Chapters completed: %d of %d (currently on chapter %d)\n",
		sc.CompletedChapters, sc.TotalChapters, sc.CurrentChapter)
	fmt.Fprintf(&b, "Average quiz score: %.0f%%\n", sc.AverageQuizScore)
	fmt.Fprintf(&b, "Current day streak: %d\n", sc.Streak)
	if len(sc.WeakSkills) > 0 {
		fmt.Fprintf(&b, "Weakest skills: %s\n", strings.Join(sc.WeakSkills, ", "))
	}
	if len(sc.RecentActivity) > 0 {
		fmt.Fprintf(&b, "Recent activity: %s\n", strings.Join(sc.RecentActivity, "; "))
	}
	return b.String()
}
