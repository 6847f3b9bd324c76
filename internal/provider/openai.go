// Package provider contains the answer-generation backends: thin adapters
// over external LLM APIs, a configurable static reply, and a Redis-backed
// caching decorator. Every adapter satisfies resolve.Backend.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/formpilot/formpilot/internal/resolve"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

const formAnswerSystemPrompt = `You are an assistant that answers form questions on behalf of a user. Provide a brief, professional response suitable for a form field. Respond with the answer only, no preamble or explanation.`

// OpenAI generates answers through the OpenAI chat completions API.
type OpenAI struct {
	tag         resolve.Source
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewOpenAI creates an OpenAI-backed generation tier.
func NewOpenAI(tag resolve.Source, apiKey, baseURL, model string, temperature float64, maxTokens int, timeout time.Duration) *OpenAI {
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	if model == "" {
		model = "gpt-3.5-turbo"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenAI{
		tag:         tag,
		apiKey:      apiKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

func (o *OpenAI) Tag() resolve.Source { return o.tag }

// Generate asks the chat model for a single form-field answer.
func (o *OpenAI) Generate(ctx context.Context, question, userContext string) (string, error) {
	userPrompt := fmt.Sprintf("Please provide a brief, professional response to this form question: %s", question)
	if userContext != "" {
		userPrompt += fmt.Sprintf("\n\nContext about the user:\n%s", userContext)
	}

	requestBody := chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: formAnswerSystemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", genErr(o.tag, "failed to marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", genErr(o.tag, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", genErr(o.tag, "failed to send request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", genErr(o.tag, fmt.Sprintf("API returned status: %d", resp.StatusCode), nil)
	}

	var openaiResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&openaiResp); err != nil {
		return "", genErr(o.tag, "failed to parse response", err)
	}
	if len(openaiResp.Choices) == 0 {
		return "", genErr(o.tag, "no choices in response", nil)
	}

	return strings.TrimSpace(openaiResp.Choices[0].Message.Content), nil
}
