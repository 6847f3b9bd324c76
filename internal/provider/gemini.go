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

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Gemini generates answers through the Google Generative Language API.
type Gemini struct {
	tag         resolve.Source
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents          []geminiContent  `json:"contents"`
	SystemInstruction *geminiContent   `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenConfig `json:"generationConfig,omitempty"`
}

type geminiGenConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// NewGemini creates a Gemini-backed generation tier.
func NewGemini(tag resolve.Source, apiKey, baseURL, model string, temperature float64, maxTokens int, timeout time.Duration) *Gemini {
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	if model == "" {
		model = "gemini-1.5-pro-002"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Gemini{
		tag:         tag,
		apiKey:      apiKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

func (g *Gemini) Tag() resolve.Source { return g.tag }

// Generate asks the model for a single form-field answer.
func (g *Gemini) Generate(ctx context.Context, question, userContext string) (string, error) {
	userPrompt := fmt.Sprintf("Please provide a brief, professional response to this form question: %s", question)
	if userContext != "" {
		userPrompt += fmt.Sprintf("\n\nContext about the user:\n%s", userContext)
	}

	requestBody := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: userPrompt}}},
		},
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: formAnswerSystemPrompt}}},
		GenerationConfig:  &geminiGenConfig{Temperature: g.temperature, MaxOutputTokens: g.maxTokens},
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", genErr(g.tag, "failed to marshal request", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", genErr(g.tag, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", genErr(g.tag, "failed to send request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", genErr(g.tag, fmt.Sprintf("API returned status: %d", resp.StatusCode), nil)
	}

	var geminiResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return "", genErr(g.tag, "failed to parse response", err)
	}
	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", genErr(g.tag, "no candidates in response", nil)
	}

	return strings.TrimSpace(geminiResp.Candidates[0].Content.Parts[0].Text), nil
}
