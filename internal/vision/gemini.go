package vision

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const providerGemini = "gemini"

// GeminiClient calls the Gemini generateContent endpoint.
type GeminiClient struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string `json:"responseMimeType,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content *geminiContent `json:"content"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// NewGeminiClient returns a client for the given model.
func NewGeminiClient(baseURL, model, apiKey string, client *http.Client) *GeminiClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &GeminiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		apiKey:  apiKey,
		client:  client,
	}
}

// Generate implements Classifier.
func (g *GeminiClient) Generate(ctx context.Context, req Request) (string, error) {
	body := geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{
				{Text: req.Prompt},
				{InlineData: &geminiInlineData{MimeType: req.Image.MIMEType, Data: req.Image.Base64()}},
			},
		}},
	}
	if req.JSON {
		body.GenerationConfig = &geminiGenerationConfig{ResponseMimeType: "application/json"}
	}

	// The key stays out of the URL: transport errors echo the full URL.
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, url.PathEscape(g.model))
	header := http.Header{}
	header.Set("x-goog-api-key", g.apiKey)

	var resp geminiResponse
	if err := postJSON(ctx, g.client, providerGemini, endpoint, header, body, &resp); err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		err := errNoText
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			err = fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
		}
		return "", &Error{Provider: providerGemini, Kind: Permanent, StatusCode: http.StatusOK, Err: err}
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}
