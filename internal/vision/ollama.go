package vision

import (
	"context"
	"net/http"
	"strings"
)

const providerOllama = "ollama"

// OllamaClient calls a local Ollama server's /api/generate endpoint.
type OllamaClient struct {
	baseURL string
	model   string
	client  *http.Client
}

type ollamaRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images"`
	Stream bool     `json:"stream"`
	Format string   `json:"format,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// NewOllamaClient returns a client for the given model.
func NewOllamaClient(baseURL, model string, client *http.Client) *OllamaClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &OllamaClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  client,
	}
}

// Generate implements Classifier.
func (o *OllamaClient) Generate(ctx context.Context, req Request) (string, error) {
	body := ollamaRequest{
		Model:  o.model,
		Prompt: req.Prompt,
		Images: []string{req.Image.Base64()},
		Stream: false,
	}
	if req.JSON {
		body.Format = "json"
	}

	var resp ollamaResponse
	if err := postJSON(ctx, o.client, providerOllama, o.baseURL+"/api/generate", nil, body, &resp); err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Response) == "" {
		return "", &Error{Provider: providerOllama, Kind: Permanent, StatusCode: http.StatusOK, Err: errNoText}
	}
	return resp.Response, nil
}
