// Package vision talks to the generative vision models that classify plant
// photos.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/example/agrisense/internal/config"
	"github.com/example/agrisense/internal/imageprocessor"
	"github.com/example/agrisense/internal/retry"
)

// maxResponseBytes bounds how much of a provider reply is read.
const maxResponseBytes = 4 << 20

// Request is a single prompt with its image.
type Request struct {
	Prompt string
	Image  imageprocessor.Image
	// JSON asks the provider to constrain its reply to a JSON document.
	JSON bool
}

// Classifier sends a prompt plus image to a vision model and returns the
// model's text reply.
type Classifier interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// New builds the classifier selected by the configuration, wrapped with
// retries on transient failures.
func New(cfg config.VisionConfig, logger *zap.Logger) (Classifier, error) {
	httpClient := &http.Client{Timeout: cfg.Timeout}

	var c Classifier
	switch cfg.Provider {
	case config.ProviderGemini:
		c = NewGeminiClient(cfg.GeminiBaseURL, cfg.GeminiModel, cfg.GeminiAPIKey, httpClient)
	case config.ProviderOllama:
		c = NewOllamaClient(cfg.OllamaBaseURL, cfg.OllamaModel, httpClient)
	default:
		return nil, fmt.Errorf("unknown vision provider %q", cfg.Provider)
	}
	return WithRetry(c, cfg.Retries+1, logger), nil
}

func postJSON(ctx context.Context, client *http.Client, provider, url string, header http.Header, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &Error{Provider: provider, Kind: Permanent, Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return &Error{Provider: provider, Kind: Permanent, Err: err}
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return &Error{Provider: provider, Kind: Transient, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &Error{Provider: provider, Kind: Transient, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return &Error{
			Provider:   provider,
			Kind:       kindForStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("request failed with status %d: %s", resp.StatusCode, truncate(raw, 256)),
		}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Provider: provider, Kind: Permanent, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func kindForStatus(code int) Kind {
	if code == http.StatusTooManyRequests || code >= 500 {
		return Transient
	}
	return Permanent
}

func truncate(b []byte, n int) string {
	b = bytes.TrimSpace(b)
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}

type retryingClassifier struct {
	next   Classifier
	policy retry.Policy
	logger *zap.Logger
}

// WithRetry retries transient failures of c with exponential backoff, making
// at most attempts calls.
func WithRetry(c Classifier, attempts int, logger *zap.Logger) Classifier {
	return &retryingClassifier{
		next:   c,
		policy: retry.Policy{Attempts: attempts, InitialBackoff: 200 * time.Millisecond, MaxBackoff: 2 * time.Second},
		logger: logger.Named("vision"),
	}
}

func (r *retryingClassifier) Generate(ctx context.Context, req Request) (string, error) {
	var text string
	calls, err := r.policy.Do(ctx, IsTransient, func(err error, attempt int) {
		r.logger.Warn("transient vision error", zap.Error(err), zap.Int("attempt", attempt))
	}, func() error {
		var err error
		text, err = r.next.Generate(ctx, req)
		return err
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return "", &Error{Kind: Transient, Err: ctxErr}
		}
		return "", err
	}
	if calls > 1 {
		r.logger.Info("vision call succeeded after retry", zap.Int("attempt", calls))
	}
	return text, nil
}
