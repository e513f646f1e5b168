package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/siteforge/siteforge/internal/domain/entities"
)

// structureSchema is the fixed contract sent alongside every prompt so the
// collaborator shapes its output for materialization.
const structureSchema = `{
  "name": "string",
  "title": "string",
  "description": "string",
  "layouts": [{"filename": "string", "content": "string"}],
  "includes": [{"filename": "string", "content": "string"}],
  "posts": [{"filename": "string", "content": "string"}],
  "pages": [{"filename": "string", "content": "string"}],
  "assets": {"path": "content"}
}`

// HTTPClient talks to the generative content collaborator over HTTP. The
// collaborator's internal repair logic is opaque here; this client only
// retries whole attempts, with an explicit bound, until it gets a document
// that decodes or gives up with a terminal error.
type HTTPClient struct {
	endpoint string
	apiKey   string
	model    string
	retries  int
	client   *http.Client
	logger   *slog.Logger
}

// generateRequest is the wire request for one generation attempt
type generateRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model,omitempty"`
	Schema string `json:"schema"`
}

// NewHTTPClient creates a collaborator client from configuration
func NewHTTPClient(cfg entities.GeneratorConfig, logger *slog.Logger) *HTTPClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPClient{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		retries:  cfg.Retries(),
		client:   &http.Client{Timeout: cfg.Timeout()},
		logger:   logger.With("adapter", "generator"),
	}
}

// Generate requests a structure document for the prompt, retrying failed
// attempts with backoff up to the configured bound
func (c *HTTPClient) Generate(ctx context.Context, prompt string) (*entities.StructureDocument, error) {
	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		doc, err := c.attempt(ctx, prompt)
		if err == nil {
			return doc, nil
		}
		lastErr = err
		c.logger.Warn("generation attempt failed",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", c.retries),
			slog.String("error", err.Error()),
		)

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt < c.retries {
			backoff := time.Duration(attempt) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, fmt.Errorf("generation failed after %d attempts: %w", c.retries, lastErr)
}

// attempt performs a single generation round trip
func (c *HTTPClient) attempt(ctx context.Context, prompt string) (*entities.StructureDocument, error) {
	body, err := json.Marshal(generateRequest{
		Prompt: prompt,
		Model:  c.model,
		Schema: structureSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling generator: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("generator returned status %d: %s", resp.StatusCode, detail)
	}

	var doc entities.StructureDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding structure document: %w", err)
	}
	if err := doc.Validate(); err != nil {
		// Document name is overwritten by the caller; only reject structural
		// problems that materialization cannot repair.
		if doc.Name == "" {
			doc.Name = "generated"
			if verr := doc.Validate(); verr == nil {
				return &doc, nil
			}
		}
		return nil, fmt.Errorf("invalid structure document: %w", err)
	}
	return &doc, nil
}
