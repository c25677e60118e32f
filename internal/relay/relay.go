package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/screenq/screenq/internal/logger"
)

const requestTimeout = 30 * time.Second

type Config struct {
	APIKey  string
	BaseURL string
	Model   string

	// MultimodalModels is the allow-list of models accepting image_url
	// content parts.
	MultimodalModels []string
}

// Client relays conversations to an OpenRouter-style completion endpoint.
// One attempt per call, bounded by a fixed timeout; every failure is
// reported as an error the caller can treat as recoverable.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	multimodal map[string]struct{}
	httpClient *http.Client
}

func New(cfg Config) *Client {
	multimodal := make(map[string]struct{}, len(cfg.MultimodalModels))
	for _, m := range cfg.MultimodalModels {
		multimodal[m] = struct{}{}
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		multimodal: multimodal,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

func (c *Client) Model() string {
	return c.model
}

// Complete sends the conversation and returns the assistant's reply text.
// When imageURL is set, the first message carries the screenshot: as a
// structured image part for allow-listed models, otherwise as a bracketed
// textual note so the model can still reference it.
func (c *Client) Complete(ctx context.Context, messages []Message, imageURL string) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("empty conversation")
	}

	msgs := make([]Message, len(messages))
	copy(msgs, messages)

	if imageURL != "" {
		msgs[0] = c.attachImage(msgs[0], imageURL)
	}

	reqBody := completionRequest{
		Model:    c.model,
		Messages: msgs,
		Stream:   false,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	logger.Debug("sending completion request", "model", c.model, "messages", len(msgs))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("api error (status %d): %s", resp.StatusCode, string(body))
	}

	var cr completionResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return "", fmt.Errorf("malformed response: %w", err)
	}

	if cr.Error != nil {
		return "", fmt.Errorf("api error: %s", cr.Error.Message)
	}

	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return cr.Choices[0].Message.Content, nil
}

// attachImage rewrites the first message to carry the screenshot URL.
// Structured content is left untouched; only plain string content is
// rewritten.
func (c *Client) attachImage(msg Message, imageURL string) Message {
	text, ok := msg.Content.(string)
	if !ok {
		return msg
	}

	if _, ok := c.multimodal[c.model]; ok {
		msg.Content = []ContentPart{
			{Type: "text", Text: text},
			{Type: "image_url", ImageURL: &ImageURL{URL: imageURL}},
		}
		logger.Debug("using multimodal content", "model", c.model)
	} else {
		msg.Content = text + "\n\n[Screenshot available at: " + imageURL + "]"
		logger.Debug("inlining image url as text", "model", c.model)
	}

	return msg
}
