package scanning

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Ollama implements the Extractor interface against a local Ollama server.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllama creates a new Ollama Extractor instance. Vision models that
// transcribe well: llava:1.6, qwen2-vl:7b, bakllava.
func NewOllama(baseURL string, modelName string) (*Ollama, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if modelName == "" {
		modelName = "llava"
	}

	return &Ollama{
		baseURL: baseURL,
		model:   modelName,
		client: &http.Client{
			// Vision models on local hardware can be slow.
			Timeout: 120 * time.Second,
		},
	}, nil
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Images   []string        `json:"images,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

// ExtractText transcribes all visible text in an image via the Ollama
// chat API.
func (o *Ollama) ExtractText(ctx context.Context, imageData []byte, contentType string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
	defer cancel()

	pngData, err := prepareImageData(imageData, contentType)
	if err != nil {
		return "", err
	}

	reqBody := ollamaChatRequest{
		Model:  o.model,
		Stream: false,
		Messages: []ollamaMessage{
			{
				Role:    "system",
				Content: "You are an OCR engine. You transcribe text in images exactly, without interpretation.",
			},
			{
				Role:    "user",
				Content: extractionPrompt,
			},
		},
		Images: []string{base64.StdEncoding.EncodeToString(pngData)},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	var chatResp ollamaChatResponse
	err = withRateLimitRetry(callCtx, func() error {
		req, reqErr := http.NewRequestWithContext(callCtx, "POST", fmt.Sprintf("%s/api/chat", o.baseURL), bytes.NewBuffer(jsonData))
		if reqErr != nil {
			return fmt.Errorf("creating request: %w", reqErr)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, doErr := o.client.Do(req)
		if doErr != nil {
			return fmt.Errorf("calling ollama API: %w", doErr)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, string(body))
		}
		return json.NewDecoder(resp.Body).Decode(&chatResp)
	})
	if err != nil {
		if isRateLimited(err) {
			return "", fmt.Errorf("%w: rate limit retries exhausted: %v", ErrExtractionEmpty, err)
		}
		return "", err
	}

	text := cleanTranscription(chatResp.Message.Content)
	if text == "" {
		return "", ErrExtractionEmpty
	}
	return text, nil
}

// Close is a no-op; the HTTP client has no resources to release.
func (o *Ollama) Close() error {
	return nil
}
