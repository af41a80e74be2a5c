package scanning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini implements the Extractor interface using Google Gemini vision.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a new Gemini Extractor instance.
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  client.GenerativeModel(modelName),
	}, nil
}

// ExtractText transcribes all visible text in an image. Throttle responses
// are retried with bounded backoff; retry exhaustion and genuinely blank
// images both surface as ErrExtractionEmpty.
func (g *Gemini) ExtractText(ctx context.Context, imageData []byte, contentType string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, 90*time.Second)
	defer cancel()

	pngData, err := prepareImageData(imageData, contentType)
	if err != nil {
		return "", err
	}

	// genai.ImageData takes the format suffix, not the full MIME type.
	// prepareImageData always yields PNG.
	parts := []genai.Part{
		genai.ImageData("png", pngData),
		genai.Text(extractionPrompt),
	}

	var resp *genai.GenerateContentResponse
	err = withRateLimitRetry(callCtx, func() error {
		var genErr error
		resp, genErr = g.model.GenerateContent(callCtx, parts...)
		return genErr
	})
	if err != nil {
		if isRateLimited(err) {
			return "", fmt.Errorf("%w: rate limit retries exhausted: %v", ErrExtractionEmpty, err)
		}
		return "", fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ErrExtractionEmpty
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	text := cleanTranscription(responseText.String())
	if text == "" {
		return "", ErrExtractionEmpty
	}
	return text, nil
}

// Close closes the Gemini client.
func (g *Gemini) Close() error {
	return g.client.Close()
}
