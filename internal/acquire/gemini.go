package acquire

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// transcribePrompt asks for a verbatim, line-oriented transcription. The
// recognizer must not interpret the receipt; field recovery is the
// extractor's job.
const transcribePrompt = `Transcribe every line of text visible in this image, exactly as printed.

Rules:
- Output one transcribed line per line of text in the image, top to bottom.
- Preserve spacing between an item description and its trailing price.
- If a word is ambiguous, output your single best reading. Do not offer alternatives.
- Do not add commentary, labels, or markdown. Output only the transcription.`

const recognizeTimeout = 30 * time.Second

// GeminiRecognizer performs OCR through the Gemini vision API.
type GeminiRecognizer struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiRecognizer creates a Gemini-backed recognizer.
func NewGeminiRecognizer(ctx context.Context, apiKey, modelName string) (*GeminiRecognizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	// Transcription wants determinism, not creativity.
	model.SetTemperature(0)

	return &GeminiRecognizer{
		client: client,
		model:  model,
	}, nil
}

// Recognize transcribes the PNG image and returns one string per text line.
func (g *GeminiRecognizer) Recognize(ctx context.Context, pngData []byte) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, recognizeTimeout)
	defer cancel()

	resp, err := g.model.GenerateContent(ctx,
		genai.ImageData("png", pngData),
		genai.Text(transcribePrompt),
	)
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no response from gemini")
	}

	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			out.WriteString(string(text))
		}
	}

	text := strings.TrimSpace(out.String())
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines, nil
}

// Close releases the underlying API client.
func (g *GeminiRecognizer) Close() error {
	return g.client.Close()
}
