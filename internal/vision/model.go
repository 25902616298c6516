package vision

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Payload is one receipt rendered for the model: raw bytes plus MIME type.
// PDFs are passed through as application/pdf; the model renders the first
// page itself, so no local rasterizer is needed.
type Payload struct {
	MIMEType string
	Data     []byte
}

// Model is the vision-extraction collaborator. It receives an instruction
// and one receipt payload and returns the model's raw text response.
// This interface enables mocking and testing of the classification path.
type Model interface {
	Extract(ctx context.Context, instruction string, payload Payload) (string, error)
}

// Gemini is the concrete Model backed by the Gemini API.
type Gemini struct {
	// APIKey may be empty, in which case the client falls back to its own
	// environment-based credential discovery.
	APIKey string
	// ModelName is the Gemini model used for extraction.
	ModelName string
}

// NewGemini creates a Gemini model handle.
func NewGemini(apiKey, modelName string) *Gemini {
	return &Gemini{APIKey: apiKey, ModelName: modelName}
}

// Extract sends the instruction and receipt to Gemini and returns the raw
// text of the response.
func (g *Gemini) Extract(ctx context.Context, instruction string, payload Payload) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      g.APIKey,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return "", fmt.Errorf("extract: create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: instruction},
				{
					InlineData: &genai.Blob{
						MIMEType: payload.MIMEType,
						Data:     payload.Data,
					},
				},
			},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, g.ModelName, contents, nil)
	if err != nil {
		return "", fmt.Errorf("extract: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return "", fmt.Errorf("extract: empty response from model")
	}
	return rawText, nil
}
