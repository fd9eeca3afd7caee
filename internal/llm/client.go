// Package llm provides a provider-agnostic interface for using vision LLMs to
// find the focal point of an image: the spot a crop should stay centred on.
package llm

import (
	"context"
	"fmt"
)

// FocalPointResult is the point of interest an LLM picked, in percent of the
// image width and height (0 = left/top, 100 = right/bottom).
type FocalPointResult struct {
	X          float64
	Y          float64
	Subject    string // What the model centred on, e.g. "face of the person on the left"
	Confidence string // "high", "medium", "low"
}

// Client is the interface for LLM providers that can locate focal points.
// Both Anthropic (Claude) and OpenAI implement this interface, allowing the
// detector to fall back from one to the other.
//
// Go interface design tip: keep interfaces small. The bigger the interface,
// the harder it is to implement and mock.
type Client interface {
	FindFocalPoint(ctx context.Context, image []byte, mediaType string) (*FocalPointResult, error)
	ProviderName() string
	ModelName() string
}

// submitToolName is the tool both providers are forced to call, so the
// answer always comes back as structured arguments.
const submitToolName = "submit_focal_point"

const submitToolDescription = "Submit the focal point of the image as percentages of its width and height."

// submitFocalPoint is the schema of the tool arguments.
type submitFocalPoint struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Subject    string  `json:"subject"`
	Confidence string  `json:"confidence"`
}

// submitProperties is the JSON schema of submitFocalPoint, shared by both
// providers.
func submitProperties() map[string]interface{} {
	return map[string]interface{}{
		"x": map[string]interface{}{
			"type":        "number",
			"minimum":     0,
			"maximum":     100,
			"description": "Horizontal position of the focal point, 0 is the left edge and 100 the right edge.",
		},
		"y": map[string]interface{}{
			"type":        "number",
			"minimum":     0,
			"maximum":     100,
			"description": "Vertical position of the focal point, 0 is the top edge and 100 the bottom edge.",
		},
		"subject": map[string]interface{}{
			"type":        "string",
			"description": "Short description of what is at the focal point.",
		},
		"confidence": map[string]interface{}{
			"type":        "string",
			"enum":        []string{"high", "medium", "low"},
			"description": "How confident you are that this is the main subject.",
		},
	}
}

const focalPrompt = `Look at this image and find its focal point: the single spot that must stay visible when the image is cropped to a different aspect ratio.

Prefer, in order:
1. Faces or eyes of people and animals
2. The main subject of the photo
3. Text or logos that carry meaning

Report the position as percentages of the image width and height. Call the submit_focal_point tool with your answer.`

func (r submitFocalPoint) toResult(provider string) (*FocalPointResult, error) {
	if r.X < 0 || r.X > 100 || r.Y < 0 || r.Y > 100 {
		return nil, fmt.Errorf("%s returned focal point (%.1f, %.1f) outside 0..100", provider, r.X, r.Y)
	}
	return &FocalPointResult{
		X:          r.X,
		Y:          r.Y,
		Subject:    r.Subject,
		Confidence: r.Confidence,
	}, nil
}
