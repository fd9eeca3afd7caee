package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient implements the Client interface using OpenAI's vision models
// as a fallback. The image is sent as a data URL part and the model is
// forced to call submit_focal_point.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates a new OpenAI-powered focal point finder.
func NewOpenAIClient(apiKey string, model string) *OpenAIClient {
	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// NewOpenAIClientWithConfig is used to point the client at a compatible
// endpoint (or a test server).
func NewOpenAIClientWithConfig(cfg openai.ClientConfig, model string) *OpenAIClient {
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (o *OpenAIClient) ProviderName() string { return "openai" }
func (o *OpenAIClient) ModelName() string    { return o.model }

func (o *OpenAIClient) FindFocalPoint(ctx context.Context, image []byte, mediaType string) (*FocalPointResult, error) {
	// OpenAI's Parameters field accepts `any`, so the raw JSON schema map works.
	tools := []openai.Tool{
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        submitToolName,
				Description: submitToolDescription,
				Parameters: map[string]interface{}{
					"type":       "object",
					"properties": submitProperties(),
					"required":   []string{"x", "y"},
				},
			},
		},
	}

	dataURL := "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(image)
	messages := []openai.ChatCompletionMessage{
		{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: focalPrompt},
				{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL:    dataURL,
						Detail: openai.ImageURLDetailLow,
					},
				},
			},
		},
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: messages,
		Tools:    tools,
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: submitToolName},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	for _, toolCall := range resp.Choices[0].Message.ToolCalls {
		if toolCall.Function.Name != submitToolName {
			continue
		}
		var result submitFocalPoint
		if err := json.Unmarshal([]byte(toolCall.Function.Arguments), &result); err != nil {
			return nil, fmt.Errorf("parsing tool arguments: %w", err)
		}
		return result.toResult("OpenAI")
	}

	return nil, fmt.Errorf("OpenAI did not call %s (finish reason %s)", submitToolName, resp.Choices[0].FinishReason)
}
