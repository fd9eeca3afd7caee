package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
)

// AnthropicClient implements the Client interface using Claude's vision
// input. The image goes in as a base64 block and Claude is forced to answer
// through the submit_focal_point tool.
type AnthropicClient struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicClient creates a new Claude-powered focal point finder.
func NewAnthropicClient(apiKey string, model string, opts ...option.RequestOption) *AnthropicClient {
	client := anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &AnthropicClient{
		client: &client,
		model:  model,
	}
}

func (a *AnthropicClient) ProviderName() string { return "anthropic" }
func (a *AnthropicClient) ModelName() string    { return a.model }

func (a *AnthropicClient) FindFocalPoint(ctx context.Context, image []byte, mediaType string) (*FocalPointResult, error) {
	submitTool := anthropic.ToolParam{
		Name:        submitToolName,
		Description: param.NewOpt(submitToolDescription),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: submitProperties(),
		},
	}

	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: 512,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(mediaType, base64.StdEncoding.EncodeToString(image)),
				anthropic.NewTextBlock(focalPrompt),
			),
		},
		Tools: []anthropic.ToolUnionParam{{OfTool: &submitTool}},
		// A single forced tool call: no agentic loop is needed.
		ToolChoice: anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: submitToolName},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic API call: %w", err)
	}

	for _, block := range message.Content {
		toolUse, ok := block.AsAny().(anthropic.ToolUseBlock)
		if !ok || toolUse.Name != submitToolName {
			continue
		}

		// toolUse.Input is raw JSON; marshal/unmarshal keeps this independent
		// of the SDK's representation.
		inputBytes, err := json.Marshal(toolUse.Input)
		if err != nil {
			return nil, fmt.Errorf("marshaling tool input: %w", err)
		}
		var result submitFocalPoint
		if err := json.Unmarshal(inputBytes, &result); err != nil {
			return nil, fmt.Errorf("parsing tool input: %w", err)
		}
		return result.toResult("Claude")
	}

	return nil, fmt.Errorf("Claude did not call %s (stop reason %s)", submitToolName, message.StopReason)
}
