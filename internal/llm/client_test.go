package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	openai "github.com/sashabaranov/go-openai"
)

func TestSubmitFocalPoint_ToResult(t *testing.T) {
	tests := []struct {
		name    string
		in      submitFocalPoint
		wantErr bool
	}{
		{"inside", submitFocalPoint{X: 30, Y: 70, Confidence: "high"}, false},
		{"edges", submitFocalPoint{X: 0, Y: 100}, false},
		{"negative", submitFocalPoint{X: -1, Y: 50}, true},
		{"too large", submitFocalPoint{X: 50, Y: 101}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tt.in.toResult("test")
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("toResult: %v", err)
			}
			if res.X != tt.in.X || res.Y != tt.in.Y {
				t.Errorf("got (%v, %v)", res.X, res.Y)
			}
		})
	}
}

func TestOpenAIClient_FindFocalPoint(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o-mini",
			"choices": [{
				"index": 0,
				"finish_reason": "tool_calls",
				"message": {
					"role": "assistant",
					"tool_calls": [{
						"id": "call_1",
						"type": "function",
						"function": {"name": "submit_focal_point", "arguments": "{\"x\": 25, \"y\": 40, \"subject\": \"face\"}"}
					}]
				}
			}]
		}`)
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	client := NewOpenAIClientWithConfig(cfg, "gpt-4o-mini")

	res, err := client.FindFocalPoint(context.Background(), []byte("fake"), "image/png")
	if err != nil {
		t.Fatalf("FindFocalPoint: %v", err)
	}
	if res.X != 25 || res.Y != 40 || res.Subject != "face" {
		t.Errorf("unexpected result %+v", res)
	}

	// The request forces the tool and carries the image as a data URL.
	choice, _ := gotBody["tool_choice"].(map[string]interface{})
	if choice["type"] != "function" {
		t.Errorf("expected a forced function tool choice, got %v", gotBody["tool_choice"])
	}
	raw, _ := json.Marshal(gotBody["messages"])
	if !strings.Contains(string(raw), "data:image/png;base64,") {
		t.Error("expected the image to be sent as a data URL")
	}
}

func TestAnthropicClient_FindFocalPoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/messages") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-5-20250929",
			"stop_reason": "tool_use",
			"content": [{
				"type": "tool_use",
				"id": "toolu_1",
				"name": "submit_focal_point",
				"input": {"x": 60, "y": 35, "confidence": "medium"}
			}],
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`)
	}))
	defer srv.Close()

	client := NewAnthropicClient("test-key", "claude-sonnet-4-5-20250929",
		option.WithBaseURL(srv.URL), option.WithMaxRetries(0))

	res, err := client.FindFocalPoint(context.Background(), []byte("fake"), "image/jpeg")
	if err != nil {
		t.Fatalf("FindFocalPoint: %v", err)
	}
	if res.X != 60 || res.Y != 35 || res.Confidence != "medium" {
		t.Errorf("unexpected result %+v", res)
	}
	if client.ProviderName() != "anthropic" || client.ModelName() != "claude-sonnet-4-5-20250929" {
		t.Error("unexpected provider identity")
	}
}
