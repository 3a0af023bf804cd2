package codec

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/llmbridge/llm-openai-proxy/internal/stream"
	"github.com/llmbridge/llm-openai-proxy/internal/types"
)

// ChatEncoder encodes responses in OpenAI Chat Completions format.
type ChatEncoder struct {
	Clock Clock
}

// WriteResult writes the buffered Chat Completions envelope.
func (e *ChatEncoder) WriteResult(w http.ResponseWriter, statusCode int, res *stream.Result) {
	message := types.ChatResponseMsg{
		Role:    "assistant",
		Content: res.AssistantText,
	}
	if res.ReasoningText != "" {
		message.ReasoningContent = res.ReasoningText
	}
	if len(res.ToolCalls) > 0 {
		message.ToolCalls = res.ToolCalls
	}
	finishReason := res.FinishReason
	if finishReason == "" {
		finishReason = "stop"
	}

	completion := types.ChatCompletionResponse{
		ID:      NewChatCompletionID(),
		Object:  "chat.completion",
		Created: e.Clock.NowUnix(),
		Model:   res.Model,
		Choices: []types.ChatChoice{
			{Index: 0, Message: message, FinishReason: finishReason},
		},
		Usage: res.Usage,
	}
	WriteJSON(w, statusCode, completion)
}

// WriteError writes an OpenAI-format error.
func (e *ChatEncoder) WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteOpenAIError(w, statusCode, message)
}

// PassthroughChatStream republishes an upstream Chat Completions SSE stream
// with only the id field of each chunk rewritten to the local identifier.
// The downstream write is awaited (flushed) before the next upstream read.
func PassthroughChatStream(w http.ResponseWriter, body io.Reader, localID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return
	}

	reader := stream.NewReader(body)
	for {
		evt, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Transport failure mid-stream: end with no further events.
			return
		}
		data := []byte(evt.Raw)
		if gjson.GetBytes(data, "id").Exists() {
			rewritten, serr := sjson.SetBytes(data, "id", localID)
			if serr == nil {
				data = rewritten
			}
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			slog.Debug("client disconnected during SSE write", "error", err)
			return
		}
		flusher.Flush()
	}

	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}
