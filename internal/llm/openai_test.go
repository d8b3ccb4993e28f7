package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func completionServer(t *testing.T, content string, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, seen))

		msg, err := json.Marshal(content)
		require.NoError(t, err)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gemini-2.5-flash",`+
			`"choices":[{"index":0,"message":{"role":"assistant","content":`+string(msg)+`},"finish_reason":"stop"}]}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIModelRequestsJSONSchema(t *testing.T) {
	var seen map[string]any
	srv := completionServer(t, `{"category":"Travel","justification":"Taxi"}`, &seen)

	m := NewOpenAIModel(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL + "/v1/"})
	require.Equal(t, DefaultModel, m.Name())

	text, err := m.Generate(context.Background(), Request{
		Prompt:     "Categorize: Taxi",
		SchemaName: "expense_category",
		Schema:     categorizeSchema,
	})
	require.NoError(t, err)
	require.JSONEq(t, `{"category":"Travel","justification":"Taxi"}`, text)

	require.Equal(t, DefaultModel, seen["model"])
	format := seen["response_format"].(map[string]any)
	require.Equal(t, "json_schema", format["type"])
	js := format["json_schema"].(map[string]any)
	require.Equal(t, "expense_category", js["name"])
	schema := js["schema"].(map[string]any)
	require.Equal(t, "object", schema["type"])

	messages := seen["messages"].([]any)
	require.Len(t, messages, 2)
	require.Equal(t, "system", messages[0].(map[string]any)["role"])
	user := messages[1].(map[string]any)
	require.Equal(t, "Categorize: Taxi", user["content"])
}

func TestOpenAIModelSendsAttachmentAsDataURL(t *testing.T) {
	var seen map[string]any
	srv := completionServer(t, `{}`, &seen)

	m := NewOpenAIModel(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL + "/v1", Model: "custom-model"})
	_, err := m.Generate(context.Background(), Request{
		Prompt:     invoicePrompt,
		SchemaName: "invoice",
		Schema:     invoiceSchema,
		Attachment: &Attachment{MIMEType: "application/pdf", Data: []byte("%PDF")},
	})
	require.NoError(t, err)
	require.Equal(t, "custom-model", seen["model"])

	user := seen["messages"].([]any)[1].(map[string]any)
	parts := user["content"].([]any)
	require.Len(t, parts, 2)
	image := parts[0].(map[string]any)
	require.Equal(t, "image_url", image["type"])
	require.Equal(t, "data:application/pdf;base64,JVBERg==", image["image_url"].(map[string]any)["url"])
	text := parts[1].(map[string]any)
	require.Equal(t, "text", text["type"])
	require.True(t, strings.HasPrefix(text["text"].(string), "Analyze the provided invoice"))
}

func TestOpenAIModelInlinesTextAttachment(t *testing.T) {
	var seen map[string]any
	srv := completionServer(t, `{}`, &seen)

	m := NewOpenAIModel(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL + "/v1"})
	_, err := m.Generate(context.Background(), Request{
		Prompt:     invoicePrompt,
		SchemaName: "invoice",
		Schema:     invoiceSchema,
		Attachment: &Attachment{MIMEType: "text/plain; charset=utf-8", Data: []byte("INVOICE 42\nTotal: 1,200.00")},
	})
	require.NoError(t, err)

	user := seen["messages"].([]any)[1].(map[string]any)
	parts := user["content"].([]any)
	require.Len(t, parts, 2)
	for _, p := range parts {
		require.Equal(t, "text", p.(map[string]any)["type"])
		require.Nil(t, p.(map[string]any)["image_url"])
	}
	require.Equal(t, "INVOICE 42\nTotal: 1,200.00", parts[0].(map[string]any)["text"])
	require.True(t, strings.HasPrefix(parts[1].(map[string]any)["text"].(string), "Analyze the provided invoice"))
}

func TestOpenAIModelSurfacesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"Resource has been exhausted","type":"rate_limit","code":429}}`)
	}))
	defer srv.Close()

	m := NewOpenAIModel(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL + "/v1"})
	_, err := New(m).CategorizeExpense(context.Background(), "Taxi", 12)

	var ie *InvocationError
	require.ErrorAs(t, err, &ie)
	require.Contains(t, err.Error(), "Resource has been exhausted")
}
