package chatgpt

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

func TestCreateChatCompletion(t *testing.T) {
	var got ChatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"{}"}}],"usage":{"prompt_tokens":12,"completion_tokens":3,"total_tokens":15}}`)
	}))
	defer server.Close()

	client, err := NewClient("sk-test", server.URL+"/")
	require.NoError(t, err)

	resp, err := client.CreateChatCompletion(context.Background(), ChatCompletionRequest{
		Model:          "gpt-test",
		Messages:       []Message{{Role: "user", Content: "hi"}},
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	require.Equal(t, "{}", resp.Choices[0].Message.Content)
	require.Equal(t, 15, resp.Usage.TotalTokens)
	require.Equal(t, "gpt-test", got.Model)
	require.Equal(t, "json_object", got.ResponseFormat.Type)
}

func TestCreateChatCompletionStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, err := NewClient("sk-test", server.URL)
	require.NoError(t, err)

	_, err = client.CreateChatCompletion(context.Background(), ChatCompletionRequest{Model: "gpt-test"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "status=429")
}

func TestCreateTranscription(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/audio/transcriptions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "whisper-1", r.FormValue("model"))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, err := io.ReadAll(file)
		require.NoError(t, err)
		require.Equal(t, "clip.webm", header.Filename)
		require.Equal(t, "RIFF", string(data))
		_, _ = io.WriteString(w, `{"text":"slept eight hours"}`)
	}))
	defer server.Close()

	client, err := NewClient("sk-test", server.URL)
	require.NoError(t, err)

	resp, err := client.CreateTranscription(context.Background(), TranscriptionRequest{
		Model:    "whisper-1",
		Filename: "clip.webm",
		Audio:    strings.NewReader("RIFF"),
	})
	require.NoError(t, err)
	require.Equal(t, "slept eight hours", resp.Text)
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(" ", "")
	require.Error(t, err)
}

func TestExtractJSON(t *testing.T) {
	require.Equal(t, `{"a":1}`, ExtractJSON("```json\n{\"a\":1}\n```"))
	require.Equal(t, `{"a":1}`, ExtractJSON(`Here you go: {"a":1} thanks`))
	require.Equal(t, "plain", ExtractJSON("plain"))
}
