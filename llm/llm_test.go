package llm

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qiuethan/RT1M-sub001/jsonx"
)

func TestClientCompleteSendsJSONMode(t *testing.T) {
	var got OpenAIRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, jsonx.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"message\":\"hi\"}"}}]}`))
	}))
	defer srv.Close()

	c := NewClient("sk-test", srv.URL+"/", time.Second)
	out, err := c.Complete(context.Background(), CompletionRequest{
		Model:    "gpt-4o",
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
		JSON:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"message":"hi"}`, out)
	assert.Equal(t, "gpt-4o", got.Model)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
}

func TestClientCompleteSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"requests"}}`))
	}))
	defer srv.Close()

	_, err := NewClient("sk-test", srv.URL, time.Second).Complete(context.Background(), CompletionRequest{Model: "m"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestClientRequiresKey(t *testing.T) {
	_, err := NewClient("", "", 0).Complete(context.Background(), CompletionRequest{})
	assert.Error(t, err)
}

type stubCompleter struct {
	out string
	err error
}

func (s stubCompleter) Complete(context.Context, CompletionRequest) (string, error) {
	return s.out, s.err
}

func TestGenerateChatTitle(t *testing.T) {
	title, err := GenerateChatTitle(context.Background(), stubCompleter{out: `"Saving for a House!"`}, "m", "how do I save for a house")
	require.NoError(t, err)
	assert.Equal(t, "Saving for a House", title)

	title, err = GenerateChatTitle(context.Background(), stubCompleter{err: errors.New("down")}, "m", "x")
	assert.Error(t, err)
	assert.Equal(t, DefaultTitle, title)

	title, err = GenerateChatTitle(context.Background(), stubCompleter{out: "!!!"}, "m", "x")
	require.NoError(t, err)
	assert.Equal(t, DefaultTitle, title)
}
