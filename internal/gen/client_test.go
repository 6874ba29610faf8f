package gen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatResponse(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return string(b)
}

func TestChatClient_Complete(t *testing.T) {
	var gotReq chatCompletionRequest
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatResponse("  hello there  ")))
	}))
	defer srv.Close()

	c := NewChatClient(srv.URL, "sk-test", "moonshot-v1-8k", time.Second)
	out, err := c.Complete(context.Background(), []Message{
		{Role: "system", Content: "sys"},
		{Role: "user", Content: "usr"},
	}, 0.7)
	require.NoError(t, err)

	assert.Equal(t, "hello there", out)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "moonshot-v1-8k", gotReq.Model)
	assert.Equal(t, 0.7, gotReq.Temperature)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
}

func TestChatClient_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewChatClient(srv.URL, "sk-test", "", time.Second)
	_, err := c.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, 0.7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestChatClient_BadResponseBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	c := NewChatClient(srv.URL, "sk-test", "", time.Second)
	_, err := c.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, 0.7)
	assert.Error(t, err)
}

func TestChatClient_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	c := NewChatClient(srv.URL, "sk-test", "", time.Second)
	_, err := c.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, 0.7)
	assert.Error(t, err)
}

func TestGeneratorAgainstHTTPEndpoint(t *testing.T) {
	// wire-level version of the duplicate-retry scenario
	responses := []string{
		"```json\n" + puzzleJSON("苹果", "一种常见的水果") + "\n```",
		puzzleJSON("星空", "夜晚抬头就能看到的景象"),
	}
	var n int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := chatResponse(responses[n%len(responses)])
		n++
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	client := NewChatClient(srv.URL, "sk-test", "", time.Second)
	g := New(client, &fakeHistory{words: []string{"苹果"}}, 0, 0)

	p, err := g.Generate(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "星空", p.Word)
	assert.Equal(t, 2, n)
}
