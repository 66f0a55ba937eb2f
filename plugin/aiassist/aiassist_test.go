package aiassist

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) Config {
	return Config{
		Enabled: true,
		APIKey:  "test-key",
		BaseURL: baseURL,
		Model:   "test-model",
		Timeout: 2 * time.Second,
	}
}

// completionServer answers chat-completion requests with the given content.
func completionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestGenerateDisabled(t *testing.T) {
	a := New(Config{Enabled: false, APIKey: "key", Timeout: time.Second})
	require.Contains(t, a.GenerateResponse(context.Background(), "hi", ""), "currently disabled")
	require.False(t, a.IsAvailable())
}

func TestGenerateMissingCredential(t *testing.T) {
	a := New(Config{Enabled: true, APIKey: "", Timeout: time.Second})
	require.Contains(t, a.GenerateResponse(context.Background(), "hi", ""), "not properly configured")
	require.False(t, a.IsAvailable())
}

func TestIsAvailable(t *testing.T) {
	a := New(Config{Enabled: true, APIKey: "key", Timeout: time.Second})
	require.True(t, a.IsAvailable())
}

func TestGenerateSuccess(t *testing.T) {
	ts := completionServer(t, "Hello there!")
	defer ts.Close()

	a := New(testConfig(ts.URL + "/v1"))
	got := a.GenerateResponse(context.Background(), "hi", "")
	require.Equal(t, "Hello there!", got)
}

func TestGenerateIncludesContextInPrompt(t *testing.T) {
	var seenPrompt string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		for _, m := range req.Messages {
			if m.Role == "user" {
				seenPrompt = m.Content
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"role": "assistant", "content": "ok"}}},
		})
	}))
	defer ts.Close()

	a := New(testConfig(ts.URL + "/v1"))
	a.GenerateResponse(context.Background(), "what changed?", "release notes v2")
	require.Contains(t, seenPrompt, "Context: release notes v2")
	require.Contains(t, seenPrompt, "User: what changed?")
}

func TestGenerateTransportErrorReturnsApology(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream exploded", http.StatusInternalServerError)
	}))
	defer ts.Close()

	a := New(testConfig(ts.URL + "/v1"))
	got := a.GenerateResponse(context.Background(), "hi", "")
	require.Contains(t, got, "error")
	require.Contains(t, got, "I apologize")
}

func TestGenerateTimeoutReturnsApology(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()

	cfg := testConfig(ts.URL + "/v1")
	cfg.Timeout = 50 * time.Millisecond
	a := New(cfg)

	start := time.Now()
	got := a.GenerateResponse(context.Background(), "hi", "")
	require.Less(t, time.Since(start), time.Second, "must give up at the timeout")
	require.Contains(t, got, "error")
}

func TestGenerateBlankAnswerAsksForClarification(t *testing.T) {
	ts := completionServer(t, "   ")
	defer ts.Close()

	a := New(testConfig(ts.URL + "/v1"))
	got := a.GenerateResponse(context.Background(), "hi", "")
	require.Contains(t, got, "clarify")
}
