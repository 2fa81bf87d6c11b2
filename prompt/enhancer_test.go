package prompt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func geminiStub(t *testing.T, text string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.Contents)
		require.NotNil(t, req.SystemInstruction)

		w.WriteHeader(status)
		resp := geminiResponse{}
		resp.Candidates = []struct {
			Content geminiContent `json:"content"`
		}{{Content: geminiContent{Parts: []geminiPart{{Text: text}}}}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestGeminiEnhance(t *testing.T) {
	ts := geminiStub(t, "A red fox stalking through misty pines at dawn.", http.StatusOK)
	defer ts.Close()

	enhancer, err := NewGeminiEnhancer(GeminiOptions{
		APIKey:     "test-key",
		BaseURL:    ts.URL,
		HTTPClient: ts.Client(),
	})
	require.NoError(t, err)

	out, err := enhancer.Enhance(context.Background(), "a red fox")
	require.NoError(t, err)
	assert.Equal(t, "A red fox stalking through misty pines at dawn.", out)
}

func TestGeminiEnhanceEmptyResponse(t *testing.T) {
	ts := geminiStub(t, "", http.StatusOK)
	defer ts.Close()

	enhancer, err := NewGeminiEnhancer(GeminiOptions{
		APIKey:     "test-key",
		BaseURL:    ts.URL,
		HTTPClient: ts.Client(),
	})
	require.NoError(t, err)

	_, err = enhancer.Enhance(context.Background(), "a red fox")
	assert.Error(t, err)
}

func TestGeminiEnhanceRejectsBlankPrompt(t *testing.T) {
	enhancer, err := NewGeminiEnhancer(GeminiOptions{APIKey: "test-key"})
	require.NoError(t, err)

	_, err = enhancer.Enhance(context.Background(), "   ")
	assert.Error(t, err)
}

func TestNewGeminiEnhancerRequiresKey(t *testing.T) {
	_, err := NewGeminiEnhancer(GeminiOptions{})
	assert.Error(t, err)
}

func TestDisabledEnhancer(t *testing.T) {
	_, err := DisabledEnhancer{}.Enhance(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrEnhancerDisabled)
}
