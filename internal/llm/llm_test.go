package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tordrt/schemadoc/internal/retry"
	"github.com/tordrt/schemadoc/internal/schema"
)

func TestBuildPromptObject(t *testing.T) {
	cols := []string{"C1", "C2", "C3", "C4", "C5", "C6", "C7", "C8", "C9", "C10", "C11"}
	prompt := BuildPrompt(Request{
		GlobalContext: "ERP de distribuidora",
		Object:        "CLIENTES",
		Kind:          schema.KindTable,
		ColumnNames:   cols,
	}, "Brazilian Portuguese")

	assert.Contains(t, prompt, "ERP de distribuidora")
	assert.Contains(t, prompt, "database table named 'CLIENTES'")
	assert.Contains(t, prompt, "C10...")
	assert.NotContains(t, prompt, "C11")
	assert.Contains(t, prompt, "Brazilian Portuguese")
}

func TestBuildPromptColumn(t *testing.T) {
	prompt := BuildPrompt(Request{
		Object:            "V_VENDAS",
		Kind:              schema.KindView,
		ObjectDescription: "Resumo de vendas",
		Column:            "TOTAL",
		ColumnType:        "NUMERIC(15,2)",
	}, "English")

	assert.Contains(t, prompt, "column 'TOTAL' of type 'NUMERIC(15,2)'")
	assert.Contains(t, prompt, "the view 'V_VENDAS'")
	assert.Contains(t, prompt, "Resumo de vendas")
	assert.NotContains(t, prompt, "Database context")
}

func TestCleanResponse(t *testing.T) {
	tests := map[string]string{
		"  \"Endereço de contato\"\n": "Endereço de contato",
		"'Código do cliente'":        "Código do cliente",
		"\" \"":                      "",
		"Sem aspas":                  "Sem aspas",
	}
	for in, want := range tests {
		assert.Equal(t, want, cleanResponse(in), in)
	}
}

func TestClassify(t *testing.T) {
	req := Request{Object: "CLIENTES", Column: "EMAIL"}

	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{name: "rate limited", err: rateLimited{}, retryable: true},
		{name: "connection refused", err: errors.New("dial tcp: connection refused"), retryable: true},
		{name: "anthropic overloaded", err: errors.New("anthropic api error type: overloaded_error"), retryable: true},
		{name: "empty response", err: ErrEmptyResponse, retryable: false},
		{name: "canceled", err: context.Canceled, retryable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(req, tt.err)
			assert.Equal(t, tt.retryable, got.IsRetryable())
			assert.Equal(t, "CLIENTES", got.Object)
			assert.Equal(t, "EMAIL", got.Column)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

type rateLimited struct{}

func (rateLimited) Error() string { return "error, status code: 429, message: rate limited" }

func TestWithRetryRetriesTransientFailures(t *testing.T) {
	calls := 0
	p := ProviderFunc(func(ctx context.Context, req Request) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("503 service unavailable")
		}
		return "Endereço de contato", nil
	})

	cfg := &retry.Config{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
	text, err := WithRetry(p, cfg, time.Second).Suggest(context.Background(), Request{Object: "A", Column: "B"})
	require.NoError(t, err)
	assert.Equal(t, "Endereço de contato", text)
	assert.Equal(t, 3, calls)
}

func TestWithRetryStopsOnPermanentFailure(t *testing.T) {
	calls := 0
	p := ProviderFunc(func(ctx context.Context, req Request) (string, error) {
		calls++
		return "", errors.New("401 unauthorized")
	})

	cfg := &retry.Config{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
	_, err := WithRetry(p, cfg, 0).Suggest(context.Background(), Request{Object: "A", Column: "B"})
	require.Error(t, err)

	var sue *SuggestionUnavailableError
	require.True(t, errors.As(err, &sue))
	assert.False(t, sue.IsRetryable())
	assert.Equal(t, 1, calls)
}

func TestOpenAIProviderAgainstCompatibleServer(t *testing.T) {
	var gotModel, gotPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotModel = body.Model
		if len(body.Messages) > 0 {
			gotPrompt = body.Messages[0].Content
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":" \"Endereço de contato\" "},"finish_reason":"stop"}],"usage":{"prompt_tokens":10,"completion_tokens":4,"total_tokens":14}}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider(Config{BaseURL: server.URL + "/v1/", Model: "llama3", Language: "Brazilian Portuguese"}, zap.NewNop())
	text, err := p.Suggest(context.Background(), Request{Object: "CLIENTES", Kind: schema.KindTable, Column: "EMAIL", ColumnType: "VARCHAR(200)"})
	require.NoError(t, err)

	assert.Equal(t, "Endereço de contato", text)
	assert.Equal(t, "llama3", gotModel)
	assert.Contains(t, gotPrompt, "'EMAIL'")
}

func TestOpenAIProviderServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"model is loading","type":"server_error"}}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider(Config{BaseURL: server.URL, Model: "llama3"}, zap.NewNop())
	_, err := p.Suggest(context.Background(), Request{Object: "CLIENTES", Column: "EMAIL"})
	require.Error(t, err)

	sue := classify(Request{Object: "CLIENTES", Column: "EMAIL"}, err)
	assert.Equal(t, http.StatusServiceUnavailable, sue.StatusCode)
	assert.True(t, sue.IsRetryable())
}

func TestNewValidatesConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{name: "openai default", cfg: Config{BaseURL: DefaultBaseURL, Model: "llama3"}, ok: true},
		{name: "anthropic", cfg: Config{Provider: "anthropic", Model: "claude-sonnet-4-5", APIKey: "k"}, ok: true},
		{name: "missing model", cfg: Config{BaseURL: DefaultBaseURL}},
		{name: "anthropic without key", cfg: Config{Provider: "anthropic", Model: "m"}},
		{name: "unknown provider", cfg: Config{Provider: "bard", Model: "m"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.cfg, zap.NewNop())
			if tt.ok {
				require.NoError(t, err)
				assert.NotNil(t, p)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
