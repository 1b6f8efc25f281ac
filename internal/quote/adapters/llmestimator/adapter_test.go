package llmestimator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/navlun/landedcost/internal/config"
	quotedomain "github.com/navlun/landedcost/internal/quote/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func completionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "gpt-4o-mini", req.Model)
		require.Len(t, req.Messages, 2)
		require.Equal(t, "system", req.Messages[0].Role)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		})
	}))
}

func newTestAdapter(baseURL string) *Adapter {
	return New(config.LLMConfig{
		APIKey:  "key",
		BaseURL: baseURL,
		Model:   "gpt-4o-mini",
		Timeout: 5 * time.Second,
	}, zap.NewNop())
}

func testRequest() quotedomain.QuoteRequest {
	return quotedomain.QuoteRequest{
		OriginCountry:      "TR",
		DestinationCountry: "US",
		CustomsValue:       decimal.NewFromInt(50),
		ShippingCost:       decimal.NewFromInt(15),
		Items: []quotedomain.LineItem{
			{Description: "scarf", Value: decimal.NewFromInt(50), Quantity: 1},
		},
	}
}

const goodEstimate = `{"hs_code":"6214.20.0000","duty_rate":0.1,"tax_rate":0.02,"vat_rate":0,"duty":5.00,"tax":1.00,"vat":0,"total":6.00,"confidence":0.85,"reasoning":"silk scarves into the US carry roughly 10% duty"}`

func TestQuote_Success(t *testing.T) {
	srv := completionServer(t, goodEstimate)
	defer srv.Close()

	adapter := newTestAdapter(srv.URL)
	result, err := adapter.Quote(context.Background(), testRequest())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, quotedomain.ProviderLLM, result.Provider)
	assert.Equal(t, int64(500), result.Duty)
	assert.Equal(t, int64(100), result.Tax)
	assert.Equal(t, int64(600), result.Total)
	assert.Equal(t, int64(2100), result.GrandTotal)
	assert.Equal(t, 0.85, result.Confidence)
	assert.Equal(t, "6214.20.0000", result.HSCodeUsed)
	assert.NotEmpty(t, result.Reasoning)
	assert.Equal(t, 0.1, result.DutyRate)
}

func TestQuote_MissingCredentials(t *testing.T) {
	adapter := New(config.LLMConfig{}, zap.NewNop())
	result, err := adapter.Quote(context.Background(), testRequest())
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "llm_credentials_missing", result.Error)
}

func TestQuote_ToleratesCodeFences(t *testing.T) {
	srv := completionServer(t, "Here is my estimate:\n```json\n"+goodEstimate+"\n```")
	defer srv.Close()

	adapter := newTestAdapter(srv.URL)
	result, err := adapter.Quote(context.Background(), testRequest())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, int64(600), result.Total)
}

func TestQuote_ConfidenceClamped(t *testing.T) {
	srv := completionServer(t, `{"duty":5.00,"tax":1.00,"total":6.00,"confidence":1.7,"reasoning":"x"}`)
	defer srv.Close()

	adapter := newTestAdapter(srv.URL)
	result, err := adapter.Quote(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, 1.0, result.Confidence)
}

func TestQuote_TotalFallsBackToComponentSum(t *testing.T) {
	srv := completionServer(t, `{"duty":5.00,"tax":1.00,"vat":0.50,"confidence":0.5,"reasoning":"x"}`)
	defer srv.Close()

	adapter := newTestAdapter(srv.URL)
	result, err := adapter.Quote(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(650), result.Total)
}

func TestQuote_UnparseableCompletionIsUnsuccessful(t *testing.T) {
	srv := completionServer(t, "I cannot estimate duties for this shipment.")
	defer srv.Close()

	adapter := newTestAdapter(srv.URL)
	result, err := adapter.Quote(context.Background(), testRequest())
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "llm_unparseable")
}

func TestQuote_HTTPErrorIsUnsuccessful(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"rate limited"}}`)
	}))
	defer srv.Close()

	adapter := newTestAdapter(srv.URL)
	result, err := adapter.Quote(context.Background(), testRequest())
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "llm_http_429")
}

func TestParseEstimate(t *testing.T) {
	e, err := parseEstimate(goodEstimate)
	require.NoError(t, err)
	assert.Equal(t, "6214.20.0000", e.HSCode)

	_, err = parseEstimate("no json here")
	assert.Error(t, err)

	_, err = parseEstimate("{broken json]")
	assert.Error(t, err)
}

func TestBuildUserPrompt(t *testing.T) {
	req := testRequest()
	req.Items[0].HSCode = "6214.20.0000"

	prompt := buildUserPrompt(req)
	assert.Contains(t, prompt, "Origin: TR")
	assert.Contains(t, prompt, "Destination: US")
	assert.Contains(t, prompt, "Customs value: 50.00 USD")
	assert.Contains(t, prompt, `"scarf" value=50.00 qty=1 hs=6214.20.0000`)
}
