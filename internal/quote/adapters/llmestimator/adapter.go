package llmestimator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/navlun/landedcost/internal/config"
	quotedomain "github.com/navlun/landedcost/internal/quote/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const systemPrompt = `You are a customs duty estimation engine. Given a shipment's origin country, destination country, declared customs value in USD, and line items (description, value, quantity, optional HS/GTIP code), estimate the import duty, tax and VAT the receiver's customs authority would assess.

Respond with a single JSON object and nothing else:
{"hs_code":"...","duty_rate":0.0,"tax_rate":0.0,"vat_rate":0.0,"duty":0.0,"tax":0.0,"vat":0.0,"total":0.0,"confidence":0.0,"reasoning":"..."}

All monetary amounts in USD. Rates as decimal fractions. confidence in [0,1].`

// Adapter estimates duties with a reasoning model over an OpenAI-compatible
// chat completions endpoint. It is the most tolerant provider of incomplete
// HS data, which is why the default fallback chain tries it first.
type Adapter struct {
	cfg    config.LLMConfig
	log    *zap.Logger
	client *http.Client
}

func New(cfg config.LLMConfig, log *zap.Logger) *Adapter {
	return &Adapter{
		cfg:    cfg,
		log:    log.Named("llm_estimator"),
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (a *Adapter) Name() string { return quotedomain.ProviderLLM }

func (a *Adapter) Quote(ctx context.Context, req quotedomain.QuoteRequest) (quotedomain.DutyResult, error) {
	if a.cfg.APIKey == "" {
		return quotedomain.Unsuccessful(a.Name(), "llm_credentials_missing"), nil
	}

	body, err := json.Marshal(chatRequest{
		Model: a.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildUserPrompt(req)},
		},
		Temperature:    0,
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return quotedomain.DutyResult{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.cfg.BaseURL+"/v1/chat/completions", strings.NewReader(string(body)))
	if err != nil {
		return quotedomain.DutyResult{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		a.log.Warn("estimation failed",
			zap.String("origin", req.OriginCountry),
			zap.String("destination", req.DestinationCountry),
			zap.Error(err),
		)
		return quotedomain.Unsuccessful(a.Name(), fmt.Sprintf("llm_request_failed: %v", err)), nil
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return quotedomain.Unsuccessful(a.Name(), fmt.Sprintf("llm_read_failed: %v", err)), nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return quotedomain.Unsuccessful(a.Name(),
			fmt.Sprintf("llm_http_%d: %s", resp.StatusCode, truncate(string(payload), 200))), nil
	}

	var completion chatResponse
	if err := json.Unmarshal(payload, &completion); err != nil || len(completion.Choices) == 0 {
		return quotedomain.Unsuccessful(a.Name(), "llm_invalid_response"), nil
	}

	estimate, err := parseEstimate(completion.Choices[0].Message.Content)
	if err != nil {
		a.log.Warn("estimation unparseable",
			zap.String("origin", req.OriginCountry),
			zap.String("destination", req.DestinationCountry),
			zap.Error(err),
		)
		return quotedomain.Unsuccessful(a.Name(), fmt.Sprintf("llm_unparseable: %v", err)), nil
	}

	return a.normalize(estimate, req), nil
}

func (a *Adapter) normalize(e estimate, req quotedomain.QuoteRequest) quotedomain.DutyResult {
	duty := quotedomain.ToMinorUnits(e.Duty)
	tax := quotedomain.ToMinorUnits(e.Tax)
	vat := quotedomain.ToMinorUnits(e.VAT)
	total := quotedomain.ToMinorUnits(e.Total)
	if total == 0 {
		total = duty + tax + vat
	}
	shipping := quotedomain.ToMinorUnits(req.ShippingCost)

	confidence := e.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return quotedomain.DutyResult{
		Provider:   a.Name(),
		Success:    true,
		Duty:       duty,
		Tax:        tax,
		VAT:        vat,
		Total:      total,
		GrandTotal: total + shipping,
		Confidence: confidence,
		Reasoning:  strings.TrimSpace(e.Reasoning),
		HSCodeUsed: strings.TrimSpace(e.HSCode),
		DutyRate:   e.DutyRate,
		TaxRate:    e.TaxRate,
		VATRate:    e.VATRate,
	}
}

func buildUserPrompt(req quotedomain.QuoteRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Origin: %s\nDestination: %s\nCustoms value: %s USD\nShipping cost: %s USD\nItems:\n",
		req.OriginCountry, req.DestinationCountry, req.CustomsValue.StringFixed(2), req.ShippingCost.StringFixed(2))
	for _, item := range req.Items {
		fmt.Fprintf(&b, "- %q value=%s qty=%d", item.Description, item.Value.StringFixed(2), item.Quantity)
		if item.HSCode != "" {
			fmt.Fprintf(&b, " hs=%s", item.HSCode)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// parseEstimate tolerates models that wrap the JSON in prose or code fences.
func parseEstimate(content string) (estimate, error) {
	content = strings.TrimSpace(content)
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return estimate{}, fmt.Errorf("no JSON object in completion")
	}

	var e estimate
	if err := json.Unmarshal([]byte(content[start:end+1]), &e); err != nil {
		return estimate{}, err
	}
	return e, nil
}

func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) > limit {
		return s[:limit]
	}
	return s
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type estimate struct {
	HSCode     string          `json:"hs_code"`
	DutyRate   float64         `json:"duty_rate"`
	TaxRate    float64         `json:"tax_rate"`
	VATRate    float64         `json:"vat_rate"`
	Duty       decimal.Decimal `json:"duty"`
	Tax        decimal.Decimal `json:"tax"`
	VAT        decimal.Decimal `json:"vat"`
	Total      decimal.Decimal `json:"total"`
	Confidence float64         `json:"confidence"`
	Reasoning  string          `json:"reasoning"`
}

var _ quotedomain.Provider = (*Adapter)(nil)
