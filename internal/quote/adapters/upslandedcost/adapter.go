package upslandedcost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/navlun/landedcost/internal/clock"
	"github.com/navlun/landedcost/internal/config"
	quotedomain "github.com/navlun/landedcost/internal/quote/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// tokenSafetyMargin is subtracted from the provider-reported expiry so a
// token is never used right at its deadline.
const tokenSafetyMargin = 60 * time.Second

type cachedToken struct {
	value     string
	expiresAt time.Time
}

// Adapter quotes duties through the UPS Landed Cost API. The quote endpoint is
// slow (duty composition can take minutes server-side), so the HTTP client
// timeout comes from config and defaults to 180s.
type Adapter struct {
	cfg    config.UPSConfig
	log    *zap.Logger
	clock  clock.Clock
	client *http.Client

	// Read-mostly; a benign double refresh under concurrency is acceptable.
	token atomic.Pointer[cachedToken]
}

func New(cfg config.UPSConfig, log *zap.Logger, clk clock.Clock) *Adapter {
	return &Adapter{
		cfg:    cfg,
		log:    log.Named("ups_landed_cost"),
		clock:  clk,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (a *Adapter) Name() string { return quotedomain.ProviderUPS }

func (a *Adapter) Quote(ctx context.Context, req quotedomain.QuoteRequest) (quotedomain.DutyResult, error) {
	if a.cfg.ClientID == "" || a.cfg.ClientSecret == "" {
		return quotedomain.Unsuccessful(a.Name(), "ups_credentials_missing"), nil
	}

	start := a.clock.Now()
	token, err := a.accessToken(ctx)
	if err != nil {
		a.logFailure(req, start, "token", err)
		return quotedomain.Unsuccessful(a.Name(), fmt.Sprintf("ups_oauth_failed: %v", err)), nil
	}

	body, err := json.Marshal(a.buildQuoteRequest(req))
	if err != nil {
		return quotedomain.DutyResult{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.cfg.BaseURL+"/api/landedcost/v1/quotes", strings.NewReader(string(body)))
	if err != nil {
		return quotedomain.DutyResult{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		a.logFailure(req, start, "quote", err)
		return quotedomain.Unsuccessful(a.Name(), fmt.Sprintf("ups_request_failed: %v", err)), nil
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		a.logFailure(req, start, "quote", err)
		return quotedomain.Unsuccessful(a.Name(), fmt.Sprintf("ups_read_failed: %v", err)), nil
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := parseErrorBody(payload)
		a.logFailure(req, start, "quote", fmt.Errorf("status %d: %s", resp.StatusCode, message))
		return quotedomain.Unsuccessful(a.Name(), fmt.Sprintf("ups_http_%d: %s", resp.StatusCode, message)), nil
	}

	var quote quoteResponse
	if err := json.Unmarshal(payload, &quote); err != nil {
		a.logFailure(req, start, "quote", err)
		return quotedomain.Unsuccessful(a.Name(), "ups_invalid_response"), nil
	}

	result := a.normalize(quote, req)
	a.log.Info("quote completed",
		zap.String("origin", req.OriginCountry),
		zap.String("destination", req.DestinationCountry),
		zap.Int64("total", result.Total),
		zap.Duration("elapsed", a.clock.Now().Sub(start)),
	)
	return result, nil
}

func (a *Adapter) normalize(quote quoteResponse, req quotedomain.QuoteRequest) quotedomain.DutyResult {
	duty := quotedomain.ToMinorUnits(quote.Shipment.TotalDuties)
	tax := quotedomain.ToMinorUnits(quote.Shipment.TotalTaxes)
	vat := quotedomain.ToMinorUnits(quote.Shipment.TotalVAT)
	brokerage := quotedomain.ToMinorUnits(quote.Shipment.TotalBrokerageFees)
	total := duty + tax + vat + brokerage
	shipping := quotedomain.ToMinorUnits(req.ShippingCost)

	return quotedomain.DutyResult{
		Provider:   a.Name(),
		Success:    true,
		Duty:       duty,
		Tax:        tax,
		VAT:        vat,
		Brokerage:  brokerage,
		Total:      total,
		GrandTotal: total + shipping,
	}
}

func (a *Adapter) accessToken(ctx context.Context) (string, error) {
	if cached := a.token.Load(); cached != nil && a.clock.Now().Before(cached.expiresAt) {
		return cached.value, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.cfg.BaseURL+"/security/v1/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	httpReq.SetBasicAuth(a.cfg.ClientID, a.cfg.ClientSecret)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("token endpoint status %d: %s", resp.StatusCode, parseErrorBody(payload))
	}

	var body tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if body.AccessToken == "" {
		return "", errors.New("empty access token")
	}

	ttl := time.Duration(body.ExpiresInSeconds()) * time.Second
	if ttl <= tokenSafetyMargin {
		ttl = 2 * tokenSafetyMargin
	}
	a.token.Store(&cachedToken{
		value:     body.AccessToken,
		expiresAt: a.clock.Now().Add(ttl - tokenSafetyMargin),
	})
	return body.AccessToken, nil
}

func (a *Adapter) buildQuoteRequest(req quotedomain.QuoteRequest) quoteRequest {
	items := make([]shipmentItem, 0, len(req.Items))
	for i, item := range req.Items {
		weight := item.Weight
		if weight <= 0 && len(req.Items) > 0 {
			weight = req.Weight / float64(len(req.Items))
		}
		items = append(items, shipmentItem{
			CommodityID:  fmt.Sprintf("%d", i+1),
			Description:  item.Description,
			PriceEach:    item.Value,
			Quantity:     item.Quantity,
			HSCode:       item.HSCode,
			GrossWeight:  weight,
			WeightUnit:   "KG",
			CurrencyCode: "USD",
		})
	}
	return quoteRequest{
		CurrencyCode: "USD",
		TransID:      fmt.Sprintf("lc-%d", a.clock.Now().UnixNano()),
		AllowPartial: false,
		Shipment: shipment{
			ID:                  "1",
			ImportCountryCode:   req.DestinationCountry,
			ExportCountryCode:   req.OriginCountry,
			TransportMode:       "INT_AIR",
			ShipmentItems:       items,
			FreightCharges:      req.ShippingCost,
			ShipmentTotal:       req.CustomsValue,
			IncotermCode:        "DAP",
			ModeOfTransport:     "AIR",
			EstimateDutiesTaxes: true,
		},
	}
}

func (a *Adapter) logFailure(req quotedomain.QuoteRequest, start time.Time, stage string, err error) {
	a.log.Warn("quote failed",
		zap.String("stage", stage),
		zap.String("origin", req.OriginCountry),
		zap.String("destination", req.DestinationCountry),
		zap.Duration("elapsed", a.clock.Now().Sub(start)),
		zap.Error(err),
	)
}

func parseErrorBody(payload []byte) string {
	var body errorResponse
	if err := json.Unmarshal(payload, &body); err == nil && len(body.Response.Errors) > 0 {
		messages := make([]string, 0, len(body.Response.Errors))
		for _, e := range body.Response.Errors {
			messages = append(messages, e.Message)
		}
		return strings.Join(messages, "; ")
	}
	trimmed := strings.TrimSpace(string(payload))
	if len(trimmed) > 200 {
		trimmed = trimmed[:200]
	}
	return trimmed
}

type tokenResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   json.Number `json:"expires_in"`
}

func (t tokenResponse) ExpiresInSeconds() int64 {
	seconds, err := t.ExpiresIn.Int64()
	if err != nil {
		return 0
	}
	return seconds
}

type quoteRequest struct {
	CurrencyCode string   `json:"currencyCode"`
	TransID      string   `json:"transID"`
	AllowPartial bool     `json:"allowPartialLandedCostResult"`
	Shipment     shipment `json:"shipment"`
}

type shipment struct {
	ID                  string          `json:"id"`
	ImportCountryCode   string          `json:"importCountryCode"`
	ExportCountryCode   string          `json:"exportCountryCode"`
	TransportMode       string          `json:"transModes"`
	ModeOfTransport     string          `json:"modeOfTransport"`
	IncotermCode        string          `json:"incoterms"`
	FreightCharges      decimal.Decimal `json:"freightCharges"`
	ShipmentTotal       decimal.Decimal `json:"shipmentTotal"`
	EstimateDutiesTaxes bool            `json:"estimateDutiesTaxes"`
	ShipmentItems       []shipmentItem  `json:"shipmentItems"`
}

type shipmentItem struct {
	CommodityID  string          `json:"commodityId"`
	Description  string          `json:"description"`
	PriceEach    decimal.Decimal `json:"priceEach"`
	Quantity     int             `json:"quantity"`
	HSCode       string          `json:"hsCode,omitempty"`
	GrossWeight  float64         `json:"grossWeight"`
	WeightUnit   string          `json:"weightUnit"`
	CurrencyCode string          `json:"currencyCode"`
}

type quoteResponse struct {
	Shipment struct {
		TotalDuties        decimal.Decimal `json:"totalDuties"`
		TotalTaxes         decimal.Decimal `json:"totalTaxes"`
		TotalVAT           decimal.Decimal `json:"totalVAT"`
		TotalBrokerageFees decimal.Decimal `json:"totalBrokerageFees"`
		TotalLandedCost    decimal.Decimal `json:"totalLandedCost"`
	} `json:"shipment"`
}

type errorResponse struct {
	Response struct {
		Errors []struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"errors"`
	} `json:"response"`
}

var _ quotedomain.Provider = (*Adapter)(nil)
