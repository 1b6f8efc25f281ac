package easyship

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/navlun/landedcost/internal/config"
	quotedomain "github.com/navlun/landedcost/internal/quote/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// defaultHSCodes is the "general merchandise" fallback used when a product
// description matches nothing in the provider catalog.
var defaultHSCodes = []hsCode{
	{ID: 0, Code: "9999.00.0000", Description: "General merchandise"},
}

// Adapter quotes a flat duty+tax total through the Easyship taxes & duties API.
// Country and HS-code lookups rarely change within a process lifetime, so both
// are cached in memory.
type Adapter struct {
	cfg    config.EasyshipConfig
	log    *zap.Logger
	client *http.Client

	mu        sync.RWMutex
	countries map[string]country // keyed by alpha-2 code
	hsCodes   map[string]hsCode  // keyed by lowercased product description
}

func New(cfg config.EasyshipConfig, log *zap.Logger) *Adapter {
	return &Adapter{
		cfg:       cfg,
		log:       log.Named("easyship"),
		client:    &http.Client{Timeout: cfg.Timeout},
		countries: make(map[string]country),
		hsCodes:   make(map[string]hsCode),
	}
}

func (a *Adapter) Name() string { return quotedomain.ProviderEasyship }

func (a *Adapter) Quote(ctx context.Context, req quotedomain.QuoteRequest) (quotedomain.DutyResult, error) {
	if a.cfg.AccessToken == "" {
		return quotedomain.Unsuccessful(a.Name(), "easyship_credentials_missing"), nil
	}

	origin, err := a.resolveCountry(ctx, req.OriginCountry)
	if err != nil {
		return quotedomain.Unsuccessful(a.Name(), fmt.Sprintf("easyship_origin_lookup_failed: %v", err)), nil
	}
	destination, err := a.resolveCountry(ctx, req.DestinationCountry)
	if err != nil {
		return quotedomain.Unsuccessful(a.Name(), fmt.Sprintf("easyship_destination_lookup_failed: %v", err)), nil
	}

	items := make([]taxItem, 0, len(req.Items))
	for _, item := range req.Items {
		code := item.HSCode
		if code == "" {
			resolved := a.resolveHSCode(ctx, item.Description)
			code = resolved.Code
		}
		items = append(items, taxItem{
			Description:   item.Description,
			DeclaredValue: item.Value,
			Quantity:      item.Quantity,
			ActualWeight:  item.Weight,
			HSCode:        code,
		})
	}

	body, err := json.Marshal(taxRequest{
		OriginCountryID:      origin.ID,
		DestinationCountryID: destination.ID,
		Currency:             "USD",
		TotalCustomsValue:    req.CustomsValue,
		ShippingCost:         req.ShippingCost,
		Items:                items,
	})
	if err != nil {
		return quotedomain.DutyResult{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.cfg.BaseURL+"/api/v2/taxes_and_duties", strings.NewReader(string(body)))
	if err != nil {
		return quotedomain.DutyResult{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+a.cfg.AccessToken)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		a.log.Warn("tax quote failed",
			zap.String("origin", req.OriginCountry),
			zap.String("destination", req.DestinationCountry),
			zap.Error(err),
		)
		return quotedomain.Unsuccessful(a.Name(), fmt.Sprintf("easyship_request_failed: %v", err)), nil
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return quotedomain.Unsuccessful(a.Name(), fmt.Sprintf("easyship_read_failed: %v", err)), nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return quotedomain.Unsuccessful(a.Name(),
			fmt.Sprintf("easyship_http_%d: %s", resp.StatusCode, truncate(string(payload), 200))), nil
	}

	var quote taxResponse
	if err := json.Unmarshal(payload, &quote); err != nil {
		return quotedomain.Unsuccessful(a.Name(), "easyship_invalid_response"), nil
	}

	duty := quotedomain.ToMinorUnits(quote.Duties)
	tax := quotedomain.ToMinorUnits(quote.Taxes)
	total := duty + tax
	if total == 0 && !quote.Total.IsZero() {
		// Some accounts only report the combined figure.
		total = quotedomain.ToMinorUnits(quote.Total)
	}
	shipping := quotedomain.ToMinorUnits(req.ShippingCost)

	return quotedomain.DutyResult{
		Provider:   a.Name(),
		Success:    true,
		Duty:       duty,
		Tax:        tax,
		Total:      total,
		GrandTotal: total + shipping,
	}, nil
}

func (a *Adapter) resolveCountry(ctx context.Context, alpha2 string) (country, error) {
	code := strings.ToUpper(strings.TrimSpace(alpha2))
	if code == "" {
		return country{}, fmt.Errorf("empty country code")
	}

	a.mu.RLock()
	cached, ok := a.countries[code]
	a.mu.RUnlock()
	if ok {
		return cached, nil
	}

	var list struct {
		Countries []country `json:"countries"`
	}
	if err := a.get(ctx, "/api/v2/countries?alpha2="+url.QueryEscape(code), &list); err != nil {
		return country{}, err
	}
	if len(list.Countries) == 0 {
		return country{}, fmt.Errorf("country %s not found", code)
	}

	a.mu.Lock()
	a.countries[code] = list.Countries[0]
	a.mu.Unlock()
	return list.Countries[0], nil
}

// resolveHSCode searches the provider catalog by description and falls back to
// the general-merchandise default when nothing matches. Failures here are not
// quote failures; a default classification still produces a usable estimate.
func (a *Adapter) resolveHSCode(ctx context.Context, description string) hsCode {
	key := strings.ToLower(strings.TrimSpace(description))
	if key == "" {
		return defaultHSCodes[0]
	}

	a.mu.RLock()
	cached, ok := a.hsCodes[key]
	a.mu.RUnlock()
	if ok {
		return cached
	}

	var list struct {
		HSCodes []hsCode `json:"hs_codes"`
	}
	err := a.get(ctx, "/api/v2/hs_codes?description="+url.QueryEscape(key), &list)
	if err != nil || len(list.HSCodes) == 0 {
		a.log.Info("hs code search missed, using default",
			zap.String("description", description),
			zap.Error(err),
		)
		return defaultHSCodes[0]
	}

	a.mu.Lock()
	a.hsCodes[key] = list.HSCodes[0]
	a.mu.Unlock()
	return list.HSCodes[0]
}

func (a *Adapter) get(ctx context.Context, path string, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.BaseURL+path, nil)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Authorization", "Bearer "+a.cfg.AccessToken)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) > limit {
		return s[:limit]
	}
	return s
}

type country struct {
	ID     int64  `json:"id"`
	Alpha2 string `json:"alpha2"`
	Name   string `json:"name"`
}

type hsCode struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

type taxRequest struct {
	OriginCountryID      int64           `json:"origin_country_id"`
	DestinationCountryID int64           `json:"destination_country_id"`
	Currency             string          `json:"currency"`
	TotalCustomsValue    decimal.Decimal `json:"total_customs_value"`
	ShippingCost         decimal.Decimal `json:"shipping_cost"`
	Items                []taxItem       `json:"items"`
}

type taxItem struct {
	Description   string          `json:"description"`
	DeclaredValue decimal.Decimal `json:"declared_customs_value"`
	Quantity      int             `json:"quantity"`
	ActualWeight  float64         `json:"actual_weight,omitempty"`
	HSCode        string          `json:"hs_code"`
}

type taxResponse struct {
	Duties decimal.Decimal `json:"duties"`
	Taxes  decimal.Decimal `json:"taxes"`
	Total  decimal.Decimal `json:"total"`
}

var _ quotedomain.Provider = (*Adapter)(nil)
