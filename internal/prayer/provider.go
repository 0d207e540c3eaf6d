// Package prayer resolves named daily prayers to concrete instants.
package prayer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/manav03panchal/chime/internal/errors"
	"github.com/manav03panchal/chime/internal/model"
)

// Provider fetches the prayer table of one day at one location.
type Provider interface {
	DayTable(ctx context.Context, loc model.Location, date model.Date) (*model.PrayerDayTable, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, loc model.Location, date model.Date) (*model.PrayerDayTable, error)

// DayTable calls f.
func (f ProviderFunc) DayTable(ctx context.Context, loc model.Location, date model.Date) (*model.PrayerDayTable, error) {
	return f(ctx, loc, date)
}

// AladhanProvider reads timings from the Aladhan timingsByCity endpoint.
type AladhanProvider struct {
	baseURL string
	method  int
	client  *http.Client
	limiter *rate.Limiter
}

// NewAladhanProvider creates a provider for baseURL. Requests are limited to
// ratePerSec; zero or less disables the limit.
func NewAladhanProvider(baseURL string, method int, timeout time.Duration, ratePerSec int) *AladhanProvider {
	p := &AladhanProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		method:  method,
		client:  &http.Client{Timeout: timeout},
	}
	if ratePerSec > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec)
	}
	return p
}

type aladhanResponse struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
	Data   struct {
		Timings map[string]string `json:"timings"`
	} `json:"data"`
}

// DayTable fetches the five canonical timings for date at loc.
func (p *AladhanProvider) DayTable(ctx context.Context, loc model.Location, date model.Date) (*model.PrayerDayTable, error) {
	if loc.IsZero() {
		return nil, fmt.Errorf("%w: no city given", errors.ErrProviderUnavailable)
	}
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrProviderUnavailable, err)
		}
	}

	q := url.Values{}
	q.Set("city", strings.TrimSpace(loc.City))
	q.Set("country", strings.TrimSpace(loc.Country))
	q.Set("method", fmt.Sprint(p.method))
	endpoint := fmt.Sprintf("%s/timingsByCity/%02d-%02d-%04d?%s", p.baseURL, date.Day, int(date.Month), date.Year, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "chime/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", errors.ErrProviderUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d", errors.ErrProviderUnavailable, resp.StatusCode)
	}

	var decoded aladhanResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", errors.ErrProviderUnavailable, err)
	}
	if decoded.Code != 0 && decoded.Code != http.StatusOK {
		return nil, fmt.Errorf("%w: provider status %d %s", errors.ErrProviderUnavailable, decoded.Code, decoded.Status)
	}

	table := &model.PrayerDayTable{
		City:    strings.TrimSpace(loc.City),
		Country: strings.TrimSpace(loc.Country),
		Date:    date,
		Times:   make(map[model.PrayerName]model.TimeOfDay, 5),
	}
	for _, name := range model.PrayerNames() {
		raw, ok := decoded.Data.Timings[string(name)]
		if !ok {
			return nil, fmt.Errorf("%w: missing %s timing", errors.ErrProviderUnavailable, name)
		}
		tod, err := model.ParseTimeOfDay(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrProviderUnavailable, err)
		}
		table.Times[name] = tod
	}
	return table, nil
}
