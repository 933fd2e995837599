package store

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"PriceLens/internal/model"
)

// HTTPStore reads and writes observations through a document database's REST API.
//
//	GET  {base}/api/v1/observations?product=&area=&window_days=&limit=
//	GET  {base}/api/v1/observations?reporter_id=&limit=
//	POST {base}/api/v1/observations   (409 when the report is a duplicate)
type HTTPStore struct {
	client *resty.Client
	logger *zap.Logger
}

// NewHTTPStore creates a store with optional bearer auth and proxy support.
func NewHTTPStore(baseURL, apiKey, proxyURL string, logger *zap.Logger) *HTTPStore {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		c.SetAuthToken(apiKey)
	}
	if proxyURL != "" {
		c.SetProxy(proxyURL)
	}
	return &HTTPStore{client: c, logger: logger}
}

func (h *HTTPStore) FetchObservations(ctx context.Context, product, area string, windowDays, limit int) ([]model.PriceObservation, error) {
	params := map[string]string{"product": product}
	if area != "" {
		params["area"] = area
	}
	if windowDays > 0 {
		params["window_days"] = strconv.Itoa(windowDays)
	}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	obs, err := h.fetch(ctx, params)
	if err != nil || area == "" {
		return obs, err
	}
	out := obs[:0]
	for _, o := range obs {
		if o.Area == area {
			out = append(out, o)
		}
	}
	return out, nil
}

func (h *HTTPStore) FetchByReporter(ctx context.Context, reporterID string, limit int) ([]model.PriceObservation, error) {
	params := map[string]string{"reporter_id": reporterID}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	return h.fetch(ctx, params)
}

func (h *HTTPStore) fetch(ctx context.Context, params map[string]string) ([]model.PriceObservation, error) {
	var docs []model.PriceObservation
	resp, err := h.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&docs).
		Get("/api/v1/observations")
	if err != nil {
		return nil, fmt.Errorf("fetch observations: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch observations: status %d, body: %s", resp.StatusCode(), resp.String())
	}

	out := docs[:0]
	for _, d := range docs {
		if err := d.Validate(); err != nil {
			h.logger.Debug("skipping malformed observation", zap.String("id", d.ID), zap.Error(err))
			continue
		}
		d.ObservedAt = d.ObservedAt.UTC()
		out = append(out, d)
	}
	return newestFirst(out, 0), nil
}

func (h *HTTPStore) Add(ctx context.Context, obs *model.PriceObservation) error {
	if err := prepare(obs, time.Now()); err != nil {
		return err
	}
	resp, err := h.client.R().
		SetContext(ctx).
		SetBody(obs).
		Post("/api/v1/observations")
	if err != nil {
		return fmt.Errorf("add observation: %w", err)
	}
	if resp.StatusCode() == http.StatusConflict {
		return ErrDuplicateReport
	}
	if resp.IsError() {
		return fmt.Errorf("add observation: status %d, body: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// RecordSummary is a no-op: the document API keeps no aggregation history.
func (h *HTTPStore) RecordSummary(context.Context, model.AggregateSummary) error { return nil }

func (h *HTTPStore) Close() error { return nil }
