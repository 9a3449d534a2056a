// Package advisory provides the HTTP implementation of the advisory service.
package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kilianp07/evdash/auth"
	coreadvisory "github.com/kilianp07/evdash/core/advisory"
	"github.com/kilianp07/evdash/core/factory"
	"github.com/kilianp07/evdash/infra/logger"
)

func init() {
	_ = coreadvisory.Registry.Register("http", func(conf map[string]any) (coreadvisory.Service, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewClient(c)
	})
}

// Paths of the advisory endpoints relative to the base URL.
var Paths = map[string]string{
	coreadvisory.EndpointRecommendation: "/driving-recommendation",
	coreadvisory.EndpointDrivingStyle:   "/driving-style",
	coreadvisory.EndpointDynamicRange:   "/predict-range",
	coreadvisory.EndpointSOHForecast:    "/soh-forecast",
	coreadvisory.EndpointFatigue:        "/fatigue-detection",
}

// maxBody caps how much of a response is read.
const maxBody = 1 << 20

// Config is the decoded configuration of the "http" advisory service.
// OAuth takes precedence over APIKey when configured.
type Config struct {
	BaseURL   string    `json:"base_url"`
	TimeoutMS int       `json:"timeout_ms"`
	APIKey    string    `json:"api_key"`
	OAuth     auth.Conf `json:"oauth"`
}

// Client calls the advisory service over JSON/HTTP.
type Client struct {
	base   string
	apiKey string
	creds  *auth.ClientCred
	http   *http.Client
	log    logger.Logger
}

// NewClient validates c and returns a client.
func NewClient(c Config) (*Client, error) {
	if c.BaseURL == "" {
		return nil, fmt.Errorf("advisory http: base_url is required")
	}
	if c.TimeoutMS <= 0 {
		c.TimeoutMS = 5000
	}
	cl := &Client{
		base:   strings.TrimSuffix(c.BaseURL, "/"),
		apiKey: c.APIKey,
		http:   &http.Client{Timeout: time.Duration(c.TimeoutMS) * time.Millisecond},
		log:    logger.New("advisory-http"),
	}
	if c.OAuth.Enabled() {
		cl.creds = auth.NewClientCred(c.OAuth)
	}
	return cl, nil
}

func (c *Client) post(ctx context.Context, endpoint string, req, out any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", endpoint, err)
	}
	status, data, err := c.do(ctx, endpoint, body)
	if err == nil && status == http.StatusUnauthorized && c.creds != nil {
		// The cached token may have been revoked; retry once with a new one.
		if _, rerr := c.creds.ForceRefresh(ctx); rerr != nil {
			return fmt.Errorf("%s: %w", endpoint, rerr)
		}
		status, data, err = c.do(ctx, endpoint, body)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", endpoint, err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %d: %s", endpoint, status, strings.TrimSpace(string(data)))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: %w: %v", endpoint, coreadvisory.ErrMalformedResponse, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, endpoint string, body []byte) (int, []byte, error) {
	hr, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+Paths[endpoint], bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	hr.Header.Set("Content-Type", "application/json")
	hr.Header.Set("Accept", "application/json")
	switch {
	case c.creds != nil:
		if err := c.creds.SetAuthHeader(hr); err != nil {
			return 0, nil, err
		}
	case c.apiKey != "":
		hr.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.http.Do(hr)
	if err != nil {
		return 0, nil, err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Warnf("%s: close body: %v", endpoint, cerr)
		}
	}()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, data, nil
}

func (c *Client) DrivingRecommendation(ctx context.Context, req coreadvisory.RecommendationRequest) (coreadvisory.RecommendationResponse, error) {
	var out coreadvisory.RecommendationResponse
	if err := c.post(ctx, coreadvisory.EndpointRecommendation, req, &out); err != nil {
		return out, err
	}
	return out, out.Validate()
}

func (c *Client) DrivingStyle(ctx context.Context, req coreadvisory.DrivingStyleRequest) (coreadvisory.DrivingStyleResponse, error) {
	var out coreadvisory.DrivingStyleResponse
	if err := c.post(ctx, coreadvisory.EndpointDrivingStyle, req, &out); err != nil {
		return out, err
	}
	return out, out.Validate()
}

func (c *Client) PredictRange(ctx context.Context, req coreadvisory.RangeRequest) (coreadvisory.RangeResponse, error) {
	var out coreadvisory.RangeResponse
	if err := c.post(ctx, coreadvisory.EndpointDynamicRange, req, &out); err != nil {
		return out, err
	}
	return out, out.Validate()
}

// ForecastSOH expects a JSON array of forecast points ordered by odometer.
func (c *Client) ForecastSOH(ctx context.Context, req coreadvisory.SOHForecastRequest) ([]coreadvisory.ForecastPoint, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out []coreadvisory.ForecastPoint
	if err := c.post(ctx, coreadvisory.EndpointSOHForecast, req, &out); err != nil {
		return nil, err
	}
	return out, coreadvisory.ValidateForecast(out)
}

func (c *Client) Fatigue(ctx context.Context, req coreadvisory.FatigueRequest) (coreadvisory.FatigueResponse, error) {
	var out coreadvisory.FatigueResponse
	if err := c.post(ctx, coreadvisory.EndpointFatigue, req, &out); err != nil {
		return out, err
	}
	return out, out.Validate()
}
