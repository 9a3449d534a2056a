package advisory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evdash/auth"
	coreadvisory "github.com/kilianp07/evdash/core/advisory"
	"github.com/kilianp07/evdash/core/factory"
)

func newServer(t *testing.T, routes map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for path, h := range routes {
		mux.HandleFunc(path, h)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func reply(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}
}

func TestClientRoundTrips(t *testing.T) {
	var got coreadvisory.RangeRequest
	srv := newServer(t, map[string]http.HandlerFunc{
		"/driving-recommendation": reply(`{"recommendation":"Ease off","justification":"high draw"}`),
		"/driving-style":          reply(`{"drivingStyle":"Aggressive","recommendations":["Brake earlier"]}`),
		"/predict-range": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			_, _ = io.WriteString(w, `{"estimatedRange":210.5,"confidence":0.8}`)
		},
		"/soh-forecast":      reply(`[{"odometer":1000,"soh":99},{"odometer":2000,"soh":98.5}]`),
		"/fatigue-detection": reply(`{"isFatigued":true,"confidence":0.9,"reasoning":"erratic"}`),
	})
	cli, err := NewClient(Config{BaseURL: srv.URL + "/", APIKey: "k"})
	require.NoError(t, err)
	ctx := context.Background()

	rec, err := cli.DrivingRecommendation(ctx, coreadvisory.RecommendationRequest{DriveMode: "Eco"})
	require.NoError(t, err)
	assert.Equal(t, "Ease off", rec.Recommendation)

	style, err := cli.DrivingStyle(ctx, coreadvisory.DrivingStyleRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Brake earlier"}, style.Recommendations)

	rng, err := cli.PredictRange(ctx, coreadvisory.RangeRequest{DrivingStyle: "Moderate", BatteryCapacity: 57})
	require.NoError(t, err)
	assert.Equal(t, 210.5, rng.EstimatedRange)
	assert.Equal(t, "Moderate", got.DrivingStyle)
	assert.Equal(t, 57.0, got.BatteryCapacity)

	fc, err := cli.ForecastSOH(ctx, coreadvisory.SOHForecastRequest{HistoricalData: []coreadvisory.SOHHistoryPoint{{Odometer: 50}}})
	require.NoError(t, err)
	require.Len(t, fc, 2)
	assert.Equal(t, 98.5, fc[1].SOH)

	fat, err := cli.Fatigue(ctx, coreadvisory.FatigueRequest{})
	require.NoError(t, err)
	assert.True(t, fat.IsFatigued)
}

func TestClientOAuthRefreshOn401(t *testing.T) {
	var issued atomic.Int32
	idp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"t%d","token_type":"bearer","expires_in":3600}`, issued.Add(1))
	}))
	defer idp.Close()

	var seen []string
	srv := newServer(t, map[string]http.HandlerFunc{
		"/fatigue-detection": func(w http.ResponseWriter, r *http.Request) {
			seen = append(seen, r.Header.Get("Authorization"))
			if r.Header.Get("Authorization") == "Bearer t1" {
				http.Error(w, "revoked", http.StatusUnauthorized)
				return
			}
			_, _ = io.WriteString(w, `{"isFatigued":false,"confidence":0.4,"reasoning":"steady"}`)
		},
	})
	cli, err := NewClient(Config{
		BaseURL: srv.URL,
		APIKey:  "ignored",
		OAuth:   auth.Conf{ClientID: "dash", ClientSecret: "s", TokenURL: idp.URL},
	})
	require.NoError(t, err)

	fat, err := cli.Fatigue(context.Background(), coreadvisory.FatigueRequest{})
	require.NoError(t, err)
	assert.False(t, fat.IsFatigued)
	assert.Equal(t, []string{"Bearer t1", "Bearer t2"}, seen)
}

func TestClientErrors(t *testing.T) {
	srv := newServer(t, map[string]http.HandlerFunc{
		"/driving-recommendation": reply(`{"recommendation":""}`),
		"/driving-style": func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		},
		"/predict-range":     reply(`not json`),
		"/soh-forecast":      reply(`[{"odometer":2000,"soh":98},{"odometer":1000,"soh":99}]`),
		"/fatigue-detection": reply(`{"isFatigued":true,"confidence":1.5}`),
	})
	cli, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = cli.DrivingRecommendation(ctx, coreadvisory.RecommendationRequest{})
	assert.ErrorIs(t, err, coreadvisory.ErrMalformedResponse)

	_, err = cli.DrivingStyle(ctx, coreadvisory.DrivingStyleRequest{})
	assert.ErrorContains(t, err, "503")

	_, err = cli.PredictRange(ctx, coreadvisory.RangeRequest{})
	assert.ErrorIs(t, err, coreadvisory.ErrMalformedResponse)

	_, err = cli.ForecastSOH(ctx, coreadvisory.SOHForecastRequest{HistoricalData: []coreadvisory.SOHHistoryPoint{{}}})
	assert.ErrorIs(t, err, coreadvisory.ErrMalformedResponse)

	_, err = cli.ForecastSOH(ctx, coreadvisory.SOHForecastRequest{})
	assert.Error(t, err)

	_, err = cli.Fatigue(ctx, coreadvisory.FatigueRequest{})
	assert.ErrorIs(t, err, coreadvisory.ErrMalformedResponse)
}

func TestClientHonoursContext(t *testing.T) {
	srv := newServer(t, map[string]http.HandlerFunc{
		"/fatigue-detection": func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		},
	})
	cli, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = cli.Fatigue(ctx, coreadvisory.FatigueRequest{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRegistryHTTP(t *testing.T) {
	svc, err := coreadvisory.New(factory.ModuleConfig{Type: "http", Conf: map[string]any{"base_url": "http://localhost:9", "timeout_ms": "250"}})
	require.NoError(t, err)
	cli, ok := svc.(*Client)
	require.True(t, ok)
	assert.Equal(t, 250*time.Millisecond, cli.http.Timeout)

	_, err = coreadvisory.New(factory.ModuleConfig{Type: "http"})
	assert.Error(t, err)
}
