package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evdash/core/model"
	"github.com/kilianp07/evdash/core/sim"
)

func newEngine() (*sim.Engine, *sim.ManualClock) {
	p := sim.DefaultParams()
	clock := sim.NewManualClock(time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC))
	e := sim.NewEngine(sim.NewSnapshot(p, sim.DefaultInitialState()), p,
		sim.WithClock(clock), sim.WithNow(clock.Now))
	return e, clock
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestStateHandler(t *testing.T) {
	eng, _ := newEngine()
	w := do(t, NewRouter(eng, "", StreamOptions{}), http.MethodGet, "/api/state", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var s model.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	assert.Equal(t, 80.0, s.BatterySOC)
	assert.Equal(t, model.ModeEco, s.DriveMode)
}

func TestCommandHandler(t *testing.T) {
	eng, _ := newEngine()
	h := NewRouter(eng, "", StreamOptions{})

	tests := []struct {
		name   string
		body   string
		status int
		ok     bool
	}{
		{"drive mode", `{"id":"a","command":"set_drive_mode","arg":"City"}`, http.StatusOK, true},
		{"add profile", `{"command":"add_profile","arg":"Bob"}`, http.StatusOK, true},
		{"duplicate profile", `{"command":"add_profile","arg":"Bob"}`, http.StatusConflict, false},
		{"unknown profile", `{"command":"switch_profile","arg":"Zed"}`, http.StatusNotFound, false},
		{"unknown command", `{"command":"launch"}`, http.StatusBadRequest, false},
		{"bad mode", `{"command":"set_drive_mode","arg":"Warp"}`, http.StatusBadRequest, false},
		{"malformed", `{"command":`, http.StatusBadRequest, false},
		{"unknown field", `{"command":"toggle_ac","extra":1}`, http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/api/commands", tt.body)
			assert.Equal(t, tt.status, w.Code)
			var res CommandResult
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
			assert.Equal(t, tt.ok, res.OK)
			if !tt.ok {
				assert.NotEmpty(t, res.Error)
			}
		})
	}
	s := eng.Snapshot()
	assert.Equal(t, model.ModeCity, s.DriveMode)
	assert.Contains(t, s.Profiles, "Bob")
}

func TestCommandHandlerRejectsChargingWhileMoving(t *testing.T) {
	eng, clock := newEngine()
	eng.SetPedal(model.PedalAccelerate)
	for i := 0; i < 5; i++ {
		clock.Advance(100 * time.Millisecond)
		eng.Tick(clock.Now())
	}
	require.Greater(t, eng.Snapshot().Speed, 0.0)

	w := do(t, NewCommandHandler(eng), http.MethodPost, "/api/commands", `{"command":"toggle_charging"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.False(t, eng.Snapshot().IsCharging)
}

func TestChargeLogHandler(t *testing.T) {
	eng, _ := newEngine()
	h := NewRouter(eng, "", StreamOptions{})

	w := do(t, h, http.MethodGet, "/api/charging/logs", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"sessions":[]}`, w.Body.String())

	require.NoError(t, eng.ToggleCharging())
	w = do(t, h, http.MethodGet, "/api/charging/logs", "")
	var logs ChargeLogs
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &logs))
	require.NotNil(t, logs.Open)
	assert.Equal(t, 80.0, logs.Open.StartSOC)

	require.NoError(t, eng.ToggleCharging())
	w = do(t, h, http.MethodGet, "/api/charging/logs", "")
	logs = ChargeLogs{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &logs))
	assert.Nil(t, logs.Open)
	assert.Len(t, logs.Sessions, 1)

	w = do(t, h, http.MethodGet, "/api/charging/logs?format=csv", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "id,start_time,end_time")
	assert.Contains(t, w.Body.String(), logs.Sessions[0].ID)
}

func TestRouterToken(t *testing.T) {
	h := NewRouter(engineOnly(), "secret", StreamOptions{})

	w := do(t, h, http.MethodGet, "/api/state", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterMethods(t *testing.T) {
	h := NewRouter(engineOnly(), "", StreamOptions{})
	w := do(t, h, http.MethodGet, "/api/commands", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func engineOnly() *sim.Engine {
	e, _ := newEngine()
	return e
}
