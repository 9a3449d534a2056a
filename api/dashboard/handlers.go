// Package dashboard exposes the simulation over HTTP: the current state, the
// command surface, the charging log and a websocket state stream.
package dashboard

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/kilianp07/evdash/core/model"
	"github.com/kilianp07/evdash/core/sim"
	"github.com/kilianp07/evdash/pkg/export"
)

// Engine is the part of sim.Engine the API needs.
type Engine interface {
	Snapshot() model.Snapshot
	Execute(c sim.Command) error
}

// CommandResult is the response body of POST /api/commands.
type CommandResult struct {
	ID      string `json:"id"`
	Command string `json:"command"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
}

// ChargeLogs is the response body of GET /api/charging/logs.
type ChargeLogs struct {
	Sessions []model.ChargeLog `json:"sessions"`
	Open     *model.OpenCharge `json:"open,omitempty"`
}

// NewRouter wires every dashboard route. A non-empty token is required as a
// bearer token on each request.
func NewRouter(e Engine, token string, stream StreamOptions) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /api/state", NewStateHandler(e))
	mux.Handle("POST /api/commands", NewCommandHandler(e))
	mux.Handle("GET /api/charging/logs", NewChargeLogHandler(e))
	mux.Handle("GET /api/stream", NewStreamHandler(e, stream))
	return requireToken(token, mux)
}

func requireToken(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NewStateHandler returns the current snapshot via GET /api/state.
func NewStateHandler(e Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, e.Snapshot())
	})
}

// NewChargeLogHandler returns the completed and open charging sessions via
// GET /api/charging/logs. With ?format=csv the completed sessions are sent
// as a CSV attachment.
func NewChargeLogHandler(e Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := e.Snapshot()
		if r.URL.Query().Get("format") == "csv" {
			w.Header().Set("Content-Type", "text/csv")
			w.Header().Set("Content-Disposition", `attachment; filename="charging-logs.csv"`)
			_ = export.WriteCSV(w, s.ChargingLogs)
			return
		}
		logs := ChargeLogs{Sessions: s.ChargingLogs, Open: s.LastChargeLog}
		if logs.Sessions == nil {
			logs.Sessions = []model.ChargeLog{}
		}
		writeJSON(w, http.StatusOK, logs)
	})
}

// NewCommandHandler runs one command posted as JSON via POST /api/commands.
// Rejected commands answer with a 4xx status and the reason.
func NewCommandHandler(e Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var cmd sim.Command
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cmd); err != nil {
			writeJSON(w, http.StatusBadRequest, CommandResult{Error: "malformed command: " + err.Error()})
			return
		}
		if cmd.ID == "" {
			cmd.ID = uuid.NewString()
		}
		res := CommandResult{ID: cmd.ID, Command: cmd.Name, OK: true}
		if err := e.Execute(cmd); err != nil {
			res.OK = false
			res.Error = err.Error()
			writeJSON(w, statusFor(err), res)
			return
		}
		writeJSON(w, http.StatusOK, res)
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, sim.ErrUnknownProfile):
		return http.StatusNotFound
	case errors.Is(err, sim.ErrChargeWhileMoving),
		errors.Is(err, sim.ErrProfileExists),
		errors.Is(err, sim.ErrLastProfile):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
