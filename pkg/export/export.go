// Package export writes charging session history for download.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/kilianp07/evdash/core/model"
)

// CSVHeader is the first row written by WriteCSV.
var CSVHeader = []string{"id", "start_time", "end_time", "start_soc", "end_soc", "energy_added_kwh", "duration_s"}

// WriteJSON writes the sessions to w as a JSON array.
func WriteJSON(w io.Writer, logs []model.ChargeLog) error {
	if logs == nil {
		logs = []model.ChargeLog{}
	}
	enc := json.NewEncoder(w)
	return enc.Encode(logs)
}

// WriteCSV writes the sessions to w in CSV format, oldest first.
func WriteCSV(w io.Writer, logs []model.ChargeLog) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, l := range logs {
		rec := []string{
			l.ID,
			l.StartTime.Format(time.RFC3339),
			l.EndTime.Format(time.RFC3339),
			formatFloat(l.StartSOC),
			formatFloat(l.EndSOC),
			formatFloat(l.EnergyAddedKWh),
			formatFloat(l.EndTime.Sub(l.StartTime).Seconds()),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
