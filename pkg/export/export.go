package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/taxidispatch/core/dispatch/logging"
)

var csvHeader = []string{"timestamp", "tick", "origin", "destination", "call_time", "price", "outcome", "agent", "reason", "bidders"}

// WriteJSON writes the allocation decisions to w in JSON format.
func WriteJSON(w io.Writer, records []logging.LogRecord) error {
	enc := json.NewEncoder(w)
	return enc.Encode(records)
}

// WriteCSV writes the allocation decisions to w in CSV format, one row per
// decision. Bidders are joined with semicolons.
func WriteCSV(w io.Writer, records []logging.LogRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range records {
		bidders := make([]string, len(r.Bidders))
		for i, b := range r.Bidders {
			bidders[i] = string(b)
		}
		rec := []string{
			r.Timestamp.Format(time.RFC3339),
			strconv.Itoa(r.Tick),
			r.Fare.Origin.String(),
			r.Fare.Destination.String(),
			strconv.Itoa(r.Fare.CallTime),
			strconv.FormatFloat(r.Price, 'f', -1, 64),
			r.Outcome,
			string(r.Agent),
			r.Reason,
			strings.Join(bidders, ";"),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
