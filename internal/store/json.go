package store

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/lojamap/lojamap/internal/model"
)

// looseFloat tolerates coordinates written as JSON numbers or numeric
// strings, which both occur in cache dumps produced by older exports.
// Anything unparsable decodes to NaN so the finiteness filter drops it.
type looseFloat float64

func (f *looseFloat) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if len(s) >= 2 && s[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			*f = looseFloat(math.NaN())
			return nil
		}
		s = strings.TrimSpace(str)
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = looseFloat(math.NaN())
		return nil
	}
	*f = looseFloat(n)
	return nil
}

type looseEntry struct {
	Lat  looseFloat `json:"lat"`
	Lon  looseFloat `json:"lon"`
	Mode string     `json:"mode"`
	Q    string     `json:"q"`
	TS   int64      `json:"ts"`
}

// DecodeDump parses a cache-dump document into entries ready for
// ImportMerge. A document that is not a JSON object is an error; malformed
// individual entries are dropped silently so one bad row never aborts an
// import.
func DecodeDump(data []byte) (map[string]model.GeocodeEntry, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrap(err, "store: parse cache dump")
	}

	out := make(map[string]model.GeocodeEntry, len(raw))
	for key, msg := range raw {
		// Absent lat/lon must fail the finiteness filter, not default to 0.
		le := looseEntry{Lat: looseFloat(math.NaN()), Lon: looseFloat(math.NaN())}
		if err := json.Unmarshal(msg, &le); err != nil {
			continue
		}
		out[key] = model.GeocodeEntry{
			Lat:   float64(le.Lat),
			Lon:   float64(le.Lon),
			Mode:  model.Mode(le.Mode),
			Query: le.Q,
			TS:    le.TS,
		}
	}
	return out, nil
}

// EncodeDump serializes geocode entries in the interchange format
// re-importable by DecodeDump.
func EncodeDump(entries map[string]model.GeocodeEntry) ([]byte, error) {
	data, err := json.MarshalIndent(entries, "", "  ")
	return data, eris.Wrap(err, "store: encode cache dump")
}
