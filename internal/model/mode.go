package model

import "strings"

// Mode tags how a record's coordinates were obtained. The set is closed:
// consumers branch on it for precision labeling and cache tagging.
type Mode string

const (
	// Resolver tiers, most to least precise.
	ModeStreetNumber       Mode = "street_num"
	ModeStreetNumberBairro Mode = "street_num_bairro"
	ModePostalCityState    Mode = "postalcode_city_state"
	ModePostalOnly         Mode = "postalcode_only"

	// Non-tier origins.
	ModeCache         Mode = "cache"
	ModeImport        Mode = "import"
	ModeManualMapPick Mode = "manual_map_click"
	ModeFailed        Mode = "falha"
)

// Manual derives the manual-correction variant of a tier mode, e.g.
// street_num becomes manual_street_num.
func Manual(m Mode) Mode {
	return Mode("manual_" + string(m))
}

// Approximate reports whether the mode resolved at postal-code granularity
// rather than street level. Manual prefixes do not change precision.
func (m Mode) Approximate() bool {
	s := strings.TrimPrefix(string(m), "manual_")
	return strings.HasPrefix(s, "postalcode")
}

// Failed reports whether the record exhausted every resolver tier.
func (m Mode) Failed() bool { return m == ModeFailed }

// Resolved reports whether the mode carries usable coordinates.
func (m Mode) Resolved() bool { return m != "" && m != ModeFailed }
