// Package wattbox talks to the embedded web interface of SnapAV WattBox
// WB-800 series PDUs. The firmware has no documented API, so outlet and
// power state are scraped from the generated HTML status page, and the
// authentication scheme (Basic, Digest, or a cookie/form login) differs
// between firmware revisions and has to be negotiated at runtime.
package wattbox

// OutletInfo describes one switchable outlet as read from the status page.
// A fresh slice is produced on every fetch; values are never mutated in
// place. Watts/Amps are nil when the page carries no parseable reading
// for the outlet.
type OutletInfo struct {
	Number      int      `json:"number"`
	Name        string   `json:"name"`
	IsOn        bool     `json:"is_on"`
	IsResetOnly bool     `json:"is_reset_only"`
	Watts       *float64 `json:"watts,omitempty"`
	Amps        *float64 `json:"amps,omitempty"`
}

// DeviceMetrics holds the whole-device readings. Fields are nil when the
// firmware page omits them or the payload does not parse as a number.
type DeviceMetrics struct {
	Voltage    *float64 `json:"voltage,omitempty"`
	TotalWatts *float64 `json:"total_watts,omitempty"`
	TotalAmps  *float64 `json:"total_amps,omitempty"`
}

// DeviceStatus bundles the outlet list and aggregate metrics derived from
// a single load of the status page, so the two can never disagree about
// which page revision they came from.
type DeviceStatus struct {
	Outlets []OutletInfo  `json:"outlets"`
	Metrics DeviceMetrics `json:"metrics"`
}
