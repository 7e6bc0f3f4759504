// Package domain models natural-disaster events gathered from two public
// catalogs and the pure transforms served on top of them.
//
// # Data Sources
//
// Geophysical events come from NASA's Earth Observatory Natural Event Tracker
// (EONET v3, https://eonet.gsfc.nasa.gov/api/v3/events). Only events with
// status "open" are requested. Each EONET event carries a list of geometry
// samples; the first sample supplies both the event date and, when it is a
// Point, the coordinates. Polygon samples carry nested coordinate arrays and
// are not flattened.
//
// Seismic events come from the USGS FDSN event service
// (https://earthquake.usgs.gov/fdsnws/event/1/query) as GeoJSON. A feature's
// geometry is [lon, lat, depth_km] and properties.time is milliseconds since
// the Unix epoch. USGS may report a null magnitude; that is kept as "not
// applicable" rather than zero.
//
// # Unified Shape
//
// Both catalogs normalize into [Event]. The Type field ("disaster" or
// "earthquake") is kept for display branching only; filtering and statistics
// look at categories, magnitude and date.
//
// Magnitude selectors used by the filter engine are half-open intervals:
//
//	4-4.9  [4.0, 5.0)
//	5-5.9  [5.0, 6.0)
//	6-6.9  [6.0, 7.0)
//	7+     [7.0, +Inf)
//
// The statistics histogram uses the same boundaries evaluated top-down, so a
// magnitude 7.2 earthquake lands only in "7.0+". Magnitudes below 4.0 are
// left out of every bucket.
//
// # Time
//
// Every time-dependent function takes "now" as an argument. Calendar days in
// the statistics timeline are UTC dates formatted as 2006-01-02.
package domain
