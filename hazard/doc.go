// Package hazard finds hazard zones close enough to the rider to matter.
//
// Zones come from a Store: PostGISStore reads the risk_zones table,
// OverpassStore derives zones from OpenStreetMap tags, and CachedStore puts an
// expiring LRU in front of either. A Scanner queries the store around the
// current position and turns the zones into Approaching records sorted by
// distance.
package hazard
