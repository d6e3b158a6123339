// Package geo provides the spherical geometry used by the tracking and hazard
// packages: great-circle distance, initial bearing and the flat-earth bounding
// boxes used to query nearby hazard zones.
//
// Coordinates are WGS84 degrees. Bounding boxes are orb.Bound values, so the
// X axis holds longitude and the Y axis holds latitude.
package geo
