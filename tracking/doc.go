// Package tracking projects a rider onto the route being followed and
// estimates what is left of the trip.
//
// This package handles:
// - Snapping a position to the nearest route vertex
// - Deciding whether the rider is still on the route
// - Remaining distance and duration along the route
// - Selecting the next maneuver to announce
//
// All functions are pure and safe for concurrent use.
package tracking
