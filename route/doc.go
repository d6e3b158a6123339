// Package route holds the precomputed route a rider follows: the polyline,
// the ordered maneuvers and the planner's summary.
//
// Routes reach the service either as a Document (GeoJSON geometry plus
// maneuvers, typically posted by the client that planned the trip) or from a
// Valhalla routing engine through ValhallaClient.
package route
