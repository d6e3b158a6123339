// Package position delivers device location fixes to a navigation session.
//
// A Source streams Events until its context ends. Three sources exist:
//   - PushSource: fixes posted by the rider's device over HTTP
//   - KafkaSource: JSON fixes consumed from a Kafka topic
//   - FeedSource: a vehicle followed in a GTFS-Realtime VehiclePositions feed
//
// Errors reported on the stream are advisory. The session decides whether to
// keep waiting or switch to simulation.
package position
