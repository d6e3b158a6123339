// Package navigation runs a live navigation session.
//
// A Navigator owns one Session at a time. Its event loop takes samples from
// the Arbiter (live fixes or the simulated replay), projects them onto the
// route, merges progress into the session and, at most once every few
// seconds, scans for hazards and hands the result to the alert dispatcher.
//
// The Arbiter is a plain state machine with states idle, live tracking,
// simulated tracking and ended. It decides which samples reach the session;
// the Navigator owns the timers and subscriptions it asks for.
package navigation
