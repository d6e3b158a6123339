// Package alert turns the scanner's approaching hazards into at most one
// audible warning per approach: a severity tone pattern followed by a spoken
// message.
package alert
